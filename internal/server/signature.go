package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"autopost/internal/config"
	logx "autopost/pkg/logx"
)

const defaultSignatureHeader = "X-Autopost-Signature"

// verifySignature authenticates trigger bodies with an HMAC-SHA256 hex
// digest over the raw payload. Bypass short-circuits verification for local
// development runs.
func verifySignature(cfg config.SignatureConfig, log logx.Logger) func(http.Handler) http.Handler {
	header := cfg.Header
	if header == "" {
		header = defaultSignatureHeader
	}
	key := []byte(cfg.Key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Bypass {
				log.Debug("signature verification bypassed")
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(header)
			if got == "" {
				log.Warn("trigger rejected: missing signature")
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing signature"})
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			mac := hmac.New(sha256.New, key)
			mac.Write(body)
			want := hex.EncodeToString(mac.Sum(nil))

			if !hmac.Equal([]byte(got), []byte(want)) {
				log.Warn("trigger rejected: invalid signature")
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
