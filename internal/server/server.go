// Package server exposes the HTTP trigger envelope: an external scheduler
// POSTs a window name, the runner does the rest.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"autopost/internal/config"
	"autopost/internal/publish"
	"autopost/internal/run"
	logx "autopost/pkg/logx"
)

const maxBodyBytes = 64 * 1024

type Server struct {
	addr   string
	runner *run.Runner
	log    logx.Logger
	srv    *http.Server
}

func New(cfg config.ServerConfig, sig config.SignatureConfig, runner *run.Runner, log logx.Logger) (*Server, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	readHeaderTimeout, err := config.ParseDurationOrDefault("server.read_header_timeout", cfg.ReadHeaderTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	s := &Server{addr: addr, runner: runner, log: log.With(logx.String("comp", "server"))}

	mux := chi.NewRouter()
	mux.Get("/healthz", s.handleHealth)
	mux.With(verifySignature(sig, s.log)).Post("/trigger", s.handleTrigger)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run starts the listener and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("http listening", logx.String("addr", s.addr))
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// triggerBody accepts both the nested scheduler payload shape and a flat
// windowName for manual invocations.
type triggerBody struct {
	Payload struct {
		WindowName string `json:"windowName"`
	} `json:"payload"`
	WindowName string `json:"windowName"`
}

type triggerResponse struct {
	Success      bool               `json:"success"`
	Skipped      bool               `json:"skipped,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	Window       string             `json:"window,omitempty"`
	SelectedItem string             `json:"selectedItemId,omitempty"`
	OutcomeSet   publish.OutcomeSet `json:"outcomeSet,omitempty"`
	Error        string             `json:"error,omitempty"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var body triggerBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	windowName := body.Payload.WindowName
	if windowName == "" {
		windowName = body.WindowName
	}

	out := s.runner.Run(r.Context(), run.Trigger{Window: windowName})

	resp := triggerResponse{
		Success:      out.Class == run.ClassPublished,
		Skipped:      out.Class == run.ClassSkipped,
		Reason:       out.Reason,
		Window:       out.Window,
		SelectedItem: out.ItemURL,
		OutcomeSet:   out.Outcomes,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	writeJSON(w, out.HTTPStatus(), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
