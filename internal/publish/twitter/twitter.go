// Package twitter posts to the X/Twitter v2 API.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"autopost/internal/config"
	"autopost/internal/publish"
	logx "autopost/pkg/logx"
)

const defaultBaseURL = "https://api.twitter.com"

type Client struct {
	base    string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     logx.Logger

	now func() time.Time
}

func New(cfg config.TwitterConfig, log logx.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	var limiter *rate.Limiter
	if cfg.RatePerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMin)/60), 1)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		base:    base,
		token:   cfg.BearerToken,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
		log:     log,
		now:     time.Now,
	}
}

func (c *Client) Name() string { return "twitter" }

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Publish posts the message with the item URL appended on its own paragraph.
func (c *Client) Publish(ctx context.Context, post publish.Post) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	text := post.Message
	if post.URL != "" {
		text = post.Message + "\n\n" + post.URL
	}

	body, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", c.rateLimitError(resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &publish.Error{
			Class:      publish.FailPlatform,
			StatusCode: resp.StatusCode,
			Msg:        "tweet rejected: " + strings.TrimSpace(string(detail)),
		}
	}

	var tr tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode tweet response: %w", err)
	}
	if tr.Data.ID == "" {
		return "", &publish.Error{Class: publish.FailPlatform, Msg: "tweet response missing id"}
	}
	return tr.Data.ID, nil
}

// rateLimitError turns a 429 into a message with the time remaining until
// the 24-hour app limit resets, so operators can tell "try again in 3 hours"
// from a hard failure.
func (c *Client) rateLimitError(resp *http.Response) error {
	msg := "daily post limit reached"
	if limit := resp.Header.Get("x-app-limit-24hour-limit"); limit != "" {
		msg = fmt.Sprintf("daily post limit (%s posts) reached", limit)
	}
	if raw := resp.Header.Get("x-app-limit-24hour-reset"); raw != "" {
		if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
			reset := time.Unix(epoch, 0)
			now := c.now()
			msg = fmt.Sprintf("%s, resets in %s (at %s)",
				msg, publish.FormatUntilReset(reset, now), reset.Format(time.RFC1123))
		}
	}
	return &publish.Error{Class: publish.FailRateLimit, StatusCode: http.StatusTooManyRequests, Msg: msg}
}
