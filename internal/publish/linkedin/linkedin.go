// Package linkedin posts article shares through the LinkedIn REST API.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autopost/internal/config"
	"autopost/internal/publish"
	logx "autopost/pkg/logx"
)

const (
	defaultBaseURL = "https://api.linkedin.com"
	defaultVersion = "202501"

	// Image processing is async on LinkedIn's side; poll a bounded number
	// of times and give up on the image (not the post) past that.
	imagePollAttempts = 10
	imagePollDelay    = 2 * time.Second

	// LinkedIn recommends short descriptions on article shares with images.
	maxThumbDescription = 256
	maxDescription      = 4000
)

type Client struct {
	base    string
	token   string
	author  string // urn:li:person:<id>
	version string
	http    *http.Client
	log     logx.Logger

	pollAttempts int
	pollDelay    time.Duration
}

func New(cfg config.LinkedInConfig, log logx.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = defaultVersion
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		base:         base,
		token:        cfg.AccessToken,
		author:       "urn:li:person:" + strings.TrimSpace(cfg.UserID),
		version:      version,
		http:         &http.Client{Timeout: 20 * time.Second},
		log:          log,
		pollAttempts: imagePollAttempts,
		pollDelay:    imagePollDelay,
	}
}

func (c *Client) Name() string { return "linkedin" }

// VerifyCredential checks the access token against the userinfo endpoint.
// LinkedIn member tokens are short-lived, so a stale token should surface as
// a credential failure before any publish is attempted.
func (c *Client) VerifyCredential(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v2/userinfo", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}
	return nil
}

// Publish creates an article share. The image side-channel is best-effort:
// any failure there logs a warning and the post goes out without a
// thumbnail.
func (c *Client) Publish(ctx context.Context, post publish.Post) (string, error) {
	var thumbnail string
	if post.ImageURL != "" {
		urn, err := c.prepareImage(ctx, post.ImageURL)
		if err != nil {
			c.log.Warn("image upload failed, posting without thumbnail",
				logx.String("image", post.ImageURL), logx.Err(err))
		} else {
			thumbnail = urn
		}
	}
	return c.createPost(ctx, post, thumbnail)
}

type articleContent struct {
	Source      string `json:"source"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type postRequest struct {
	Author       string `json:"author"`
	Commentary   string `json:"commentary"`
	Visibility   string `json:"visibility"`
	Distribution struct {
		FeedDistribution               string `json:"feedDistribution"`
		TargetEntities                 []any  `json:"targetEntities"`
		ThirdPartyDistributionChannels []any  `json:"thirdPartyDistributionChannels"`
	} `json:"distribution"`
	Content struct {
		Article articleContent `json:"article"`
	} `json:"content"`
	LifecycleState            string `json:"lifecycleState"`
	IsReshareDisabledByAuthor bool   `json:"isReshareDisabledByAuthor"`
}

func (c *Client) createPost(ctx context.Context, post publish.Post, thumbnail string) (string, error) {
	title := post.Title
	if title == "" {
		title = "Blog Post"
	}
	desc := post.Message
	maxDesc := maxDescription
	if thumbnail != "" {
		maxDesc = maxThumbDescription
	}
	if len(desc) > maxDesc {
		desc = desc[:maxDesc]
	}

	var pr postRequest
	pr.Author = c.author
	pr.Commentary = post.Message
	pr.Visibility = "PUBLIC"
	pr.Distribution.FeedDistribution = "MAIN_FEED"
	pr.Distribution.TargetEntities = []any{}
	pr.Distribution.ThirdPartyDistributionChannels = []any{}
	pr.Content.Article = articleContent{
		Source:      post.URL,
		Thumbnail:   thumbnail,
		Title:       title,
		Description: desc,
	}
	pr.LifecycleState = "PUBLISHED"

	body, err := json.Marshal(pr)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/rest/posts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.apiError(resp)
	}

	// The created post URN arrives in a header; fall back to a body id.
	if id := resp.Header.Get("x-restli-id"); id != "" {
		return id, nil
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && out.ID != "" {
		return out.ID, nil
	}
	return "", &publish.Error{Class: publish.FailPlatform, Msg: "post created but no id returned"}
}

// prepareImage runs the three-step image side-channel: initialize the
// upload, push the bytes, then wait until LinkedIn reports the asset ready.
func (c *Client) prepareImage(ctx context.Context, imageURL string) (string, error) {
	uploadURL, urn, err := c.initializeUpload(ctx)
	if err != nil {
		return "", fmt.Errorf("initialize upload: %w", err)
	}
	if err := c.uploadImage(ctx, uploadURL, imageURL); err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	if err := c.waitForImage(ctx, urn); err != nil {
		return "", fmt.Errorf("image processing: %w", err)
	}
	return urn, nil
}

func (c *Client) initializeUpload(ctx context.Context) (uploadURL, imageURN string, err error) {
	body := fmt.Sprintf(`{"initializeUploadRequest":{"owner":%q}}`, c.author)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/rest/images?action=initializeUpload", strings.NewReader(body))
	if err != nil {
		return "", "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", c.apiError(resp)
	}

	var out struct {
		Value struct {
			UploadURL string `json:"uploadUrl"`
			Image     string `json:"image"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	if out.Value.UploadURL == "" || out.Value.Image == "" {
		return "", "", errors.New("initializeUpload response incomplete")
	}
	return out.Value.UploadURL, out.Value.Image, nil
}

func (c *Client) uploadImage(ctx context.Context, uploadURL, imageURL string) error {
	get, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	src, err := c.http.Do(get)
	if err != nil {
		return err
	}
	defer src.Body.Close()
	if src.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch image: status %d", src.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(src.Body, 36<<20))
	if err != nil {
		return err
	}

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	put.Header.Set("Content-Type", "application/octet-stream")
	put.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(put)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) waitForImage(ctx context.Context, imageURN string) error {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		status, err := c.imageStatus(ctx, imageURN)
		if err != nil {
			return err
		}
		switch status {
		case "AVAILABLE":
			return nil
		case "PROCESSING_FAILED":
			return errors.New("processing failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollDelay):
		}
	}
	return errors.New("timed out waiting for image to become available")
}

func (c *Client) imageStatus(ctx context.Context, imageURN string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base+"/rest/images/"+url.PathEscape(imageURN), nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image status returned %d", resp.StatusCode)
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) apiError(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := strings.TrimSpace(string(detail))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &publish.Error{
			Class:      publish.FailCredential,
			StatusCode: resp.StatusCode,
			Msg:        "token is unauthorized - needs refresh",
		}
	case http.StatusForbidden:
		return &publish.Error{
			Class:      publish.FailPlatform,
			StatusCode: resp.StatusCode,
			Msg:        "token doesn't have required permissions",
		}
	case http.StatusTooManyRequests:
		return &publish.Error{
			Class:      publish.FailRateLimit,
			StatusCode: resp.StatusCode,
			Msg:        "API rate limit exceeded",
		}
	default:
		if msg == "" {
			msg = "API error"
		}
		return &publish.Error{Class: publish.FailPlatform, StatusCode: resp.StatusCode, Msg: msg}
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("LinkedIn-Version", c.version)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	req.Header.Set("Content-Type", "application/json")
}
