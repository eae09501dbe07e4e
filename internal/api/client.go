// Package api is the HTTP client for the remote creator backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hpratapsigh/creator-dashboard/internal/config"
	"github.com/hpratapsigh/creator-dashboard/internal/model"
	"golang.org/x/time/rate"
)

// Backend paths.
const (
	pathLogin       = "/api/auth/login"
	pathRegister    = "/api/auth/register"
	pathFeed        = "/api/feed/"
	pathMe          = "/api/users/me"
	pathUpdateMe    = "/api/users/me/me"
	pathAdminUsers  = "/api/admin/users"
	pathAdminChange = "/api/admin/users/change"
)

// maxBodyLog caps how much of an error body is kept in logs and errors.
const maxBodyLog = 512

// Client talks to one fixed backend base URL. Every authenticated call
// sends "Authorization: Bearer <token>".
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	feeds   *feedCache
	log     *slog.Logger
}

// New creates a client from cfg.
func New(cfg config.API, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   20,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				ForceAttemptHTTP2:     true,
			},
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		feeds:   newFeedCache(cfg.FeedCacheTTL, cfg.Timeout),
		log:     log,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token and the cached user object.
func (c *Client) Login(ctx context.Context, email, password string) (*model.Session, error) {
	var out model.Session
	if err := c.do(ctx, http.MethodPost, pathLogin, "", loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("login response has no token")
	}
	return &out, nil
}

// Register creates an account. The response body is ignored.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	return c.do(ctx, http.MethodPost, pathRegister, "", registerRequest{Name: name, Email: email, Password: password}, nil)
}

// Feed returns the user's feed. Concurrent calls for the same token share
// one request and results are reused until the cache TTL expires.
func (c *Client) Feed(ctx context.Context, token string) ([]model.FeedItem, error) {
	return c.feeds.get(ctx, token, func(ctx context.Context) ([]model.FeedItem, error) {
		var items []model.FeedItem
		if err := c.do(ctx, http.MethodGet, pathFeed, token, nil, &items); err != nil {
			return nil, err
		}
		return items, nil
	})
}

// Forget drops anything cached for token. Called on logout.
func (c *Client) Forget(token string) {
	c.feeds.invalidate(token)
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context, token string) (*model.Profile, error) {
	var p model.Profile
	if err := c.do(ctx, http.MethodGet, pathMe, token, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateMe sends a partial profile update.
func (c *Client) UpdateMe(ctx context.Context, token string, upd model.ProfileUpdate) error {
	return c.do(ctx, http.MethodPut, pathUpdateMe, token, upd, nil)
}

// AdminUsers lists every user. Requires an admin token.
func (c *Client) AdminUsers(ctx context.Context, token string) ([]model.AdminUser, error) {
	var users []model.AdminUser
	if err := c.do(ctx, http.MethodGet, pathAdminUsers, token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ChangeUser sets a user's credits and role. Requires an admin token.
func (c *Client) ChangeUser(ctx context.Context, token string, change model.UserChange) error {
	return c.do(ctx, http.MethodPut, pathAdminChange, token, change, nil)
}

// do sends one request. in is JSON-encoded when non-nil, out is decoded
// from a 2xx body when non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("backend response",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int("body_length", len(respBody)),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(respBody)
		if len(snippet) > maxBodyLog {
			snippet = snippet[:maxBodyLog]
		}
		c.log.Warn("backend returned error status",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", snippet))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: snippet}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return fmt.Errorf("%s %s: empty response body", method, path)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
