// Package rest talks to a Supabase-style backend over HTTP: GoTrue under
// /auth/v1 and PostgREST under /rest/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/config"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	authPath = "/auth/v1"
	restPath = "/rest/v1"
)

var _ backend.Client = (*Client)(nil)

type Client struct {
	base   *url.URL
	key    string
	tables config.Tables
	http   *http.Client
	clock  clockwork.Clock
	log    *zap.Logger
}

func New(cfg config.Backend, log *zap.Logger, clock clockwork.Clock) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q is not absolute", cfg.URL)
	}

	return &Client{
		base:   base,
		key:    cfg.AnonKey,
		tables: cfg.Tables,
		http:   &http.Client{Timeout: cfg.Timeout},
		clock:  clock,
		log:    log.Named("rest"),
	}, nil
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	token  string
	prefer string
	body   any
}

// errorBody covers both GoTrue and PostgREST error payloads.
type errorBody struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

func (b *errorBody) text() string {
	for _, s := range []string{b.Message, b.Msg, b.ErrorDescription, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// do sends req and decodes a 2xx JSON response into out (when non-nil).
// Everything else becomes a *backend.RemoteFailure.
func (c *Client) do(ctx context.Context, req request, out any) error {
	u := c.base.JoinPath(req.path)
	if req.query != nil {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return backend.Fail(req.op, err)
		}
		body = bytes.NewReader(b)
	}

	r, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return backend.Fail(req.op, err)
	}

	bearer := req.token
	if bearer == "" {
		bearer = c.key
	}
	r.Header.Set("apikey", c.key)
	r.Header.Set("Authorization", "Bearer "+bearer)
	r.Header.Set("Accept", "application/json")
	if req.body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.prefer != "" {
		r.Header.Set("Prefer", req.prefer)
	}

	start := c.clock.Now()
	resp, err := c.http.Do(r)
	if err != nil {
		c.log.Warn("backend request failed", zap.String("op", req.op), zap.Error(err))
		return backend.Fail(req.op, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend request",
		zap.String("op", req.op),
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", c.clock.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(req.op, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backend.Fail(req.op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func failure(op string, resp *http.Response) error {
	rf := &backend.RemoteFailure{
		Op:     op,
		Status: resp.StatusCode,
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		rf.Message = eb.text()
	}
	if rf.Message == "" {
		rf.Message = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		rf.Err = backend.ErrNotFound
	}

	return rf
}

func statusOf(err error) int {
	var rf *backend.RemoteFailure
	if errors.As(err, &rf) {
		return rf.Status
	}
	return 0
}

func (c *Client) expiry(expiresIn int) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}
	return c.clock.Now().Add(time.Duration(expiresIn) * time.Second)
}
