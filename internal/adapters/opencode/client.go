// Package opencode talks to the host tool's local HTTP server: ephemeral
// session lifecycle for autolearn and transient toast notifications.
package opencode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
)

const (
	// DefaultURL is where the host serves its API by default.
	DefaultURL = "http://127.0.0.1:4096"

	// DefaultTimeout bounds a single request. Prompts wait for a full model
	// turn, so this is generous.
	DefaultTimeout = 5 * time.Minute

	toastTimeout = 5 * time.Second
	maxErrorBody = 2048
)

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Directory string
}

// Client implements core.SessionClient and core.Notifier over HTTP.
type Client struct {
	baseURL    string
	directory  string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a host client.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		directory:  cfg.Directory,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Create opens a session and returns its id.
func (c *Client) Create(ctx context.Context, req core.CreateSessionRequest) (string, error) {
	payload := map[string]any{"title": req.Title}
	if req.ParentID != "" {
		payload["parentID"] = req.ParentID
	}

	var body map[string]any
	if err := c.do(ctx, http.MethodPost, "/session", payload, &body); err != nil {
		return "", err
	}
	id := sessionID(body)
	if id == "" {
		return "", core.ErrExecution(core.CodeHostRequest, "session create returned no id")
	}
	return id, nil
}

// Prompt submits text to a session and waits for the reply.
func (c *Client) Prompt(ctx context.Context, id string, req core.PromptRequest) (*core.PromptResponse, error) {
	payload := map[string]any{
		"parts": []map[string]any{{"type": "text", "text": req.Text}},
	}
	if req.Agent != "" {
		payload["agent"] = req.Agent
	}

	var body map[string]any
	if err := c.do(ctx, http.MethodPost, "/session/"+url.PathEscape(id)+"/message", payload, &body); err != nil {
		return nil, err
	}
	return promptResponse(body), nil
}

// Delete removes a session.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/session/"+url.PathEscape(id), nil, nil)
}

// Notify shows a toast in the host UI. Failures are logged and dropped.
func (c *Client) Notify(ctx context.Context, message string, variant core.Variant) {
	ctx, cancel := context.WithTimeout(ctx, toastTimeout)
	defer cancel()

	payload := map[string]any{"message": message, "variant": string(variant)}
	if err := c.do(ctx, http.MethodPost, "/tui/show-toast", payload, nil); err != nil {
		c.logger.Debug("toast failed", "error", err)
	}
}

// Health checks that the host server answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/global/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if c.directory != "" {
		endpoint += "?directory=" + url.QueryEscape(c.directory)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return core.ErrTimeout(fmt.Sprintf("%s %s: %v", method, path, ctx.Err()))
		}
		return core.ErrExecution(core.CodeHostRequest, fmt.Sprintf("%s %s failed", method, path)).WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return core.ErrExecution(core.CodeHostRequest,
			fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode)).
			WithDetail("body", strings.TrimSpace(string(body)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// unwrap returns body["data"] when the server wraps its payload.
func unwrap(body map[string]any) map[string]any {
	if inner, ok := body["data"].(map[string]any); ok {
		return inner
	}
	return body
}

// sessionID accepts the id at "id", "data.id", "session.id" or
// "data.session.id".
func sessionID(body map[string]any) string {
	r := unwrap(body)
	candidates := []any{
		r["id"],
		dig(r, "data", "id"),
		dig(r, "session", "id"),
		dig(r, "data", "session", "id"),
	}
	for _, c := range candidates {
		if s, ok := c.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func dig(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[k]
	}
	return cur
}

func promptResponse(body map[string]any) *core.PromptResponse {
	msg := unwrap(body)
	raw, ok := msg["parts"].([]any)
	if !ok {
		raw, ok = dig(msg, "message", "parts").([]any)
	}
	if !ok {
		content, _ := msg["content"].(string)
		return &core.PromptResponse{Content: content}
	}

	parts := make([]core.MessagePart, 0, len(raw))
	for _, item := range raw {
		p, ok := item.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := p["type"].(string)
		text, _ := p["text"].(string)
		parts = append(parts, core.MessagePart{Type: typ, Text: text})
	}
	return &core.PromptResponse{Parts: parts}
}
