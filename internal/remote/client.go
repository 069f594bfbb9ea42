// Package remote talks to the discussion HTTP API. It implements
// discussion.Remote and profile.Lookup on top of net/http.
package remote

import (
	"bytes"
	"context"
	"discuss/internal/apperr"
	"discuss/internal/models"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// 响应体上限
const maxBody = 4 << 20

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

type Client struct {
	base  string
	token string
	http  *http.Client
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FetchThread(ctx context.Context, postID models.PostID) (models.Thread, error) {
	var th models.Thread
	err := c.call(ctx, "fetch thread", http.MethodGet, fmt.Sprintf("/posts/%d/thread", postID), nil, &th)
	return th, err
}

func (c *Client) CreateComment(ctx context.Context, postID models.PostID, content string, parentID *models.CommentID) (models.CommentNode, error) {
	body := map[string]interface{}{"content": content}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	var n models.CommentNode
	err := c.call(ctx, "create comment", http.MethodPost, fmt.Sprintf("/posts/%d/comments", postID), body, &n)
	return n, err
}

func (c *Client) EditComment(ctx context.Context, id models.CommentID, content string) (models.CommentNode, error) {
	var n models.CommentNode
	err := c.call(ctx, "edit comment", http.MethodPut, fmt.Sprintf("/comments/%d", id), map[string]string{"content": content}, &n)
	return n, err
}

func (c *Client) DeleteComment(ctx context.Context, id models.CommentID) error {
	return c.call(ctx, "delete comment", http.MethodDelete, fmt.Sprintf("/comments/%d", id), nil, nil)
}

// React 切换表态，返回服务端的权威快照
func (c *Client) React(ctx context.Context, entity models.EntityRef, category models.ReactionCategory) (models.ReactionSnapshot, error) {
	var snap models.ReactionSnapshot
	err := c.call(ctx, "react", http.MethodPost, fmt.Sprintf("/reactions/%s/%d", entity.Kind, entity.ID), map[string]string{"action": string(category)}, &snap)
	return snap, err
}

func (c *Client) LookupUser(ctx context.Context, id models.UserID) (models.Profile, error) {
	var p models.Profile
	err := c.call(ctx, "lookup user", http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &p)
	return p, err
}

// Login 换取 token，之后的请求都会带上
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.call(ctx, "login", http.MethodPost, "/login", map[string]string{"username": username, "password": password}, &out)
	if err != nil {
		return "", err
	}
	c.token = out.Token
	return out.Token, nil
}

func (c *Client) Token() string {
	return c.token
}

func (c *Client) call(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Unavailable(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return apperr.Unavailable(op, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return classify(op, resp.StatusCode, msg)
	}

	if decodeErr != nil {
		return fmt.Errorf("%s: decode response: %w", op, decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func classify(op string, status int, msg string) error {
	switch status {
	case http.StatusUnauthorized:
		return apperr.Rejected(op, apperr.ErrUnauthenticated, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.Rejected(op, apperr.ErrValidationFailed, msg)
	case http.StatusNotFound, http.StatusGone:
		return apperr.Rejected(op, apperr.ErrNotFound, msg)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return apperr.Unavailable(op, fmt.Errorf("status %d: %s", status, msg))
	}
	return apperr.Rejected(op, nil, fmt.Sprintf("status %d: %s", status, msg))
}
