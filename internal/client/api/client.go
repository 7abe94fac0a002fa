package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/coursepay/internal/client/session"
	"github.com/dmitrijs2005/coursepay/internal/logging"
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultRefreshPath = "/auth/refresh-token"
)

// AuthLostHandler is told when the session could not be refreshed, so the
// caller can send the user back to login.
type AuthLostHandler func(ctx context.Context, err error)

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	store       session.Store
	coordinator *RefreshCoordinator
	logger      logging.Logger
	refreshPath string
	onAuthLost  AuthLostHandler
}

// New builds a client for baseURL that reads and refreshes credentials
// through store.
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		store:       store,
		coordinator: NewRefreshCoordinator(DefaultWaitLimit),
		logger:      logging.NewNop(),
		refreshPath: DefaultRefreshPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, nil)
}

// Request sends one call and runs the 401 refresh-and-replay protocol on it.
// body, when non-nil, is sent as JSON; a []byte body is sent as is.
func (c *Client) Request(ctx context.Context, method, path string, body any, headers http.Header) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	cred, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var token string
	if cred != nil {
		token = cred.Token
	}

	resp, err := c.send(ctx, method, path, payload, headers, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp.result()
	}

	original := newHTTPError(resp.StatusCode, resp.Body)
	token, err = c.awaitFreshToken(ctx, original)
	if err != nil {
		return nil, err
	}

	// Replay once. A second 401 is final.
	resp, err = c.send(ctx, method, path, payload, headers, token)
	if err != nil {
		return nil, err
	}
	return resp.result()
}

// awaitFreshToken either performs the refresh or waits for the one in flight.
func (c *Client) awaitFreshToken(ctx context.Context, original *HTTPError) (string, error) {
	leader, wait, err := c.coordinator.Begin()
	if err != nil {
		return "", err
	}

	if !leader {
		c.logger.Debug(ctx, "waiting for in-flight token refresh")
		select {
		case res := <-wait:
			return res.token, res.err
		case <-ctx.Done():
			return "", &NetworkError{Op: "await refresh", Err: ctx.Err()}
		}
	}

	// The refresh outlives the leader's context: waiters and the stored
	// session depend on its outcome.
	done := make(chan refreshResult, 1)
	go func() {
		rctx, cancel := c.refreshContext(ctx)
		defer cancel()
		token, err := c.refresh(rctx, original)
		c.coordinator.Resolve(token, err)
		done <- refreshResult{token: token, err: err}
	}()

	select {
	case res := <-done:
		return res.token, res.err
	case <-ctx.Done():
		return "", &NetworkError{Op: "await refresh", Err: ctx.Err()}
	}
}

// refreshContext detaches from the caller's cancellation and bounds the
// refresh by the client timeout instead.
func (c *Client) refreshContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if c.httpClient.Timeout > 0 {
		return context.WithTimeout(detached, c.httpClient.Timeout)
	}
	return context.WithCancel(detached)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// refresh exchanges the stored refresh token for a new pair and persists it.
// Every failure path ends the session.
func (c *Client) refresh(ctx context.Context, original *HTTPError) (string, error) {
	cred, err := c.store.Load(ctx)
	if err != nil {
		return "", c.loseSession(ctx, err)
	}
	if cred == nil || cred.RefreshToken == "" {
		return "", c.loseSession(ctx, original)
	}

	c.logger.Debug(ctx, "refreshing access token", "user_id", cred.UserID)

	payload, err := encodeBody(refreshRequest{RefreshToken: cred.RefreshToken})
	if err != nil {
		return "", c.loseSession(ctx, err)
	}
	resp, err := c.send(ctx, http.MethodPost, c.refreshPath, payload, nil, "")
	if err != nil {
		return "", c.loseSession(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.loseSession(ctx, newHTTPError(resp.StatusCode, resp.Body))
	}

	var out refreshResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", c.loseSession(ctx, err)
	}
	if out.AccessToken == "" {
		return "", c.loseSession(ctx, errors.New("refresh response missing access token"))
	}

	if err := c.store.UpdateTokens(ctx, out.AccessToken, out.RefreshToken); err != nil {
		return "", c.loseSession(ctx, err)
	}

	c.logger.Info(ctx, "access token refreshed", "user_id", cred.UserID)
	return out.AccessToken, nil
}

func (c *Client) loseSession(ctx context.Context, cause error) error {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error(ctx, "failed to clear session", "error", err)
	}
	lost := authLost(cause)
	c.logger.Warn(ctx, "session lost", "error", cause)
	if c.onAuthLost != nil {
		c.onAuthLost(ctx, lost)
	}
	return lost
}

type rawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *rawResponse) result() (*Response, error) {
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return nil, newHTTPError(r.StatusCode, r.Body)
	}
	return &Response{StatusCode: r.StatusCode, Header: r.Header, Body: r.Body}, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, headers http.Header, token string) (*rawResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read " + path, Err: err}
	}

	return &rawResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return data, nil
	}
}
