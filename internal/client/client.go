// Package client wraps outbound calls to the proxy with credential
// injection, timeouts, error classification, and a single re-authentication
// hook triggered on authorization failure.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/waddleai/waddle-go/internal/api"
	"github.com/waddleai/waddle-go/internal/log"
	"github.com/waddleai/waddle-go/internal/stream"
)

const (
	// requestTimeout bounds non-streaming calls. Streaming calls are bounded
	// only by cancellation, since legitimate generation can be long.
	requestTimeout = 30 * time.Second

	headerSessionID = "X-Session-ID"
	headerClient    = "X-Client"

	clientIdentity = "waddle-go/" + Version
)

// Version is the client identity version reported to the proxy.
const Version = "0.4.0"

// CredentialSource yields the active credential, if any. Typically backed by
// the session manager.
type CredentialSource func() (string, bool)

// ReauthFunc attempts to obtain a fresh credential after an authorization
// failure. Returning an error leaves the original failure in place.
type ReauthFunc func(ctx context.Context) (string, error)

type Client struct {
	baseURL   string
	sessionID string

	httpc   *http.Client
	streamc *http.Client

	credential CredentialSource
	reauth     ReauthFunc
	refresh    singleflight.Group
}

type Option func(*Client)

// WithCredentialSource wires the session manager's active credential.
func WithCredentialSource(src CredentialSource) Option {
	return func(c *Client) { c.credential = src }
}

// WithReauth installs the hook invoked at most once per failing request when
// the proxy answers 401.
func WithReauth(fn ReauthFunc) Option {
	return func(c *Client) { c.reauth = fn }
}

// WithHTTPClient overrides both underlying HTTP clients. Intended for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpc = hc
		c.streamc = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: uuid.NewString(),
		httpc:     &http.Client{Timeout: requestTimeout},
		// No timeout for streaming; lifetime is controlled via context.
		streamc:    &http.Client{},
		credential: func() (string, bool) { return "", false },
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SessionID is the stable per-process correlation identifier sent with every
// request. The proxy uses it to thread conversation memory.
func (c *Client) SessionID() string { return c.sessionID }

func (c *Client) newRequest(ctx context.Context, method, path string, body any, credential string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerSessionID, c.sessionID)
	req.Header.Set(headerClient, clientIdentity)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	return req, nil
}

// errorFromResponse drains and classifies a non-2xx response.
func errorFromResponse(resp *http.Response) error {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var body api.ErrorBody
	msg := ""
	if err := json.Unmarshal(data, &body); err == nil {
		msg = body.Message()
	}
	return classifyStatus(resp.StatusCode, msg)
}

// roundTrip issues the request once and classifies failures. Context
// cancellation passes through unwrapped so callers never mistake it for a
// network failure.
func roundTrip(hc *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromResponse(resp)
	}
	return resp, nil
}

// send performs the request with the active credential and, on a 401,
// invokes the re-authentication hook exactly once before retrying. A second
// failing request mid-refresh reuses the in-flight refresh's outcome.
func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, body any) (*http.Response, error) {
	credential, _ := c.credential()
	req, err := c.newRequest(ctx, method, path, body, credential)
	if err != nil {
		return nil, err
	}
	resp, err := roundTrip(hc, req)

	var authErr *AuthError
	if err == nil || !errors.As(err, &authErr) || authErr.Status != http.StatusUnauthorized || c.reauth == nil {
		return resp, err
	}

	fresh, refreshErr, _ := c.refresh.Do("credential", func() (any, error) {
		return c.reauth(ctx)
	})
	if refreshErr != nil {
		slog.Debug("re-authentication failed", "error", refreshErr)
		return nil, err // hook could not obtain a credential; re-raise original
	}
	newCredential := fresh.(string)
	if newCredential == "" || newCredential == credential {
		return nil, err
	}
	slog.Debug("retrying request with refreshed credential",
		"path", path, "credential", log.MaskAPIKey(newCredential))

	req, reqErr := c.newRequest(ctx, method, path, body, newCredential)
	if reqErr != nil {
		return nil, reqErr
	}
	return roundTrip(hc, req)
}

// Do issues a non-streaming request. Responses outside 2xx are returned as
// classified errors; the caller owns the response body on success.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	return c.send(ctx, c.httpc, method, path, body)
}

// GetJSON issues a GET and decodes the 2xx body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// PostJSON issues a POST and decodes the 2xx body into out when non-nil.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.Do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// OpenStream issues a streaming POST and hands the response body to the SSE
// decoder. The stream has no deadline; cancel ctx to abort it.
func (c *Client) OpenStream(ctx context.Context, path string, body any) (*stream.Stream, error) {
	resp, err := c.send(ctx, c.streamc, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	return stream.New(ctx, resp.Body), nil
}

// Health checks GET /health. No auth required.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}
	resp, err := roundTrip(c.httpc, req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Account validates a candidate credential against GET /v1/user/me and
// returns the identity it resolves to. Used during session creation and
// refresh, before the credential becomes the active one.
func (c *Client) Account(ctx context.Context, credential string) (api.Account, error) {
	if credential == "" {
		return api.Account{}, ErrNoCredential
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/user/me", nil, credential)
	if err != nil {
		return api.Account{}, err
	}
	resp, err := roundTrip(c.httpc, req)
	if err != nil {
		return api.Account{}, err
	}
	defer resp.Body.Close()
	var account api.Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return api.Account{}, fmt.Errorf("failed to decode account: %w", err)
	}
	return account, nil
}

// Usage fetches the usage snapshot for a lookback window in days.
func (c *Client) Usage(ctx context.Context, days int) (api.Usage, error) {
	var usage api.Usage
	path := "/v1/usage?" + url.Values{"days": {strconv.Itoa(days)}}.Encode()
	if err := c.GetJSON(ctx, path, &usage); err != nil {
		return api.Usage{}, err
	}
	return usage, nil
}

// Models fetches the discovery catalog.
func (c *Client) Models(ctx context.Context) ([]api.Model, error) {
	var models api.ModelsResponse
	if err := c.GetJSON(ctx, "/v1/models", &models); err != nil {
		return nil, err
	}
	return models.Data, nil
}

// ClearMemory resets server-side conversation memory for this session id.
// Fire-and-forget from the host's perspective.
func (c *Client) ClearMemory(ctx context.Context) error {
	return c.PostJSON(ctx, "/v1/memory/clear", nil, nil)
}
