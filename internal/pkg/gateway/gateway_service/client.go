package gateway_service

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

	"github.com/go-playground/validator/v10"

	"bulk_mail_client/internal/pkg/session/domain"
)

// Client issues the backend REST calls. Each call is one request with no
// retry; the backend owns delivery of the emails themselves.
type Client struct {
	baseURL  string
	http     HTTPDoer
	session  SessionSource
	validate *validator.Validate
	logger   *slog.Logger
}

func NewClient(baseURL string, doer HTTPDoer, session SessionSource, logger *slog.Logger) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     doer,
		session:  session,
		validate: validator.New(),
		logger:   logger,
	}
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// do sends req and returns the body of a 2xx answer. Anything else becomes
// an *APIError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// authorized attaches the bearer token and turns a 401 into the session's
// forced logout. Every call that needs a token goes through here.
func (c *Client) authorized(ctx context.Context, req *http.Request) ([]byte, error) {
	token := ""
	if c.session != nil {
		token = c.session.AccessToken()
	}
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		// A session captured while the request was in flight is not the one
		// the backend rejected.
		if c.session.AccessToken() != token {
			c.logger.Warn("backend rejected a replaced token, keeping current session", "path", req.URL.Path)
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionExpired, apiErr.Message)
		}
		c.logger.Warn("backend rejected token, ending session", "path", req.URL.Path)
		if expireErr := c.session.ExpireSession(ctx); expireErr != nil {
			c.logger.Error("failed to clear expired session", "error", expireErr)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionExpired, apiErr.Message)
	}
	return body, err
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		for _, msg := range []string{e.Error, e.Detail, e.Message} {
			if msg != "" {
				return msg
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
