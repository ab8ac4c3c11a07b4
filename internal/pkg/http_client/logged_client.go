package http_client

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// maxLoggedBody caps how much of a body is copied into a log entry.
const maxLoggedBody = 4096

const redacted = "[redacted]"

var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
}

// redactedParams are query parameters that carry OAuth credentials or the
// identity they belong to.
var redactedParams = []string{"code", "token", "access_token", "email", "state"}

// redactedFields are JSON body fields holding session credentials.
var redactedFields = map[string]bool{
	"token":        true,
	"access_token": true,
	"code":         true,
}

// LoggedClient is an *http.Client that records every exchange, either to
// the logger or to a remote log collector.
type LoggedClient struct {
	*http.Client
	logServerURL string
	shipper      *http.Client
	logger       *slog.Logger
}

type LogEntry struct {
	ID           string              `json:"id"`
	Timestamp    string              `json:"timestamp"`
	Method       string              `json:"method"`
	URL          string              `json:"url"`
	Headers      map[string][]string `json:"headers"`
	RequestBody  string              `json:"request_body"`
	StatusCode   int                 `json:"status_code"`
	ResponseBody string              `json:"response_body"`
	Duration     int64               `json:"duration_ms"`
	Error        string              `json:"error,omitempty"`
}

func NewLoggedClient(logServerURL string, timeout time.Duration, logger *slog.Logger) *LoggedClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggedClient{
		Client: &http.Client{
			Timeout: timeout,
		},
		logServerURL: logServerURL,
		shipper:      &http.Client{Timeout: 5 * time.Second},
		logger:       logger,
	}
}

func (c *LoggedClient) Do(req *http.Request) (*http.Response, error) {
	startTime := time.Now()

	var requestBody []byte
	if req.Body != nil {
		requestBody, _ = io.ReadAll(req.Body)
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(requestBody))
	}

	resp, err := c.Client.Do(req)

	entry := LogEntry{
		ID:          uuid.NewString(),
		Timestamp:   startTime.Format(time.RFC3339),
		Method:      req.Method,
		URL:         redactURL(req.URL),
		Headers:     redact(req.Header),
		RequestBody: truncate(redactBody(requestBody)),
		Duration:    time.Since(startTime).Milliseconds(),
	}

	if err != nil {
		entry.Error = err.Error()
		c.sendLog(entry)
		return nil, err
	}

	responseBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(responseBody))

	entry.StatusCode = resp.StatusCode
	entry.ResponseBody = truncate(redactBody(responseBody))
	if readErr != nil {
		entry.Error = readErr.Error()
	}

	c.sendLog(entry)

	if readErr != nil {
		return nil, readErr
	}
	return resp, nil
}

func (c *LoggedClient) sendLog(entry LogEntry) {
	c.logger.Debug("http exchange",
		"id", entry.ID,
		"method", entry.Method,
		"url", entry.URL,
		"status", entry.StatusCode,
		"duration_ms", entry.Duration,
		"error", entry.Error,
	)

	if c.logServerURL == "" {
		return
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return
	}

	go func() {
		resp, err := c.shipper.Post(c.logServerURL+"/log", "application/json", bytes.NewReader(jsonData))
		if err != nil {
			c.logger.Debug("failed to ship http log", "error", err)
			return
		}
		resp.Body.Close()
	}()
}

func redact(header http.Header) map[string][]string {
	headers := make(map[string][]string, len(header))
	for key, values := range header {
		if redactedHeaders[http.CanonicalHeaderKey(key)] {
			headers[key] = []string{redacted}
			continue
		}
		headers[key] = values
	}
	return headers
}

func redactURL(u *url.URL) string {
	query := u.Query()
	changed := false
	for _, param := range redactedParams {
		if query.Has(param) {
			query.Set(param, redacted)
			changed = true
		}
	}
	if !changed {
		return u.String()
	}

	clean := *u
	clean.RawQuery = query.Encode()
	return clean.String()
}

// redactBody masks credential fields of a JSON body. Anything that is not
// JSON is returned unchanged.
func redactBody(body []byte) []byte {
	var doc any
	if len(body) == 0 || json.Unmarshal(body, &doc) != nil {
		return body
	}
	if !redactValue(doc) {
		return body
	}
	masked, err := json.Marshal(doc)
	if err != nil {
		return []byte(redacted)
	}
	return masked
}

func redactValue(v any) bool {
	changed := false
	switch value := v.(type) {
	case map[string]any:
		for key, field := range value {
			if redactedFields[key] {
				value[key] = redacted
				changed = true
				continue
			}
			if redactValue(field) {
				changed = true
			}
		}
	case []any:
		for _, item := range value {
			if redactValue(item) {
				changed = true
			}
		}
	}
	return changed
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "... [truncated]"
	}
	return string(body)
}
