package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulk_mail_client/internal/pkg/mock-api/models"
	"bulk_mail_client/internal/pkg/oauth/oauth_service"
)

func newTestServer(t *testing.T, flow Flow) (*Server, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	oauth := oauth_service.NewOAuthService(oauth_service.Config{PublicURL: "http://mock.test"}, oauth_service.NewMemoryStorage())
	s := NewServer(oauth, Config{FrontendURL: "http://127.0.0.1:8765/", Flow: flow}, logger)
	server := httptest.NewServer(NewRouter(s))
	t.Cleanup(server.Close)
	return s, server
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

// login walks the consent flow and returns the frontend redirect.
func login(t *testing.T, server *httptest.Server, email string) *url.URL {
	t.Helper()
	resp, err := http.Get(server.URL + "/api/google-login/")
	require.NoError(t, err)
	var body models.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()

	authURL, err := url.Parse(body.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, "mock.test", authURL.Host)

	q := url.Values{"state": {authURL.Query().Get("state")}, "email": {email}}
	resp, err = noRedirect().Get(server.URL + "/oauth/authorize?" + q.Encode())
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return location
}

func sendBulk(t *testing.T, server *httptest.Server, token string, request models.SendRequest) *http.Response {
	t.Helper()
	payload, err := json.Marshal(request)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/send-bulk-emails/", bytes.NewReader(payload))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestRedirectFlow(t *testing.T) {
	_, server := newTestServer(t, FlowRedirect)

	location := login(t, server, "a@b.com")
	assert.Equal(t, "127.0.0.1:8765", location.Host)
	assert.Equal(t, "a@b.com", location.Query().Get("email"))
	assert.True(t, strings.HasPrefix(location.Query().Get("token"), "mock-"))
}

func TestCodeFlow(t *testing.T) {
	_, server := newTestServer(t, FlowCode)

	location := login(t, server, "a@b.com")
	code := location.Query().Get("code")
	require.NotEmpty(t, code)
	assert.Empty(t, location.Query().Get("token"))

	resp, err := http.Get(server.URL + "/api/google-callback/?code=" + url.QueryEscape(code))
	require.NoError(t, err)
	var body models.CallbackResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "a@b.com", body.Email)
	assert.NotEmpty(t, body.Token)

	// Codes are single use.
	resp, err = http.Get(server.URL + "/api/google-callback/?code=" + url.QueryEscape(code))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthorize(t *testing.T) {
	_, server := newTestServer(t, FlowRedirect)

	t.Run("consent page without email", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/oauth/authorize?state=%3Cx%3E")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Contains(t, string(body), "<form")
		assert.Contains(t, string(body), "&lt;x&gt;")
	})

	t.Run("cancel", func(t *testing.T) {
		resp, err := noRedirect().Get(server.URL + "/oauth/authorize?state=s&cancel=1")
		require.NoError(t, err)
		resp.Body.Close()
		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "access_denied", location.Query().Get("error"))
	})

	t.Run("unknown state", func(t *testing.T) {
		resp, err := noRedirect().Get(server.URL + "/oauth/authorize?state=nope&email=a%40b.com")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestUploadCSV(t *testing.T) {
	_, server := newTestServer(t, FlowRedirect)

	upload := func(content string) *http.Response {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("csv_file", "r.csv")
		require.NoError(t, err)
		part.Write([]byte(content))
		require.NoError(t, writer.Close())

		resp, err := http.Post(server.URL+"/api/upload-csv/", writer.FormDataContentType(), &buf)
		require.NoError(t, err)
		return resp
	}

	resp := upload("name, email\nAda,ada@example.com\nAlan\n")
	var body models.UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()

	assert.Equal(t, []string{"name", "email"}, body.Columns)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, map[string]string{"name": "Ada", "email": "ada@example.com"}, body.Rows[0])
	assert.Equal(t, "", body.Rows[1]["email"])

	resp = upload("")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendBulkEmails(t *testing.T) {
	s, server := newTestServer(t, FlowRedirect)
	token := login(t, server, "sender@b.com").Query().Get("token")

	t.Run("renders each row", func(t *testing.T) {
		resp := sendBulk(t, server, token, models.SendRequest{
			Prompt: "Hi {name}, {name}!",
			CSVRows: []map[string]string{
				{"name": "Ada", "Email": "ada@example.com"},
				{"name": "Nobody"},
			},
		})
		var body models.SendResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()

		assert.Equal(t, 1, body.Sent)
		assert.Len(t, body.Skipped, 1)
		assert.Equal(t, "1 emails sent", body.Message)
		assert.Equal(t, []models.SentEmail{{From: "sender@b.com", To: "ada@example.com", Body: "Hi Ada, Ada!"}}, s.Outbox())
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := sendBulk(t, server, token, models.SendRequest{Prompt: "  "})
		var body models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, []string{"prompt", "csv_rows"}, body.Fields)
	})

	t.Run("unauthorized", func(t *testing.T) {
		resp := sendBulk(t, server, "", models.SendRequest{Prompt: "x"})
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = sendBulk(t, server, "forged", models.SendRequest{Prompt: "x"})
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout revokes token", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, server.URL+"/api/logout/", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = sendBulk(t, server, token, models.SendRequest{Prompt: "x", CSVRows: []map[string]string{{"email": "a@b.com"}}})
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestCORSPreflight(t *testing.T) {
	_, server := newTestServer(t, FlowRedirect)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/send-bulk-emails/", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
