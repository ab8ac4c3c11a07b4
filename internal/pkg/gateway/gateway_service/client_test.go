package gateway_service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulk_mail_client/internal/pkg/session/domain"
)

type fakeSession struct {
	mu      sync.Mutex
	token   string
	expired int
}

func (f *fakeSession) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSession) setToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeSession) ExpireSession(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired++
	f.token = ""
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, session SessionSource) (*Client, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(server.URL+"/api/", server.Client(), session, logger), &hits
}

func TestInitiateLogin(t *testing.T) {
	t.Run("returns auth url", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/google-login/", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{"auth_url": "https://accounts.google.com/o/oauth2/auth?state=s"})
		}, nil)

		authURL, err := client.InitiateLogin(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?state=s", authURL)
	})

	t.Run("missing auth url is malformed", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}, nil)

		_, err := client.InitiateLogin(context.Background())
		require.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("server error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"oauth misconfigured"}`, http.StatusInternalServerError)
		}, nil)

		_, err := client.InitiateLogin(context.Background())
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		assert.Equal(t, "oauth misconfigured", apiErr.Message)
	})
}

func TestExchangeCode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/google-callback/", r.URL.Path)
		assert.Equal(t, "abc/123", r.URL.Query().Get("code"))
		w.Write([]byte(`{"token":"T","email":"a@b.com"}`))
	}, nil)

	result, err := client.ExchangeCode(context.Background(), "abc/123")
	require.NoError(t, err)
	assert.Equal(t, &CallbackResult{Token: "T", Email: "a@b.com"}, result)

	_, err = client.ExchangeCode(context.Background(), "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUploadCSV(t *testing.T) {
	csvData := "name,email\nAda,ada@example.com\nAlan,alan@example.com\n"

	t.Run("multipart upload", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/upload-csv/", r.URL.Path)
			assert.Empty(t, r.Header.Get("Authorization"))

			file, header, err := r.FormFile("csv_file")
			if !assert.NoError(t, err) {
				return
			}
			defer file.Close()
			assert.Equal(t, "recipients.csv", header.Filename)
			body, _ := io.ReadAll(file)
			assert.Equal(t, csvData, string(body))

			w.Write([]byte(`{"rows":[{"name":"Ada","email":"ada@example.com","age":36},{"name":"Alan","email":"alan@example.com","age":null}]}`))
		}, nil)

		rows, err := client.UploadCSV(context.Background(), "/tmp/recipients.csv", strings.NewReader(csvData))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, Row{"name": "Ada", "email": "ada@example.com", "age": "36"}, rows[0])
		assert.Equal(t, "", rows[1]["age"])
	})

	t.Run("rejected before network", func(t *testing.T) {
		client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

		_, err := client.UploadCSV(context.Background(), "empty.csv", strings.NewReader(""))
		require.ErrorIs(t, err, ErrValidation)

		png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"
		_, err = client.UploadCSV(context.Background(), "logo.png", strings.NewReader(png))
		require.ErrorIs(t, err, ErrValidation)

		_, err = client.UploadCSV(context.Background(), "fake.csv", strings.NewReader(png))
		require.ErrorIs(t, err, ErrValidation)

		assert.Zero(t, atomic.LoadInt32(hits))
	})

	t.Run("backend failure", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad csv", http.StatusBadRequest)
		}, nil)

		_, err := client.UploadCSV(context.Background(), "r.csv", strings.NewReader(csvData))
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})
}

func TestSendBulkEmails(t *testing.T) {
	rows := []Row{{"name": "Ada", "email": "ada@example.com"}}

	t.Run("preconditions block the request", func(t *testing.T) {
		session := &fakeSession{token: "T"}
		client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, session)
		ctx := context.Background()

		_, err := client.SendBulkEmails(ctx, "", rows)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "prompt", vErr.Field)

		_, err = client.SendBulkEmails(ctx, "   \n", rows)
		require.ErrorIs(t, err, ErrValidation)

		_, err = client.SendBulkEmails(ctx, "Hi {name}", nil)
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "csv_rows", vErr.Field)

		_, err = client.SendBulkEmails(ctx, "Hi {name}", []Row{})
		require.ErrorIs(t, err, ErrValidation)

		assert.Zero(t, atomic.LoadInt32(hits))
	})

	t.Run("not authenticated", func(t *testing.T) {
		client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, &fakeSession{})

		_, err := client.SendBulkEmails(context.Background(), "Hi {name}", rows)
		require.ErrorIs(t, err, domain.ErrNotAuthenticated)
		assert.Zero(t, atomic.LoadInt32(hits))
	})

	t.Run("one request with bearer token", func(t *testing.T) {
		session := &fakeSession{token: "T"}
		client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/send-bulk-emails/", r.URL.Path)
			assert.Equal(t, "Bearer T", r.Header.Get("Authorization"))

			var body struct {
				Prompt  string              `json:"prompt"`
				CSVRows []map[string]string `json:"csv_rows"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Hi {name}", body.Prompt)
			assert.Equal(t, "ada@example.com", body.CSVRows[0]["email"])

			w.Write([]byte(`{"message":"1 emails sent"}`))
		}, session)

		msg, err := client.SendBulkEmails(context.Background(), "Hi {name}", rows)
		require.NoError(t, err)
		assert.Equal(t, "1 emails sent", msg)
		assert.Equal(t, int32(1), atomic.LoadInt32(hits))
		assert.Zero(t, session.expired)
	})

	t.Run("401 expires the session", func(t *testing.T) {
		session := &fakeSession{token: "stale"}
		client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
		}, session)

		_, err := client.SendBulkEmails(context.Background(), "Hi {name}", rows)
		require.ErrorIs(t, err, domain.ErrSessionExpired)
		assert.Equal(t, 1, session.expired)
		assert.Equal(t, int32(1), atomic.LoadInt32(hits), "must not retry")
	})

	t.Run("401 for a replaced token keeps the new session", func(t *testing.T) {
		session := &fakeSession{token: "old"}
		client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer old", r.Header.Get("Authorization"))
			// A new sign-in lands while the request is in flight.
			session.setToken("new")
			http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
		}, session)

		_, err := client.SendBulkEmails(context.Background(), "Hi {name}", rows)
		require.ErrorIs(t, err, domain.ErrSessionExpired)
		assert.Zero(t, session.expired)
		assert.Equal(t, "new", session.AccessToken())
		assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	})

	t.Run("other failures keep the session", func(t *testing.T) {
		session := &fakeSession{token: "T"}
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "smtp down", http.StatusBadGateway)
		}, session)

		_, err := client.SendBulkEmails(context.Background(), "Hi {name}", rows)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.False(t, errors.Is(err, domain.ErrSessionExpired))
		assert.Zero(t, session.expired)
	})
}

func TestLogout(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/logout/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}, &fakeSession{token: "T"})

	require.NoError(t, client.Logout(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}
