package telegram_notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulk_mail_client/internal/pkg/campaign/domain"
)

func fakeBotAPI(t *testing.T, sent chan<- map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"Mailer","username":"mailer_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if err := r.ParseForm(); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			sent <- map[string]string{"chat_id": r.FormValue("chat_id"), "text": r.FormValue("text")}
			w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":-1001,"type":"group"}}}`))
		default:
			w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestTelegramNotifier_NotifySent(t *testing.T) {
	sent := make(chan map[string]string, 1)
	server := fakeBotAPI(t, sent)

	notifier, err := NewWithEndpoint("123:abc", server.URL+"/bot%s/%s", -1001, server.Client())
	require.NoError(t, err)

	err = notifier.NotifySent(context.Background(), domain.SendResult{
		Message:    "2 emails sent",
		Recipients: 2,
		Sender:     "sender@example.com",
	})
	require.NoError(t, err)

	got := <-sent
	assert.Equal(t, "-1001", got["chat_id"])
	assert.Contains(t, got["text"], "sender@example.com")
	assert.Contains(t, got["text"], "Recipients: 2")
	assert.Contains(t, got["text"], "2 emails sent")
}

func TestNewWithEndpoint_RequiresChat(t *testing.T) {
	_, err := NewWithEndpoint("123:abc", "http://127.0.0.1:0/bot%s/%s", 0, http.DefaultClient)
	require.Error(t, err)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.NotifySent(context.Background(), domain.SendResult{}))
}
