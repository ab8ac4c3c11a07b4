package web_server_service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"bulk_mail_client/internal/pkg/gateway/gateway_service"
	"bulk_mail_client/internal/pkg/session/domain"
)

type SessionCapturer interface {
	CaptureCallback(ctx context.Context, entry *url.URL) (*url.URL, bool, error)
	Establish(ctx context.Context, session domain.Session) error
	Current() domain.Session
}

type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*gateway_service.CallbackResult, error)
}

// WebServer is the local entry address the backend redirects to after
// Google consent.
type WebServer struct {
	session  SessionCapturer
	exchange CodeExchanger
	addr     string
	logger   *slog.Logger

	server   *http.Server
	listener net.Listener
	failures chan error
}

var ErrIncompleteCallback = errors.New("sign-in response was incomplete")

func NewWebServer(session SessionCapturer, exchange CodeExchanger, addr string, logger *slog.Logger) *WebServer {
	if logger == nil {
		logger = slog.Default()
	}
	ws := &WebServer{
		session:  session,
		exchange: exchange,
		addr:     addr,
		logger:   logger,
		failures: make(chan error, 1),
	}
	ws.server = &http.Server{
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ws
}

func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/", ws.handleHealthCheck)
	mux.HandleFunc("/", ws.handleEntry)
	return mux
}

// Start binds the address and serves in the background. A bind failure is
// returned right away.
func (ws *WebServer) Start() error {
	listener, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ws.addr, err)
	}
	ws.listener = listener

	ws.logger.Info("callback server listening", "addr", listener.Addr().String())
	go func() {
		if err := ws.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ws.logger.Error("callback server stopped", "error", err)
		}
	}()
	return nil
}

// URL is the address the backend should redirect to.
func (ws *WebServer) URL() string {
	addr := ws.addr
	if ws.listener != nil {
		addr = ws.listener.Addr().String()
	}
	return "http://" + addr + "/"
}

// Failures reports callbacks that ended a sign-in attempt without a session.
func (ws *WebServer) Failures() <-chan error {
	return ws.failures
}

func (ws *WebServer) fail(err error) {
	select {
	case ws.failures <- err:
	default:
	}
}

func (ws *WebServer) Shutdown(ctx context.Context) error {
	return ws.server.Shutdown(ctx)
}

func (ws *WebServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (ws *WebServer) handleEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	switch {
	case query.Has("error") || query.Has("token") || query.Has("email"):
		ws.handleRedirectCallback(w, r)
	case query.Get("code") != "":
		ws.handleCodeCallback(w, r, query.Get("code"))
	default:
		ws.sendStatusResponse(w)
	}
}

func (ws *WebServer) handleRedirectCallback(w http.ResponseWriter, r *http.Request) {
	stripped, captured, err := ws.session.CaptureCallback(r.Context(), r.URL)
	if errors.Is(err, domain.ErrLoginCancelled) {
		ws.fail(err)
		ws.sendErrorResponse(w, "Google sign-in was cancelled.")
		return
	}
	if err != nil {
		ws.logger.Error("failed to capture session", "error", err)
		ws.fail(err)
		ws.sendErrorResponse(w, "Could not save the session.")
		return
	}
	if !captured {
		ws.fail(ErrIncompleteCallback)
		ws.sendErrorResponse(w, "The sign-in response was incomplete.")
		return
	}

	// Redirect to the same address without the credentials so a reload
	// cannot replay them.
	http.Redirect(w, r, stripped.RequestURI(), http.StatusSeeOther)
}

func (ws *WebServer) handleCodeCallback(w http.ResponseWriter, r *http.Request, code string) {
	result, err := ws.exchange.ExchangeCode(r.Context(), code)
	if err != nil {
		ws.logger.Error("code exchange failed", "error", err)
		ws.fail(err)
		ws.sendErrorResponse(w, "Failed to authenticate with Google.")
		return
	}

	session := domain.Session{Email: result.Email, AccessToken: result.Token}
	if !session.IsAuthenticated() {
		ws.sendInfoResponse(w, "Google account connected. Run login again to start a session.")
		return
	}
	if err := ws.session.Establish(r.Context(), session); err != nil {
		ws.logger.Error("failed to save session", "error", err)
		ws.fail(err)
		ws.sendErrorResponse(w, "Could not save the session.")
		return
	}

	clean := *r.URL
	q := clean.Query()
	q.Del("code")
	q.Del("state")
	q.Del("scope")
	clean.RawQuery = q.Encode()
	http.Redirect(w, r, clean.RequestURI(), http.StatusSeeOther)
}

func (ws *WebServer) sendStatusResponse(w http.ResponseWriter) {
	current := ws.session.Current()
	if !current.IsAuthenticated() {
		ws.sendInfoResponse(w, "Not signed in.")
		return
	}
	ws.sendSuccessResponse(w, current.Email)
}

func (ws *WebServer) sendSuccessResponse(w http.ResponseWriter, email string) {
	ws.writePage(w, "Signed in", "#2e7d32",
		fmt.Sprintf(`<div class="info"><strong>Email:</strong> %s</div>
        <p>You can close this page and return to the terminal.</p>`, html.EscapeString(email)))
}

func (ws *WebServer) sendInfoResponse(w http.ResponseWriter, msg string) {
	ws.writePage(w, "Bulk mail client", "#455a64",
		fmt.Sprintf(`<div class="info">%s</div>`, html.EscapeString(msg)))
}

func (ws *WebServer) sendErrorResponse(w http.ResponseWriter, errorMsg string) {
	ws.writePage(w, "Sign-in failed", "#c62828",
		fmt.Sprintf(`<div class="info">%s</div>
        <p>Please try again.</p>`, html.EscapeString(errorMsg)))
}

func (ws *WebServer) writePage(w http.ResponseWriter, title, color, body string) {
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <meta charset="utf-8">
    <style>
        body { font-family: Arial, sans-serif; text-align: center; padding: 50px; background: %s; color: white; }
        .container { background: rgba(255,255,255,0.1); padding: 30px; border-radius: 15px; max-width: 500px; margin: 0 auto; }
        .info { background: rgba(255,255,255,0.2); padding: 15px; border-radius: 8px; margin: 15px 0; }
    </style>
</head>
<body>
    <div class="container">
        <h2>%s</h2>
        %s
    </div>
</body>
</html>`, html.EscapeString(title), color, html.EscapeString(title), body)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page))
}
