package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"bulk_mail_client/internal/pkg/mock-api/models"
	"bulk_mail_client/internal/pkg/oauth/oauth_service"
)

const maxUploadSize = 10 << 20

type Flow string

const (
	FlowRedirect Flow = "redirect"
	FlowCode     Flow = "code"
)

type Config struct {
	// FrontendURL is the client entry address that receives the callback.
	FrontendURL string
	Flow        Flow
}

// Server implements the backend REST surface the client consumes.
type Server struct {
	oauth  *oauth_service.OAuthService
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	outbox []models.SentEmail
}

func NewServer(oauth *oauth_service.OAuthService, config Config, logger *slog.Logger) *Server {
	if config.Flow == "" {
		config.Flow = FlowRedirect
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{oauth: oauth, config: config, logger: logger}
}

// Outbox returns a copy of every email "sent" so far.
func (s *Server) Outbox() []models.SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SentEmail(nil), s.outbox...)
}

// GoogleLoginHandler returns the consent address.
func (s *Server) GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	authURL, _, err := s.oauth.GenerateAuthURL()
	if err != nil {
		s.logger.Error("failed to generate auth url", "error", err)
		sendError(w, "Failed to start login", http.StatusInternalServerError)
		return
	}
	sendJSON(w, models.LoginResponse{AuthURL: authURL})
}

// AuthorizeHandler stands in for Google's consent screen. Without an email
// it renders a form; with one it redirects back to the frontend.
func (s *Server) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state := query.Get("state")
	if state == "" {
		sendError(w, "State is required", http.StatusBadRequest)
		return
	}

	if query.Get("cancel") != "" {
		s.redirectToFrontend(w, r, url.Values{"error": {"access_denied"}})
		return
	}

	email := query.Get("email")
	if email == "" {
		s.sendConsentPage(w, state)
		return
	}

	switch s.config.Flow {
	case FlowCode:
		code, err := s.oauth.AuthorizeCode(state, email)
		if err != nil {
			s.sendOAuthError(w, err)
			return
		}
		s.redirectToFrontend(w, r, url.Values{"code": {code}})
	default:
		token, err := s.oauth.Authorize(state, email)
		if err != nil {
			s.sendOAuthError(w, err)
			return
		}
		s.logger.Info("issued token", "email", token.Email)
		s.redirectToFrontend(w, r, url.Values{"token": {token.Token}, "email": {token.Email}})
	}
}

// GoogleCallbackHandler exchanges a one-time code for a session.
func (s *Server) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		sendError(w, "Code is required", http.StatusBadRequest)
		return
	}

	token, err := s.oauth.ExchangeCode(code)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	sendJSON(w, models.CallbackResponse{Token: token.Token, Email: token.Email})
}

// UploadCSVHandler parses the csv_file part into header-keyed rows.
func (s *Server) UploadCSVHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, _, err := r.FormFile("csv_file")
	if err != nil {
		sendError(w, "csv_file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	columns, rows, err := parseCSV(file)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Info("parsed csv", "rows", len(rows), "columns", len(columns))
	sendJSON(w, models.UploadResponse{Rows: rows, Columns: columns})
}

// SendBulkEmailsHandler renders the prompt for each row and records it.
func (s *Server) SendBulkEmailsHandler(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		sendError(w, "Authorization header is required", http.StatusUnauthorized)
		return
	}
	sender, err := s.oauth.ValidateToken(token)
	if err != nil {
		sendError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var request models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var missing []string
	if strings.TrimSpace(request.Prompt) == "" {
		missing = append(missing, "prompt")
	}
	if len(request.CSVRows) == 0 {
		missing = append(missing, "csv_rows")
	}
	if len(missing) > 0 {
		sendJSONStatus(w, http.StatusBadRequest, models.ErrorResponse{Error: "Missing fields", Fields: missing})
		return
	}

	var skipped []string
	sent := make([]models.SentEmail, 0, len(request.CSVRows))
	for i, row := range request.CSVRows {
		to := recipient(row)
		if to == "" {
			skipped = append(skipped, fmt.Sprintf("row %d: no email column", i+1))
			continue
		}
		sent = append(sent, models.SentEmail{From: sender, To: to, Body: render(request.Prompt, row)})
	}

	s.mu.Lock()
	s.outbox = append(s.outbox, sent...)
	s.mu.Unlock()

	for _, email := range sent {
		s.logger.Info("sent email", "from", email.From, "to", email.To)
	}

	sendJSON(w, models.SendResponse{
		Message: fmt.Sprintf("%d emails sent", len(sent)),
		Sent:    len(sent),
		Skipped: skipped,
	})
}

// LogoutHandler revokes the bearer token when one is sent.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearerToken(r); ok {
		s.oauth.RevokeToken(token)
	}
	sendJSON(w, map[string]string{"message": "Logged out"})
}

func (s *Server) redirectToFrontend(w http.ResponseWriter, r *http.Request, params url.Values) {
	target, err := url.Parse(s.config.FrontendURL)
	if err != nil {
		sendError(w, "Frontend URL is invalid", http.StatusInternalServerError)
		return
	}
	q := target.Query()
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *Server) sendOAuthError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, oauth_service.ErrStateExpired) || errors.Is(err, oauth_service.ErrStateNotFound) {
		status = http.StatusForbidden
	}
	sendError(w, err.Error(), status)
}

func (s *Server) sendConsentPage(w http.ResponseWriter, state string) {
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Sign in</title><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; text-align: center; padding: 50px;">
    <h2>Mock Google sign-in</h2>
    <form method="get" action="/oauth/authorize">
        <input type="hidden" name="state" value="%s">
        <input type="email" name="email" placeholder="you@example.com" required>
        <button type="submit">Allow</button>
        <button type="submit" name="cancel" value="1" formnovalidate>Cancel</button>
    </form>
</body>
</html>`, html.EscapeString(state))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page))
}

func parseCSV(r io.Reader) ([]string, []map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("CSV is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("invalid CSV: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	rows := []map[string]string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("invalid CSV: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			} else {
				row[column] = ""
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func recipient(row map[string]string) string {
	for column, value := range row {
		if strings.EqualFold(column, "email") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// render replaces {column} placeholders with the row's values.
func render(prompt string, row map[string]string) string {
	pairs := make([]string, 0, len(row)*2)
	for column, value := range row {
		pairs = append(pairs, "{"+column+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(prompt)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func sendJSON(w http.ResponseWriter, data interface{}) {
	sendJSONStatus(w, http.StatusOK, data)
}

func sendJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, message string, statusCode int) {
	sendJSONStatus(w, statusCode, models.ErrorResponse{Error: message})
}
