package log_collector

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"bulk_mail_client/internal/pkg/http_client"
)

const DefaultLimit = 1000

// Collector keeps the most recent HTTP exchange logs in memory and appends
// every entry to a file per day.
type Collector struct {
	fs     afero.Fs
	dir    string
	limit  int
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries []http_client.LogEntry
}

func NewCollector(fs afero.Fs, dir string, logger *slog.Logger) (*Collector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	return &Collector{
		fs:     fs,
		dir:    dir,
		limit:  DefaultLimit,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (c *Collector) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/log", c.handleLog).Methods(http.MethodPost)
	r.HandleFunc("/logs", c.handleGetLogs).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	return r
}

// Add records one entry. The in-memory copy is kept even if the file write
// fails.
func (c *Collector) Add(entry http_client.LogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, entry)
	if len(c.entries) > c.limit {
		c.entries = c.entries[len(c.entries)-c.limit:]
	}

	file, err := c.fs.OpenFile(c.fileName(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return nil
}

func (c *Collector) Entries() []http_client.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]http_client.LogEntry(nil), c.entries...)
}

func (c *Collector) fileName() string {
	return filepath.Join(c.dir, fmt.Sprintf("http_%s.log", c.now().Format("2006-01-02")))
}

func (c *Collector) handleLog(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	var entry http_client.LogEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := c.Add(entry); err != nil {
		c.logger.Error("failed to persist log entry", "error", err)
	}

	attrs := []any{
		"id", entry.ID,
		"method", entry.Method,
		"url", entry.URL,
		"status", entry.StatusCode,
		"duration_ms", entry.Duration,
	}
	if entry.Error != "" {
		c.logger.Warn("http exchange failed", append(attrs, "error", entry.Error)...)
	} else {
		c.logger.Info("http exchange", attrs...)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (c *Collector) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c.Entries())
}
