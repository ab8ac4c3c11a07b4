package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"bulk_mail_client/internal/pkg/campaign/domain"
	"bulk_mail_client/internal/pkg/gateway/gateway_service"
	sessiondomain "bulk_mail_client/internal/pkg/session/domain"
)

// PreviewSize is how many rows the upload preview shows.
const PreviewSize = 5

// Campaign holds the CSV dataset and the draft for one authoring session.
type Campaign struct {
	gateway  Gateway
	session  Session
	notifier Notifier
	logger   *slog.Logger

	mu      sync.RWMutex
	dataset domain.Dataset
	draft   domain.Draft

	sending     atomic.Bool
	unsubscribe func()
}

func NewCampaign(gateway Gateway, session Session, notifier Notifier, logger *slog.Logger) *Campaign {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Campaign{
		gateway:  gateway,
		session:  session,
		notifier: notifier,
		logger:   logger,
	}
	c.unsubscribe = session.Subscribe(c.onSessionEvent)
	return c
}

// Close detaches the campaign from session events.
func (c *Campaign) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *Campaign) onSessionEvent(event sessiondomain.Event) {
	switch event.Reason {
	case sessiondomain.ReasonLogout, sessiondomain.ReasonExpired:
		c.Reset()
	}
}

// Upload replaces the dataset with the backend's parse of r. On any error
// the previous dataset is kept.
func (c *Campaign) Upload(ctx context.Context, name string, r io.Reader) (domain.Dataset, error) {
	rows, err := c.gateway.UploadCSV(ctx, name, r)
	if err != nil {
		return c.Dataset(), err
	}

	dataset := domain.Dataset{Source: name, Rows: rows}
	c.mu.Lock()
	c.dataset = dataset
	c.mu.Unlock()
	return dataset, nil
}

func (c *Campaign) Dataset() domain.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dataset
}

func (c *Campaign) Rows() []gateway_service.Row {
	return c.Dataset().Rows
}

func (c *Campaign) Preview(n int) domain.Preview {
	rows := c.Rows()
	if n < 0 {
		n = 0
	}
	if n > len(rows) {
		n = len(rows)
	}
	return domain.Preview{Rows: rows[:n], Remaining: len(rows) - n}
}

func (c *Campaign) SetDraft(template string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = domain.Draft{Template: template}
}

func (c *Campaign) Draft() domain.Draft {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.draft
}

// Reset drops the dataset and the draft.
func (c *Campaign) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataset = domain.Dataset{}
	c.draft = domain.Draft{}
}

// Send submits the draft for every row. Only one send may be in flight.
func (c *Campaign) Send(ctx context.Context) (domain.SendResult, error) {
	if !c.sending.CompareAndSwap(false, true) {
		return domain.SendResult{}, domain.ErrSendInProgress
	}
	defer c.sending.Store(false)

	c.mu.RLock()
	template, rows := c.draft.Template, c.dataset.Rows
	c.mu.RUnlock()

	message, err := c.gateway.SendBulkEmails(ctx, template, rows)
	if err != nil {
		return domain.SendResult{}, err
	}

	result := domain.SendResult{
		Message:    message,
		Recipients: len(rows),
		Sender:     c.session.Email(),
	}
	if c.notifier != nil {
		if err := c.notifier.NotifySent(ctx, result); err != nil {
			c.logger.Warn("failed to deliver send notification", "error", err)
		}
	}
	return result, nil
}
