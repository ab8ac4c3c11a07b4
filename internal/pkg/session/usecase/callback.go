package usecase

import (
	"context"
	"fmt"
	"net/url"

	"bulk_mail_client/internal/pkg/session/domain"
)

var callbackParams = []string{"token", "email", "error", "error_description"}

// CaptureCallback consumes the token and email the backend appends to the
// entry address after Google consent. The returned address never carries
// the callback parameters, so reloading it cannot capture twice.
func (m *Manager) CaptureCallback(ctx context.Context, entry *url.URL) (*url.URL, bool, error) {
	query := entry.Query()
	stripped := StripCallbackParams(entry)

	if errParam := query.Get("error"); errParam != "" {
		m.logger.Warn("oauth callback returned error",
			"error", errParam, "description", query.Get("error_description"))
		return stripped, false, fmt.Errorf("%w: %s", domain.ErrLoginCancelled, errParam)
	}

	session := domain.Session{
		Email:       query.Get("email"),
		AccessToken: query.Get("token"),
	}
	if !session.IsAuthenticated() {
		return stripped, false, nil
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	if err := m.storage.SaveSession(ctx, session); err != nil {
		return stripped, false, fmt.Errorf("failed to save session: %w", err)
	}
	subs := m.set(session)
	m.logger.Info("session captured from callback", "email", session.Email)
	notify(subs, domain.Event{Session: session, Reason: domain.ReasonLogin})

	return stripped, true, nil
}

// Establish stores a session obtained outside the redirect flow, e.g. from
// a code exchange.
func (m *Manager) Establish(ctx context.Context, session domain.Session) error {
	if !session.IsAuthenticated() {
		return fmt.Errorf("incomplete session: %w", domain.ErrNotAuthenticated)
	}

	m.transition.Lock()
	defer m.transition.Unlock()

	if err := m.storage.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	subs := m.set(session)
	notify(subs, domain.Event{Session: session, Reason: domain.ReasonLogin})
	return nil
}

func StripCallbackParams(entry *url.URL) *url.URL {
	stripped := *entry
	query := entry.Query()
	for _, key := range callbackParams {
		query.Del(key)
	}
	stripped.RawQuery = query.Encode()
	return &stripped
}
