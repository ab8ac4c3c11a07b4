package usecase

import (
	"context"
	"fmt"

	"bulk_mail_client/internal/pkg/session/domain"
)

// Restore loads a persisted session at startup. No expiry check is done
// here; an expired token is discovered by the first rejected request.
// A record holding only one of the two keys is discarded.
func (m *Manager) Restore(ctx context.Context) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	stored, err := m.storage.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if stored == nil {
		return nil
	}

	if !stored.IsAuthenticated() {
		m.logger.Warn("discarding incomplete persisted session",
			"has_email", stored.Email != "", "has_token", stored.AccessToken != "")
		if err := m.storage.DeleteSession(ctx); err != nil {
			return fmt.Errorf("failed to discard incomplete session: %w", err)
		}
		return nil
	}

	subs := m.set(*stored)
	m.logger.Info("session restored", "email", stored.Email)
	notify(subs, domain.Event{Session: *stored, Reason: domain.ReasonRestored})
	return nil
}
