package usecase

import (
	"context"
	"fmt"

	"bulk_mail_client/internal/pkg/session/domain"
)

// Logout tells the backend (best effort) and then always clears the local
// session. Only a storage failure is returned, and memory is cleared anyway.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.RLock()
	revoker := m.revoker
	m.mu.RUnlock()

	if revoker != nil {
		if err := revoker.Logout(ctx); err != nil {
			m.logger.Warn("backend logout failed, clearing local session anyway", "error", err)
		}
	}

	return m.clear(ctx, domain.ReasonLogout)
}

// ExpireSession handles a backend authentication failure: the session is
// dropped without calling the backend and without retrying anything.
func (m *Manager) ExpireSession(ctx context.Context) error {
	return m.clear(ctx, domain.ReasonExpired)
}

func (m *Manager) clear(ctx context.Context, reason domain.Reason) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	storeErr := m.storage.DeleteSession(ctx)
	subs := m.set(domain.Session{})
	m.logger.Info("session cleared", "reason", string(reason))
	notify(subs, domain.Event{Reason: reason})

	if storeErr != nil {
		return fmt.Errorf("failed to delete session: %w", storeErr)
	}
	return nil
}
