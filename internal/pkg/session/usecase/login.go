package usecase

import (
	"context"
	"errors"
	"fmt"

	"bulk_mail_client/internal/pkg/session/domain"
)

// Login sends the user to the backend's Google consent page. It does not
// change state; the session appears only when the callback is captured.
func (m *Manager) Login(ctx context.Context) error {
	if m.IsAuthenticated() {
		return domain.ErrAlreadyAuthenticated
	}

	m.mu.RLock()
	authURL, navigator := m.authURL, m.navigator
	m.mu.RUnlock()
	if authURL == nil || navigator == nil {
		return errors.New("login is not configured")
	}

	target, err := authURL.InitiateLogin(ctx)
	if err != nil {
		return fmt.Errorf("failed to get authorization url: %w", err)
	}

	if err := navigator.Open(target); err != nil {
		return fmt.Errorf("failed to open authorization url: %w", err)
	}
	return nil
}
