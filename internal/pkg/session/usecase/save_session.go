package usecase

import (
	"context"

	"bulk_mail_client/internal/pkg/session/domain"
)

func (m *MemoryStorage) SaveSession(_ context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[domain.KeyUserEmail] = session.Email
	m.values[domain.KeyAccessToken] = session.AccessToken
	return nil
}
