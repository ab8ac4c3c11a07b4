package usecase

import (
	"context"

	"bulk_mail_client/internal/pkg/session/domain"
)

func (m *MemoryStorage) GetSession(_ context.Context) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email, hasEmail := m.values[domain.KeyUserEmail]
	token, hasToken := m.values[domain.KeyAccessToken]
	if !hasEmail && !hasToken {
		return nil, nil
	}
	return &domain.Session{Email: email, AccessToken: token}, nil
}
