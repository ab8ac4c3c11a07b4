package usecase

import (
	"context"

	"bulk_mail_client/internal/pkg/session/domain"
)

func (m *MemoryStorage) DeleteSession(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, domain.KeyUserEmail)
	delete(m.values, domain.KeyAccessToken)
	return nil
}
