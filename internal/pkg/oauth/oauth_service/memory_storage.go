package oauth_service

import (
	"sync"
	"time"
)

type MemoryStorage struct {
	stateExpiry map[string]time.Time
	codes       map[string]Grant
	tokens      map[string]Grant
	mu          sync.RWMutex
	now         func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		stateExpiry: make(map[string]time.Time),
		codes:       make(map[string]Grant),
		tokens:      make(map[string]Grant),
		now:         time.Now,
	}
}

// RunCleanup drops expired states every interval until stop is closed.
func (m *MemoryStorage) RunCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupExpiredStates()
		case <-stop:
			return
		}
	}
}

func (m *MemoryStorage) SaveState(state string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateExpiry[state] = expiresAt
	return nil
}

func (m *MemoryStorage) ConsumeState(state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, exists := m.stateExpiry[state]
	if !exists {
		return ErrStateNotFound
	}
	delete(m.stateExpiry, state)

	if m.now().After(expiry) {
		return ErrStateExpired
	}
	return nil
}

func (m *MemoryStorage) CleanupExpiredStates() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for state, expiry := range m.stateExpiry {
		if now.After(expiry) {
			delete(m.stateExpiry, state)
		}
	}
	for code, grant := range m.codes {
		if now.After(grant.ExpiresAt) {
			delete(m.codes, code)
		}
	}
	return nil
}

func (m *MemoryStorage) SaveCode(code string, grant Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[code] = grant
	return nil
}

func (m *MemoryStorage) ConsumeCode(code string) (Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	grant, exists := m.codes[code]
	if !exists {
		return Grant{}, ErrCodeNotFound
	}
	delete(m.codes, code)
	if m.now().After(grant.ExpiresAt) {
		return Grant{}, ErrCodeNotFound
	}
	return grant, nil
}

func (m *MemoryStorage) SaveToken(token string, grant Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = grant
	return nil
}

func (m *MemoryStorage) GetToken(token string) (Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grant, exists := m.tokens[token]
	if !exists {
		return Grant{}, ErrInvalidToken
	}
	if m.now().After(grant.ExpiresAt) {
		return Grant{}, ErrInvalidToken
	}
	return grant, nil
}

func (m *MemoryStorage) DeleteToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}
