package usecase

import (
	"log/slog"
	"sync"

	"bulk_mail_client/internal/pkg/session/domain"
)

// Manager owns the session. Transitions are serialized by transition: each
// one persists, updates memory and notifies subscribers before the next
// starts. Subscribers may read the manager but must not start a transition.
type Manager struct {
	storage   Storage
	authURL   AuthURLProvider
	revoker   Revoker
	navigator Navigator
	logger    *slog.Logger

	transition sync.Mutex

	mu          sync.RWMutex
	session     domain.Session
	subscribers map[int]func(domain.Event)
	nextSubID   int
}

func NewManager(storage Storage, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		storage:     storage,
		logger:      logger,
		subscribers: make(map[int]func(domain.Event)),
	}
}

// SetGateway wires the backend operations the manager drives. The gateway
// itself reads the token from the manager, so it is attached after both exist.
func (m *Manager) SetGateway(authURL AuthURLProvider, revoker Revoker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authURL = authURL
	m.revoker = revoker
}

func (m *Manager) SetNavigator(navigator Navigator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigator = navigator
}

func (m *Manager) Current() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func (m *Manager) State() domain.State {
	return m.Current().State()
}

func (m *Manager) IsAuthenticated() bool {
	return m.Current().IsAuthenticated()
}

func (m *Manager) Email() string {
	return m.Current().Email
}

func (m *Manager) AccessToken() string {
	return m.Current().AccessToken
}

// Subscribe registers fn for every future transition. The returned func
// removes it.
func (m *Manager) Subscribe(fn func(domain.Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// set replaces the in-memory session and returns the subscribers to notify.
// Callers hold transition.
func (m *Manager) set(session domain.Session) []func(domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	subs := make([]func(domain.Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(domain.Event), event domain.Event) {
	for _, fn := range subs {
		fn(event)
	}
}
