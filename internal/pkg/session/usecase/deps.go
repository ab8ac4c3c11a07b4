package usecase

import (
	"context"

	"bulk_mail_client/internal/pkg/session/domain"
)

// Storage persists the session across process restarts. GetSession returns
// nil, nil when nothing is stored.
type Storage interface {
	SaveSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context) (*domain.Session, error)
	DeleteSession(ctx context.Context) error
}

// AuthURLProvider asks the backend where to send the user for Google consent.
type AuthURLProvider interface {
	InitiateLogin(ctx context.Context) (string, error)
}

// Revoker tells the backend the session is over.
type Revoker interface {
	Logout(ctx context.Context) error
}

// Navigator takes the user to an external address.
type Navigator interface {
	Open(rawURL string) error
}
