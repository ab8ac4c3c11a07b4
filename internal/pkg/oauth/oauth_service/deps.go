package oauth_service

import "time"

// Storage keeps the provider's short-lived OAuth artifacts.
type Storage interface {
	SaveState(state string, expiresAt time.Time) error
	ConsumeState(state string) error
	CleanupExpiredStates() error

	SaveCode(code string, grant Grant) error
	ConsumeCode(code string) (Grant, error)

	SaveToken(token string, grant Grant) error
	GetToken(token string) (Grant, error)
	DeleteToken(token string) error
}
