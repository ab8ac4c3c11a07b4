package domain

import "errors"

// Keys under which a session is persisted. Both are written and removed together.
const (
	KeyUserEmail   = "user_email"
	KeyAccessToken = "access_token"
)

var (
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrLoginCancelled       = errors.New("login cancelled")
	ErrSessionExpired       = errors.New("session expired")
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Session is the client's view of an authenticated user. There is no stored
// logged-in flag: it is derived from both fields being present.
type Session struct {
	Email       string
	AccessToken string
}

func (s Session) IsAuthenticated() bool {
	return s.Email != "" && s.AccessToken != ""
}

func (s Session) State() State {
	if s.IsAuthenticated() {
		return Authenticated
	}
	return Unauthenticated
}

type Reason string

const (
	ReasonRestored Reason = "restored"
	ReasonLogin    Reason = "login"
	ReasonLogout   Reason = "logout"
	ReasonExpired  Reason = "expired"
)

// Event is delivered to subscribers after every session transition.
type Event struct {
	Session Session
	Reason  Reason
}
