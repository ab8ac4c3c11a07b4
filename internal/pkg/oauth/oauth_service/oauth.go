package oauth_service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStateNotFound = errors.New("state not found")
	ErrStateExpired  = errors.New("state expired")
	ErrCodeNotFound  = errors.New("authorization code not found")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrInvalidEmail  = errors.New("invalid email")
)

const (
	stateTTL = 10 * time.Minute
	codeTTL  = time.Minute
)

// Grant is what a code or a token stands for.
type Grant struct {
	Email     string
	ExpiresAt time.Time
}

type TokenResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

type Config struct {
	// PublicURL is where the provider's /oauth/authorize page is served.
	PublicURL string
	TokenTTL  time.Duration
}

// OAuthService simulates the Google consent step for the mock backend.
type OAuthService struct {
	config  Config
	storage Storage
	now     func() time.Time
}

func NewOAuthService(config Config, storage Storage) *OAuthService {
	if config.TokenTTL == 0 {
		config.TokenTTL = time.Hour
	}
	config.PublicURL = strings.TrimRight(config.PublicURL, "/")
	return &OAuthService{config: config, storage: storage, now: time.Now}
}

func (s *OAuthService) GenerateAuthURL() (string, string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	if err := s.storage.SaveState(state, s.now().Add(stateTTL)); err != nil {
		return "", "", fmt.Errorf("failed to save state: %w", err)
	}

	params := url.Values{}
	params.Add("response_type", "code")
	params.Add("scope", "openid email https://www.googleapis.com/auth/gmail.send")
	params.Add("state", state)

	return fmt.Sprintf("%s/oauth/authorize?%s", s.config.PublicURL, params.Encode()), state, nil
}

// Authorize completes consent for email and issues a token directly.
func (s *OAuthService) Authorize(state, email string) (*TokenResponse, error) {
	if err := s.storage.ConsumeState(state); err != nil {
		return nil, err
	}
	return s.issueToken(email)
}

// AuthorizeCode completes consent and issues a one-time code instead.
func (s *OAuthService) AuthorizeCode(state, email string) (string, error) {
	if err := s.storage.ConsumeState(state); err != nil {
		return "", err
	}
	if !validEmail(email) {
		return "", ErrInvalidEmail
	}

	code, err := GenerateState()
	if err != nil {
		return "", err
	}
	grant := Grant{Email: email, ExpiresAt: s.now().Add(codeTTL)}
	if err := s.storage.SaveCode(code, grant); err != nil {
		return "", err
	}
	return code, nil
}

func (s *OAuthService) ExchangeCode(code string) (*TokenResponse, error) {
	grant, err := s.storage.ConsumeCode(code)
	if err != nil {
		return nil, err
	}
	return s.issueToken(grant.Email)
}

// ValidateToken returns the email the bearer token was issued to.
func (s *OAuthService) ValidateToken(token string) (string, error) {
	grant, err := s.storage.GetToken(token)
	if err != nil {
		return "", err
	}
	return grant.Email, nil
}

func (s *OAuthService) RevokeToken(token string) error {
	return s.storage.DeleteToken(token)
}

func (s *OAuthService) issueToken(email string) (*TokenResponse, error) {
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	token := "mock-" + uuid.NewString()
	grant := Grant{Email: email, ExpiresAt: s.now().Add(s.config.TokenTTL)}
	if err := s.storage.SaveToken(token, grant); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	return &TokenResponse{Token: token, Email: email}, nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

func GenerateState() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
