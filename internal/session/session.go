// Package session issues, validates and refreshes the stateless bearer tokens
// that gate every list operation. Tokens are self-contained: validity depends only
// on the signature and the expiry claim, so nothing here holds shared state.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/todolists/todolists-go/internal/apperr"
	"github.com/todolists/todolists-go/internal/crypto"
)

// DefaultTTL is the lifetime of a freshly issued token.
const DefaultTTL = time.Hour

var (
	// ErrInvalidToken is returned for tokens with a bad signature, format or claims.
	ErrInvalidToken = apperr.New(apperr.KindAuth, "Invalid token.")
	// ErrTokenExpired is returned for genuine tokens past their expiry.
	ErrTokenExpired = apperr.New(apperr.KindAuth, "Token expired.")
)

// Identity is the authenticated principal bound to a token.
type Identity struct {
	UserID   int64
	Username string
}

// Token is an issued bearer token together with its validity window.
type Token struct {
	Value     string
	Identity  Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager signs and checks tokens with a shared secret.
type Manager struct {
	secret string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager. A non-positive ttl falls back to DefaultTTL.
func NewManager(secret string, ttl time.Duration, opts ...Option) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{secret: secret, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue produces a token for id expiring TTL from now.
func (m *Manager) Issue(id Identity) (Token, error) {
	// JWT dates have second precision; truncate so the returned window matches the claims.
	issuedAt := m.now().Truncate(time.Second)
	value, err := crypto.GenerateToken(id.UserID, id.Username, m.secret, issuedAt, m.ttl)
	if err != nil {
		return Token{}, apperr.Server(fmt.Errorf("signing token: %w", err))
	}
	return Token{
		Value:     value,
		Identity:  id,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(m.ttl),
	}, nil
}

// Validate checks the signature and expiry of value and returns the bound identity.
func (m *Manager) Validate(value string) (Identity, error) {
	claims, err := crypto.ValidateToken(value, m.secret, m.now())
	if err != nil {
		if errors.Is(err, crypto.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// Refresh issues a new token for the identity bound to a currently valid token.
// An expired or otherwise invalid token is rejected with ErrInvalidToken and
// nothing is issued.
func (m *Manager) Refresh(value string) (Token, error) {
	id, err := m.Validate(value)
	if errors.Is(err, ErrTokenExpired) {
		return Token{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err != nil {
		return Token{}, err
	}
	return m.Issue(id)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx by the request gate.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
