package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/todolists/todolists-go/internal/apperr"
	"github.com/todolists/todolists-go/internal/model"
	"github.com/todolists/todolists-go/internal/repository"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	minPasswordLength = 6
)

// fallbackDummyHash is a well-formed hash with the default cost, used for
// unknown users when the hasher cannot produce its own dummy.
const fallbackDummyHash = "$argon2id$v=19$m=65536,t=3,p=2$dG9kb2xpc3RzLWR1bW15IQ$AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8"

var (
	// ErrUnknownUser and ErrCredentialMismatch are the two internal outcomes of a
	// failed Verify. They must be collapsed before reaching a client.
	ErrUnknownUser        = errors.New("unknown user")
	ErrCredentialMismatch = errors.New("credential mismatch")

	ErrUserExists = apperr.New(apperr.KindConflict, "User already registered.")
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Credentials owns identity records: creating users and checking passwords.
type Credentials struct {
	store  repository.CredentialStore
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

// NewCredentials creates a Credentials service.
func NewCredentials(store repository.CredentialStore, hasher PasswordHasher) *Credentials {
	return &Credentials{store: store, hasher: hasher}
}

// ValidateCredentials checks the length rules for a username/password pair and
// returns a validation error listing every offending field.
func ValidateCredentials(username, password string) error {
	fields := map[string]string{}
	switch n := utf8.RuneCountInString(strings.TrimSpace(username)); {
	case n < minUsernameLength:
		fields["username"] = "Username must be at least 3 characters long"
	case n > maxUsernameLength:
		fields["username"] = "Username must be at most 64 characters long"
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		fields["password"] = "Password must be at least 6 characters long"
	}
	if len(fields) > 0 {
		return apperr.Validation("Invalid credentials data.", fields)
	}
	return nil
}

// Create registers a new user and returns its public fields.
func (c *Credentials) Create(ctx context.Context, username, password string) (model.UserResponse, error) {
	if err := ValidateCredentials(username, password); err != nil {
		return model.UserResponse{}, err
	}

	hash, err := c.hasher.Hash(password)
	if err != nil {
		return model.UserResponse{}, apperr.Server(err)
	}

	user := &model.User{Username: strings.TrimSpace(username), PasswordHash: hash}
	if err := c.store.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return model.UserResponse{}, ErrUserExists
		}
		return model.UserResponse{}, apperr.Server(err)
	}

	return toUserResponse(user), nil
}

// Verify returns the user when password matches. A missing user yields
// ErrUnknownUser and a wrong password ErrCredentialMismatch.
func (c *Credentials) Verify(ctx context.Context, username, password string) (*model.User, error) {
	user, err := c.store.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Spend the same hashing work as a real check so response time
			// does not reveal whether the username exists.
			_, _ = c.hasher.Verify(password, c.dummy())
			return nil, ErrUnknownUser
		}
		return nil, apperr.Server(err)
	}

	match, err := c.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperr.Server(err)
	}
	if !match {
		return nil, ErrCredentialMismatch
	}

	return user, nil
}

// Lookup returns the user with id.
func (c *Credentials) Lookup(ctx context.Context, id int64) (*model.User, error) {
	user, err := c.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Server(err)
	}
	return user, nil
}

func (c *Credentials) dummy() string {
	c.dummyOnce.Do(func() {
		hash, err := c.hasher.Hash("not-a-real-password")
		if err != nil {
			slog.Error("hashing dummy password failed, using fallback", "error", err)
			hash = fallbackDummyHash
		}
		c.dummyHash = hash
	})
	return c.dummyHash
}

func toUserResponse(u *model.User) model.UserResponse {
	return model.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}
