package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/todolists/todolists-go/internal/apperr"
	"github.com/todolists/todolists-go/internal/model"
	"github.com/todolists/todolists-go/internal/session"
)

var ErrInvalidCredentials = apperr.New(apperr.KindAuth, "Invalid credentials.")

// AuthService handles registration, login and token refresh.
type AuthService struct {
	creds    *Credentials
	sessions *session.Manager
}

// NewAuthService creates a new AuthService.
func NewAuthService(creds *Credentials, sessions *session.Manager) *AuthService {
	return &AuthService{creds: creds, sessions: sessions}
}

// Register creates a new account. No token is issued; clients log in afterwards.
func (s *AuthService) Register(ctx context.Context, req model.CredentialsRequest) (model.MessageResponse, error) {
	user, err := s.creds.Create(ctx, req.Username, req.Password)
	if err != nil {
		return model.MessageResponse{}, err
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID)
	return model.MessageResponse{Message: "User registered successfully."}, nil
}

// Login checks credentials and issues a session token. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req model.CredentialsRequest) (model.LoginResponse, error) {
	if err := ValidateCredentials(req.Username, req.Password); err != nil {
		return model.LoginResponse{}, err
	}

	user, err := s.creds.Verify(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) || errors.Is(err, ErrCredentialMismatch) {
			return model.LoginResponse{}, ErrInvalidCredentials
		}
		return model.LoginResponse{}, err
	}

	tok, err := s.sessions.Issue(session.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return model.LoginResponse{}, err
	}

	return model.LoginResponse{
		Token:    tok.Value,
		UserID:   user.ID,
		Username: user.Username,
	}, nil
}

// Refresh exchanges a still-valid token for a new one with a full lifetime.
func (s *AuthService) Refresh(ctx context.Context, token string) (model.TokenResponse, error) {
	tok, err := s.sessions.Refresh(token)
	if err != nil {
		return model.TokenResponse{}, err
	}
	return model.TokenResponse{Token: tok.Value}, nil
}

// Me returns the public fields of the authenticated user.
func (s *AuthService) Me(ctx context.Context, id session.Identity) (model.UserResponse, error) {
	user, err := s.creds.Lookup(ctx, id.UserID)
	if err != nil {
		return model.UserResponse{}, err
	}
	return toUserResponse(user), nil
}
