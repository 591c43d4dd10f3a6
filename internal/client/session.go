package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/todolists/todolists-go/internal/crypto"
)

const (
	DefaultCheckInterval = 60 * time.Second
	DefaultRefreshWindow = 300 * time.Second
)

// SessionPhase is where a token sits in its lifetime.
type SessionPhase int

const (
	Unauthenticated SessionPhase = iota
	Active
	NearExpiry
	Expired
)

func (p SessionPhase) String() string {
	switch p {
	case Active:
		return "active"
	case NearExpiry:
		return "near-expiry"
	case Expired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

// Phase classifies a token expiring at exp. A zero exp means no session.
func Phase(now, exp time.Time, window time.Duration) SessionPhase {
	switch {
	case exp.IsZero():
		return Unauthenticated
	case !now.Before(exp):
		return Expired
	case exp.Sub(now) < window:
		return NearExpiry
	default:
		return Active
	}
}

// TokenRefresher exchanges the current token for a fresh one.
type TokenRefresher interface {
	Token() string
	Refresh(ctx context.Context) (string, error)
}

// KeeperConfig tunes a Keeper. Zero durations use the defaults.
type KeeperConfig struct {
	CheckInterval time.Duration
	RefreshWindow time.Duration
	// OnRefresh receives each newly issued token.
	OnRefresh func(token string)
	// OnLogout is called once when the session ends: on expiry, on a rejected
	// refresh, or when the stored token cannot be read.
	OnLogout func(reason error)
	Now      func() time.Time
}

// Keeper refreshes a session before it expires and forces a logout when it
// cannot.
type Keeper struct {
	api TokenRefresher
	cfg KeeperConfig
}

var (
	// ErrSessionExpired is the logout reason when the token ran out.
	ErrSessionExpired = errors.New("session expired")
	// ErrTokenUnreadable is the logout reason when the stored token is not a JWT.
	ErrTokenUnreadable = errors.New("stored token is unreadable")
)

// NewKeeper creates a Keeper for api.
func NewKeeper(api TokenRefresher, cfg KeeperConfig) *Keeper {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = DefaultRefreshWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Keeper{api: api, cfg: cfg}
}

// Check runs one inspection of the current token and returns its phase after
// any refresh. A non-nil error means the session has ended.
func (k *Keeper) Check(ctx context.Context) (SessionPhase, error) {
	token := k.api.Token()
	if token == "" {
		return Unauthenticated, nil
	}

	exp, err := crypto.PeekExpiry(token)
	if err != nil {
		return Unauthenticated, fmt.Errorf("%w: %w", ErrTokenUnreadable, err)
	}

	switch phase := Phase(k.cfg.Now(), exp, k.cfg.RefreshWindow); phase {
	case Expired:
		return Expired, ErrSessionExpired
	case NearExpiry:
		fresh, err := k.api.Refresh(ctx)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				return Expired, err
			}
			// Transient failure: keep the session and retry on the next tick.
			slog.Warn("token refresh failed", "error", err)
			return NearExpiry, nil
		}
		if k.cfg.OnRefresh != nil {
			k.cfg.OnRefresh(fresh)
		}
		return Active, nil
	default:
		return phase, nil
	}
}

// Run checks the session every CheckInterval until ctx is done or the session
// ends, in which case OnLogout is called and the reason is returned.
func (k *Keeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		if _, err := k.Check(ctx); err != nil && ctx.Err() == nil {
			if k.cfg.OnLogout != nil {
				k.cfg.OnLogout(err)
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
