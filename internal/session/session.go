package session

import (
	"context"
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"puntoventa/terminal/internal/domain"
)

var (
	// ErrNotAuthorized means no session is persisted, or the persisted user
	// does not carry the cashier role. The guard clears local state before
	// reporting it.
	ErrNotAuthorized = errors.New("session: not authorized")
	// ErrExpired means the stored token's exp claim is in the past.
	ErrExpired = errors.New("session: expired")
)

// Store persists the session context between runs of the terminal. It is the
// explicit replacement for the source client's ambient browser storage.
type Store interface {
	Load(ctx context.Context) (domain.Session, bool, error)
	Save(ctx context.Context, sess domain.Session) error
	Clear(ctx context.Context) error
}

// Guard validates the persisted session before the panel may start. Absence,
// a role mismatch or a locally expired token all clear the store so a stale
// session cannot be retried.
type Guard struct {
	store Store
	role  int
	log   zerolog.Logger
}

func NewGuard(store Store, role int, log zerolog.Logger) *Guard {
	if role == 0 {
		role = domain.RoleCashier
	}
	return &Guard{store: store, role: role, log: log}
}

func (g *Guard) Authorize(ctx context.Context) (domain.Session, error) {
	sess, ok, err := g.store.Load(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok || sess.Token == "" || sess.UserID == 0 || sess.User.Role != g.role {
		g.log.Warn().Int("role", sess.User.Role).Msg("session rejected, clearing local state")
		if clearErr := g.store.Clear(ctx); clearErr != nil {
			g.log.Error().Err(clearErr).Msg("failed to clear session")
		}
		return domain.Session{}, ErrNotAuthorized
	}

	if expired(sess.Token) {
		g.log.Warn().Msg("stored token expired, clearing local state")
		if clearErr := g.store.Clear(ctx); clearErr != nil {
			g.log.Error().Err(clearErr).Msg("failed to clear session")
		}
		return domain.Session{}, ErrExpired
	}

	return sess, nil
}

// Logout discards the persisted session. Called on explicit logout and on
// the forced-logout path when the backend answers 401.
func (g *Guard) Logout(ctx context.Context) error {
	return g.store.Clear(ctx)
}

// expired screens the exp claim without verifying the signature. The
// terminal holds no signing secret; the backend stays authoritative and
// still rejects bad tokens with 401. Tokens that are not JWTs pass the
// screen untouched.
func expired(token string) bool {
	claims := jwtlib.MapClaims{}
	parser := jwtlib.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
