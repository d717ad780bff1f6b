package actor

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maabara/core"
)

var (
	// ErrAlreadyActiveSession deliberately does not say where the live
	// session was opened.
	ErrAlreadyActiveSession = errors.New("an active session already exists for this account")
	ErrInvalidSessionToken  = errors.New("invalid session token")

	tokenFunc = generateToken // mockable
)

// generateToken returns an opaque, unguessable session token.
func generateToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", pkgerrors.Wrap(err, "generating session token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Gate enforces the single-concurrent-session policy for restricted actors.
// At most one live token exists per actor; a token is live until cleared
// (logout, admin override) or replaced.
type Gate struct {
	repo   Repository
	logger core.Logger
}

func NewGate(repo Repository, logger core.Logger) *Gate {
	return &Gate{repo: repo, logger: logger}
}

// TryAcquire issues a fresh session token for act and persists it.
// For unrestricted actors it always succeeds, overwriting any previous
// token. For restricted actors it fails with ErrAlreadyActiveSession when a
// live token exists; the check-then-set is a single compare-and-swap on the
// stored token field, so two concurrent logins cannot both get through.
func (g *Gate) TryAcquire(ctx context.Context, act Actor) (string, error) {
	token, err := tokenFunc()
	if err != nil {
		return "", err
	}

	if !act.Restricted() {
		if err := g.repo.SetSessionToken(ctx, act.ID, null.StringFrom(token)); err != nil {
			return "", pkgerrors.Wrap(err, "overwriting session token")
		}
		return token, nil
	}

	err = g.repo.SwapSessionToken(ctx, act.ID, null.String{}, null.StringFrom(token))
	if err == ErrTokenConflict {
		g.audit(fmt.Sprintf("session acquire refused: actor %s already has a live session", act.ID))
		return "", ErrAlreadyActiveSession
	}
	if err != nil {
		return "", pkgerrors.Wrap(err, "swapping session token")
	}
	return token, nil
}

// Release clears the actor's current token unconditionally.
// Used on explicit logout and on admin-forced reset.
func (g *Gate) Release(ctx context.Context, act Actor) error {
	if err := g.repo.SetSessionToken(ctx, act.ID, null.String{}); err != nil {
		g.audit(fmt.Sprintf("session release failed for actor %s", act.ID))
		return pkgerrors.Wrap(err, "clearing session token")
	}
	return nil
}

// Validate succeeds only if presented exactly matches the actor's stored
// token. Acquiring a new token elsewhere invalidates a previously issued
// one, since any subsequent Validate against the old value fails.
func (g *Gate) Validate(ctx context.Context, actorID, presented string) error {
	act, err := g.repo.GetActor(ctx, GetFilter{ID: actorID})
	if err != nil {
		return pkgerrors.Wrap(err, "finding actor by ID")
	}
	if !act.CurrentToken.Valid || presented == "" ||
		subtle.ConstantTimeCompare([]byte(act.CurrentToken.String), []byte(presented)) == 0 {
		g.audit(fmt.Sprintf("session validate failed for actor %s", actorID))
		return ErrInvalidSessionToken
	}
	return nil
}

func (g *Gate) audit(msg string) {
	if g.logger != nil {
		g.logger.Warn(msg)
	}
}
