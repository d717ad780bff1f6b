package actor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maabara/core"
)

var (
	// errors
	ErrNotFound       = errors.New("actor not found")
	ErrEmailExists    = errors.New("an actor with this email already exists")
	ErrUsernameExists = errors.New("an actor with this username already exists")
	// ErrTokenConflict is returned by Repository.SwapSessionToken when the
	// stored token no longer matches the expected old value.
	ErrTokenConflict = errors.New("session token changed concurrently")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedActors ...Actor) error
		CreateActor(ctx context.Context, act Actor) (Actor, error)
		GetActor(ctx context.Context, filter GetFilter) (Actor, error)
		QueryAllActors(ctx context.Context, ordering ...core.DBOrdering) ([]Actor, error)
		UpdateActor(ctx context.Context, act Actor) (Actor, error)

		// SwapSessionToken atomically replaces the stored session token iff it
		// still equals old; ErrTokenConflict otherwise. This is the only place
		// mutual exclusion between concurrent logins is enforced.
		SwapSessionToken(ctx context.Context, actorID string, old, new null.String) error
		// SetSessionToken overwrites the stored session token unconditionally.
		SetSessionToken(ctx context.Context, actorID string, token null.String) error
	}

	Service interface {
		Create(ctx context.Context, na NewActor) (Actor, error)
		GetByID(ctx context.Context, id string) (Actor, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (Actor, error)
		QueryAll(ctx context.Context, ordering ...core.DBOrdering) ([]Actor, error)
		SetLastLogin(ctx context.Context, act Actor) (Actor, error)
		CheckUniqueness(ctx context.Context, uname, email string, exclActors ...Actor) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclActors ...Actor) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclActors...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, na NewActor) (Actor, error) {
	now := NowFunc().UTC()
	act := Actor{
		ID:        uuid.New().String(),
		Name:      na.Name,
		Username:  na.Username,
		Email:     na.Email,
		Batch:     na.Batch,
		Roles:     na.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	act.SetActive(true)
	if err := act.SetPassword(na.Password); err != nil {
		return Actor{}, err
	}
	return svc.repo.CreateActor(ctx, act)
}

func (svc *service) GetByID(ctx context.Context, id string) (Actor, error) {
	return svc.repo.GetActor(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (Actor, error) {
	return svc.repo.GetActor(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *service) QueryAll(ctx context.Context, ordering ...core.DBOrdering) ([]Actor, error) {
	return svc.repo.QueryAllActors(ctx, ordering...)
}

func (svc *service) SetLastLogin(ctx context.Context, act Actor) (Actor, error) {
	act.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateActor(ctx, act)
}
