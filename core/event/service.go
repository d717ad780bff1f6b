package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		AppendEvent(ctx context.Context, evt Event) (Event, error)
		// QueryEvents returns events matching filter, ordered by ascending
		// timestamp; ties preserve insertion order.
		QueryEvents(ctx context.Context, filter Filter) ([]Event, error)
	}

	Service interface {
		Record(ctx context.Context, actorID, action, ip, clientID string) (Event, error)
		Query(ctx context.Context, filter Filter) ([]Event, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Record(ctx context.Context, actorID, action, ip, clientID string) (Event, error) {
	evt := Event{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Action:    action,
		Timestamp: NowFunc().UTC(),
		IP:        ip,
		ClientID:  clientID,
	}
	return svc.repo.AppendEvent(ctx, evt)
}

func (svc *service) Query(ctx context.Context, filter Filter) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, filter)
}
