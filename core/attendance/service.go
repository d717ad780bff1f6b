package attendance

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/maabara/core/event"
)

// cohort reconstruction fans out per actor; no shared mutable state.
const maxFanOut = 8

type (
	Service interface {
		// ActorSessions rebuilds one actor's sessions from the event log.
		ActorSessions(ctx context.Context, actorID string) ([]Session, error)
		// CohortSessions rebuilds sessions for a set of actors, keyed by actor ID.
		CohortSessions(ctx context.Context, actorIDs []string) (map[string][]Session, error)
	}

	service struct {
		events event.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(events event.Repository) Service {
	return &service{events: events}
}

func (svc *service) ActorSessions(ctx context.Context, actorID string) ([]Session, error) {
	evts, err := svc.events.QueryEvents(ctx, event.Filter{
		ActorID: actorID,
		Actions: []string{event.ActionLogin, event.ActionLogout},
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying actor events")
	}
	return BuildSessions(evts), nil
}

func (svc *service) CohortSessions(ctx context.Context, actorIDs []string) (map[string][]Session, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error

		sem = make(chan struct{}, maxFanOut)
		res = make(map[string][]Session, len(actorIDs))
	)

	for _, actorID := range actorIDs {
		actorID := actorID
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			sessions, err := svc.ActorSessions(ctx, actorID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			res[actorID] = sessions
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return res, nil
}
