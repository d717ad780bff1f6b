package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/maabara/core/event"
)

type eventRepository struct {
	db *eventTable
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db.event}
}

func (repo *eventRepository) AppendEvent(_ context.Context, evt event.Event) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.rows = append(repo.db.rows, evt)
	return evt, nil
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter event.Filter) ([]event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	matches := make([]event.Event, 0, len(repo.db.rows))
	for _, evt := range repo.db.rows {
		if filter.ActorID != "" && evt.ActorID != filter.ActorID {
			continue
		}
		if !filter.MatchesAction(evt.Action) {
			continue
		}
		if !filter.From.IsZero() && evt.Timestamp.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && evt.Timestamp.After(filter.To) {
			continue
		}
		matches = append(matches, evt)
	}
	// ascending timestamps; ties keep append order
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Timestamp.Before(matches[j].Timestamp) })
	return matches, nil
}
