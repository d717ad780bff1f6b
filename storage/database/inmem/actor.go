package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
)

type actorRepository struct {
	db *actorTable
}

var _ actor.Repository = (*actorRepository)(nil)

func NewActorRepository(db *DB) actor.Repository {
	return &actorRepository{db: db.actor}
}

func (repo *actorRepository) query() []actor.Actor {
	actors := make([]actor.Actor, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		actors = append(actors, *a)
	}
	return actors
}

func (repo *actorRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedActors ...actor.Actor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	exclLen := len(excludedActors)
	if exclLen > 1 {
		sort.Slice(excludedActors, func(i, j int) bool { return excludedActors[i].ID < excludedActors[j].ID })
	}

	for _, act := range repo.query() {
		if isExcluded(act, excludedActors, exclLen) {
			continue
		}
		if username != "" && act.Username == username {
			return actor.ErrUsernameExists
		}
		if email != "" && act.Email == email {
			return actor.ErrEmailExists
		}
	}
	return nil
}

func isExcluded(act actor.Actor, excluded []actor.Actor, n int) bool {
	if n == 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excluded[i].ID >= act.ID })
	return idx < n && excluded[idx].ID == act.ID
}

func (repo *actorRepository) CreateActor(_ context.Context, act actor.Actor) (actor.Actor, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[act.ID] = &act
	return act, nil
}

func (repo *actorRepository) GetActor(_ context.Context, filter actor.GetFilter) (actor.Actor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if act, ok := repo.db.table[filter.ID]; ok {
			return *act, nil
		}
		return actor.Actor{}, actor.ErrNotFound
	}
	for _, act := range repo.query() {
		switch {
		case filter.Username != "" && act.Username == filter.Username:
			return act, nil
		case filter.Email != "" && act.Email == filter.Email:
			return act, nil
		case filter.UsernameOrEmail != "" &&
			(act.Username == filter.UsernameOrEmail || act.Email == filter.UsernameOrEmail):
			return act, nil
		}
	}
	return actor.Actor{}, actor.ErrNotFound
}

func (repo *actorRepository) QueryAllActors(_ context.Context, ordering ...core.DBOrdering) ([]actor.Actor, error) {
	repo.db.mutex.RLock()
	actors := repo.query()
	repo.db.mutex.RUnlock()

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	sort.SliceStable(actors, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareActorField(actors[i], actors[j], ord.Field)
			if c == 0 {
				continue
			}
			return (c < 0) == ord.Ascending
		}
		return false
	})
	return actors, nil
}

// compareActorField returns 0 for unknown fields so they are ignored, as the
// SQL repository does.
func compareActorField(a, b actor.Actor, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "username":
		return strings.Compare(a.Username, b.Username)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "batch":
		return strings.Compare(a.Batch, b.Batch)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "last_login":
		return compareTimes(a.LastLogin, b.LastLogin)
	}
	return 0
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func (repo *actorRepository) UpdateActor(_ context.Context, act actor.Actor) (actor.Actor, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[act.ID]
	if !ok {
		return actor.Actor{}, actor.ErrNotFound
	}
	// the session token is owned by Swap/SetSessionToken; never clobber it here
	act.CurrentToken = orig.CurrentToken
	repo.db.table[act.ID] = &act
	return act, nil
}

func (repo *actorRepository) SwapSessionToken(_ context.Context, actorID string, old, new null.String) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	act, ok := repo.db.table[actorID]
	if !ok {
		return actor.ErrNotFound
	}
	if act.CurrentToken != old {
		return actor.ErrTokenConflict
	}
	act.CurrentToken = new
	return nil
}

func (repo *actorRepository) SetSessionToken(_ context.Context, actorID string, token null.String) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	act, ok := repo.db.table[actorID]
	if !ok {
		return actor.ErrNotFound
	}
	act.CurrentToken = token
	return nil
}
