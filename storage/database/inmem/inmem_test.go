package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
	"github.com/trezcool/maabara/core/event"
	"github.com/trezcool/maabara/core/exam"
)

func Test_actorRepository_SwapSessionToken(t *testing.T) {
	ctx := context.Background()
	db, _ := Open()
	repo := NewActorRepository(db)

	act, err := repo.CreateActor(ctx, actor.Actor{ID: "a1", Username: "hero"})
	if err != nil {
		t.Fatalf("CreateActor() failed: %v", err)
	}

	// empty -> t1
	if err = repo.SwapSessionToken(ctx, act.ID, null.String{}, null.StringFrom("t1")); err != nil {
		t.Fatalf("SwapSessionToken() failed: %v", err)
	}
	// empty -> t2 must conflict now
	if err = repo.SwapSessionToken(ctx, act.ID, null.String{}, null.StringFrom("t2")); err != actor.ErrTokenConflict {
		t.Errorf("SwapSessionToken() error = %v, want ErrTokenConflict", err)
	}
	// t1 -> t2 matches
	if err = repo.SwapSessionToken(ctx, act.ID, null.StringFrom("t1"), null.StringFrom("t2")); err != nil {
		t.Errorf("SwapSessionToken() failed: %v", err)
	}
	if err = repo.SwapSessionToken(ctx, "nope", null.String{}, null.StringFrom("t1")); err != actor.ErrNotFound {
		t.Errorf("SwapSessionToken() error = %v, want ErrNotFound", err)
	}

	stored, err := repo.GetActor(ctx, actor.GetFilter{ID: act.ID})
	if err != nil {
		t.Fatalf("GetActor() failed: %v", err)
	}
	if stored.CurrentToken.String != "t2" {
		t.Errorf("CurrentToken = %v, want t2", stored.CurrentToken)
	}
}

func Test_actorRepository_UpdateActor_preservesToken(t *testing.T) {
	ctx := context.Background()
	db, _ := Open()
	repo := NewActorRepository(db)

	act, _ := repo.CreateActor(ctx, actor.Actor{ID: "a1", Username: "hero"})
	if err := repo.SetSessionToken(ctx, act.ID, null.StringFrom("live")); err != nil {
		t.Fatalf("SetSessionToken() failed: %v", err)
	}

	act.Name = "Hero"
	act.CurrentToken = null.String{} // stale in-memory copy
	if _, err := repo.UpdateActor(ctx, act); err != nil {
		t.Fatalf("UpdateActor() failed: %v", err)
	}

	stored, _ := repo.GetActor(ctx, actor.GetFilter{ID: act.ID})
	if stored.CurrentToken.String != "live" {
		t.Errorf("CurrentToken = %v, want the live token to survive the update", stored.CurrentToken)
	}
	if stored.Name != "Hero" {
		t.Errorf("Name = %s, want Hero", stored.Name)
	}
}

func Test_actorRepository_QueryAllActors_ordering(t *testing.T) {
	ctx := context.Background()
	db, _ := Open()
	repo := NewActorRepository(db)

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for _, act := range []actor.Actor{
		{ID: "a2", Username: "king", Batch: "2027b", CreatedAt: now.Add(time.Minute)},
		{ID: "a1", Username: "hero", Batch: "2026a", CreatedAt: now},
		{ID: "a3", Username: "awe", Batch: "2026a", CreatedAt: now.Add(2 * time.Minute)},
	} {
		if _, err := repo.CreateActor(ctx, act); err != nil {
			t.Fatalf("CreateActor() failed: %v", err)
		}
	}

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		wantIDs  []string
	}{
		{name: "default is created_at ascending", wantIDs: []string{"a1", "a2", "a3"}},
		{
			name:     "username descending",
			ordering: []core.DBOrdering{{Field: "username"}},
			wantIDs:  []string{"a2", "a1", "a3"},
		},
		{
			name: "batch then username",
			ordering: []core.DBOrdering{
				{Field: "batch", Ascending: true},
				{Field: "username", Ascending: true},
			},
			wantIDs: []string{"a3", "a1", "a2"},
		},
		{
			name:     "unknown field is ignored",
			ordering: []core.DBOrdering{{Field: "lol"}, {Field: "username", Ascending: true}},
			wantIDs:  []string{"a3", "a1", "a2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryAllActors(ctx, tt.ordering...)
			if err != nil {
				t.Fatalf("QueryAllActors() failed: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("QueryAllActors() returned %d actors, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("QueryAllActors()[%d].ID = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func Test_eventRepository_QueryEvents_ordering(t *testing.T) {
	ctx := context.Background()
	db, _ := Open()
	repo := NewEventRepository(db)

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	// appended out of order, plus a timestamp tie
	for _, evt := range []event.Event{
		{ID: "e2", ActorID: "a1", Action: event.ActionLogout, Timestamp: now.Add(time.Hour)},
		{ID: "e1", ActorID: "a1", Action: event.ActionLogin, Timestamp: now},
		{ID: "e3", ActorID: "a1", Action: event.ActionLogin, Timestamp: now.Add(time.Hour)},
		{ID: "e4", ActorID: "a2", Action: event.ActionLogin, Timestamp: now},
	} {
		if _, err := repo.AppendEvent(ctx, evt); err != nil {
			t.Fatalf("AppendEvent() failed: %v", err)
		}
	}

	got, err := repo.QueryEvents(ctx, event.Filter{ActorID: "a1"})
	if err != nil {
		t.Fatalf("QueryEvents() failed: %v", err)
	}
	wantIDs := []string{"e1", "e2", "e3"} // ascending; tie keeps append order
	if len(got) != len(wantIDs) {
		t.Fatalf("QueryEvents() returned %d events, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("QueryEvents()[%d].ID = %s, want %s", i, got[i].ID, id)
		}
	}
}

func Test_eventRepository_QueryEvents_filters(t *testing.T) {
	ctx := context.Background()
	db, _ := Open()
	repo := NewEventRepository(db)

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for _, evt := range []event.Event{
		{ID: "e1", ActorID: "a1", Action: event.ActionLogin, Timestamp: now},
		{ID: "e2", ActorID: "a1", Action: "password_reset", Timestamp: now.Add(time.Minute)},
		{ID: "e3", ActorID: "a1", Action: event.ActionLogout, Timestamp: now.Add(2 * time.Hour)},
	} {
		if _, err := repo.AppendEvent(ctx, evt); err != nil {
			t.Fatalf("AppendEvent() failed: %v", err)
		}
	}

	tests := []struct {
		name    string
		filter  event.Filter
		wantIDs []string
	}{
		{name: "by actor", filter: event.Filter{ActorID: "a1"}, wantIDs: []string{"e1", "e2", "e3"}},
		{
			name:    "by actions",
			filter:  event.Filter{ActorID: "a1", Actions: []string{event.ActionLogin, event.ActionLogout}},
			wantIDs: []string{"e1", "e3"},
		},
		{name: "by window", filter: event.Filter{From: now.Add(time.Minute), To: now.Add(time.Hour)}, wantIDs: []string{"e2"}},
		{name: "unknown actor", filter: event.Filter{ActorID: "nope"}, wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryEvents(ctx, tt.filter)
			if err != nil {
				t.Fatalf("QueryEvents() failed: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("QueryEvents() returned %d events, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("QueryEvents()[%d].ID = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func Test_examRepository_CreateAttemptIfAbsent(t *testing.T) {
	ctx := context.Background()
	db, _ := Open()
	repo := NewExamRepository(db)

	first := exam.Attempt{ID: "att1", ActorID: "a1", ExamID: "ex1", QuestionIDs: []string{"q1"}}
	stored, created, err := repo.CreateAttemptIfAbsent(ctx, first)
	if err != nil {
		t.Fatalf("CreateAttemptIfAbsent() failed: %v", err)
	}
	if !created || stored.ID != "att1" {
		t.Errorf("CreateAttemptIfAbsent() = (%s, %t), want (att1, true)", stored.ID, created)
	}

	// losing a race returns the winner's attempt
	dup := exam.Attempt{ID: "att2", ActorID: "a1", ExamID: "ex1", QuestionIDs: []string{"q2"}}
	stored, created, err = repo.CreateAttemptIfAbsent(ctx, dup)
	if err != nil {
		t.Fatalf("CreateAttemptIfAbsent() failed: %v", err)
	}
	if created || stored.ID != "att1" {
		t.Errorf("CreateAttemptIfAbsent() = (%s, %t), want (att1, false)", stored.ID, created)
	}

	// another exam is a fresh pair
	_, created, err = repo.CreateAttemptIfAbsent(ctx, exam.Attempt{ID: "att3", ActorID: "a1", ExamID: "ex2"})
	if err != nil {
		t.Fatalf("CreateAttemptIfAbsent() failed: %v", err)
	}
	if !created {
		t.Error("CreateAttemptIfAbsent() should create for a new (actor, exam) pair")
	}
}

func Test_examRepository_FinalizeAttempt(t *testing.T) {
	ctx := context.Background()
	db, _ := Open()
	repo := NewExamRepository(db)

	att := exam.Attempt{ID: "att1", ActorID: "a1", ExamID: "ex1", QuestionIDs: []string{"q1", "q2"}}
	if _, _, err := repo.CreateAttemptIfAbsent(ctx, att); err != nil {
		t.Fatalf("CreateAttemptIfAbsent() failed: %v", err)
	}

	endedAt := time.Now().UTC()
	done, err := repo.FinalizeAttempt(ctx, att.ID, []string{"A", "B"}, endedAt)
	if err != nil {
		t.Fatalf("FinalizeAttempt() failed: %v", err)
	}
	if !done.EndedAt.Valid || !done.EndedAt.Time.Equal(endedAt) {
		t.Errorf("EndedAt = %v, want %v", done.EndedAt, endedAt)
	}

	if _, err = repo.FinalizeAttempt(ctx, att.ID, []string{"X", "Y"}, endedAt.Add(time.Minute)); err != exam.ErrAlreadyCompleted {
		t.Errorf("FinalizeAttempt() error = %v, want ErrAlreadyCompleted", err)
	}
	if _, err = repo.FinalizeAttempt(ctx, "nope", nil, endedAt); err != exam.ErrAttemptNotFound {
		t.Errorf("FinalizeAttempt() error = %v, want ErrAttemptNotFound", err)
	}
}
