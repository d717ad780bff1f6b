package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/maabara/core/actor"
	"github.com/trezcool/maabara/core/event"
	"github.com/trezcool/maabara/core/exam"
)

func CreateActor(
	t *testing.T,
	repo actor.Repository,
	name, uname, email, batch, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) actor.Actor {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	act := actor.Actor{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Batch:     batch,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	act.SetActive(isActive)
	if pwd != "" {
		if err := act.SetPassword(pwd); err != nil {
			t.Fatalf("CreateActor() failed: %v", err)
		}
	}
	act, err := repo.CreateActor(context.Background(), act)
	if err != nil {
		t.Fatalf("CreateActor() failed: %v", err)
	}
	return act
}

func CreateExam(
	t *testing.T,
	repo exam.Repository,
	courseID, name string,
	questions []exam.QuestionRef,
	requestedCount int,
	batches []string,
	scheduledAt time.Time,
) exam.Exam {
	t.Helper()

	now := time.Now().UTC()
	ex := exam.Exam{
		ID:             uuid.New().String(),
		CourseID:       courseID,
		Name:           name,
		Questions:      questions,
		RequestedCount: requestedCount,
		Batches:        batches,
		ScheduledAt:    scheduledAt.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	ex, err := repo.CreateExam(context.Background(), ex)
	if err != nil {
		t.Fatalf("CreateExam() failed: %v", err)
	}
	return ex
}

func RecordEvent(
	t *testing.T,
	repo event.Repository,
	actorID, action string,
	timestamp time.Time,
) event.Event {
	t.Helper()

	evt, err := repo.AppendEvent(context.Background(), event.Event{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Action:    action,
		Timestamp: timestamp.UTC(),
	})
	if err != nil {
		t.Fatalf("RecordEvent() failed: %v", err)
	}
	return evt
}
