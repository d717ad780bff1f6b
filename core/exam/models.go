package exam

import (
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
)

// Attempt statuses
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// QuestionRef points at a question in the bank; the tag set is used only
// for the selection diversity rule.
type QuestionRef struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

// TagSignature returns a normalized, order-independent representation of
// the question's tag set. Two questions with equal signatures are
// considered duplicates for selection purposes.
func (q QuestionRef) TagSignature() string {
	tags := make([]string, 0, len(q.Tags))
	for _, t := range q.Tags {
		if t = core.CleanString(t, true /* lower */); t != "" {
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)

	uniq := tags[:0]
	for i, t := range tags {
		if i == 0 || t != tags[i-1] {
			uniq = append(uniq, t)
		}
	}
	return strings.Join(uniq, "|")
}

// Exam is a timed test definition owned by course staff.
// It must not be modified once attempts exist against it.
type Exam struct {
	ID             string        `json:"id"`
	CourseID       string        `json:"course_id"`
	Name           string        `json:"name"`
	Questions      []QuestionRef `json:"questions"`
	RequestedCount int           `json:"requested_count"`
	Batches        []string      `json:"batches"`
	ScheduledAt    time.Time     `json:"scheduled_at"` // UTC; admission filter, not a live timer
	CreatedAt      time.Time     `json:"created_at"`   // UTC
	UpdatedAt      time.Time     `json:"updated_at"`   // UTC
}

// OpenTo reports whether act may still start this exam: the actor's batch
// is eligible and the scheduled date has not passed.
func (e Exam) OpenTo(act actor.Actor, now time.Time) bool {
	if now.After(e.ScheduledAt) {
		return false
	}
	for _, b := range e.Batches {
		if strings.EqualFold(b, act.Batch) {
			return true
		}
	}
	return false
}

// Attempt records one actor's single, non-repeatable engagement with one
// exam's selected question subset. At most one exists per (actor, exam).
// Answers align index-for-index with QuestionIDs and may only be written
// while EndedAt is null; writing them sets EndedAt.
type Attempt struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	ExamID      string    `json:"exam_id"`
	QuestionIDs []string  `json:"question_ids"`
	Answers     []string  `json:"answers"`
	StartedAt   time.Time `json:"started_at"` // UTC
	EndedAt     null.Time `json:"ended_at"`
}

func (a Attempt) Completed() bool {
	return a.EndedAt.Valid
}

func (a Attempt) Status() string {
	if a.Completed() {
		return StatusCompleted
	}
	return StatusInProgress
}
