package exam

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
)

var (
	// errors
	ErrNotFound            = errors.New("exam not found")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrNotOwner            = errors.New("attempt belongs to another actor")
	ErrAnswerShapeMismatch = errors.New("answers do not match the attempt's question count")
	ErrAlreadyCompleted    = errors.New("attempt already completed")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateExam(ctx context.Context, ex Exam) (Exam, error)
		GetExam(ctx context.Context, id string) (Exam, error)
		QueryExamsByBatch(ctx context.Context, batch string) ([]Exam, error)

		// CreateAttemptIfAbsent inserts att iff no attempt exists for its
		// (actor, exam) pair, as one conditional write. It returns the stored
		// attempt (the existing one when the insert lost a race) and whether
		// this call created it.
		CreateAttemptIfAbsent(ctx context.Context, att Attempt) (Attempt, bool, error)
		GetAttempt(ctx context.Context, id string) (Attempt, error)
		GetActorExamAttempt(ctx context.Context, actorID, examID string) (Attempt, error)
		QueryActorAttempts(ctx context.Context, actorID string) ([]Attempt, error)
		// FinalizeAttempt persists answers and the end timestamp iff the
		// attempt has not ended yet; ErrAlreadyCompleted otherwise.
		FinalizeAttempt(ctx context.Context, attemptID string, answers []string, endedAt time.Time) (Attempt, error)
	}

	Service interface {
		// StartOrResume returns the actor's attempt for the given exam,
		// creating it on first call. Idempotent: a reload or retry always gets
		// the same attempt ID and question set back; questions are never
		// re-selected for an existing attempt.
		StartOrResume(ctx context.Context, act actor.Actor, examID string) (Attempt, error)
		// SubmitAnswers accepts an attempt's answers exactly once and
		// completes the attempt. Terminal; no further writes are accepted.
		SubmitAnswers(ctx context.Context, act actor.Actor, attemptID string, answers []string) (Attempt, error)
		// AvailableExams lists exams act may still start: batch-eligible,
		// scheduled date not passed, and no attempt yet.
		AvailableExams(ctx context.Context, act actor.Actor) ([]Exam, error)

		Create(ctx context.Context, ex Exam) (Exam, error)
		GetByID(ctx context.Context, id string) (Exam, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService) Service {
	return &service{repo: repo, mailSvc: mailSvc}
}

func (svc *service) Create(ctx context.Context, ex Exam) (Exam, error) {
	now := NowFunc().UTC()
	if ex.ID == "" {
		ex.ID = uuid.New().String()
	}
	ex.CreatedAt = now
	ex.UpdatedAt = now
	return svc.repo.CreateExam(ctx, ex)
}

func (svc *service) GetByID(ctx context.Context, id string) (Exam, error) {
	return svc.repo.GetExam(ctx, id)
}

func (svc *service) StartOrResume(ctx context.Context, act actor.Actor, examID string) (Attempt, error) {
	att, err := svc.repo.GetActorExamAttempt(ctx, act.ID, examID)
	if err == nil {
		return att, nil // resume: hydrate the stored selection as-is
	}
	if err != ErrAttemptNotFound {
		return Attempt{}, pkgerrors.Wrap(err, "finding existing attempt")
	}

	ex, err := svc.repo.GetExam(ctx, examID)
	if err != nil {
		return Attempt{}, err
	}

	selected, err := SelectQuestions(ex.Questions, ex.RequestedCount)
	if err != nil {
		return Attempt{}, err // no partial attempt is created
	}
	questionIDs := make([]string, len(selected))
	for i, q := range selected {
		questionIDs[i] = q.ID
	}

	att = Attempt{
		ID:          uuid.New().String(),
		ActorID:     act.ID,
		ExamID:      examID,
		QuestionIDs: questionIDs,
		Answers:     make([]string, len(questionIDs)),
		StartedAt:   NowFunc().UTC(),
	}
	// a concurrent StartOrResume may have won the insert; either way the
	// stored attempt comes back and both callers see the same selection.
	stored, _, err := svc.repo.CreateAttemptIfAbsent(ctx, att)
	if err != nil {
		return Attempt{}, pkgerrors.Wrap(err, "creating attempt")
	}
	return stored, nil
}

func (svc *service) SubmitAnswers(ctx context.Context, act actor.Actor, attemptID string, answers []string) (Attempt, error) {
	att, err := svc.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if att.ActorID != act.ID {
		return Attempt{}, ErrNotOwner
	}
	if len(answers) != len(att.QuestionIDs) {
		return Attempt{}, ErrAnswerShapeMismatch
	}
	if att.Completed() {
		return Attempt{}, ErrAlreadyCompleted
	}

	// the store re-checks EndedAt in the same write; a concurrent submit
	// that slipped past the check above still fails there.
	updated, err := svc.repo.FinalizeAttempt(ctx, att.ID, answers, NowFunc().UTC())
	if err != nil {
		return Attempt{}, err
	}

	svc.sendCompletionReceipt(act, updated)
	return updated, nil
}

func (svc *service) AvailableExams(ctx context.Context, act actor.Actor) ([]Exam, error) {
	exams, err := svc.repo.QueryExamsByBatch(ctx, act.Batch)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying batch exams")
	}
	attempts, err := svc.repo.QueryActorAttempts(ctx, act.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying actor attempts")
	}

	attempted := make(map[string]struct{}, len(attempts))
	for _, att := range attempts {
		attempted[att.ExamID] = struct{}{}
	}

	now := NowFunc().UTC()
	available := make([]Exam, 0, len(exams))
	for _, ex := range exams {
		if _, started := attempted[ex.ID]; started {
			continue // a begun exam cannot be restarted
		}
		if ex.OpenTo(act, now) {
			available = append(available, ex)
		}
	}
	return available, nil
}

func (svc *service) sendCompletionReceipt(act actor.Actor, att Attempt) {
	if svc.mailSvc == nil || act.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: act.Name, Address: act.Email}},
		Subject: "Test submitted",
		TextContent: fmt.Sprintf(
			"Hi %s,\n\nYour answers were submitted at %s. They can no longer be changed.\n",
			act.Name, att.EndedAt.Time.Format(time.RFC1123),
		),
	})
}
