package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maabara/core/exam"
)

type examRepository struct {
	db *examTable
}

var _ exam.Repository = (*examRepository)(nil)

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db.exam}
}

func (repo *examRepository) CreateExam(_ context.Context, ex exam.Exam) (exam.Exam, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.exams[ex.ID] = &ex
	return ex, nil
}

func (repo *examRepository) GetExam(_ context.Context, id string) (exam.Exam, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ex, ok := repo.db.exams[id]; ok {
		return *ex, nil
	}
	return exam.Exam{}, exam.ErrNotFound
}

func (repo *examRepository) QueryExamsByBatch(_ context.Context, batch string) ([]exam.Exam, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	exams := make([]exam.Exam, 0)
	for _, ex := range repo.db.exams {
		for _, b := range ex.Batches {
			if strings.EqualFold(b, batch) {
				exams = append(exams, *ex)
				break
			}
		}
	}
	return exams, nil
}

func (repo *examRepository) CreateAttemptIfAbsent(_ context.Context, att exam.Attempt) (exam.Attempt, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.attempts {
		if existing.ActorID == att.ActorID && existing.ExamID == att.ExamID {
			return *existing, false, nil
		}
	}
	repo.db.attempts[att.ID] = &att
	return att, true, nil
}

func (repo *examRepository) GetAttempt(_ context.Context, id string) (exam.Attempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if att, ok := repo.db.attempts[id]; ok {
		return *att, nil
	}
	return exam.Attempt{}, exam.ErrAttemptNotFound
}

func (repo *examRepository) GetActorExamAttempt(_ context.Context, actorID, examID string) (exam.Attempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, att := range repo.db.attempts {
		if att.ActorID == actorID && att.ExamID == examID {
			return *att, nil
		}
	}
	return exam.Attempt{}, exam.ErrAttemptNotFound
}

func (repo *examRepository) QueryActorAttempts(_ context.Context, actorID string) ([]exam.Attempt, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	attempts := make([]exam.Attempt, 0)
	for _, att := range repo.db.attempts {
		if att.ActorID == actorID {
			attempts = append(attempts, *att)
		}
	}
	return attempts, nil
}

func (repo *examRepository) FinalizeAttempt(_ context.Context, attemptID string, answers []string, endedAt time.Time) (exam.Attempt, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	att, ok := repo.db.attempts[attemptID]
	if !ok {
		return exam.Attempt{}, exam.ErrAttemptNotFound
	}
	if att.EndedAt.Valid {
		return exam.Attempt{}, exam.ErrAlreadyCompleted
	}
	att.Answers = append([]string(nil), answers...)
	att.EndedAt = null.TimeFrom(endedAt)
	return *att, nil
}
