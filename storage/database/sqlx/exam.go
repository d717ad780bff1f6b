package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/exam"
)

type examRepository struct {
	exec core.DBExecutor
}

var _ exam.Repository = (*examRepository)(nil)

func NewExamRepository(exec core.DBExecutor) *examRepository {
	return &examRepository{exec: exec}
}

type (
	examRow struct {
		ID             string         `db:"id"`
		CourseID       string         `db:"course_id"`
		Name           string         `db:"name"`
		Questions      []byte         `db:"questions"` // jsonb
		RequestedCount int            `db:"requested_count"`
		Batches        pq.StringArray `db:"batches"`
		ScheduledAt    time.Time      `db:"scheduled_at"`
		CreatedAt      time.Time      `db:"created_at"`
		UpdatedAt      time.Time      `db:"updated_at"`
	}

	attemptRow struct {
		ID          string         `db:"id"`
		ActorID     string         `db:"actor_id"`
		ExamID      string         `db:"exam_id"`
		QuestionIDs pq.StringArray `db:"question_ids"`
		Answers     pq.StringArray `db:"answers"`
		StartedAt   time.Time      `db:"started_at"`
		EndedAt     null.Time      `db:"ended_at"`
	}
)

func (repo examRepository) packExam(ex exam.Exam) (examRow, error) {
	questions, err := json.Marshal(ex.Questions)
	if err != nil {
		return examRow{}, errors.Wrap(err, "marshalling questions")
	}
	return examRow{
		ID:             ex.ID,
		CourseID:       ex.CourseID,
		Name:           ex.Name,
		Questions:      questions,
		RequestedCount: ex.RequestedCount,
		Batches:        pq.StringArray(ex.Batches),
		ScheduledAt:    ex.ScheduledAt.UTC(),
		CreatedAt:      ex.CreatedAt.UTC(),
		UpdatedAt:      ex.UpdatedAt.UTC(),
	}, nil
}

func (repo examRepository) unpackExam(row examRow) (exam.Exam, error) {
	var questions []exam.QuestionRef
	if err := json.Unmarshal(row.Questions, &questions); err != nil {
		return exam.Exam{}, errors.Wrap(err, "unmarshalling questions")
	}
	return exam.Exam{
		ID:             row.ID,
		CourseID:       row.CourseID,
		Name:           row.Name,
		Questions:      questions,
		RequestedCount: row.RequestedCount,
		Batches:        row.Batches,
		ScheduledAt:    row.ScheduledAt,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func (repo examRepository) unpackAttempt(row attemptRow) exam.Attempt {
	return exam.Attempt{
		ID:          row.ID,
		ActorID:     row.ActorID,
		ExamID:      row.ExamID,
		QuestionIDs: row.QuestionIDs,
		Answers:     row.Answers,
		StartedAt:   row.StartedAt,
		EndedAt:     row.EndedAt,
	}
}

func (repo examRepository) CreateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error) {
	row, err := repo.packExam(ex)
	if err != nil {
		return exam.Exam{}, err
	}
	q := `INSERT INTO exam (id, course_id, name, questions, requested_count, batches, scheduled_at, created_at, updated_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = repo.exec.ExecContext(ctx, q,
		row.ID, row.CourseID, row.Name, row.Questions, row.RequestedCount,
		row.Batches, row.ScheduledAt, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return exam.Exam{}, dbErr(err, "creating exam")
	}
	return ex, nil
}

func (repo examRepository) GetExam(ctx context.Context, id string) (exam.Exam, error) {
	q := `SELECT id, course_id, name, questions, requested_count, batches, scheduled_at, created_at, updated_at
	      FROM exam WHERE id = $1`
	var row examRow
	if err := repo.exec.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return exam.Exam{}, exam.ErrNotFound
		}
		return exam.Exam{}, dbErr(err, "getting exam")
	}
	return repo.unpackExam(row)
}

func (repo examRepository) QueryExamsByBatch(ctx context.Context, batch string) ([]exam.Exam, error) {
	q := `SELECT id, course_id, name, questions, requested_count, batches, scheduled_at, created_at, updated_at
	      FROM exam WHERE LOWER($1) = ANY (SELECT LOWER(UNNEST(batches))) ORDER BY scheduled_at`
	var rows []examRow
	if err := repo.exec.SelectContext(ctx, &rows, q, batch); err != nil {
		return nil, dbErr(err, "querying batch exams")
	}
	exams := make([]exam.Exam, 0, len(rows))
	for _, row := range rows {
		ex, err := repo.unpackExam(row)
		if err != nil {
			return nil, err
		}
		exams = append(exams, ex)
	}
	return exams, nil
}

// CreateAttemptIfAbsent leans on the (actor_id, exam_id) unique constraint:
// the insert and the existence check are one statement.
func (repo examRepository) CreateAttemptIfAbsent(ctx context.Context, att exam.Attempt) (exam.Attempt, bool, error) {
	q := `INSERT INTO attempt (id, actor_id, exam_id, question_ids, answers, started_at)
	      VALUES ($1, $2, $3, $4, $5, $6)
	      ON CONFLICT (actor_id, exam_id) DO NOTHING`
	res, err := repo.exec.ExecContext(ctx, q,
		att.ID, att.ActorID, att.ExamID,
		pq.StringArray(att.QuestionIDs), pq.StringArray(att.Answers), att.StartedAt.UTC(),
	)
	if err != nil {
		return exam.Attempt{}, false, dbErr(err, "creating attempt")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		existing, err := repo.GetActorExamAttempt(ctx, att.ActorID, att.ExamID)
		if err != nil {
			return exam.Attempt{}, false, err
		}
		return existing, false, nil
	}
	return att, true, nil
}

func (repo examRepository) GetAttempt(ctx context.Context, id string) (exam.Attempt, error) {
	q := `SELECT id, actor_id, exam_id, question_ids, answers, started_at, ended_at
	      FROM attempt WHERE id = $1`
	var row attemptRow
	if err := repo.exec.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return exam.Attempt{}, exam.ErrAttemptNotFound
		}
		return exam.Attempt{}, dbErr(err, "getting attempt")
	}
	return repo.unpackAttempt(row), nil
}

func (repo examRepository) GetActorExamAttempt(ctx context.Context, actorID, examID string) (exam.Attempt, error) {
	q := `SELECT id, actor_id, exam_id, question_ids, answers, started_at, ended_at
	      FROM attempt WHERE actor_id = $1 AND exam_id = $2`
	var row attemptRow
	if err := repo.exec.GetContext(ctx, &row, q, actorID, examID); err != nil {
		if err == sql.ErrNoRows {
			return exam.Attempt{}, exam.ErrAttemptNotFound
		}
		return exam.Attempt{}, dbErr(err, "getting actor exam attempt")
	}
	return repo.unpackAttempt(row), nil
}

func (repo examRepository) QueryActorAttempts(ctx context.Context, actorID string) ([]exam.Attempt, error) {
	q := `SELECT id, actor_id, exam_id, question_ids, answers, started_at, ended_at
	      FROM attempt WHERE actor_id = $1 ORDER BY started_at`
	var rows []attemptRow
	if err := repo.exec.SelectContext(ctx, &rows, q, actorID); err != nil {
		return nil, dbErr(err, "querying actor attempts")
	}
	attempts := make([]exam.Attempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, repo.unpackAttempt(row))
	}
	return attempts, nil
}

// FinalizeAttempt makes the not-yet-ended check part of the write itself,
// so two concurrent submits cannot both land.
func (repo examRepository) FinalizeAttempt(ctx context.Context, attemptID string, answers []string, endedAt time.Time) (exam.Attempt, error) {
	q := `UPDATE attempt SET answers = $2, ended_at = $3 WHERE id = $1 AND ended_at IS NULL`
	res, err := repo.exec.ExecContext(ctx, q, attemptID, pq.StringArray(answers), endedAt.UTC())
	if err != nil {
		return exam.Attempt{}, dbErr(err, "finalizing attempt")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return exam.Attempt{}, dbErr(err, "finalizing attempt")
	}
	if n == 0 {
		att, err := repo.GetAttempt(ctx, attemptID)
		if err != nil {
			return exam.Attempt{}, err
		}
		if att.Completed() {
			return exam.Attempt{}, exam.ErrAlreadyCompleted
		}
		return exam.Attempt{}, exam.ErrAttemptNotFound
	}
	return repo.GetAttempt(ctx, attemptID)
}
