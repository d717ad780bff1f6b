package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	. "github.com/trezcool/maabara/apps/api/echo"
	"github.com/trezcool/maabara/core/actor"
	"github.com/trezcool/maabara/core/exam"
	"github.com/trezcool/maabara/tests"
)

func questionBank() []exam.QuestionRef {
	return []exam.QuestionRef{
		{ID: "q1", Tags: []string{"algebra"}},
		{ID: "q2", Tags: []string{"algebra"}},
		{ID: "q3", Tags: []string{"geometry"}},
		{ID: "q4", Tags: []string{"calculus"}},
		{ID: "q5", Tags: []string{"statistics"}},
	}
}

func startAttempt(t *testing.T, app Server, token, examID string, wantCode int) AttemptResponse {
	t.Helper()
	req, rec := newAuthRequest(http.MethodPost, "/v1/exams/"+examID+"/attempt", token)
	app.ServeHTTP(rec, req)
	if rec.Code != wantCode {
		t.Fatalf("start attempt: code = %d, want %d, body = %s", rec.Code, wantCode, rec.Body.String())
	}
	var att AttemptResponse
	if wantCode == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("decoding AttemptResponse failed: %v", err)
		}
	}
	return att
}

func Test_examApi_create(t *testing.T) {
	app := setup(t)

	student := testutil.CreateActor(t, actorRepo, "Hero", "hero", "hero@test.cd", "2026a", "G00d#Pass", []string{actor.RoleStudent}, true)
	teacher := testutil.CreateActor(t, actorRepo, "Teacher", "teacher", "teacher@test.cd", "", "G00d#Pass", []string{actor.RoleTeacher}, true)

	body := marchallObj(t, map[string]interface{}{
		"course_id":       "c1",
		"name":            "Midterm",
		"questions":       questionBank(),
		"requested_count": 3,
		"batches":         []string{"2026A"},
		"scheduled_at":    time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})

	t.Run("staff required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams", getToken(t, student), body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("missing fields", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams", getToken(t, teacher), marchallObj(t, map[string]string{"name": "Midterm"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams", getToken(t, teacher), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
		}
		var ex exam.Exam
		if err := json.Unmarshal(rec.Body.Bytes(), &ex); err != nil {
			t.Fatalf("decoding Exam failed: %v", err)
		}
		if ex.ID == "" || len(ex.Batches) != 1 || ex.Batches[0] != "2026a" {
			t.Errorf("created exam = %+v, want an ID and a cleaned 2026a batch", ex)
		}
	})
}

func Test_examApi_attemptLifecycle(t *testing.T) {
	app := setup(t)

	student := testutil.CreateActor(t, actorRepo, "Hero", "hero", "hero@test.cd", "2026a", "G00d#Pass", []string{actor.RoleStudent}, true)
	other := testutil.CreateActor(t, actorRepo, "King", "king", "king@test.cd", "2026a", "G00d#Pass", []string{actor.RoleStudent}, true)
	tomorrow := time.Now().Add(24 * time.Hour)

	ex := testutil.CreateExam(t, examRepo, "c1", "Midterm", questionBank(), 3, []string{"2026a"}, tomorrow)
	testutil.CreateExam(t, examRepo, "c1", "Passed", questionBank(), 3, []string{"2026a"}, time.Now().Add(-time.Hour))

	studentToken := getToken(t, student)
	otherToken := getToken(t, other)

	t.Run("available lists only open exams", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/exams/available", studentToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
		}
		var exams []exam.Exam
		if err := json.Unmarshal(rec.Body.Bytes(), &exams); err != nil {
			t.Fatalf("decoding exams failed: %v", err)
		}
		if len(exams) != 1 || exams[0].ID != ex.ID {
			t.Errorf("available = %+v, want only %s", exams, ex.Name)
		}
	})

	att := startAttempt(t, app, studentToken, ex.ID, http.StatusOK)
	if len(att.QuestionIDs) != 3 || att.Status != exam.StatusInProgress {
		t.Fatalf("attempt = %+v, want 3 questions in progress", att)
	}

	t.Run("start is idempotent", func(t *testing.T) {
		again := startAttempt(t, app, studentToken, ex.ID, http.StatusOK)
		if again.ID != att.ID {
			t.Errorf("attempt ID = %s, want %s", again.ID, att.ID)
		}
	})

	t.Run("attempted exam leaves the available list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/exams/available", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte("[]")}, rec)
	})

	t.Run("unknown exam", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/exams/nope/attempt", studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "exam not found"})}, rec)
	})

	submitPath := "/v1/attempts/" + att.ID + "/answers"

	t.Run("someone else's attempt", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, submitPath, otherToken, marchallObj(t, map[string][]string{"answers": {"A", "B", "C"}}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "attempt belongs to another actor"})}, rec)
	})

	t.Run("wrong answer count", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, submitPath, studentToken, marchallObj(t, map[string][]string{"answers": {"A"}}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "answers do not match the attempt's question count"}),
		}, rec)
	})

	t.Run("submit completes the attempt", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, submitPath, studentToken, marchallObj(t, map[string][]string{"answers": {"A", "B", "C"}}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
		}
		var done AttemptResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &done); err != nil {
			t.Fatalf("decoding AttemptResponse failed: %v", err)
		}
		if done.Status != exam.StatusCompleted || !done.EndedAt.Valid {
			t.Errorf("attempt = %+v, want it completed", done)
		}
	})

	t.Run("resubmission is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, submitPath, studentToken, marchallObj(t, map[string][]string{"answers": {"X", "Y", "Z"}}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "attempt already completed"})}, rec)
	})
}

func Test_examApi_insufficientQuestions(t *testing.T) {
	app := setup(t)

	student := testutil.CreateActor(t, actorRepo, "Hero", "hero", "hero@test.cd", "2026a", "G00d#Pass", []string{actor.RoleStudent}, true)
	pool := []exam.QuestionRef{
		{ID: "q1", Tags: []string{"algebra"}},
		{ID: "q2", Tags: []string{"algebra"}},
	}
	ex := testutil.CreateExam(t, examRepo, "c1", "Midterm", pool, 2, []string{"2026a"}, time.Now().Add(24*time.Hour))

	req, rec := newAuthRequest(http.MethodPost, "/v1/exams/"+ex.ID+"/attempt", getToken(t, student))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict,
		wantData: marchallObj(t, map[string]interface{}{
			"error":     "not enough tag-distinct questions: requested 2, available 1",
			"requested": 2,
			"available": 1,
		}),
	}, rec)
}
