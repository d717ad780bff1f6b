package exam

import (
	"errors"
	"testing"
)

func q(id string, tags ...string) QuestionRef {
	return QuestionRef{ID: id, Tags: tags}
}

func TestQuestionRef_TagSignature(t *testing.T) {
	tests := []struct {
		name string
		q    QuestionRef
		want string
	}{
		{name: "no tags", q: q("q1"), want: ""},
		{name: "single tag", q: q("q1", "algebra"), want: "algebra"},
		{name: "order independent", q: q("q1", "geometry", "algebra"), want: "algebra|geometry"},
		{name: "case insensitive", q: q("q1", "Algebra", "GEOMETRY"), want: "algebra|geometry"},
		{name: "whitespace trimmed", q: q("q1", "  algebra ", "geometry"), want: "algebra|geometry"},
		{name: "duplicates collapse", q: q("q1", "algebra", "Algebra", "algebra"), want: "algebra"},
		{name: "blank tags dropped", q: q("q1", "", "  ", "algebra"), want: "algebra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.TagSignature(); got != tt.want {
				t.Errorf("TagSignature() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectQuestions(t *testing.T) {
	// deterministic order for assertions; selection logic is shuffle-agnostic
	shuffleFunc = func([]QuestionRef) {}
	defer func() { shuffleFunc = shuffleQuestions }()

	pool := []QuestionRef{
		q("q1", "algebra"),
		q("q2", "algebra"),
		q("q3", "geometry"),
		q("q4", "geometry"),
		q("q5", "calculus"),
	}

	t.Run("picks tag-distinct questions", func(t *testing.T) {
		picked, err := SelectQuestions(pool, 3)
		if err != nil {
			t.Fatalf("SelectQuestions() failed: %v", err)
		}
		if len(picked) != 3 {
			t.Fatalf("SelectQuestions() picked %d, want 3", len(picked))
		}
		sigs := make(map[string]struct{}, len(picked))
		for _, p := range picked {
			if _, dup := sigs[p.TagSignature()]; dup {
				t.Errorf("SelectQuestions() picked duplicate signature %q", p.TagSignature())
			}
			sigs[p.TagSignature()] = struct{}{}
		}
	})

	t.Run("not enough distinct signatures", func(t *testing.T) {
		_, err := SelectQuestions(pool, 4)
		var insufficientErr *InsufficientUniqueQuestionsError
		if !errors.As(err, &insufficientErr) {
			t.Fatalf("SelectQuestions() error = %v, want *InsufficientUniqueQuestionsError", err)
		}
		if insufficientErr.Requested != 4 || insufficientErr.Available != 3 {
			t.Errorf("error counts = (%d, %d), want (4, 3)", insufficientErr.Requested, insufficientErr.Available)
		}
	})

	t.Run("empty pool", func(t *testing.T) {
		_, err := SelectQuestions(nil, 1)
		var insufficientErr *InsufficientUniqueQuestionsError
		if !errors.As(err, &insufficientErr) {
			t.Fatalf("SelectQuestions() error = %v, want *InsufficientUniqueQuestionsError", err)
		}
		if insufficientErr.Available != 0 {
			t.Errorf("Available = %d, want 0", insufficientErr.Available)
		}
	})

	t.Run("non-positive count", func(t *testing.T) {
		if _, err := SelectQuestions(pool, 0); err == nil {
			t.Error("SelectQuestions(0) should fail")
		}
	})
}

func TestSelectQuestions_shuffleDrivesTheSample(t *testing.T) {
	pool := []QuestionRef{
		q("q1", "algebra"),
		q("q2", "geometry"),
		q("q3", "calculus"),
	}

	// reverse order; the greedy walk must follow it
	shuffleFunc = func(p []QuestionRef) {
		for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
			p[i], p[j] = p[j], p[i]
		}
	}
	defer func() { shuffleFunc = shuffleQuestions }()

	picked, err := SelectQuestions(pool, 2)
	if err != nil {
		t.Fatalf("SelectQuestions() failed: %v", err)
	}
	if picked[0].ID != "q3" || picked[1].ID != "q2" {
		t.Errorf("SelectQuestions() = [%s %s], want [q3 q2]", picked[0].ID, picked[1].ID)
	}

	// the input pool itself must not be reordered
	if pool[0].ID != "q1" || pool[2].ID != "q3" {
		t.Error("SelectQuestions() mutated its input pool")
	}
}
