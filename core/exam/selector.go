package exam

import (
	"fmt"
	"math/rand"
	"time"
)

var shuffleFunc = shuffleQuestions // mockable

func init() {
	rand.Seed(time.Now().UnixNano())
}

func shuffleQuestions(pool []QuestionRef) {
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
}

// InsufficientUniqueQuestionsError is returned when a pool cannot yield
// the requested number of tag-distinct questions.
type InsufficientUniqueQuestionsError struct {
	Requested int
	Available int
}

func (e *InsufficientUniqueQuestionsError) Error() string {
	return fmt.Sprintf("not enough tag-distinct questions: requested %d, available %d", e.Requested, e.Available)
}

// SelectQuestions picks `want` questions from pool such that no two picked
// questions share a tag signature: shuffle the pool uniformly, then walk
// the shuffled order greedily, skipping any question whose signature was
// already accepted. The shuffle gives an unbiased sample over tag-distinct
// questions without enumerating combinations.
//
// When fewer than `want` questions qualify, nothing is selected and an
// *InsufficientUniqueQuestionsError carries the requested vs available
// counts.
func SelectQuestions(pool []QuestionRef, want int) ([]QuestionRef, error) {
	if want <= 0 {
		return nil, &InsufficientUniqueQuestionsError{Requested: want}
	}

	shuffled := append([]QuestionRef(nil), pool...)
	shuffleFunc(shuffled)

	seen := make(map[string]struct{}, want)
	picked := make([]QuestionRef, 0, want)
	for _, q := range shuffled {
		sig := q.TagSignature()
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		picked = append(picked, q)
		if len(picked) == want {
			return picked, nil
		}
	}
	return nil, &InsufficientUniqueQuestionsError{Requested: want, Available: len(seen)}
}
