package event

import "time"

// Actions
const (
	ActionLogin  = "login"
	ActionLogout = "logout"
)

// Event is an immutable record of a discrete actor action in the audit log.
// Events are append-only; they are never updated or deleted.
type Event struct {
	ID        string    `json:"id" db:"id"`
	ActorID   string    `json:"actor_id" db:"actor_id"`
	Action    string    `json:"action" db:"action"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"` // UTC
	IP        string    `json:"ip" db:"ip"`
	ClientID  string    `json:"client_id" db:"client_id"`
}

// Filter narrows a QueryEvents call.
// Zero-valued fields are ignored; Actions applies an OR match.
type Filter struct {
	ActorID string
	Actions []string
	From    time.Time
	To      time.Time
}

func (f Filter) MatchesAction(action string) bool {
	if len(f.Actions) == 0 {
		return true
	}
	for _, a := range f.Actions {
		if a == action {
			return true
		}
	}
	return false
}
