package attendance

import (
	"math"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maabara/core/event"
)

// Session is a derived login→logout interval. It is never persisted;
// it is recomputed from the event log whenever requested.
type Session struct {
	ActorID         string    `json:"actor_id"`
	Login           time.Time `json:"login_ts"`
	Logout          null.Time `json:"logout_ts"`
	DurationMinutes null.Int  `json:"duration_minutes"`
}

// BuildSessions turns one actor's ordered login/logout events into a
// sequence of sessions. Pure; identical input yields identical output.
//
// - a login while a session is open closes the prior session without a
//   logout (dangling session, null duration) before opening a new one
// - a logout with no open session is dropped (replayed/duplicate logouts)
// - a session still open at the end of the scan is emitted with a null
//   logout and null duration (in-progress or abandoned)
func BuildSessions(events []event.Event) []Session {
	// the store must return ascending timestamps; sort defensively in case
	// it cannot. Stable: ties keep input order.
	if !timestampsAscending(events) {
		events = append([]event.Event(nil), events...)
		sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	}

	sessions := make([]Session, 0, len(events)/2+1)
	var open *Session

	for _, evt := range events {
		switch evt.Action {
		case event.ActionLogin:
			if open != nil {
				sessions = append(sessions, *open)
			}
			open = &Session{ActorID: evt.ActorID, Login: evt.Timestamp}
		case event.ActionLogout:
			if open == nil {
				continue // orphan logout
			}
			open.Logout = null.TimeFrom(evt.Timestamp)
			open.DurationMinutes = null.IntFrom(roundMinutes(evt.Timestamp.Sub(open.Login)))
			sessions = append(sessions, *open)
			open = nil
		}
	}
	if open != nil {
		sessions = append(sessions, *open)
	}
	return sessions
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Seconds() / 60))
}

func timestampsAscending(events []event.Event) bool {
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			return false
		}
	}
	return true
}
