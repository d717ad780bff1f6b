package attendance

import (
	"reflect"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maabara/core/event"
)

func ts(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func evt(actorID, action string, at time.Time) event.Event {
	return event.Event{ActorID: actorID, Action: action, Timestamp: at}
}

func TestBuildSessions(t *testing.T) {
	tests := []struct {
		name   string
		events []event.Event
		want   []Session
	}{
		{
			name:   "no events",
			events: nil,
			want:   []Session{},
		},
		{
			name: "alternating pairs",
			events: []event.Event{
				evt("a1", event.ActionLogin, ts(8, 0)),
				evt("a1", event.ActionLogout, ts(8, 45)),
				evt("a1", event.ActionLogin, ts(13, 0)),
				evt("a1", event.ActionLogout, ts(14, 30)),
			},
			want: []Session{
				{ActorID: "a1", Login: ts(8, 0), Logout: null.TimeFrom(ts(8, 45)), DurationMinutes: null.IntFrom(45)},
				{ActorID: "a1", Login: ts(13, 0), Logout: null.TimeFrom(ts(14, 30)), DurationMinutes: null.IntFrom(90)},
			},
		},
		{
			name: "trailing login stays open",
			events: []event.Event{
				evt("a1", event.ActionLogin, ts(10, 0)),
				evt("a1", event.ActionLogout, ts(10, 30)),
				evt("a1", event.ActionLogin, ts(11, 0)),
			},
			want: []Session{
				{ActorID: "a1", Login: ts(10, 0), Logout: null.TimeFrom(ts(10, 30)), DurationMinutes: null.IntFrom(30)},
				{ActorID: "a1", Login: ts(11, 0)},
			},
		},
		{
			name: "login closes dangling session without duration",
			events: []event.Event{
				evt("a1", event.ActionLogin, ts(9, 0)),
				evt("a1", event.ActionLogin, ts(9, 20)),
				evt("a1", event.ActionLogout, ts(9, 50)),
			},
			want: []Session{
				{ActorID: "a1", Login: ts(9, 0)},
				{ActorID: "a1", Login: ts(9, 20), Logout: null.TimeFrom(ts(9, 50)), DurationMinutes: null.IntFrom(30)},
			},
		},
		{
			name: "orphan logout is dropped",
			events: []event.Event{
				evt("a1", event.ActionLogout, ts(7, 0)),
				evt("a1", event.ActionLogin, ts(8, 0)),
				evt("a1", event.ActionLogout, ts(8, 10)),
				evt("a1", event.ActionLogout, ts(8, 15)),
			},
			want: []Session{
				{ActorID: "a1", Login: ts(8, 0), Logout: null.TimeFrom(ts(8, 10)), DurationMinutes: null.IntFrom(10)},
			},
		},
		{
			name: "unsorted input is sorted before scanning",
			events: []event.Event{
				evt("a1", event.ActionLogout, ts(8, 45)),
				evt("a1", event.ActionLogin, ts(8, 0)),
			},
			want: []Session{
				{ActorID: "a1", Login: ts(8, 0), Logout: null.TimeFrom(ts(8, 45)), DurationMinutes: null.IntFrom(45)},
			},
		},
		{
			name: "sub-minute durations round half up",
			events: []event.Event{
				evt("a1", event.ActionLogin, ts(8, 0)),
				evt("a1", event.ActionLogout, ts(8, 0).Add(90 * time.Second)),
			},
			want: []Session{
				{ActorID: "a1", Login: ts(8, 0), Logout: null.TimeFrom(ts(8, 0).Add(90 * time.Second)), DurationMinutes: null.IntFrom(2)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSessions(tt.events)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildSessions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildSessions_isPure(t *testing.T) {
	events := []event.Event{
		evt("a1", event.ActionLogin, ts(8, 0)),
		evt("a1", event.ActionLogout, ts(8, 45)),
		evt("a1", event.ActionLogin, ts(9, 0)),
	}
	first := BuildSessions(events)
	second := BuildSessions(events)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("BuildSessions() is not deterministic: %+v != %+v", first, second)
	}
}

func TestBuildSessions_doesNotMutateInput(t *testing.T) {
	events := []event.Event{
		evt("a1", event.ActionLogout, ts(8, 45)),
		evt("a1", event.ActionLogin, ts(8, 0)),
	}
	orig := append([]event.Event(nil), events...)
	BuildSessions(events)
	if !reflect.DeepEqual(events, orig) {
		t.Error("BuildSessions() mutated its input")
	}
}
