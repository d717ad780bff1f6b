package event

import (
	"context"
	"testing"
	"time"
)

type recordedRepo struct {
	appended []Event
}

func (r *recordedRepo) AppendEvent(_ context.Context, evt Event) (Event, error) {
	r.appended = append(r.appended, evt)
	return evt, nil
}

func (r *recordedRepo) QueryEvents(context.Context, Filter) ([]Event, error) {
	return r.appended, nil
}

func Test_service_Record(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.FixedZone("CAT", 2*3600))
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	repo := &recordedRepo{}
	svc := NewService(repo)

	evt, err := svc.Record(context.Background(), "a1", ActionLogin, "41.243.1.9", "lab-pc-07")
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if evt.ID == "" {
		t.Error("Record() did not assign an ID")
	}
	if !evt.Timestamp.Equal(now) || evt.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want %v in UTC", evt.Timestamp, now.UTC())
	}
	if evt.ActorID != "a1" || evt.Action != ActionLogin || evt.IP != "41.243.1.9" || evt.ClientID != "lab-pc-07" {
		t.Errorf("Record() stored %+v", evt)
	}
	if len(repo.appended) != 1 {
		t.Errorf("repo has %d events, want 1", len(repo.appended))
	}

	// IDs are unique per event
	evt2, _ := svc.Record(context.Background(), "a1", ActionLogout, "", "")
	if evt2.ID == evt.ID {
		t.Error("Record() reused an event ID")
	}
}

func TestFilter_MatchesAction(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		action string
		want   bool
	}{
		{name: "no actions matches all", filter: Filter{}, action: ActionLogin, want: true},
		{name: "listed action", filter: Filter{Actions: []string{ActionLogin, ActionLogout}}, action: ActionLogout, want: true},
		{name: "unlisted action", filter: Filter{Actions: []string{ActionLogin}}, action: "password_reset", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.MatchesAction(tt.action); got != tt.want {
				t.Errorf("MatchesAction(%s) = %t, want %t", tt.action, got, tt.want)
			}
		})
	}
}
