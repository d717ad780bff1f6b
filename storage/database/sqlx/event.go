package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/event"
)

type eventRepository struct {
	exec core.DBExecutor
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(exec core.DBExecutor) *eventRepository {
	return &eventRepository{exec: exec}
}

type eventRow struct {
	ID        string    `db:"id"`
	ActorID   string    `db:"actor_id"`
	Action    string    `db:"action"`
	Timestamp time.Time `db:"timestamp"`
	IP        string    `db:"ip"`
	ClientID  string    `db:"client_id"`
}

func (repo eventRepository) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	q := `INSERT INTO event (id, actor_id, action, timestamp, ip, client_id)
	      VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.exec.ExecContext(ctx, q,
		evt.ID, evt.ActorID, evt.Action, evt.Timestamp.UTC(), evt.IP, evt.ClientID,
	)
	if err != nil {
		return event.Event{}, dbErr(err, "appending event")
	}
	return evt, nil
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter event.Filter) ([]event.Event, error) {
	conds := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActorID != "" {
		conds = append(conds, "actor_id = "+arg(filter.ActorID))
	}
	if len(filter.Actions) > 0 {
		conds = append(conds, "action = ANY ("+arg(pq.StringArray(filter.Actions))+")")
	}
	if !filter.From.IsZero() {
		conds = append(conds, "timestamp >= "+arg(filter.From.UTC()))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "timestamp <= "+arg(filter.To.UTC()))
	}

	q := `SELECT id, actor_id, action, timestamp, ip, client_id FROM event`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY timestamp, seq" // ties resolve in append order

	var rows []eventRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, dbErr(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, event.Event(row))
	}
	return events, nil
}
