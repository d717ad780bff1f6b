package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
)

type actorRepository struct {
	exec core.DBExecutor
}

var _ actor.Repository = (*actorRepository)(nil)

func NewActorRepository(exec core.DBExecutor) *actorRepository {
	return &actorRepository{exec: exec}
}

type actorRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	Batch        string         `db:"batch"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CurrentToken null.String    `db:"current_token"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (repo actorRepository) pack(act actor.Actor) actorRow {
	row := actorRow{
		ID:           act.ID,
		Name:         act.Name,
		Username:     act.Username,
		Email:        act.Email,
		Batch:        act.Batch,
		IsActive:     act.IsActive == nil || *act.IsActive,
		Roles:        pq.StringArray(act.Roles),
		PasswordHash: act.PasswordHash,
		CurrentToken: act.CurrentToken,
		CreatedAt:    act.CreatedAt.UTC(),
		UpdatedAt:    act.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(act.LastLogin.UTC(), !act.LastLogin.IsZero()),
	}
	return row
}

func (repo actorRepository) unpack(row actorRow) actor.Actor {
	act := actor.Actor{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username,
		Email:        row.Email,
		Batch:        row.Batch,
		Roles:        row.Roles,
		PasswordHash: row.PasswordHash,
		CurrentToken: row.CurrentToken,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
	act.SetActive(row.IsActive)
	return act
}

func (repo actorRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedActors ...actor.Actor) error {
	q := `SELECT username, email FROM actor
	      WHERE ((username = $1 AND $1 <> '') OR (email = $2 AND $2 <> ''))
	        AND NOT (id = ANY ($3))`
	exclIDs := make(pq.StringArray, 0, len(excludedActors))
	for _, a := range excludedActors {
		exclIDs = append(exclIDs, a.ID)
	}

	var rows []actorRow
	if err := repo.exec.SelectContext(ctx, &rows, q, username, email, exclIDs); err != nil {
		return dbErr(err, "checking username uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username == username {
			return actor.ErrUsernameExists
		}
		if email != "" && row.Email == email {
			return actor.ErrEmailExists
		}
	}
	return nil
}

func (repo actorRepository) CreateActor(ctx context.Context, act actor.Actor) (actor.Actor, error) {
	q := `INSERT INTO actor (id, name, username, email, batch, is_active, roles, password_hash, created_at, updated_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	row := repo.pack(act)
	_, err := repo.exec.ExecContext(ctx, q,
		row.ID, row.Name, row.Username, row.Email, row.Batch, row.IsActive,
		row.Roles, row.PasswordHash, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return actor.Actor{}, dbErr(err, "creating actor")
	}
	return act, nil
}

func (repo actorRepository) GetActor(ctx context.Context, filter actor.GetFilter) (actor.Actor, error) {
	q := `SELECT id, name, username, email, batch, is_active, roles, password_hash, current_token,
	             created_at, updated_at, last_login
	      FROM actor `
	var arg interface{}
	switch {
	case filter.ID != "":
		q += `WHERE id = $1`
		arg = filter.ID
	case filter.Username != "":
		q += `WHERE username = $1`
		arg = filter.Username
	case filter.Email != "":
		q += `WHERE email = $1`
		arg = filter.Email
	case filter.UsernameOrEmail != "":
		q += `WHERE username = $1 OR email = $1`
		arg = filter.UsernameOrEmail
	default:
		return actor.Actor{}, actor.ErrNotFound
	}

	var row actorRow
	if err := repo.exec.GetContext(ctx, &row, q, arg); err != nil {
		if err == sql.ErrNoRows {
			return actor.Actor{}, actor.ErrNotFound
		}
		return actor.Actor{}, dbErr(err, "getting actor")
	}
	return repo.unpack(row), nil
}

// actorOrderCols whitelists the orderable columns; unknown fields are ignored.
var actorOrderCols = map[string]bool{
	"name": true, "username": true, "email": true, "batch": true,
	"created_at": true, "last_login": true,
}

func actorOrderBy(ordering []core.DBOrdering) string {
	terms := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if actorOrderCols[ord.Field] {
			terms = append(terms, ord.String())
		}
	}
	if len(terms) == 0 {
		return ` ORDER BY created_at`
	}
	return ` ORDER BY ` + strings.Join(terms, ", ")
}

func (repo actorRepository) QueryAllActors(ctx context.Context, ordering ...core.DBOrdering) ([]actor.Actor, error) {
	q := `SELECT id, name, username, email, batch, is_active, roles, password_hash, current_token,
	             created_at, updated_at, last_login
	      FROM actor` + actorOrderBy(ordering)
	var rows []actorRow
	if err := repo.exec.SelectContext(ctx, &rows, q); err != nil {
		return nil, dbErr(err, "querying actors")
	}
	actors := make([]actor.Actor, 0, len(rows))
	for _, row := range rows {
		actors = append(actors, repo.unpack(row))
	}
	return actors, nil
}

func (repo actorRepository) UpdateActor(ctx context.Context, act actor.Actor) (actor.Actor, error) {
	// current_token is owned by Swap/SetSessionToken and is never written here
	q := `UPDATE actor
	      SET name = $2, username = $3, email = $4, batch = $5, is_active = $6, roles = $7,
	          password_hash = $8, updated_at = $9, last_login = $10
	      WHERE id = $1`
	row := repo.pack(act)
	res, err := repo.exec.ExecContext(ctx, q,
		row.ID, row.Name, row.Username, row.Email, row.Batch, row.IsActive,
		row.Roles, row.PasswordHash, row.UpdatedAt, row.LastLogin,
	)
	if err != nil {
		return actor.Actor{}, dbErr(err, "updating actor")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return actor.Actor{}, actor.ErrNotFound
	}
	return act, nil
}

// SwapSessionToken is the single compare-and-set this engine relies on:
// the old-value check and the write are one statement.
func (repo actorRepository) SwapSessionToken(ctx context.Context, actorID string, old, new null.String) error {
	q := `UPDATE actor SET current_token = $3 WHERE id = $1 AND current_token IS NOT DISTINCT FROM $2`
	res, err := repo.exec.ExecContext(ctx, q, actorID, old, new)
	if err != nil {
		return dbErr(err, "swapping session token")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(err, "swapping session token")
	}
	if n == 0 {
		if _, err := repo.GetActor(ctx, actor.GetFilter{ID: actorID}); err != nil {
			return err
		}
		return actor.ErrTokenConflict
	}
	return nil
}

func (repo actorRepository) SetSessionToken(ctx context.Context, actorID string, token null.String) error {
	q := `UPDATE actor SET current_token = $2 WHERE id = $1`
	res, err := repo.exec.ExecContext(ctx, q, actorID, token)
	if err != nil {
		return dbErr(err, "setting session token")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return actor.ErrNotFound
	}
	return nil
}
