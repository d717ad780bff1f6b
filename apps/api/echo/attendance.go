package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
	"github.com/trezcool/maabara/core/attendance"
)

type attendanceApi struct {
	actorSvc actor.Service
	svc      attendance.Service
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt, session echo.MiddlewareFunc,
	actorSvc actor.Service,
	svc attendance.Service,
) {
	api := attendanceApi{
		actorSvc: actorSvc,
		svc:      svc,
	}

	ag := g.Group("/attendance", jwt, session)
	ag.GET("/actors/:id/sessions", api.actorSessions)
	ag.POST("/cohort", api.cohortSessions, staffMiddleware())
}

// Handlers

// actorSessions returns the actor's reconstructed login sessions.
// Actors see their own history; staff see anyone's.
func (api *attendanceApi) actorSessions(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id := ctx.Param("id")
	if id != claims.Subject && !(claims.IsAdmin || claims.IsTeacher) {
		return errHttpNotFound
	}

	c, cancel := reqCtx(ctx)
	defer cancel()

	sessions, err := api.svc.ActorSessions(c, id)
	if err != nil {
		return errors.Wrap(err, "rebuilding actor sessions")
	}
	if sessions == nil {
		sessions = []attendance.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *attendanceApi) cohortSessions(ctx echo.Context) error {
	var data CohortSessionsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CohortSessionsRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	c, cancel := reqCtx(ctx)
	defer cancel()

	sessions, err := api.svc.CohortSessions(c, data.ActorIDs)
	if err != nil {
		return errors.Wrap(err, "rebuilding cohort sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

type CohortSessionsRequest struct {
	ActorIDs []string `json:"actor_ids" validate:"required,min=1"`
}

func (cr *CohortSessionsRequest) Validate() error {
	return core.Validate.Struct(cr)
}
