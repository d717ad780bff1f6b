package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
	"github.com/trezcool/maabara/core/event"
)

var clientIDHeader = "X-Client-Id"

type actorApi struct {
	svc      actor.Service
	gate     *actor.Gate
	eventSvc event.Service
}

func registerActorAPI(
	g *echo.Group,
	jwt, session echo.MiddlewareFunc,
	svc actor.Service,
	gate *actor.Gate,
	eventSvc event.Service,
) {
	api := actorApi{
		svc:      svc,
		gate:     gate,
		eventSvc: eventSvc,
	}

	ag := g.Group("/actors")

	// un-authed endpoints
	// TODO: rate limit `/login`
	ag.POST("/login", api.login)

	// authed endpoints
	sg := ag.Group("", jwt, session)
	sg.POST("/logout", api.logout)
	sg.POST("/token-refresh", api.refreshToken)
	sg.POST("/register", api.create, adminMiddleware())
	sg.GET("", api.query, adminMiddleware())
	sg.GET("/roles", api.queryRoles, adminMiddleware())
	sg.GET("/:id", api.retrieve)
}

// Handlers

// login authenticates the actor, acquires a session token through the gate
// and appends a login event. A restricted actor with a live session is
// refused before any event is written.
func (api *actorApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	c, cancel := reqCtx(ctx)
	defer cancel()

	act, err := authenticate(c, data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}

	sessionToken, err := api.gate.TryAcquire(c, act)
	if err != nil {
		if errors.Cause(err) == actor.ErrAlreadyActiveSession {
			return actor.ErrAlreadyActiveSession
		}
		return errors.Wrap(err, "acquiring session")
	}

	// the event log is what attendance is rebuilt from; if the login cannot
	// be recorded, give the token back and fail the whole login.
	if _, err = api.eventSvc.Record(c, act.ID, event.ActionLogin, ctx.RealIP(), ctx.Request().Header.Get(clientIDHeader)); err != nil {
		_ = api.gate.Release(c, act)
		return errors.Wrap(err, "recording login event")
	}

	token, err := GenerateToken(GetActorClaims(act, sessionToken))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// logout clears the actor's session token and appends a logout event.
func (api *actorApi) logout(ctx echo.Context) error {
	act, err := getContextActor(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	c, cancel := reqCtx(ctx)
	defer cancel()

	if err = api.gate.Release(c, act); err != nil {
		return errors.Wrap(err, "releasing session")
	}
	if _, err = api.eventSvc.Record(c, act.ID, event.ActionLogout, ctx.RealIP(), ctx.Request().Header.Get(clientIDHeader)); err != nil {
		// the token is already cleared; the dangling login is closed by the
		// next login during reconstruction.
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "recording logout event"))
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *actorApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *actorApi) create(ctx echo.Context) error {
	var data actor.NewActor
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewActor")
	}

	c, cancel := reqCtx(ctx)
	defer cancel()

	if err := data.Validate(c, api.svc); err != nil {
		return err
	}
	act, err := api.svc.Create(c, data)
	if err != nil {
		return errors.Wrap(err, "creating actor")
	}
	return ctx.JSON(http.StatusCreated, act)
}

// query returns all actors; `?ordering=-batch,username` style ordering is
// honored for the whitelisted fields.
func (api *actorApi) query(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)

	c, cancel := reqCtx(ctx)
	defer cancel()

	actors, err := api.svc.QueryAll(c, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying actors")
	}
	if actors == nil {
		actors = []actor.Actor{}
	}
	return ctx.JSON(http.StatusOK, actors)
}

func (api *actorApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, actor.Roles)
}

// retrieve returns the actor with the given ID; non-admins may only look
// themselves up.
func (api *actorApi) retrieve(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id := ctx.Param("id")
	if id != claims.Subject && !claims.IsAdmin {
		return errHttpNotFound
	}

	c, cancel := reqCtx(ctx)
	defer cancel()

	act, err := api.svc.GetByID(c, id)
	if err != nil {
		if errors.Cause(err) == actor.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding actor by ID")
	}
	return ctx.JSON(http.StatusOK, act)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.Validate.Struct(lr)
}
