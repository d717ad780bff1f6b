package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
	"github.com/trezcool/maabara/core/exam"
)

type examApi struct {
	actorSvc actor.Service
	svc      exam.Service
}

func registerExamAPI(
	g *echo.Group,
	jwt, session echo.MiddlewareFunc,
	actorSvc actor.Service,
	svc exam.Service,
) {
	api := examApi{
		actorSvc: actorSvc,
		svc:      svc,
	}

	eg := g.Group("/exams", jwt, session)
	eg.GET("/available", api.available)
	eg.POST("", api.create, staffMiddleware())
	eg.GET("/:id", api.retrieve, staffMiddleware())
	eg.POST("/:id/attempt", api.startOrResume)

	tg := g.Group("/attempts", jwt, session)
	tg.PUT("/:id/answers", api.submitAnswers)
}

// Handlers

func (api *examApi) available(ctx echo.Context) error {
	act, err := getContextActor(ctx, api.actorSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	c, cancel := reqCtx(ctx)
	defer cancel()

	exams, err := api.svc.AvailableExams(c, act)
	if err != nil {
		return errors.Wrap(err, "listing available exams")
	}
	if exams == nil {
		exams = []exam.Exam{}
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *examApi) create(ctx echo.Context) error {
	var data CreateExamRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CreateExamRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	c, cancel := reqCtx(ctx)
	defer cancel()

	ex, err := api.svc.Create(c, exam.Exam{
		CourseID:       data.CourseID,
		Name:           data.Name,
		Questions:      data.Questions,
		RequestedCount: data.RequestedCount,
		Batches:        data.Batches,
		ScheduledAt:    data.ScheduledAt.UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *examApi) retrieve(ctx echo.Context) error {
	c, cancel := reqCtx(ctx)
	defer cancel()

	ex, err := api.svc.GetByID(c, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == exam.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding exam by ID")
	}
	return ctx.JSON(http.StatusOK, ex)
}

// startOrResume returns the caller's attempt for the exam, creating it on
// the first call. Replays get the exact attempt back, same ID and same
// question set.
func (api *examApi) startOrResume(ctx echo.Context) error {
	act, err := getContextActor(ctx, api.actorSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	c, cancel := reqCtx(ctx)
	defer cancel()

	att, err := api.svc.StartOrResume(c, act, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "starting attempt")
	}
	return ctx.JSON(http.StatusOK, AttemptResponse{Attempt: att, Status: att.Status()})
}

func (api *examApi) submitAnswers(ctx echo.Context) error {
	var data SubmitAnswersRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAnswersRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	act, err := getContextActor(ctx, api.actorSvc)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	c, cancel := reqCtx(ctx)
	defer cancel()

	att, err := api.svc.SubmitAnswers(c, act, ctx.Param("id"), data.Answers)
	if err != nil {
		return errors.Wrap(err, "submitting answers")
	}
	return ctx.JSON(http.StatusOK, AttemptResponse{Attempt: att, Status: att.Status()})
}

type (
	CreateExamRequest struct {
		CourseID       string             `json:"course_id" validate:"required"`
		Name           string             `json:"name" validate:"required"`
		Questions      []exam.QuestionRef `json:"questions" validate:"required,min=1"`
		RequestedCount int                `json:"requested_count" validate:"required,min=1"`
		Batches        []string           `json:"batches" validate:"required,min=1"`
		ScheduledAt    time.Time          `json:"scheduled_at" validate:"required"`
	}

	SubmitAnswersRequest struct {
		Answers []string `json:"answers" validate:"required"`
	}

	AttemptResponse struct {
		exam.Attempt
		Status string `json:"status"`
	}
)

func (cr *CreateExamRequest) Validate() error {
	cr.CourseID = core.CleanString(cr.CourseID)
	cr.Name = core.CleanString(cr.Name)
	for i, b := range cr.Batches {
		cr.Batches[i] = core.CleanString(b, true /* lower */)
	}
	return core.Validate.Struct(cr)
}

func (sr *SubmitAnswersRequest) Validate() error {
	return core.Validate.Struct(sr)
}
