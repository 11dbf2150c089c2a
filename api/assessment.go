package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/deloai/campus/core/assessment"
)

type assessmentApi struct {
	svc *assessment.Service
}

func registerAssessmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *assessment.Service) {
	api := assessmentApi{svc: svc}

	tg := g.Group("/tests", jwt, adminMiddleware())
	tg.POST("", api.create)
	tg.GET("", api.query)
	tg.GET("/past", api.queryPast)
	tg.GET("/ongoing", api.queryOngoing)
	tg.GET("/upcoming", api.queryUpcoming)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy)
	tg.POST("/:id/sections", api.attachSection)
	tg.GET("/:id/sections", api.querySections)

	sg := g.Group("/sections", jwt, adminMiddleware())
	sg.GET("/:id", api.retrieveSection)
	sg.PUT("/:id", api.updateSection)
	sg.DELETE("/:id", api.destroySection)
	sg.POST("/:id/questions", api.addQuestion)
	sg.POST("/:id/questions/bulk", api.addQuestions)
}

// Handlers

func (api *assessmentApi) create(ctx echo.Context) error {
	var data assessment.Test
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Test")
	}
	t, err := api.svc.CreateTest(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *assessmentApi) query(ctx echo.Context) error {
	ts, err := api.svc.QueryAllTests(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ts)
}

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	t, err := api.svc.GetTest(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *assessmentApi) queryPast(ctx echo.Context) error {
	return api.queryWindow(ctx, assessment.WindowPast)
}

func (api *assessmentApi) queryOngoing(ctx echo.Context) error {
	return api.queryWindow(ctx, assessment.WindowOngoing)
}

func (api *assessmentApi) queryUpcoming(ctx echo.Context) error {
	return api.queryWindow(ctx, assessment.WindowUpcoming)
}

func (api *assessmentApi) queryWindow(ctx echo.Context, w assessment.TestWindow) error {
	ts, err := api.svc.QueryTestsByWindow(ctx.Request().Context(), w)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ts)
}

func (api *assessmentApi) update(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assessment.UpdateTest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTest")
	}
	t, err := api.svc.UpdateTestInfo(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *assessmentApi) destroy(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteTest(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) attachSection(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assessment.NewSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	s, err := api.svc.AttachSection(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *assessmentApi) querySections(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	timeRestricted, open, err := api.svc.SectionsByTest(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"sections_time_restricted": timeRestricted,
		"sections_open":            open,
	})
}

func (api *assessmentApi) retrieveSection(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	s, err := api.svc.GetSection(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *assessmentApi) updateSection(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assessment.UpdateSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSection")
	}

	s, rewire, err := api.svc.UpdateSectionInfo(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	code := http.StatusOK
	if len(rewire.Failed()) > 0 {
		code = http.StatusMultiStatus
	}
	return ctx.JSON(code, echo.Map{"section": s, "rewire": rewire})
}

func (api *assessmentApi) destroySection(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSection(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assessmentApi) addQuestion(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data assessment.SectionQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SectionQuestion")
	}
	if err = api.svc.AddQuestion(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusCreated)
}

func (api *assessmentApi) addQuestions(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data struct {
		Questions []assessment.SectionQuestion `json:"questions"`
	}
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding section questions")
	}
	results, err := api.svc.AddQuestions(ctx.Request().Context(), id, data.Questions)
	if err != nil {
		return err
	}
	code := http.StatusCreated
	if assessment.HasQuestionFailures(results) {
		code = http.StatusMultiStatus
	}
	return ctx.JSON(code, echo.Map{"results": results})
}
