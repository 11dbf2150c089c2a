package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/deloai/campus/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *course.Service) {
	api := courseApi{svc: svc}

	cg := g.Group("/courses", jwt, adminMiddleware())
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.GET("/:id/tree", api.retrieveTree)
	cg.DELETE("/:id", api.destroy)
	cg.POST("/:id/chapters", api.addChapter)
	cg.DELETE("/chapters/:id", api.destroyChapter)
	cg.POST("/chapters/:id/lessons", api.addLesson)
	cg.DELETE("/lessons/:id", api.destroyLesson)
	cg.POST("/lessons/:id/units", api.addUnit)
	cg.DELETE("/units/:id", api.destroyUnit)

	qg := g.Group("/questions", jwt, adminMiddleware())
	qg.POST("/mcq", api.saveMCQ)
	qg.GET("/mcq", api.queryMCQs)
	qg.GET("/mcq/config", api.mcqConfig)
	qg.POST("/rearrange", api.saveRearrange)
	qg.GET("/rearrange/config", api.rearrangeConfig)
	qg.POST("/coding", api.createCoding)
	qg.GET("/coding/:id", api.retrieveCoding)
	qg.GET("/coding/:id/tree", api.retrieveCodingTree)
	qg.DELETE("/coding/:id", api.destroyCoding)
	qg.POST("/coding/:id/groups", api.addTestCaseGroup)
	qg.POST("/coding/groups/:id/cases", api.addTestCase)
	qg.DELETE("/coding/cases/:id", api.destroyTestCase)
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.Course
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Course")
	}
	c, err := api.svc.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) query(ctx echo.Context) error {
	cs, err := api.svc.QueryAllCourses(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	c, err := api.svc.GetCourse(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) retrieveTree(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	tree, err := api.svc.GetCourseTree(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	res, err := api.svc.DeleteCourse(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return cascadeResponse(ctx, res)
}

func (api *courseApi) addChapter(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.Chapter
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Chapter")
	}
	ch, err := api.svc.AddChapter(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, ch)
}

func (api *courseApi) destroyChapter(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	res, err := api.svc.DeleteChapter(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return cascadeResponse(ctx, res)
}

func (api *courseApi) addLesson(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.Lesson
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Lesson")
	}
	l, err := api.svc.AddLesson(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	res, err := api.svc.DeleteLesson(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return cascadeResponse(ctx, res)
}

func (api *courseApi) addUnit(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.Unit
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Unit")
	}
	u, err := api.svc.AddUnit(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, u)
}

func (api *courseApi) destroyUnit(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	res, err := api.svc.DeleteUnit(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return cascadeResponse(ctx, res)
}

func (api *courseApi) saveMCQ(ctx echo.Context) error {
	var data course.MCQ
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MCQ")
	}
	m, err := api.svc.SaveMCQ(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *courseApi) queryMCQs(ctx echo.Context) error {
	ms, err := api.svc.QueryAllMCQs(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ms)
}

func (api *courseApi) mcqConfig(ctx echo.Context) error {
	cfg, err := api.svc.FilterOptions(ctx.Request().Context(), course.ConfigMCQ)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *courseApi) saveRearrange(ctx echo.Context) error {
	var data course.Rearrange
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Rearrange")
	}
	r, err := api.svc.SaveRearrange(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *courseApi) rearrangeConfig(ctx echo.Context) error {
	cfg, err := api.svc.FilterOptions(ctx.Request().Context(), course.ConfigRearrange)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *courseApi) createCoding(ctx echo.Context) error {
	var data course.CodingQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CodingQuestion")
	}
	q, err := api.svc.CreateCodingQuestion(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *courseApi) retrieveCoding(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	q, err := api.svc.GetCodingQuestion(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *courseApi) retrieveCodingTree(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	tree, err := api.svc.GetCodingQuestionTree(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tree)
}

func (api *courseApi) destroyCoding(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	useTx := ctx.QueryParam("transactional") == "true"
	res, err := api.svc.DeleteCodingQuestion(ctx.Request().Context(), id, useTx)
	if err != nil {
		return err
	}
	return cascadeResponse(ctx, res)
}

func (api *courseApi) addTestCaseGroup(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.TestCaseGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestCaseGroup")
	}
	g, err := api.svc.AddTestCaseGroup(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *courseApi) addTestCase(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data course.TestCase
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestCase")
	}
	tc, err := api.svc.AddTestCase(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tc)
}

func (api *courseApi) destroyTestCase(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	if err = api.svc.DeleteTestCase(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// cascadeResponse reports a completed cascade as 200 and a partially failed
// one as 207, with the per-step outcomes in the body either way.
func cascadeResponse(ctx echo.Context, res course.CascadeResult) error {
	code := http.StatusOK
	if len(res.Failed()) > 0 {
		code = http.StatusMultiStatus
	}
	return ctx.JSON(code, res)
}
