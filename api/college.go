package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core/college"
	"github.com/deloai/campus/core/student"
)

type collegeApi struct {
	svc        *college.Service
	studentSvc *student.Service
}

func registerCollegeAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *college.Service, studentSvc *student.Service) {
	api := collegeApi{svc: svc, studentSvc: studentSvc}

	cg := g.Group("/colleges")

	// un-authed endpoints
	cg.POST("/login", api.adminLogin)
	cg.POST("/students/login", api.studentLogin)

	// authed endpoints
	ag := cg.Group("", jwt)
	ag.POST("", api.create, adminMiddleware())
	ag.GET("", api.query, adminMiddleware())
	ag.GET("/me", api.me, adminMiddleware())
	ag.POST("/password", api.changeAdminPassword, adminMiddleware())
	ag.POST("/students/password", api.changeStudentPassword, studentMiddleware())

	dg := ag.Group("/:id", adminMiddleware())
	dg.GET("", api.retrieve)
	dg.POST("/admins", api.createAdmin)
	dg.POST("/tokens", api.assignTokens)
	dg.GET("/tokens", api.tokenConfig)
	dg.GET("/students", api.queryStudents)
	dg.POST("/students/bulk", api.bulkCreateStudents)
	dg.PUT("/students/bulk", api.bulkUpsertStudents)

	sg := g.Group("/students", jwt, adminMiddleware())
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent)
	sg.DELETE("/:id", api.destroyStudent)
}

// Handlers

func (api *collegeApi) adminLogin(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticateAdmin(ctx.Request().Context(), data.Email, data.Password, api.svc)
	if err != nil {
		return err
	}
	token, err := generateToken(claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *collegeApi) studentLogin(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticateStudent(ctx.Request().Context(), data.Email, data.Password, api.studentSvc)
	if err != nil {
		return err
	}
	token, err := generateToken(claims)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *collegeApi) create(ctx echo.Context) error {
	var data college.NewCollege
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCollege")
	}
	col, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, col)
}

func (api *collegeApi) query(ctx echo.Context) error {
	cols, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cols)
}

func (api *collegeApi) retrieve(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	col, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, col)
}

func (api *collegeApi) createAdmin(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data college.NewAdmin
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAdmin")
	}

	adm, emailed, err := api.svc.CreateAdmin(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"admin": adm, "credentials_emailed": emailed})
}

// me returns the authenticated admin and their college.
func (api *collegeApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	adminID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return errUnauthorized
	}

	adm, err := api.svc.GetAdminByID(ctx.Request().Context(), adminID)
	if err != nil {
		return err
	}
	col, err := api.svc.GetByAdmin(ctx.Request().Context(), adm.ID)
	if err != nil && !errors.Is(err, college.ErrNotFound) {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"admin": adm, "college": col})
}

func (api *collegeApi) changeStudentPassword(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	studentID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return errUnauthorized
	}

	var data ChangePasswordRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePasswordRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	st, err := api.studentSvc.ChangePassword(ctx.Request().Context(), studentID, data.NewPassword)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *collegeApi) changeAdminPassword(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	adminID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return errUnauthorized
	}

	var data ChangePasswordRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePasswordRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	adm, err := api.svc.ChangeAdminPassword(ctx.Request().Context(), adminID, data.NewPassword)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, adm)
}

func (api *collegeApi) assignTokens(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	assignedBy, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return errUnauthorized
	}

	var data AssignTokensRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTokensRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	tl, err := api.svc.AssignTokens(ctx.Request().Context(), id, assignedBy, data.Count, data.Notes)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tl)
}

func (api *collegeApi) tokenConfig(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	tc, err := api.svc.TokenConfig(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tc)
}

func (api *collegeApi) queryStudents(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	sts, err := api.studentSvc.QueryByCollege(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sts)
}

func (api *collegeApi) bulkCreateStudents(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data BulkStudentsRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkStudentsRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	res, err := api.studentSvc.BulkCreate(ctx.Request().Context(), id, data.Students)
	if err != nil {
		return err
	}
	return ctx.JSON(bulkStatus(res), res)
}

func (api *collegeApi) bulkUpsertStudents(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data BulkStudentsRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkStudentsRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	res, err := api.studentSvc.BulkUpsert(ctx.Request().Context(), id, data.MatchKey(), data.Students)
	if err != nil {
		return err
	}
	return ctx.JSON(bulkStatus(res), res)
}

func (api *collegeApi) retrieveStudent(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	st, err := api.studentSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *collegeApi) updateStudent(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	var data map[string]interface{}
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding student update")
	}
	st, err := api.studentSvc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *collegeApi) destroyStudent(ctx echo.Context) error {
	id, err := objectIDParam(ctx, "id")
	if err != nil {
		return err
	}
	if _, err = api.studentSvc.GetByID(ctx.Request().Context(), id); err != nil {
		return err
	}
	if err = api.studentSvc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// bulkStatus reports 207 when the batch had mixed outcomes.
func bulkStatus(res student.BulkResult) int {
	if res.HasFailures() {
		return http.StatusMultiStatus
	}
	return http.StatusOK
}

func objectIDParam(ctx echo.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(ctx.Param(name))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
