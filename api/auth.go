package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/deloai/campus/core"
	"github.com/deloai/campus/core/college"
	"github.com/deloai/campus/core/student"
)

// Roles carried in JWT claims.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// appJWTConfig returns the JWT auth middleware config. Built lazily so the
// config singleton is loaded first.
func appJWTConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	CollegeID string `json:"college_id,omitempty"`
}

func getAdminClaims(adm college.Admin, collegeID string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   adm.ID.Hex(),
			ExpiresAt: now.Add(core.Conf.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:      adm.Name,
		Email:     adm.Email,
		Role:      RoleAdmin,
		CollegeID: collegeID,
	}
}

func getStudentClaims(st student.Student) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   st.ID.Hex(),
			ExpiresAt: now.Add(core.Conf.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:      st.Name,
		Email:     st.Email,
		Role:      RoleStudent,
		CollegeID: st.College.Hex(),
	}
}

func authenticateAdmin(ctx context.Context, email, pwd string, svc *college.Service) (*Claims, error) {
	adm, err := svc.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, college.ErrAdminNotFound) {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding admin by email")
	}
	if err = adm.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if adm.Status != college.StatusActive {
		return nil, errAccountDeactivated
	}

	var collegeID string
	if col, err := svc.GetByAdmin(ctx, adm.ID); err == nil {
		collegeID = col.ID.Hex()
	}
	return getAdminClaims(adm, collegeID), nil
}

func authenticateStudent(ctx context.Context, email, pwd string, svc *student.Service) (*Claims, error) {
	st, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding student by email")
	}
	if err = st.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !st.IsActive {
		return nil, errAccountDeactivated
	}
	return getStudentClaims(st), nil
}

// generateToken generates a signed JWT token string representing the Claims.
func generateToken(claims *Claims) (string, error) {
	conf := appJWTConfig()
	method := jwt.GetSigningMethod(conf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(conf.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig().ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
