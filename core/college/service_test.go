package college_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
	"github.com/deloai/campus/core/college"
	dummymail "github.com/deloai/campus/services/email/dummy"
	logsvc "github.com/deloai/campus/services/logger"
	inmemdb "github.com/deloai/campus/storage/database/inmem"
)

func newCollegeSvc(t *testing.T) (*college.Service, *dummymail.Service) {
	t.Helper()
	core.SetTestConfig()

	db := inmemdb.New()
	mailSvc := dummymail.NewService()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	return college.NewService(db, mailSvc, logger), mailSvc
}

func TestCreateCollege(t *testing.T) {
	svc, _ := newCollegeSvc(t)
	ctx := context.Background()

	col, err := svc.Create(ctx, college.NewCollege{Name: "Test College", Code: "TC01"})
	require.NoError(t, err)
	assert.Equal(t, college.StatusActive, col.Status)
	assert.NotNil(t, col.Admins)
	assert.NotNil(t, col.TokenLogs)

	// duplicate code is a field-level validation error
	_, err = svc.Create(ctx, college.NewCollege{Name: "Other", Code: "TC01"})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)

	// blank name
	_, err = svc.Create(ctx, college.NewCollege{Name: "  ", Code: "TC02"})
	assert.Error(t, err)

	got, err := svc.GetByCode(ctx, " TC01 ")
	require.NoError(t, err)
	assert.Equal(t, col.ID, got.ID)
}

func TestCreateAdmin(t *testing.T) {
	svc, mailSvc := newCollegeSvc(t)
	ctx := context.Background()

	col, err := svc.Create(ctx, college.NewCollege{Name: "Test College", Code: "TC01"})
	require.NoError(t, err)

	adm, emailed, err := svc.CreateAdmin(ctx, col.ID, college.NewAdmin{Name: "Dean", Email: "Dean@Example.com"})
	require.NoError(t, err)
	assert.True(t, emailed)
	assert.True(t, adm.IsFirstLogin)
	assert.Equal(t, "dean@example.com", adm.Email)
	assert.Equal(t, 1, mailSvc.SentCount())

	// the admin is attached to the college
	col, err = svc.GetByID(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{adm.ID}, col.Admins)
	got, err := svc.GetByAdmin(ctx, adm.ID)
	require.NoError(t, err)
	assert.Equal(t, col.ID, got.ID)

	// duplicate email
	_, _, err = svc.CreateAdmin(ctx, col.ID, college.NewAdmin{Name: "Twin", Email: "dean@example.com"})
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)

	// unknown college
	_, _, err = svc.CreateAdmin(ctx, primitive.NewObjectID(), college.NewAdmin{Name: "X", Email: "x@example.com"})
	assert.ErrorIs(t, err, college.ErrNotFound)
}

func TestCreateAdminEmailFailure(t *testing.T) {
	svc, mailSvc := newCollegeSvc(t)
	ctx := context.Background()
	mailSvc.Err = errors.New("smtp unreachable")

	col, err := svc.Create(ctx, college.NewCollege{Name: "Test College", Code: "TC01"})
	require.NoError(t, err)

	adm, emailed, err := svc.CreateAdmin(ctx, col.ID, college.NewAdmin{Name: "Dean", Email: "dean@example.com"})
	require.NoError(t, err, "creation survives the failed email")
	assert.False(t, emailed)

	// the admin really exists and can be looked up
	got, err := svc.GetAdminByEmail(ctx, "dean@example.com")
	require.NoError(t, err)
	assert.Equal(t, adm.ID, got.ID)
}

func TestChangeAdminPassword(t *testing.T) {
	svc, _ := newCollegeSvc(t)
	ctx := context.Background()

	col, err := svc.Create(ctx, college.NewCollege{Name: "Test College", Code: "TC01"})
	require.NoError(t, err)
	adm, _, err := svc.CreateAdmin(ctx, col.ID, college.NewAdmin{Name: "Dean", Email: "dean@example.com"})
	require.NoError(t, err)

	adm, err = svc.ChangeAdminPassword(ctx, adm.ID, "new-password-123")
	require.NoError(t, err)
	assert.False(t, adm.IsFirstLogin)
	assert.NoError(t, adm.CheckPassword("new-password-123"))

	_, err = svc.ChangeAdminPassword(ctx, adm.ID, "   ")
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAssignTokens(t *testing.T) {
	svc, _ := newCollegeSvc(t)
	ctx := context.Background()

	col, err := svc.Create(ctx, college.NewCollege{Name: "Test College", Code: "TC01"})
	require.NoError(t, err)
	adm, _, err := svc.CreateAdmin(ctx, col.ID, college.NewAdmin{Name: "Dean", Email: "dean@example.com"})
	require.NoError(t, err)

	tl, err := svc.AssignTokens(ctx, col.ID, adm.ID, 100, "initial grant")
	require.NoError(t, err)
	assert.Equal(t, 100, tl.NumberOfTokens.Count)
	assert.Equal(t, 100, tl.UnusedTokens.Count)

	_, err = svc.AssignTokens(ctx, col.ID, adm.ID, 50, "top up")
	require.NoError(t, err)

	// the config accumulates across assignments
	tc, err := svc.TokenConfig(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, tc.TotalTokens.Count)
	assert.Equal(t, 150, tc.UnusedTokens.Count)

	// both logs are attached to the college
	col, err = svc.GetByID(ctx, col.ID)
	require.NoError(t, err)
	assert.Len(t, col.TokenLogs, 2)

	var verr *core.ValidationError
	_, err = svc.AssignTokens(ctx, col.ID, adm.ID, 0, "")
	assert.ErrorAs(t, err, &verr)
}
