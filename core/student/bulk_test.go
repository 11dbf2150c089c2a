package student_test

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
	"github.com/deloai/campus/core/student"
	dummymail "github.com/deloai/campus/services/email/dummy"
	logsvc "github.com/deloai/campus/services/logger"
	inmemdb "github.com/deloai/campus/storage/database/inmem"
)

func newStudentSvc(t *testing.T) (*student.Service, *inmemdb.DB, *dummymail.Service, primitive.ObjectID) {
	t.Helper()
	core.SetTestConfig()

	db := inmemdb.New()
	mailSvc := dummymail.NewService()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	svc := student.NewService(db, db, mailSvc, logger)

	col, err := db.CreateCollege(context.Background(), college.College{Name: "Test College", Code: "TC01"})
	require.NoError(t, err)
	return svc, db, mailSvc, col.ID
}

func record(kv ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func TestBulkCreate(t *testing.T) {
	svc, _, mailSvc, collegeID := newStudentSvc(t)
	ctx := context.Background()

	items := []interface{}{
		record("name", "Asha", "email", "Asha@Example.com", "usn", "1TC20CS001"),
		record("email", "noname@example.com"), // missing name
		"not an object",
		record("name", "Vikram", "email", "vikram@example.com"),
	}
	res, err := svc.BulkCreate(ctx, collegeID, items)
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalReceived)
	assert.Equal(t, 2, res.CreatedCount)
	require.Len(t, res.Results, 4)
	assert.Equal(t, student.StatusCreated, res.Results[0].Status)
	assert.Equal(t, "asha@example.com", res.Results[0].Email, "email lowercased")
	assert.Equal(t, student.StatusSkipped, res.Results[1].Status)
	assert.Equal(t, student.StatusError, res.Results[2].Status)
	assert.Equal(t, student.StatusCreated, res.Results[3].Status)
	assert.Equal(t, 2, mailSvc.SentCount())
	assert.False(t, res.HasFailures())
}

func TestBulkCreateEmailFailure(t *testing.T) {
	svc, db, mailSvc, collegeID := newStudentSvc(t)
	ctx := context.Background()
	mailSvc.Err = errors.New("smtp unreachable")

	res, err := svc.BulkCreate(ctx, collegeID, []interface{}{
		record("name", "Asha", "email", "asha@example.com"),
	})
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	assert.Equal(t, student.StatusCreatedEmailFailed, res.Results[0].Status)
	assert.Equal(t, 1, res.CreatedCount, "creation survives the failed email")
	assert.True(t, res.HasFailures())

	// the student really exists
	_, err = db.GetStudentByEmail(ctx, "asha@example.com")
	assert.NoError(t, err)
}

func TestBulkCreateUniquenessConflict(t *testing.T) {
	svc, _, _, collegeID := newStudentSvc(t)
	ctx := context.Background()

	res, err := svc.BulkCreate(ctx, collegeID, []interface{}{
		record("name", "Asha", "email", "asha@example.com", "usn", "1TC20CS001"),
		record("name", "Imposter", "email", "other@example.com", "usn", "1TC20CS001"),
		record("name", "Dup", "email", "asha@example.com"),
	})
	require.NoError(t, err)

	require.Len(t, res.Results, 3)
	assert.Equal(t, student.StatusCreated, res.Results[0].Status)
	assert.Equal(t, student.StatusError, res.Results[1].Status)
	assert.Contains(t, res.Results[1].Message, "unique constraint")
	assert.Equal(t, student.StatusError, res.Results[2].Status)
	assert.Equal(t, 1, res.CreatedCount)
}

func TestBulkCreateUnknownCollege(t *testing.T) {
	svc, _, _, _ := newStudentSvc(t)

	_, err := svc.BulkCreate(context.Background(), primitive.NewObjectID(), []interface{}{
		record("name", "Asha", "email", "asha@example.com"),
	})
	assert.ErrorIs(t, err, college.ErrNotFound)
}

func TestBulkUpsert(t *testing.T) {
	svc, db, _, collegeID := newStudentSvc(t)
	ctx := context.Background()

	seed, err := svc.BulkCreate(ctx, collegeID, []interface{}{
		record("name", "Asha", "email", "asha@example.com", "usn", "1TC20CS001", "semester", float64(3)),
	})
	require.NoError(t, err)
	require.Equal(t, 1, seed.CreatedCount)

	res, err := svc.BulkUpsert(ctx, collegeID, student.MatchUSN, []interface{}{
		// matched: partial update, match key untouched
		record("usn", "1TC20CS001", "semester", float64(4), "cgpa", 8.2),
		// unmatched: created
		record("usn", "1TC20CS002", "name", "Vikram", "email", "vikram@example.com"),
		// missing the match key entirely
		record("name", "Ghost", "email", "ghost@example.com"),
		// matched but nothing updatable besides the match key
		record("usn", "1TC20CS001"),
	})
	require.NoError(t, err)

	require.Len(t, res.Results, 4)
	assert.Equal(t, student.StatusUpdated, res.Results[0].Status)
	assert.Equal(t, student.StatusCreated, res.Results[1].Status)
	assert.Equal(t, student.StatusSkipped, res.Results[2].Status)
	assert.Equal(t, student.StatusSkipped, res.Results[3].Status)
	assert.Equal(t, 1, res.UpdatedCount)
	assert.Equal(t, 1, res.CreatedCount)

	st, err := db.FindStudentByKey(ctx, collegeID, student.MatchUSN, "1TC20CS001")
	require.NoError(t, err)
	assert.Equal(t, 4, st.Semester)
	assert.Equal(t, 8.2, st.CGPA)
	assert.Equal(t, "Asha", st.Name, "fields absent from the record stay put")
}

func TestBulkUpsertBadMatchKey(t *testing.T) {
	svc, _, _, collegeID := newStudentSvc(t)

	_, err := svc.BulkUpsert(context.Background(), collegeID, "phone_number", []interface{}{
		record("phone_number", "123"),
	})
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestBulkUpsertUpdateConflict(t *testing.T) {
	svc, _, _, collegeID := newStudentSvc(t)
	ctx := context.Background()

	_, err := svc.BulkCreate(ctx, collegeID, []interface{}{
		record("name", "Asha", "email", "asha@example.com", "usn", "1TC20CS001"),
		record("name", "Vikram", "email", "vikram@example.com", "usn", "1TC20CS002"),
	})
	require.NoError(t, err)

	// updating Vikram's email onto Asha's must conflict, not clobber
	res, err := svc.BulkUpsert(ctx, collegeID, student.MatchUSN, []interface{}{
		record("usn", "1TC20CS002", "email", "asha@example.com"),
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, student.StatusError, res.Results[0].Status)
	assert.Contains(t, res.Results[0].Message, "unique constraint")
	assert.Equal(t, 0, res.UpdatedCount)
}

func TestBulkEmptyBatch(t *testing.T) {
	svc, _, _, collegeID := newStudentSvc(t)

	var verr *core.ValidationError
	_, err := svc.BulkCreate(context.Background(), collegeID, nil)
	assert.ErrorAs(t, err, &verr)
	_, err = svc.BulkUpsert(context.Background(), collegeID, student.MatchEmail, nil)
	assert.ErrorAs(t, err, &verr)
}

func TestUpdateStudent(t *testing.T) {
	svc, db, _, collegeID := newStudentSvc(t)
	ctx := context.Background()

	res, err := svc.BulkCreate(ctx, collegeID, []interface{}{
		record("name", "Asha", "email", "asha@example.com", "usn", "1TC20CS001"),
	})
	require.NoError(t, err)
	id := res.Results[0].StudentID

	st, err := svc.Update(ctx, id, record(
		"semester", float64(5),
		"cgpa", 9.1,
		"city", "Mysuru",
		"password_hash", "injected", // not allow-listed, ignored
	))
	require.NoError(t, err)
	assert.Equal(t, 5, st.Semester)
	assert.Equal(t, 9.1, st.CGPA)
	assert.Equal(t, "Mysuru", st.City)
	assert.Equal(t, "Asha", st.Name, "absent fields stay put")
	assert.Equal(t, "1TC20CS001", st.USN)

	// the update really persisted
	got, err := db.GetStudentByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Semester)

	var verr *core.ValidationError
	_, err = svc.Update(ctx, id, record("password_hash", "x"))
	assert.ErrorAs(t, err, &verr, "nothing updatable")
	_, err = svc.Update(ctx, id, record("semester", "five"))
	assert.ErrorAs(t, err, &verr, "wrong value shape")

	_, err = svc.Update(ctx, primitive.NewObjectID(), record("city", "X"))
	assert.ErrorIs(t, err, student.ErrNotFound)
}

func TestDeleteStudent(t *testing.T) {
	svc, _, _, collegeID := newStudentSvc(t)
	ctx := context.Background()

	res, err := svc.BulkCreate(ctx, collegeID, []interface{}{
		record("name", "Asha", "email", "asha@example.com"),
		record("name", "Vikram", "email", "vikram@example.com"),
	})
	require.NoError(t, err)
	id := res.Results[0].StudentID

	require.NoError(t, svc.Delete(ctx, id))

	_, err = svc.GetByID(ctx, id)
	assert.ErrorIs(t, err, student.ErrNotFound)
	_, err = svc.GetByEmail(ctx, "vikram@example.com")
	assert.NoError(t, err, "other students survive")
}

func TestChangePassword(t *testing.T) {
	svc, db, _, collegeID := newStudentSvc(t)
	ctx := context.Background()

	res, err := svc.BulkCreate(ctx, collegeID, []interface{}{
		record("name", "Asha", "email", "asha@example.com"),
	})
	require.NoError(t, err)
	id := res.Results[0].StudentID

	st, err := svc.ChangePassword(ctx, id, "new-password-123")
	require.NoError(t, err)
	assert.False(t, st.FirstTimeLogin)
	assert.NoError(t, st.CheckPassword("new-password-123"))

	st, err = db.GetStudentByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, st.FirstTimeLogin)
}
