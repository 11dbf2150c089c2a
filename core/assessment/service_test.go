package assessment_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
	"github.com/deloai/campus/core/assessment"
	"github.com/deloai/campus/core/course"
	logsvc "github.com/deloai/campus/services/logger"
	inmemdb "github.com/deloai/campus/storage/database/inmem"
)

func newAssessmentSvc(t *testing.T) (*assessment.Service, *inmemdb.DB) {
	t.Helper()
	db := inmemdb.New()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	return assessment.NewService(db, db, logger), db
}

func validTest(name string) assessment.Test {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	return assessment.Test{
		Name:      name,
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	}
}

func TestTestValidate(t *testing.T) {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*assessment.Test)
		wantErr bool
	}{
		{name: "valid", mutate: func(tt *assessment.Test) {}},
		{name: "missing name", mutate: func(tt *assessment.Test) { tt.Name = "  " }, wantErr: true},
		{name: "zero start", mutate: func(tt *assessment.Test) { tt.StartTime = time.Time{} }, wantErr: true},
		{name: "end before start", mutate: func(tt *assessment.Test) { tt.EndTime = start.Add(-time.Hour) }, wantErr: true},
		{name: "start equals end", mutate: func(tt *assessment.Test) { tt.EndTime = tt.StartTime }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tst := validTest("midterm")
			tt.mutate(&tst)
			if err := tst.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateTestInfo(t *testing.T) {
	svc, _ := newAssessmentSvc(t)
	ctx := context.Background()

	tst, err := svc.CreateTest(ctx, validTest("midterm"))
	require.NoError(t, err)

	name := "endterm"
	tags := []string{"sem4"}
	updated, err := svc.UpdateTestInfo(ctx, tst.ID, assessment.UpdateTest{Name: &name, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "endterm", updated.Name)
	assert.Equal(t, tags, updated.Tags)
	assert.Equal(t, tst.StartTime, updated.StartTime, "untouched fields stay put")

	got, err := svc.GetTest(ctx, tst.ID)
	require.NoError(t, err)
	assert.Equal(t, "endterm", got.Name)

	// the schedule is re-validated on update
	badEnd := tst.StartTime.Add(-time.Hour)
	_, err = svc.UpdateTestInfo(ctx, tst.ID, assessment.UpdateTest{EndTime: &badEnd})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)

	// empty changes are a no-op
	same, err := svc.UpdateTestInfo(ctx, tst.ID, assessment.UpdateTest{})
	require.NoError(t, err)
	assert.Equal(t, "endterm", same.Name)

	_, err = svc.UpdateTestInfo(ctx, primitive.NewObjectID(), assessment.UpdateTest{Name: &name})
	assert.ErrorIs(t, err, assessment.ErrNotFound)
}

func TestQueryTestsByWindow(t *testing.T) {
	svc, _ := newAssessmentSvc(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(name string, start, end time.Time) assessment.Test {
		tst, err := svc.CreateTest(ctx, assessment.Test{Name: name, StartTime: start, EndTime: end})
		require.NoError(t, err)
		return tst
	}
	past := mk("past", now.Add(-3*time.Hour), now.Add(-2*time.Hour))
	ongoing := mk("ongoing", now.Add(-time.Hour), now.Add(time.Hour))
	upcoming := mk("upcoming", now.Add(2*time.Hour), now.Add(3*time.Hour))

	for _, tt := range []struct {
		window assessment.TestWindow
		want   primitive.ObjectID
	}{
		{assessment.WindowPast, past.ID},
		{assessment.WindowOngoing, ongoing.ID},
		{assessment.WindowUpcoming, upcoming.ID},
	} {
		ts, err := svc.QueryTestsByWindow(ctx, tt.window)
		require.NoError(t, err)
		require.Len(t, ts, 1, string(tt.window))
		assert.Equal(t, tt.want, ts[0].ID, string(tt.window))
	}

	var verr *core.ValidationError
	_, err := svc.QueryTestsByWindow(ctx, "someday")
	assert.ErrorAs(t, err, &verr)
}

func TestAttachSectionListPlacement(t *testing.T) {
	svc, _ := newAssessmentSvc(t)
	ctx := context.Background()

	tst, err := svc.CreateTest(ctx, validTest("midterm"))
	require.NoError(t, err)

	open, err := svc.AttachSection(ctx, tst.ID, assessment.NewSection{Name: "theory"})
	require.NoError(t, err)
	timed, err := svc.AttachSection(ctx, tst.ID, assessment.NewSection{Name: "coding", TimeRestricted: true})
	require.NoError(t, err)

	tst, err = svc.GetTest(ctx, tst.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{open.ID}, tst.SectionsOpen)
	assert.Equal(t, []primitive.ObjectID{timed.ID}, tst.SectionsTimeRestricted)

	_, err = svc.AttachSection(ctx, tst.ID, assessment.NewSection{Name: "   "})
	assert.Error(t, err, "blank section name")

	_, err = svc.AttachSection(ctx, primitive.NewObjectID(), assessment.NewSection{Name: "orphan"})
	assert.ErrorIs(t, err, assessment.ErrNotFound)
}

func TestUpdateSectionFlipRewiresAllTests(t *testing.T) {
	svc, db := newAssessmentSvc(t)
	ctx := context.Background()

	t1, err := svc.CreateTest(ctx, validTest("t1"))
	require.NoError(t, err)
	t2, err := svc.CreateTest(ctx, validTest("t2"))
	require.NoError(t, err)
	t3, err := svc.CreateTest(ctx, validTest("t3"))
	require.NoError(t, err)

	s, err := svc.AttachSection(ctx, t1.ID, assessment.NewSection{Name: "shared"})
	require.NoError(t, err)
	// the same section referenced from two more tests
	require.NoError(t, db.PushSectionRef(ctx, t2.ID, s.ID, assessment.ListOpen))
	require.NoError(t, db.PushSectionRef(ctx, t3.ID, s.ID, assessment.ListOpen))

	restricted := true
	updated, rewire, err := svc.UpdateSectionInfo(ctx, s.ID, assessment.UpdateSection{TimeRestricted: &restricted})
	require.NoError(t, err)
	assert.True(t, updated.TimeRestricted)
	assert.Equal(t, assessment.ListTimeRestricted, rewire.Moved)
	assert.Len(t, rewire.Steps, 3)
	assert.Empty(t, rewire.Failed())

	// the section sits on exactly one list of each test
	for _, id := range []primitive.ObjectID{t1.ID, t2.ID, t3.ID} {
		got, err := svc.GetTest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []primitive.ObjectID{s.ID}, got.SectionsTimeRestricted)
		assert.Empty(t, got.SectionsOpen)
	}
}

func TestUpdateSectionNoFlipSkipsRewire(t *testing.T) {
	svc, _ := newAssessmentSvc(t)
	ctx := context.Background()

	tst, err := svc.CreateTest(ctx, validTest("t"))
	require.NoError(t, err)
	s, err := svc.AttachSection(ctx, tst.ID, assessment.NewSection{Name: "quiz"})
	require.NoError(t, err)

	desc := "updated"
	updated, rewire, err := svc.UpdateSectionInfo(ctx, s.ID, assessment.UpdateSection{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Description)
	assert.Empty(t, rewire.Steps)

	blank := "  "
	_, _, err = svc.UpdateSectionInfo(ctx, s.ID, assessment.UpdateSection{Name: &blank})
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}

// flakyRepo wraps the in-memory store and fails section moves on one test.
type flakyRepo struct {
	assessment.Repository
	failTest primitive.ObjectID
}

var errMoveBoom = errors.New("write conflict")

func (r *flakyRepo) MoveSectionRef(ctx context.Context, testID, sectionID primitive.ObjectID, from, to assessment.SectionList) error {
	if testID == r.failTest {
		return errMoveBoom
	}
	return r.Repository.MoveSectionRef(ctx, testID, sectionID, from, to)
}

func TestUpdateSectionPartialRewireFailure(t *testing.T) {
	db := inmemdb.New()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	repo := &flakyRepo{Repository: db}
	svc := assessment.NewService(repo, db, logger)
	ctx := context.Background()

	t1, err := svc.CreateTest(ctx, validTest("t1"))
	require.NoError(t, err)
	t2, err := svc.CreateTest(ctx, validTest("t2"))
	require.NoError(t, err)
	repo.failTest = t2.ID

	s, err := svc.AttachSection(ctx, t1.ID, assessment.NewSection{Name: "shared"})
	require.NoError(t, err)
	require.NoError(t, db.PushSectionRef(ctx, t2.ID, s.ID, assessment.ListOpen))

	restricted := true
	updated, rewire, err := svc.UpdateSectionInfo(ctx, s.ID, assessment.UpdateSection{TimeRestricted: &restricted})
	require.NoError(t, err)
	assert.True(t, updated.TimeRestricted)

	failed := rewire.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, t2.ID, failed[0].TestID)
	var perr *core.PartialError
	require.ErrorAs(t, rewire.Err(), &perr)

	// t1 was still rewired despite t2 failing
	got, err := svc.GetTest(ctx, t1.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{s.ID}, got.SectionsTimeRestricted)

	// t2 is stale: the section document flipped but the refs did not move
	got, err = svc.GetTest(ctx, t2.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{s.ID}, got.SectionsOpen)
}

func TestAddQuestion(t *testing.T) {
	svc, db := newAssessmentSvc(t)
	ctx := context.Background()

	tst, err := svc.CreateTest(ctx, validTest("t"))
	require.NoError(t, err)
	s, err := svc.AttachSection(ctx, tst.ID, assessment.NewSection{Name: "quiz"})
	require.NoError(t, err)

	opts := []course.Option{course.NewOption("a"), course.NewOption("b")}
	m, err := db.CreateMCQ(ctx, course.MCQ{
		Title:           "q",
		QuestionText:    "?",
		Options:         opts,
		CorrectOptions:  []string{opts[0].OptionID},
		DifficultyLevel: course.DifficultyEasy,
	})
	require.NoError(t, err)

	require.NoError(t, svc.AddQuestion(ctx, s.ID, assessment.NewMCQQuestion(m.ID)))

	s, err = svc.GetSection(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, s.Questions, 1)
	assert.Equal(t, m.ID, s.Questions[0].MCQ)

	var verr *core.ValidationError

	// dangling reference
	err = svc.AddQuestion(ctx, s.ID, assessment.NewCodingQuestion(primitive.NewObjectID()))
	assert.ErrorAs(t, err, &verr)

	// foreign reference alongside the tagged one
	err = svc.AddQuestion(ctx, s.ID, assessment.SectionQuestion{
		Type: assessment.QuestionMCQ, MCQ: m.ID, Coding: primitive.NewObjectID(),
	})
	assert.ErrorAs(t, err, &verr)

	// unknown type
	err = svc.AddQuestion(ctx, s.ID, assessment.SectionQuestion{Type: "essay"})
	assert.ErrorAs(t, err, &verr)

	err = svc.AddQuestion(ctx, primitive.NewObjectID(), assessment.NewMCQQuestion(m.ID))
	assert.ErrorIs(t, err, assessment.ErrSectionNotFound)
}

func TestAddQuestionsBatch(t *testing.T) {
	svc, db := newAssessmentSvc(t)
	ctx := context.Background()

	tst, err := svc.CreateTest(ctx, validTest("t"))
	require.NoError(t, err)
	s, err := svc.AttachSection(ctx, tst.ID, assessment.NewSection{Name: "quiz"})
	require.NoError(t, err)

	opts := []course.Option{course.NewOption("a"), course.NewOption("b")}
	m, err := db.CreateMCQ(ctx, course.MCQ{
		Title:           "q",
		QuestionText:    "?",
		Options:         opts,
		CorrectOptions:  []string{opts[0].OptionID},
		DifficultyLevel: course.DifficultyEasy,
	})
	require.NoError(t, err)

	results, err := svc.AddQuestions(ctx, s.ID, []assessment.SectionQuestion{
		assessment.NewMCQQuestion(m.ID),
		assessment.NewCodingQuestion(primitive.NewObjectID()), // dangling
		{Type: "essay"},                                       // unknown type
	})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, assessment.StatusQuestionAdded, results[0].Status)
	assert.Equal(t, assessment.StatusQuestionFailed, results[1].Status)
	assert.Equal(t, assessment.StatusQuestionFailed, results[2].Status)
	assert.True(t, assessment.HasQuestionFailures(results))

	// only the valid question landed
	s, err = svc.GetSection(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, s.Questions, 1)
	assert.Equal(t, m.ID, s.Questions[0].MCQ)

	var verr *core.ValidationError
	_, err = svc.AddQuestions(ctx, s.ID, nil)
	assert.ErrorAs(t, err, &verr)
	_, err = svc.AddQuestions(ctx, primitive.NewObjectID(), []assessment.SectionQuestion{assessment.NewMCQQuestion(m.ID)})
	assert.ErrorIs(t, err, assessment.ErrSectionNotFound)
}

func TestSectionsByTest(t *testing.T) {
	svc, db := newAssessmentSvc(t)
	ctx := context.Background()

	tst, err := svc.CreateTest(ctx, validTest("t"))
	require.NoError(t, err)

	s1, err := svc.AttachSection(ctx, tst.ID, assessment.NewSection{Name: "a"})
	require.NoError(t, err)
	s2, err := svc.AttachSection(ctx, tst.ID, assessment.NewSection{Name: "b"})
	require.NoError(t, err)
	s3, err := svc.AttachSection(ctx, tst.ID, assessment.NewSection{Name: "c", TimeRestricted: true})
	require.NoError(t, err)

	// a dangling reference that must be dropped from the result
	require.NoError(t, db.PushSectionRef(ctx, tst.ID, primitive.NewObjectID(), assessment.ListOpen))

	timed, open, err := svc.SectionsByTest(ctx, tst.ID)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, s1.ID, open[0].ID)
	assert.Equal(t, s2.ID, open[1].ID)
	require.Len(t, timed, 1)
	assert.Equal(t, s3.ID, timed[0].ID)
}

func TestDeleteSectionPullsRefs(t *testing.T) {
	svc, db := newAssessmentSvc(t)
	ctx := context.Background()

	t1, err := svc.CreateTest(ctx, validTest("t1"))
	require.NoError(t, err)
	t2, err := svc.CreateTest(ctx, validTest("t2"))
	require.NoError(t, err)

	s, err := svc.AttachSection(ctx, t1.ID, assessment.NewSection{Name: "shared", TimeRestricted: true})
	require.NoError(t, err)
	require.NoError(t, db.PushSectionRef(ctx, t2.ID, s.ID, assessment.ListTimeRestricted))

	require.NoError(t, svc.DeleteSection(ctx, s.ID))

	_, err = svc.GetSection(ctx, s.ID)
	assert.ErrorIs(t, err, assessment.ErrSectionNotFound)
	for _, id := range []primitive.ObjectID{t1.ID, t2.ID} {
		got, err := svc.GetTest(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, got.SectionsTimeRestricted)
		assert.Empty(t, got.SectionsOpen)
	}
}

func TestDeleteTestRemovesSections(t *testing.T) {
	svc, _ := newAssessmentSvc(t)
	ctx := context.Background()

	tst, err := svc.CreateTest(ctx, validTest("t"))
	require.NoError(t, err)
	s, err := svc.AttachSection(ctx, tst.ID, assessment.NewSection{Name: "quiz"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTest(ctx, tst.ID))

	_, err = svc.GetTest(ctx, tst.ID)
	assert.ErrorIs(t, err, assessment.ErrNotFound)
	_, err = svc.GetSection(ctx, s.ID)
	assert.ErrorIs(t, err, assessment.ErrSectionNotFound)
}
