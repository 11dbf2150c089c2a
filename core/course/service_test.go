package course_test

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
	"github.com/deloai/campus/core/course"
	logsvc "github.com/deloai/campus/services/logger"
	inmemdb "github.com/deloai/campus/storage/database/inmem"
)

func newCourseSvc(t *testing.T) (*course.Service, *inmemdb.DB) {
	t.Helper()
	db := inmemdb.New()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	return course.NewService(db, logger), db
}

func validMCQ(topic string, tags ...string) course.MCQ {
	opts := []course.Option{course.NewOption("a"), course.NewOption("b")}
	return course.MCQ{
		Title:           "q",
		QuestionText:    "?",
		Options:         opts,
		CorrectOptions:  []string{opts[0].OptionID},
		DifficultyLevel: course.DifficultyEasy,
		Topic:           topic,
		Tags:            tags,
	}
}

func buildCodingQuestion(t *testing.T, svc *course.Service, groups, casesPerGroup int) course.CodingQuestion {
	t.Helper()
	ctx := context.Background()

	q, err := svc.CreateCodingQuestion(ctx, course.CodingQuestion{Title: "sum"})
	require.NoError(t, err)

	for i := 0; i < groups; i++ {
		g, err := svc.AddTestCaseGroup(ctx, q.ID, course.TestCaseGroup{Name: "g"})
		require.NoError(t, err)
		for j := 0; j < casesPerGroup; j++ {
			_, err = svc.AddTestCase(ctx, g.ID, course.TestCase{InputText: "1 2", ExpectedOutput: "3"})
			require.NoError(t, err)
		}
	}

	q, err = svc.GetCodingQuestion(ctx, q.ID)
	require.NoError(t, err)
	return q
}

func TestDeleteCodingQuestionCascade(t *testing.T) {
	for _, useTx := range []bool{false, true} {
		name := "best effort"
		if useTx {
			name = "transactional"
		}
		t.Run(name, func(t *testing.T) {
			svc, db := newCourseSvc(t)
			ctx := context.Background()

			q := buildCodingQuestion(t, svc, 2, 3)
			require.Len(t, q.TestCaseGroups, 2)

			groups, err := db.GetTestCaseGroupsByID(ctx, q.TestCaseGroups)
			require.NoError(t, err)
			var caseIDs []primitive.ObjectID
			for _, g := range groups {
				caseIDs = append(caseIDs, g.Cases...)
			}
			require.Len(t, caseIDs, 6)

			res, err := svc.DeleteCodingQuestion(ctx, q.ID, useTx)
			require.NoError(t, err)
			assert.Empty(t, res.Failed())
			assert.NoError(t, res.Err())

			_, err = svc.GetCodingQuestion(ctx, q.ID)
			assert.ErrorIs(t, err, course.ErrQuestionNotFound)
			remaining, err := db.GetTestCaseGroupsByID(ctx, q.TestCaseGroups)
			require.NoError(t, err)
			assert.Empty(t, remaining)
			for _, cid := range caseIDs {
				_, err = db.GetTestCase(ctx, cid)
				assert.ErrorIs(t, err, course.ErrNotFound)
			}
		})
	}
}

func TestDeleteCodingQuestionSharedCase(t *testing.T) {
	svc, db := newCourseSvc(t)
	ctx := context.Background()

	q, err := svc.CreateCodingQuestion(ctx, course.CodingQuestion{Title: "shared"})
	require.NoError(t, err)
	g1, err := svc.AddTestCaseGroup(ctx, q.ID, course.TestCaseGroup{Name: "g1"})
	require.NoError(t, err)
	g2, err := svc.AddTestCaseGroup(ctx, q.ID, course.TestCaseGroup{Name: "g2"})
	require.NoError(t, err)

	tc, err := svc.AddTestCase(ctx, g1.ID, course.TestCase{InputText: "in", ExpectedOutput: "out"})
	require.NoError(t, err)
	// same case referenced from the second group
	require.NoError(t, db.AddCaseRef(ctx, g2.ID, tc.ID))

	res, err := svc.DeleteCodingQuestion(ctx, q.ID, false)
	require.NoError(t, err)
	assert.Empty(t, res.Failed())

	// the shared case appears once in the bulk delete step
	for _, step := range res.Steps {
		if step.Entity == course.EntityTestCase {
			assert.Equal(t, 1, step.Count)
		}
	}
	_, err = db.GetTestCase(ctx, tc.ID)
	assert.ErrorIs(t, err, course.ErrNotFound)
}

func TestDeleteCourseCascade(t *testing.T) {
	svc, db := newCourseSvc(t)
	ctx := context.Background()

	c, err := svc.CreateCourse(ctx, course.Course{Name: "Go 101"})
	require.NoError(t, err)

	m, err := svc.SaveMCQ(ctx, validMCQ("basics"))
	require.NoError(t, err)
	coding := buildCodingQuestion(t, svc, 1, 2)

	ch, err := svc.AddChapter(ctx, c.ID, course.Chapter{Name: "ch1"})
	require.NoError(t, err)
	l, err := svc.AddLesson(ctx, ch.ID, course.Lesson{Name: "l1"})
	require.NoError(t, err)

	uText, err := svc.AddUnit(ctx, l.ID, course.NewTextUnit("intro", "hello"))
	require.NoError(t, err)
	uMCQ, err := svc.AddUnit(ctx, l.ID, course.NewMCQUnit("quiz", m.ID))
	require.NoError(t, err)
	uCoding, err := svc.AddUnit(ctx, l.ID, course.NewCodingUnit("exercise", coding.ID))
	require.NoError(t, err)

	res, err := svc.DeleteCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Failed())

	for _, check := range []struct {
		name string
		err  error
	}{
		{"course", func() error { _, err := db.GetCourse(ctx, c.ID); return err }()},
		{"chapter", func() error { _, err := db.GetChapter(ctx, ch.ID); return err }()},
		{"lesson", func() error { _, err := db.GetLesson(ctx, l.ID); return err }()},
		{"text unit", func() error { _, err := db.GetUnit(ctx, uText.ID); return err }()},
		{"mcq unit", func() error { _, err := db.GetUnit(ctx, uMCQ.ID); return err }()},
		{"coding unit", func() error { _, err := db.GetUnit(ctx, uCoding.ID); return err }()},
	} {
		assert.ErrorIs(t, check.err, course.ErrNotFound, check.name)
	}
	_, err = db.GetMCQ(ctx, m.ID)
	assert.ErrorIs(t, err, course.ErrQuestionNotFound)
	_, err = db.GetCodingQuestion(ctx, coding.ID)
	assert.ErrorIs(t, err, course.ErrQuestionNotFound)
}

// failingRepo wraps the in-memory store and fails selected operations.
type failingRepo struct {
	course.Repository
	failMCQDelete bool
}

var errBoom = errors.New("storage unavailable")

func (r *failingRepo) DeleteMCQ(ctx context.Context, id primitive.ObjectID) error {
	if r.failMCQDelete {
		return errBoom
	}
	return r.Repository.DeleteMCQ(ctx, id)
}

func TestDeleteUnitPartialFailure(t *testing.T) {
	db := inmemdb.New()
	repo := &failingRepo{Repository: db, failMCQDelete: true}
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	svc := course.NewService(repo, logger)
	ctx := context.Background()

	c, err := svc.CreateCourse(ctx, course.Course{Name: "c"})
	require.NoError(t, err)
	ch, err := svc.AddChapter(ctx, c.ID, course.Chapter{Name: "ch"})
	require.NoError(t, err)
	l, err := svc.AddLesson(ctx, ch.ID, course.Lesson{Name: "l"})
	require.NoError(t, err)

	m, err := svc.SaveMCQ(ctx, validMCQ("t"))
	require.NoError(t, err)
	u, err := svc.AddUnit(ctx, l.ID, course.NewMCQUnit("quiz", m.ID))
	require.NoError(t, err)

	res, err := svc.DeleteUnit(ctx, u.ID)
	require.NoError(t, err)

	// the payload step failed but the unit was still deleted
	failed := res.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, course.EntityMCQ, failed[0].Entity)
	assert.True(t, res.PartialFailure())

	var perr *core.PartialError
	require.ErrorAs(t, res.Err(), &perr)

	_, err = db.GetUnit(ctx, u.ID)
	assert.ErrorIs(t, err, course.ErrNotFound)
	_, err = db.GetMCQ(ctx, m.ID)
	assert.NoError(t, err, "mcq survives the failed delete")
}

func TestQuestionConfigAccumulation(t *testing.T) {
	svc, db := newCourseSvc(t)
	ctx := context.Background()

	m1, err := svc.SaveMCQ(ctx, validMCQ("arrays", "easy-win"))
	require.NoError(t, err)
	_, err = svc.SaveMCQ(ctx, validMCQ("strings", "easy-win", "tricky"))
	require.NoError(t, err)

	cfg, err := svc.FilterOptions(ctx, course.ConfigMCQ)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"arrays", "strings"}, cfg.Topics)
	assert.ElementsMatch(t, []string{"easy-win", "tricky"}, cfg.Tags)
	assert.Equal(t, []string{course.DifficultyEasy}, cfg.DifficultyLevels)

	// config is a high-water mark: deleting a question removes nothing
	require.NoError(t, db.DeleteMCQ(ctx, m1.ID))

	cfg, err = svc.FilterOptions(ctx, course.ConfigMCQ)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"arrays", "strings"}, cfg.Topics)
}

func TestFilterOptionsAbsentConfig(t *testing.T) {
	svc, _ := newCourseSvc(t)

	cfg, err := svc.FilterOptions(context.Background(), course.ConfigRearrange)
	require.NoError(t, err)
	assert.Equal(t, course.ConfigRearrange, cfg.Kind)
	assert.Empty(t, cfg.Topics)
	assert.Empty(t, cfg.Tags)
}
