package course

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
)

var (
	// errors
	ErrNotFound         = errors.New("course entity not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrConfigNotFound   = errors.New("question config not found")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourse(ctx context.Context, id primitive.ObjectID) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id primitive.ObjectID) error

		CreateChapter(ctx context.Context, ch Chapter) (Chapter, error)
		GetChapter(ctx context.Context, id primitive.ObjectID) (Chapter, error)
		DeleteChapter(ctx context.Context, id primitive.ObjectID) error
		// AddChapterRef appends the chapter to the course's ordered list.
		AddChapterRef(ctx context.Context, courseID, chapterID primitive.ObjectID) error

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id primitive.ObjectID) (Lesson, error)
		DeleteLesson(ctx context.Context, id primitive.ObjectID) error
		AddLessonRef(ctx context.Context, chapterID, lessonID primitive.ObjectID) error

		CreateUnit(ctx context.Context, u Unit) (Unit, error)
		GetUnit(ctx context.Context, id primitive.ObjectID) (Unit, error)
		DeleteUnit(ctx context.Context, id primitive.ObjectID) error
		AddUnitRef(ctx context.Context, lessonID, unitID primitive.ObjectID) error

		CreateMCQ(ctx context.Context, m MCQ) (MCQ, error)
		GetMCQ(ctx context.Context, id primitive.ObjectID) (MCQ, error)
		UpdateMCQ(ctx context.Context, m MCQ) (MCQ, error)
		DeleteMCQ(ctx context.Context, id primitive.ObjectID) error
		QueryAllMCQs(ctx context.Context) ([]MCQ, error)

		CreateRearrange(ctx context.Context, r Rearrange) (Rearrange, error)
		GetRearrange(ctx context.Context, id primitive.ObjectID) (Rearrange, error)
		UpdateRearrange(ctx context.Context, r Rearrange) (Rearrange, error)
		DeleteRearrange(ctx context.Context, id primitive.ObjectID) error

		CreateCodingQuestion(ctx context.Context, q CodingQuestion) (CodingQuestion, error)
		GetCodingQuestion(ctx context.Context, id primitive.ObjectID) (CodingQuestion, error)
		UpdateCodingQuestion(ctx context.Context, q CodingQuestion) (CodingQuestion, error)
		DeleteCodingQuestion(ctx context.Context, id primitive.ObjectID) error

		CreateTestCaseGroup(ctx context.Context, g TestCaseGroup) (TestCaseGroup, error)
		// GetTestCaseGroupsByID returns the groups that still exist; dangling
		// ids are simply absent from the result.
		GetTestCaseGroupsByID(ctx context.Context, ids []primitive.ObjectID) ([]TestCaseGroup, error)
		AddGroupRef(ctx context.Context, questionID, groupID primitive.ObjectID) error
		DeleteTestCaseGroupsByID(ctx context.Context, ids ...primitive.ObjectID) error

		CreateTestCase(ctx context.Context, tc TestCase) (TestCase, error)
		GetTestCase(ctx context.Context, id primitive.ObjectID) (TestCase, error)
		AddCaseRef(ctx context.Context, groupID, caseID primitive.ObjectID) error
		DeleteTestCasesByID(ctx context.Context, ids ...primitive.ObjectID) error
		// PullCaseRefs removes the case from every group referencing it.
		PullCaseRefs(ctx context.Context, caseID primitive.ObjectID) error

		// DeleteQuestionTree deletes the cases, groups and question in one
		// multi-document transaction; on any failure nothing is deleted.
		DeleteQuestionTree(ctx context.Context, questionID primitive.ObjectID, groupIDs, caseIDs []primitive.ObjectID) error

		GetConfig(ctx context.Context, kind ConfigKind) (QuestionConfig, error)
		// AddConfigValues unions the values into the kind's singleton config,
		// creating it under its well-known key if absent.
		AddConfigValues(ctx context.Context, kind ConfigKind, values ConfigValues) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Courses / chapters / lessons / units

func (svc *Service) CreateCourse(ctx context.Context, c Course) (Course, error) {
	if core.CleanString(c.Name) == "" {
		return Course{}, core.NewValidationError(errors.New("course name is required"),
			core.FieldError{Field: "name", Error: "this field is required"})
	}
	if c.Chapters == nil {
		c.Chapters = []primitive.ObjectID{}
	}
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) GetCourse(ctx context.Context, id primitive.ObjectID) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) QueryAllCourses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *Service) AddChapter(ctx context.Context, courseID primitive.ObjectID, ch Chapter) (Chapter, error) {
	if core.CleanString(ch.Name) == "" {
		return Chapter{}, core.NewValidationError(errors.New("chapter name is required"),
			core.FieldError{Field: "name", Error: "this field is required"})
	}
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Chapter{}, err
	}
	if ch.Lessons == nil {
		ch.Lessons = []primitive.ObjectID{}
	}
	ch, err := svc.repo.CreateChapter(ctx, ch)
	if err != nil {
		return Chapter{}, err
	}
	if err = svc.repo.AddChapterRef(ctx, courseID, ch.ID); err != nil {
		return Chapter{}, err
	}
	return ch, nil
}

func (svc *Service) AddLesson(ctx context.Context, chapterID primitive.ObjectID, l Lesson) (Lesson, error) {
	if core.CleanString(l.Name) == "" {
		return Lesson{}, core.NewValidationError(errors.New("lesson name is required"),
			core.FieldError{Field: "name", Error: "this field is required"})
	}
	if _, err := svc.repo.GetChapter(ctx, chapterID); err != nil {
		return Lesson{}, err
	}
	if l.Units == nil {
		l.Units = []primitive.ObjectID{}
	}
	l, err := svc.repo.CreateLesson(ctx, l)
	if err != nil {
		return Lesson{}, err
	}
	if err = svc.repo.AddLessonRef(ctx, chapterID, l.ID); err != nil {
		return Lesson{}, err
	}
	return l, nil
}

func (svc *Service) AddUnit(ctx context.Context, lessonID primitive.ObjectID, u Unit) (Unit, error) {
	if err := u.Validate(); err != nil {
		return Unit{}, err
	}
	if _, err := svc.repo.GetLesson(ctx, lessonID); err != nil {
		return Unit{}, err
	}
	u, err := svc.repo.CreateUnit(ctx, u)
	if err != nil {
		return Unit{}, err
	}
	if err = svc.repo.AddUnitRef(ctx, lessonID, u.ID); err != nil {
		return Unit{}, err
	}
	return u, nil
}

func (svc *Service) GetUnit(ctx context.Context, id primitive.ObjectID) (Unit, error) {
	return svc.repo.GetUnit(ctx, id)
}

// MCQ / Rearrange questions and their config aggregation

// SaveMCQ validates and persists the question, then folds its difficulty,
// topic, subtopic and tags into the MCQ config. The config update is
// best-effort: a failure is logged, not surfaced, and never unwinds the save.
func (svc *Service) SaveMCQ(ctx context.Context, m MCQ) (MCQ, error) {
	if err := m.Validate(); err != nil {
		return MCQ{}, err
	}
	if m.CreatedBy == (CreatedBy{}) {
		m.CreatedBy = SystemCreatedBy()
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}

	var err error
	if m.ID.IsZero() {
		m, err = svc.repo.CreateMCQ(ctx, m)
	} else {
		m, err = svc.repo.UpdateMCQ(ctx, m)
	}
	if err != nil {
		return MCQ{}, err
	}

	if cfgErr := svc.repo.AddConfigValues(ctx, ConfigMCQ, m.configValues()); cfgErr != nil {
		svc.logger.Warn(fmt.Sprintf("updating mcq config after saving %s", m.ID.Hex()), cfgErr)
	}
	return m, nil
}

func (svc *Service) GetMCQ(ctx context.Context, id primitive.ObjectID) (MCQ, error) {
	return svc.repo.GetMCQ(ctx, id)
}

func (svc *Service) QueryAllMCQs(ctx context.Context) ([]MCQ, error) {
	return svc.repo.QueryAllMCQs(ctx)
}

// SaveRearrange mirrors SaveMCQ for rearrange questions.
func (svc *Service) SaveRearrange(ctx context.Context, r Rearrange) (Rearrange, error) {
	if err := r.Validate(); err != nil {
		return Rearrange{}, err
	}
	if r.CreatedBy == (CreatedBy{}) {
		r.CreatedBy = SystemCreatedBy()
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}

	var err error
	if r.ID.IsZero() {
		r, err = svc.repo.CreateRearrange(ctx, r)
	} else {
		r, err = svc.repo.UpdateRearrange(ctx, r)
	}
	if err != nil {
		return Rearrange{}, err
	}

	if cfgErr := svc.repo.AddConfigValues(ctx, ConfigRearrange, r.configValues()); cfgErr != nil {
		svc.logger.Warn(fmt.Sprintf("updating rearrange config after saving %s", r.ID.Hex()), cfgErr)
	}
	return r, nil
}

func (svc *Service) GetRearrange(ctx context.Context, id primitive.ObjectID) (Rearrange, error) {
	return svc.repo.GetRearrange(ctx, id)
}

// FilterOptions returns the accumulated filter menu values for a question
// kind; an absent config reads as empty, not as an error.
func (svc *Service) FilterOptions(ctx context.Context, kind ConfigKind) (QuestionConfig, error) {
	cfg, err := svc.repo.GetConfig(ctx, kind)
	if errors.Is(err, ErrConfigNotFound) {
		return QuestionConfig{Kind: kind}, nil
	}
	return cfg, err
}

// Coding questions and the testcase tree

func (svc *Service) CreateCodingQuestion(ctx context.Context, q CodingQuestion) (CodingQuestion, error) {
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	if q.Points == 0 {
		q.Points = 100
	}
	if q.TimeLimitMS == 0 {
		q.TimeLimitMS = 2000
	}
	if q.MemoryLimitKB == 0 {
		q.MemoryLimitKB = 65536
	}
	if q.Version == 0 {
		q.Version = 1
	}
	if q.AttemptPolicy == (AttemptPolicy{}) {
		q.AttemptPolicy = DefaultAttemptPolicy()
	}
	if err := q.Validate(); err != nil {
		return CodingQuestion{}, err
	}
	if q.TestCaseGroups == nil {
		q.TestCaseGroups = []primitive.ObjectID{}
	}
	if q.Tags == nil {
		q.Tags = []string{}
	}
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	return svc.repo.CreateCodingQuestion(ctx, q)
}

func (svc *Service) GetCodingQuestion(ctx context.Context, id primitive.ObjectID) (CodingQuestion, error) {
	return svc.repo.GetCodingQuestion(ctx, id)
}

func (svc *Service) AddTestCaseGroup(ctx context.Context, questionID primitive.ObjectID, g TestCaseGroup) (TestCaseGroup, error) {
	if g.Visibility == "" {
		g.Visibility = VisibilityHidden
	}
	if g.ScoringStrategy == "" {
		g.ScoringStrategy = ScoringBinary
	}
	if err := g.Validate(); err != nil {
		return TestCaseGroup{}, err
	}
	if _, err := svc.repo.GetCodingQuestion(ctx, questionID); err != nil {
		return TestCaseGroup{}, err
	}
	g.QuestionID = questionID
	if g.Cases == nil {
		g.Cases = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	g, err := svc.repo.CreateTestCaseGroup(ctx, g)
	if err != nil {
		return TestCaseGroup{}, err
	}
	if err = svc.repo.AddGroupRef(ctx, questionID, g.ID); err != nil {
		return TestCaseGroup{}, err
	}
	return g, nil
}

func (svc *Service) AddTestCase(ctx context.Context, groupID primitive.ObjectID, tc TestCase) (TestCase, error) {
	if tc.InputText == "" || tc.ExpectedOutput == "" {
		return TestCase{}, core.NewValidationError(errors.New("input and expected output are required"),
			core.FieldError{Field: "input_text", Error: "this field is required"},
			core.FieldError{Field: "expected_output", Error: "this field is required"})
	}
	now := time.Now().UTC()
	tc.CreatedAt = now
	tc.UpdatedAt = now
	tc, err := svc.repo.CreateTestCase(ctx, tc)
	if err != nil {
		return TestCase{}, err
	}
	if err = svc.repo.AddCaseRef(ctx, groupID, tc.ID); err != nil {
		return TestCase{}, err
	}
	return tc, nil
}

// DeleteTestCase removes a single testcase and pulls its reference from
// every group holding it; the groups themselves survive.
func (svc *Service) DeleteTestCase(ctx context.Context, id primitive.ObjectID) error {
	if err := svc.repo.DeleteTestCasesByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.PullCaseRefs(ctx, id)
}

// Resolved views

type (
	// CourseTree is a Course with its child documents resolved in list
	// order. Dangling references are dropped silently.
	CourseTree struct {
		Course   Course        `json:"course"`
		Chapters []ChapterNode `json:"chapters"`
	}
	ChapterNode struct {
		Chapter Chapter      `json:"chapter"`
		Lessons []LessonNode `json:"lessons"`
	}
	LessonNode struct {
		Lesson Lesson `json:"lesson"`
		Units  []Unit `json:"units"`
	}

	// CodingQuestionTree is a CodingQuestion with its groups and their
	// testcases resolved.
	CodingQuestionTree struct {
		Question CodingQuestion `json:"question"`
		Groups   []GroupNode    `json:"groups"`
	}
	GroupNode struct {
		Group TestCaseGroup `json:"group"`
		Cases []TestCase    `json:"cases"`
	}
)

func (svc *Service) GetCourseTree(ctx context.Context, id primitive.ObjectID) (CourseTree, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return CourseTree{}, err
	}
	tree := CourseTree{Course: c, Chapters: []ChapterNode{}}
	for _, chID := range c.Chapters {
		ch, err := svc.repo.GetChapter(ctx, chID)
		if err != nil {
			continue
		}
		node := ChapterNode{Chapter: ch, Lessons: []LessonNode{}}
		for _, lID := range ch.Lessons {
			l, err := svc.repo.GetLesson(ctx, lID)
			if err != nil {
				continue
			}
			ln := LessonNode{Lesson: l, Units: []Unit{}}
			for _, uID := range l.Units {
				if u, err := svc.repo.GetUnit(ctx, uID); err == nil {
					ln.Units = append(ln.Units, u)
				}
			}
			node.Lessons = append(node.Lessons, ln)
		}
		tree.Chapters = append(tree.Chapters, node)
	}
	return tree, nil
}

func (svc *Service) GetCodingQuestionTree(ctx context.Context, id primitive.ObjectID) (CodingQuestionTree, error) {
	q, err := svc.repo.GetCodingQuestion(ctx, id)
	if err != nil {
		return CodingQuestionTree{}, err
	}
	groups, err := svc.repo.GetTestCaseGroupsByID(ctx, q.TestCaseGroups)
	if err != nil {
		return CodingQuestionTree{}, err
	}
	tree := CodingQuestionTree{Question: q, Groups: make([]GroupNode, 0, len(groups))}
	for _, g := range groups {
		node := GroupNode{Group: g, Cases: []TestCase{}}
		for _, cid := range g.Cases {
			if tc, err := svc.repo.GetTestCase(ctx, cid); err == nil {
				node.Cases = append(node.Cases, tc)
			}
		}
		tree.Groups = append(tree.Groups, node)
	}
	return tree, nil
}

// Cascading deletes

// DeleteCodingQuestion deletes the question, its testcase groups and their
// testcases. With useTransaction the whole tree goes in one multi-document
// transaction (all or nothing); otherwise the three deletes run sequentially
// best-effort and per-step outcomes are reported in the CascadeResult.
func (svc *Service) DeleteCodingQuestion(ctx context.Context, id primitive.ObjectID, useTransaction bool) (CascadeResult, error) {
	q, err := svc.repo.GetCodingQuestion(ctx, id)
	if err != nil {
		return CascadeResult{}, err
	}
	var res CascadeResult
	if useTransaction {
		if err = svc.deleteQuestionTx(ctx, q, &res); err != nil {
			return res, err
		}
		return res, nil
	}
	svc.deleteCodingQuestion(ctx, q, &res)
	return res, nil
}

func (svc *Service) deleteQuestionTx(ctx context.Context, q CodingQuestion, res *CascadeResult) error {
	groupIDs := snapshotIDs(q.TestCaseGroups)
	caseIDs, err := svc.collectCaseIDs(ctx, groupIDs)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteQuestionTree(ctx, q.ID, groupIDs, caseIDs); err != nil {
		return err
	}
	res.record(EntityTestCase, primitive.NilObjectID, len(caseIDs), nil)
	res.record(EntityTestCaseGroup, primitive.NilObjectID, len(groupIDs), nil)
	res.record(EntityCoding, q.ID, 0, nil)
	return nil
}

// deleteCodingQuestion is the non-transactional path: testcases, then
// groups, then the question, each step recorded and none blocking the next.
func (svc *Service) deleteCodingQuestion(ctx context.Context, q CodingQuestion, res *CascadeResult) {
	groupIDs := snapshotIDs(q.TestCaseGroups)
	if len(groupIDs) == 0 {
		res.record(EntityCoding, q.ID, 0, svc.repo.DeleteCodingQuestion(ctx, q.ID))
		return
	}

	caseIDs, err := svc.collectCaseIDs(ctx, groupIDs)
	if err != nil {
		// groups unreadable; still attempt the group and question deletes
		res.record(EntityTestCase, primitive.NilObjectID, 0, err)
	} else if len(caseIDs) > 0 {
		res.record(EntityTestCase, primitive.NilObjectID, len(caseIDs),
			svc.repo.DeleteTestCasesByID(ctx, caseIDs...))
	}
	res.record(EntityTestCaseGroup, primitive.NilObjectID, len(groupIDs),
		svc.repo.DeleteTestCaseGroupsByID(ctx, groupIDs...))
	res.record(EntityCoding, q.ID, 0, svc.repo.DeleteCodingQuestion(ctx, q.ID))
}

// collectCaseIDs re-reads the groups from the store (not the in-memory
// snapshot) and returns the deduplicated union of their case references.
// Dangling group ids are skipped silently.
func (svc *Service) collectCaseIDs(ctx context.Context, groupIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	groups, err := svc.repo.GetTestCaseGroupsByID(ctx, groupIDs)
	if err != nil {
		return nil, err
	}
	seen := make(map[primitive.ObjectID]bool)
	var caseIDs []primitive.ObjectID
	for _, g := range groups {
		for _, cid := range g.Cases {
			if cid.IsZero() || seen[cid] {
				continue
			}
			seen[cid] = true
			caseIDs = append(caseIDs, cid)
		}
	}
	return caseIDs, nil
}

// DeleteUnit deletes the unit's owned payload first, then the unit. The
// payload delete is attempted independently; its failure is recorded but
// does not keep the unit alive.
func (svc *Service) DeleteUnit(ctx context.Context, id primitive.ObjectID) (CascadeResult, error) {
	u, err := svc.repo.GetUnit(ctx, id)
	if err != nil {
		return CascadeResult{}, err
	}
	var res CascadeResult
	svc.deleteUnit(ctx, u, &res)
	return res, nil
}

func (svc *Service) deleteUnit(ctx context.Context, u Unit, res *CascadeResult) {
	if kind, ref, ok := u.PayloadRef(); ok {
		switch kind {
		case UnitMCQ:
			res.record(EntityMCQ, ref, 0, svc.repo.DeleteMCQ(ctx, ref))
		case UnitRearrange:
			res.record(EntityRearrange, ref, 0, svc.repo.DeleteRearrange(ctx, ref))
		case UnitCoding:
			if q, err := svc.repo.GetCodingQuestion(ctx, ref); err != nil {
				res.record(EntityCoding, ref, 0, err)
			} else {
				svc.deleteCodingQuestion(ctx, q, res)
			}
		}
	}
	res.record(EntityUnit, u.ID, 0, svc.repo.DeleteUnit(ctx, u.ID))
}

// DeleteLesson cascades to the lesson's units in list order.
func (svc *Service) DeleteLesson(ctx context.Context, id primitive.ObjectID) (CascadeResult, error) {
	l, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return CascadeResult{}, err
	}
	var res CascadeResult
	svc.deleteLesson(ctx, l, &res)
	return res, nil
}

func (svc *Service) deleteLesson(ctx context.Context, l Lesson, res *CascadeResult) {
	// snapshot taken before any deletion so the list cannot mutate under us
	for _, unitID := range snapshotIDs(l.Units) {
		u, err := svc.repo.GetUnit(ctx, unitID)
		if err != nil {
			res.record(EntityUnit, unitID, 0, err)
			continue
		}
		svc.deleteUnit(ctx, u, res)
	}
	res.record(EntityLesson, l.ID, 0, svc.repo.DeleteLesson(ctx, l.ID))
}

// DeleteChapter cascades to the chapter's lessons in list order.
func (svc *Service) DeleteChapter(ctx context.Context, id primitive.ObjectID) (CascadeResult, error) {
	ch, err := svc.repo.GetChapter(ctx, id)
	if err != nil {
		return CascadeResult{}, err
	}
	var res CascadeResult
	svc.deleteChapter(ctx, ch, &res)
	return res, nil
}

func (svc *Service) deleteChapter(ctx context.Context, ch Chapter, res *CascadeResult) {
	for _, lessonID := range snapshotIDs(ch.Lessons) {
		l, err := svc.repo.GetLesson(ctx, lessonID)
		if err != nil {
			res.record(EntityLesson, lessonID, 0, err)
			continue
		}
		svc.deleteLesson(ctx, l, res)
	}
	res.record(EntityChapter, ch.ID, 0, svc.repo.DeleteChapter(ctx, ch.ID))
}

// DeleteCourse deletes the course and everything it transitively owns.
// Individual step failures are recorded in the result and logged; the
// cascade always runs to completion.
func (svc *Service) DeleteCourse(ctx context.Context, id primitive.ObjectID) (CascadeResult, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return CascadeResult{}, err
	}
	var res CascadeResult
	for _, chapterID := range snapshotIDs(c.Chapters) {
		ch, err := svc.repo.GetChapter(ctx, chapterID)
		if err != nil {
			res.record(EntityChapter, chapterID, 0, err)
			continue
		}
		svc.deleteChapter(ctx, ch, &res)
	}
	res.record(EntityCourse, c.ID, 0, svc.repo.DeleteCourse(ctx, c.ID))

	if failed := res.Failed(); len(failed) > 0 {
		svc.logger.Warn(fmt.Sprintf("course %s deleted with %d failed cascade steps", id.Hex(), len(failed)))
	}
	return res, nil
}

// snapshotIDs copies a reference list so recursive deletes iterate over a
// stable snapshot, and drops zero ids.
func snapshotIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !id.IsZero() {
			out = append(out, id)
		}
	}
	return out
}
