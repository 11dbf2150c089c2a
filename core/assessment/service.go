package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
	"github.com/deloai/campus/core/course"
)

var (
	// errors
	ErrNotFound        = errors.New("test not found")
	ErrSectionNotFound = errors.New("section not found")
)

type (
	Repository interface {
		CreateTest(ctx context.Context, t Test) (Test, error)
		GetTest(ctx context.Context, id primitive.ObjectID) (Test, error)
		UpdateTest(ctx context.Context, t Test) (Test, error)
		QueryAllTests(ctx context.Context) ([]Test, error)
		// QueryTestsByWindow returns the tests whose schedule places them in
		// the window at the reference time.
		QueryTestsByWindow(ctx context.Context, w TestWindow, now time.Time) ([]Test, error)
		DeleteTest(ctx context.Context, id primitive.ObjectID) error

		CreateSection(ctx context.Context, s Section) (Section, error)
		GetSection(ctx context.Context, id primitive.ObjectID) (Section, error)
		UpdateSection(ctx context.Context, s Section) (Section, error)
		DeleteSection(ctx context.Context, id primitive.ObjectID) error
		// GetSectionsByID returns the sections that still exist; dangling ids
		// are simply absent from the result.
		GetSectionsByID(ctx context.Context, ids []primitive.ObjectID) ([]Section, error)

		// AddSectionQuestion appends the question to the section's embedded list.
		AddSectionQuestion(ctx context.Context, sectionID primitive.ObjectID, q SectionQuestion) error

		// PushSectionRef appends the section to the named list on the test.
		PushSectionRef(ctx context.Context, testID, sectionID primitive.ObjectID, list SectionList) error
		// MoveSectionRef removes the section from one list and appends it to
		// the other in a single per-document update, so no observer can see
		// the section on neither list.
		MoveSectionRef(ctx context.Context, testID, sectionID primitive.ObjectID, from, to SectionList) error
		// PullSectionRefs removes the section from both lists of every test
		// referencing it.
		PullSectionRefs(ctx context.Context, sectionID primitive.ObjectID) error
		// FindTestIDsWithSection returns the ids of every test holding the
		// section on either list.
		FindTestIDsWithSection(ctx context.Context, sectionID primitive.ObjectID) ([]primitive.ObjectID, error)
	}

	// QuestionGetter resolves question references before they are attached to
	// a section. Satisfied by course.Repository.
	QuestionGetter interface {
		GetMCQ(ctx context.Context, id primitive.ObjectID) (course.MCQ, error)
		GetRearrange(ctx context.Context, id primitive.ObjectID) (course.Rearrange, error)
		GetCodingQuestion(ctx context.Context, id primitive.ObjectID) (course.CodingQuestion, error)
	}

	Service struct {
		repo      Repository
		questions QuestionGetter
		logger    core.Logger
	}
)

func NewService(repo Repository, questions QuestionGetter, logger core.Logger) *Service {
	return &Service{repo: repo, questions: questions, logger: logger}
}

// RewireStep is the outcome of moving one test's section reference between
// its two lists.
type RewireStep struct {
	TestID primitive.ObjectID `json:"test_id"`
	Err    error              `json:"-"`
}

// RewireResult accumulates per-test outcomes of a section list rewiring.
// A failed move never stops the remaining moves.
type RewireResult struct {
	Moved SectionList
	Steps []RewireStep
}

func (r RewireResult) Failed() []RewireStep {
	var failed []RewireStep
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// Err returns nil when every move completed, and a core.PartialError
// naming the tests left unmoved otherwise.
func (r RewireResult) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, s := range failed {
		errs = append(errs, fmt.Errorf("test %s: %w", s.TestID.Hex(), s.Err))
	}
	return core.NewPartialError("rewire section refs", errs...)
}

func (svc *Service) CreateTest(ctx context.Context, t Test) (Test, error) {
	if err := t.Validate(); err != nil {
		return Test{}, err
	}
	if t.CreatedBy == (course.CreatedBy{}) {
		t.CreatedBy = course.SystemCreatedBy()
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	t.SectionsTimeRestricted = []primitive.ObjectID{}
	t.SectionsOpen = []primitive.ObjectID{}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	return svc.repo.CreateTest(ctx, t)
}

func (svc *Service) GetTest(ctx context.Context, id primitive.ObjectID) (Test, error) {
	return svc.repo.GetTest(ctx, id)
}

func (svc *Service) QueryAllTests(ctx context.Context) ([]Test, error) {
	return svc.repo.QueryAllTests(ctx)
}

// UpdateTestInfo applies the changes to the test, re-validating the schedule.
// The section lists are never touched here.
func (svc *Service) UpdateTestInfo(ctx context.Context, id primitive.ObjectID, changes UpdateTest) (Test, error) {
	t, err := svc.repo.GetTest(ctx, id)
	if err != nil {
		return Test{}, err
	}
	if changes.IsEmpty() {
		return t, nil
	}

	if changes.Name != nil {
		t.Name = *changes.Name
	}
	if changes.Description != nil {
		t.Description = *changes.Description
	}
	if changes.StartTime != nil {
		t.StartTime = *changes.StartTime
	}
	if changes.EndTime != nil {
		t.EndTime = *changes.EndTime
	}
	if changes.Instructions != nil {
		t.Instructions = *changes.Instructions
	}
	if changes.Tags != nil {
		t.Tags = *changes.Tags
	}
	if err = t.Validate(); err != nil {
		return Test{}, err
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTest(ctx, t)
}

func (svc *Service) QueryTestsByWindow(ctx context.Context, w TestWindow) ([]Test, error) {
	switch w {
	case WindowPast, WindowOngoing, WindowUpcoming:
	default:
		return nil, core.NewValidationError(fmt.Errorf("unknown test window %q", w))
	}
	return svc.repo.QueryTestsByWindow(ctx, w, time.Now().UTC())
}

// AttachSection creates a section and appends it to the test list matching
// its time_restricted flag.
func (svc *Service) AttachSection(ctx context.Context, testID primitive.ObjectID, ns NewSection) (Section, error) {
	if err := ns.Validate(); err != nil {
		return Section{}, err
	}
	if _, err := svc.repo.GetTest(ctx, testID); err != nil {
		return Section{}, err
	}

	now := time.Now().UTC()
	s := Section{
		Name:           ns.Name,
		Description:    ns.Description,
		Instructions:   ns.Instructions,
		TimeRestricted: ns.TimeRestricted,
		Questions:      []SectionQuestion{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s, err := svc.repo.CreateSection(ctx, s)
	if err != nil {
		return Section{}, err
	}
	if err = svc.repo.PushSectionRef(ctx, testID, s.ID, ListFor(s.TimeRestricted)); err != nil {
		// best effort; an orphaned section is worse than a failed attach
		if delErr := svc.repo.DeleteSection(ctx, s.ID); delErr != nil {
			svc.logger.Warn(fmt.Sprintf("cleaning up unattached section %s", s.ID.Hex()), delErr)
		}
		return Section{}, err
	}
	return s, nil
}

// UpdateSectionInfo applies the changes to the section. When the
// time_restricted flag flips, the section's reference is moved to the other
// list on every test holding it; each move is one atomic per-document update,
// and per-test failures are accumulated in the RewireResult rather than
// aborting the remaining tests. The section document itself is updated first,
// so a later failed move leaves that test stale but repairable by retrying.
func (svc *Service) UpdateSectionInfo(ctx context.Context, id primitive.ObjectID, changes UpdateSection) (Section, RewireResult, error) {
	s, err := svc.repo.GetSection(ctx, id)
	if err != nil {
		return Section{}, RewireResult{}, err
	}
	if changes.IsEmpty() {
		return s, RewireResult{}, nil
	}

	if changes.Name != nil {
		name := core.CleanString(*changes.Name)
		if name == "" {
			return Section{}, RewireResult{}, core.NewValidationError(errors.New("section name is required"),
				core.FieldError{Field: "name", Error: "must not be blank"})
		}
		s.Name = name
	}
	if changes.Description != nil {
		s.Description = *changes.Description
	}
	if changes.Instructions != nil {
		s.Instructions = *changes.Instructions
	}
	flip := changes.TimeRestricted != nil && *changes.TimeRestricted != s.TimeRestricted
	if changes.TimeRestricted != nil {
		s.TimeRestricted = *changes.TimeRestricted
	}
	s.UpdatedAt = time.Now().UTC()

	s, err = svc.repo.UpdateSection(ctx, s)
	if err != nil {
		return Section{}, RewireResult{}, err
	}
	if !flip {
		return s, RewireResult{}, nil
	}

	res, err := svc.rewireSectionRefs(ctx, s)
	if err != nil {
		return s, res, err
	}
	if failed := res.Failed(); len(failed) > 0 {
		svc.logger.Warn(fmt.Sprintf("section %s rewired with %d failed tests", id.Hex(), len(failed)))
	}
	return s, res, nil
}

// rewireSectionRefs moves the section onto the list matching its flag on
// every test referencing it.
func (svc *Service) rewireSectionRefs(ctx context.Context, s Section) (RewireResult, error) {
	to := ListFor(s.TimeRestricted)
	from := ListFor(!s.TimeRestricted)

	testIDs, err := svc.repo.FindTestIDsWithSection(ctx, s.ID)
	if err != nil {
		return RewireResult{Moved: to}, err
	}
	res := RewireResult{Moved: to}
	for _, testID := range testIDs {
		res.Steps = append(res.Steps, RewireStep{
			TestID: testID,
			Err:    svc.repo.MoveSectionRef(ctx, testID, s.ID, from, to),
		})
	}
	return res, nil
}

// AddQuestion validates the tagged reference, checks the referenced question
// exists, and appends it to the section.
func (svc *Service) AddQuestion(ctx context.Context, sectionID primitive.ObjectID, q SectionQuestion) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if _, err := svc.repo.GetSection(ctx, sectionID); err != nil {
		return err
	}

	var err error
	switch q.Type {
	case QuestionMCQ:
		_, err = svc.questions.GetMCQ(ctx, q.MCQ)
	case QuestionCoding:
		_, err = svc.questions.GetCodingQuestion(ctx, q.Coding)
	case QuestionRearrange:
		_, err = svc.questions.GetRearrange(ctx, q.Rearrange)
	}
	if err != nil {
		return core.NewValidationError(fmt.Errorf("resolving %s question %s: %w", q.Type, q.Ref().Hex(), err),
			core.FieldError{Field: string(q.Type) + "_ref", Error: "referenced question does not exist"})
	}
	return svc.repo.AddSectionQuestion(ctx, sectionID, q)
}

// Per-question statuses of a batch attach.
const (
	StatusQuestionAdded  = "added"
	StatusQuestionFailed = "error"
)

// QuestionResult is the outcome of one question in a batch attach.
type QuestionResult struct {
	Index   int    `json:"index"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HasQuestionFailures reports whether any question in the batch was rejected.
func HasQuestionFailures(results []QuestionResult) bool {
	for _, r := range results {
		if r.Status == StatusQuestionFailed {
			return true
		}
	}
	return false
}

// AddQuestions attaches a batch of questions to the section with per-item
// outcomes; a bad item never aborts the batch.
func (svc *Service) AddQuestions(ctx context.Context, sectionID primitive.ObjectID, qs []SectionQuestion) ([]QuestionResult, error) {
	if len(qs) == 0 {
		return nil, core.NewValidationError(errors.New("no questions provided"))
	}
	if _, err := svc.repo.GetSection(ctx, sectionID); err != nil {
		return nil, err
	}

	results := make([]QuestionResult, 0, len(qs))
	for i, q := range qs {
		if err := svc.AddQuestion(ctx, sectionID, q); err != nil {
			results = append(results, QuestionResult{Index: i, Status: StatusQuestionFailed, Message: err.Error()})
			continue
		}
		results = append(results, QuestionResult{Index: i, Status: StatusQuestionAdded})
	}
	return results, nil
}

func (svc *Service) GetSection(ctx context.Context, id primitive.ObjectID) (Section, error) {
	return svc.repo.GetSection(ctx, id)
}

// SectionsByTest returns the test's sections grouped by list, each in list
// order. Dangling references are dropped silently.
func (svc *Service) SectionsByTest(ctx context.Context, testID primitive.ObjectID) (timeRestricted, open []Section, err error) {
	t, err := svc.repo.GetTest(ctx, testID)
	if err != nil {
		return nil, nil, err
	}
	if timeRestricted, err = svc.sectionsInOrder(ctx, t.SectionsTimeRestricted); err != nil {
		return nil, nil, err
	}
	if open, err = svc.sectionsInOrder(ctx, t.SectionsOpen); err != nil {
		return nil, nil, err
	}
	return timeRestricted, open, nil
}

func (svc *Service) sectionsInOrder(ctx context.Context, ids []primitive.ObjectID) ([]Section, error) {
	if len(ids) == 0 {
		return []Section{}, nil
	}
	found, err := svc.repo.GetSectionsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]Section, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	out := make([]Section, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// DeleteSection removes the section and pulls its reference from every test.
func (svc *Service) DeleteSection(ctx context.Context, id primitive.ObjectID) error {
	if _, err := svc.repo.GetSection(ctx, id); err != nil {
		return err
	}
	if err := svc.repo.DeleteSection(ctx, id); err != nil {
		return err
	}
	return svc.repo.PullSectionRefs(ctx, id)
}

// DeleteTest removes the test and its sections. Section deletes are
// best-effort; failures are logged and the test is removed regardless.
func (svc *Service) DeleteTest(ctx context.Context, id primitive.ObjectID) error {
	t, err := svc.repo.GetTest(ctx, id)
	if err != nil {
		return err
	}
	for _, sid := range append(append([]primitive.ObjectID{}, t.SectionsTimeRestricted...), t.SectionsOpen...) {
		if err := svc.repo.DeleteSection(ctx, sid); err != nil && !errors.Is(err, ErrSectionNotFound) {
			svc.logger.Warn(fmt.Sprintf("deleting section %s of test %s", sid.Hex(), id.Hex()), err)
		}
	}
	return svc.repo.DeleteTest(ctx, id)
}
