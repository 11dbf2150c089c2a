package course

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
)

// Entity labels used in cascade step reports.
const (
	EntityCourse        = "course"
	EntityChapter       = "chapter"
	EntityLesson        = "lesson"
	EntityUnit          = "unit"
	EntityMCQ           = "mcq"
	EntityRearrange     = "rearrange"
	EntityCoding        = "coding_question"
	EntityTestCaseGroup = "testcase_group"
	EntityTestCase      = "testcase"
)

type (
	// CascadeStep is the outcome of one delete step. Bulk steps (deleting a
	// set of documents in one command) carry a Count and a zero ID.
	CascadeStep struct {
		Entity string             `json:"entity"`
		ID     primitive.ObjectID `json:"id,omitempty"`
		Count  int                `json:"count,omitempty"`
		Err    error              `json:"-"`
	}

	// CascadeResult accumulates per-step outcomes of a cascading delete.
	// A failed step never stops the cascade; it is recorded here so partial
	// failure stays observable instead of being silently swallowed.
	CascadeResult struct {
		Steps []CascadeStep
	}
)

func (s CascadeStep) String() string {
	if s.Count > 0 {
		return fmt.Sprintf("%s x%d", s.Entity, s.Count)
	}
	return fmt.Sprintf("%s %s", s.Entity, s.ID.Hex())
}

func (r *CascadeResult) record(entity string, id primitive.ObjectID, count int, err error) {
	r.Steps = append(r.Steps, CascadeStep{Entity: entity, ID: id, Count: count, Err: err})
}

// Failed returns the steps that did not complete.
func (r CascadeResult) Failed() []CascadeStep {
	var failed []CascadeStep
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// PartialFailure reports whether some, but not all, steps failed.
func (r CascadeResult) PartialFailure() bool {
	n := len(r.Failed())
	return n > 0 && n < len(r.Steps)
}

// Err returns nil when every step completed, and a core.PartialError
// detailing the failed steps otherwise.
func (r CascadeResult) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, s := range failed {
		errs = append(errs, fmt.Errorf("delete %s: %w", s, s.Err))
	}
	return core.NewPartialError("cascade delete", errs...)
}
