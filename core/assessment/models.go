package assessment

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
	"github.com/deloai/campus/core/course"
)

// QuestionType discriminates the reference a SectionQuestion carries.
type QuestionType string

const (
	QuestionMCQ       QuestionType = "mcq"
	QuestionCoding    QuestionType = "coding"
	QuestionRearrange QuestionType = "rearrange"
)

// SectionQuestion is a tagged union embedded in a Section: Type decides
// which of the three references is set, and exactly that one must be.
type SectionQuestion struct {
	Type      QuestionType       `json:"question_type" bson:"question_type"`
	MCQ       primitive.ObjectID `json:"mcq_ref,omitempty" bson:"mcq_ref,omitempty"`
	Coding    primitive.ObjectID `json:"coding_ref,omitempty" bson:"coding_ref,omitempty"`
	Rearrange primitive.ObjectID `json:"rearrange_ref,omitempty" bson:"rearrange_ref,omitempty"`
}

func NewMCQQuestion(id primitive.ObjectID) SectionQuestion {
	return SectionQuestion{Type: QuestionMCQ, MCQ: id}
}

func NewCodingQuestion(id primitive.ObjectID) SectionQuestion {
	return SectionQuestion{Type: QuestionCoding, Coding: id}
}

func NewRearrangeQuestion(id primitive.ObjectID) SectionQuestion {
	return SectionQuestion{Type: QuestionRearrange, Rearrange: id}
}

func (sq SectionQuestion) Ref() primitive.ObjectID {
	switch sq.Type {
	case QuestionMCQ:
		return sq.MCQ
	case QuestionCoding:
		return sq.Coding
	case QuestionRearrange:
		return sq.Rearrange
	}
	return primitive.NilObjectID
}

func (sq SectionQuestion) Validate() error {
	switch sq.Type {
	case QuestionMCQ, QuestionCoding, QuestionRearrange:
	default:
		return core.NewValidationError(fmt.Errorf("unknown question type %q", sq.Type),
			core.FieldError{Field: "question_type", Error: "must be one of mcq, coding, rearrange"})
	}
	if sq.Ref().IsZero() {
		return core.NewValidationError(fmt.Errorf("question of type %q is missing its reference", sq.Type),
			core.FieldError{Field: string(sq.Type) + "_ref", Error: "reference matching question_type is required"})
	}
	if (sq.Type != QuestionMCQ && !sq.MCQ.IsZero()) ||
		(sq.Type != QuestionCoding && !sq.Coding.IsZero()) ||
		(sq.Type != QuestionRearrange && !sq.Rearrange.IsZero()) {
		return core.NewValidationError(fmt.Errorf("question of type %q carries a foreign reference", sq.Type),
			core.FieldError{Field: "question_type", Error: "only the reference matching question_type may be set"})
	}
	return nil
}

type Section struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Description    string             `json:"description" bson:"description"`
	Instructions   string             `json:"instructions" bson:"instructions"`
	TimeRestricted bool               `json:"time_restricted" bson:"time_restricted"`
	Questions      []SectionQuestion  `json:"questions" bson:"questions"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// NewSection contains the information needed to create a Section attached to
// a Test.
type NewSection struct {
	Name           string `json:"name" validate:"required,notblank"`
	Description    string `json:"description"`
	Instructions   string `json:"instructions"`
	TimeRestricted bool   `json:"time_restricted"`
}

func (ns *NewSection) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	return core.Validate.Struct(ns)
}

// UpdateSection defines what may be modified on an existing Section; nil
// pointers leave the field untouched.
type UpdateSection struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Instructions   *string `json:"instructions"`
	TimeRestricted *bool   `json:"time_restricted"`
}

func (us UpdateSection) IsEmpty() bool {
	return us.Name == nil && us.Description == nil && us.Instructions == nil && us.TimeRestricted == nil
}

// SectionList names one of the two reference lists on a Test.
type SectionList string

const (
	ListTimeRestricted SectionList = "sections_time_restricted"
	ListOpen           SectionList = "sections_open"
)

// ListFor returns the list a section belongs on given its flag.
func ListFor(timeRestricted bool) SectionList {
	if timeRestricted {
		return ListTimeRestricted
	}
	return ListOpen
}

// Test holds two disjoint section reference lists; a section appears in at
// most one of them at any time.
type Test struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"test_name" bson:"test_name"`
	Description  string             `json:"description,omitempty" bson:"description,omitempty"`
	StartTime    time.Time          `json:"start_datetime" bson:"start_datetime"`
	EndTime      time.Time          `json:"end_datetime" bson:"end_datetime"`
	Instructions string             `json:"instructions,omitempty" bson:"instructions,omitempty"`
	Tags         []string           `json:"tags" bson:"tags"`
	CreatedBy    course.CreatedBy   `json:"created_by" bson:"created_by"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`

	SectionsTimeRestricted []primitive.ObjectID `json:"sections_time_restricted" bson:"sections_time_restricted"`
	SectionsOpen           []primitive.ObjectID `json:"sections_open" bson:"sections_open"`
}

// UpdateTest defines what may be modified on an existing Test; nil pointers
// leave the field untouched.
type UpdateTest struct {
	Name         *string    `json:"test_name"`
	Description  *string    `json:"description"`
	StartTime    *time.Time `json:"start_datetime"`
	EndTime      *time.Time `json:"end_datetime"`
	Instructions *string    `json:"instructions"`
	Tags         *[]string  `json:"tags"`
}

func (ut UpdateTest) IsEmpty() bool {
	return ut.Name == nil && ut.Description == nil && ut.StartTime == nil &&
		ut.EndTime == nil && ut.Instructions == nil && ut.Tags == nil
}

// TestWindow selects tests by where their schedule sits relative to a
// reference time.
type TestWindow string

const (
	WindowPast     TestWindow = "past"
	WindowOngoing  TestWindow = "ongoing"
	WindowUpcoming TestWindow = "upcoming"
)

// InWindow reports whether the test falls in the window at the given time.
func (t Test) InWindow(w TestWindow, now time.Time) bool {
	switch w {
	case WindowPast:
		return t.EndTime.Before(now)
	case WindowOngoing:
		return !t.StartTime.After(now) && !t.EndTime.Before(now)
	case WindowUpcoming:
		return t.StartTime.After(now)
	}
	return false
}

func (t *Test) Validate() error {
	var flds []core.FieldError
	if core.CleanString(t.Name) == "" {
		flds = append(flds, core.FieldError{Field: "test_name", Error: "this field is required"})
	}
	if t.StartTime.IsZero() || t.EndTime.IsZero() {
		flds = append(flds, core.FieldError{Field: "start_datetime", Error: "start and end datetimes are required"})
	} else if !t.StartTime.Before(t.EndTime) {
		flds = append(flds, core.FieldError{Field: "start_datetime", Error: "must be earlier than end_datetime"})
	}
	if flds != nil {
		return core.NewValidationError(errors.New("invalid test"), flds...)
	}
	return nil
}
