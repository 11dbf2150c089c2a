package course

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
)

// UnitType discriminates the payload a Unit carries.
type UnitType string

const (
	UnitText      UnitType = "text"
	UnitMCQ       UnitType = "mcq"
	UnitRearrange UnitType = "rearrange"
	UnitCoding    UnitType = "coding"
)

type TextUnit struct {
	Content string `json:"content" bson:"content"`
}

// Unit is a tagged union: Type decides which of the payload fields is set,
// and exactly that one must be populated. A question payload is owned by its
// unit and is never shared with another unit.
type Unit struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name string             `json:"name" bson:"name"`
	Type UnitType           `json:"unit_type" bson:"unit_type"`

	Text      *TextUnit          `json:"text,omitempty" bson:"text,omitempty"`
	MCQ       primitive.ObjectID `json:"mcq,omitempty" bson:"mcq,omitempty"`
	Rearrange primitive.ObjectID `json:"rearrange,omitempty" bson:"rearrange,omitempty"`
	Coding    primitive.ObjectID `json:"coding,omitempty" bson:"coding,omitempty"`
}

func NewTextUnit(name, content string) Unit {
	return Unit{Name: name, Type: UnitText, Text: &TextUnit{Content: content}}
}

func NewMCQUnit(name string, mcqID primitive.ObjectID) Unit {
	return Unit{Name: name, Type: UnitMCQ, MCQ: mcqID}
}

func NewRearrangeUnit(name string, rearrangeID primitive.ObjectID) Unit {
	return Unit{Name: name, Type: UnitRearrange, Rearrange: rearrangeID}
}

func NewCodingUnit(name string, questionID primitive.ObjectID) Unit {
	return Unit{Name: name, Type: UnitCoding, Coding: questionID}
}

// PayloadRef returns the referenced question document, if the unit carries one.
func (u Unit) PayloadRef() (UnitType, primitive.ObjectID, bool) {
	switch u.Type {
	case UnitMCQ:
		return UnitMCQ, u.MCQ, !u.MCQ.IsZero()
	case UnitRearrange:
		return UnitRearrange, u.Rearrange, !u.Rearrange.IsZero()
	case UnitCoding:
		return UnitCoding, u.Coding, !u.Coding.IsZero()
	}
	return u.Type, primitive.NilObjectID, false
}

func (u *Unit) Validate() error {
	if core.CleanString(u.Name) == "" {
		return core.NewValidationError(errors.New("unit name is required"),
			core.FieldError{Field: "name", Error: "this field is required"})
	}
	var want string
	switch u.Type {
	case UnitText:
		if u.Text == nil || u.Text.Content == "" {
			want = "text content"
		}
	case UnitMCQ:
		if u.MCQ.IsZero() {
			want = "mcq reference"
		}
	case UnitRearrange:
		if u.Rearrange.IsZero() {
			want = "rearrange reference"
		}
	case UnitCoding:
		if u.Coding.IsZero() {
			want = "coding reference"
		}
	default:
		return core.NewValidationError(fmt.Errorf("unknown unit type %q", u.Type),
			core.FieldError{Field: "unit_type", Error: "must be one of text, mcq, rearrange, coding"})
	}
	if want != "" {
		return core.NewValidationError(fmt.Errorf("unit of type %q is missing its %s", u.Type, want),
			core.FieldError{Field: string(u.Type), Error: "payload matching unit_type is required"})
	}
	// only the payload matching the type may be populated
	if (u.Type != UnitText && u.Text != nil) ||
		(u.Type != UnitMCQ && !u.MCQ.IsZero()) ||
		(u.Type != UnitRearrange && !u.Rearrange.IsZero()) ||
		(u.Type != UnitCoding && !u.Coding.IsZero()) {
		return core.NewValidationError(fmt.Errorf("unit of type %q carries a foreign payload", u.Type),
			core.FieldError{Field: "unit_type", Error: "only the payload matching unit_type may be set"})
	}
	return nil
}

type Lesson struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name        string               `json:"name" bson:"name"`
	Tagline     string               `json:"tagline,omitempty" bson:"tagline,omitempty"`
	Description string               `json:"description,omitempty" bson:"description,omitempty"`
	Units       []primitive.ObjectID `json:"units" bson:"units"`
}

type Chapter struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name        string               `json:"name" bson:"name"`
	Tagline     string               `json:"tagline,omitempty" bson:"tagline,omitempty"`
	Description string               `json:"description,omitempty" bson:"description,omitempty"`
	Lessons     []primitive.ObjectID `json:"lessons" bson:"lessons"`
}

type Course struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name         string               `json:"name" bson:"name"`
	Tagline      string               `json:"tagline,omitempty" bson:"tagline,omitempty"`
	Description  string               `json:"description,omitempty" bson:"description,omitempty"`
	ThumbnailURL string               `json:"thumbnail_url,omitempty" bson:"thumbnail_url,omitempty"`
	Chapters     []primitive.ObjectID `json:"chapters" bson:"chapters"`
}

// CreatedBy stamps a document with the principal that created it.
type CreatedBy struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

func SystemCreatedBy() CreatedBy {
	return CreatedBy{ID: "system", Name: "System"}
}

// Difficulty levels shared by MCQ and Rearrange questions.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

func validDifficulty(level string) bool {
	switch level {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
