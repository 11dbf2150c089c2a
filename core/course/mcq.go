package course

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
)

type Option struct {
	OptionID string `json:"option_id" bson:"option_id"`
	Value    string `json:"value" bson:"value"`
}

func NewOption(value string) Option {
	return Option{OptionID: uuid.NewString(), Value: value}
}

type MCQ struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title        string             `json:"title" bson:"title"`
	QuestionText string             `json:"question_text" bson:"question_text"`

	Options        []Option `json:"options" bson:"options"`
	CorrectOptions []string `json:"correct_options" bson:"correct_options"` // option_ids
	IsMultiple     bool     `json:"is_multiple" bson:"is_multiple"`

	Marks         float64 `json:"marks" bson:"marks"`
	NegativeMarks float64 `json:"negative_marks" bson:"negative_marks"`

	DifficultyLevel string `json:"difficulty_level" bson:"difficulty_level"`

	Explanation string   `json:"explanation,omitempty" bson:"explanation,omitempty"`
	Tags        []string `json:"tags" bson:"tags"`
	TimeLimit   int      `json:"time_limit,omitempty" bson:"time_limit,omitempty"` // seconds

	Topic     string    `json:"topic" bson:"topic"`
	Subtopic  string    `json:"subtopic,omitempty" bson:"subtopic,omitempty"`
	CreatedBy CreatedBy `json:"created_by" bson:"created_by"`
}

// Validate enforces the structural invariants before the MCQ may be saved.
func (m *MCQ) Validate() error {
	m.Title = core.CleanString(m.Title)
	m.Topic = core.CleanString(m.Topic)

	var flds []core.FieldError
	if m.Title == "" {
		flds = append(flds, core.FieldError{Field: "title", Error: "this field is required"})
	}
	if core.CleanString(m.QuestionText) == "" {
		flds = append(flds, core.FieldError{Field: "question_text", Error: "this field is required"})
	}
	if m.Topic == "" {
		flds = append(flds, core.FieldError{Field: "topic", Error: "this field is required"})
	}
	if !validDifficulty(m.DifficultyLevel) {
		flds = append(flds, core.FieldError{Field: "difficulty_level", Error: "must be one of Easy, Medium, Hard"})
	}
	if m.Marks < 0 {
		flds = append(flds, core.FieldError{Field: "marks", Error: "must not be negative"})
	}
	if m.NegativeMarks < 0 {
		flds = append(flds, core.FieldError{Field: "negative_marks", Error: "must not be negative"})
	}
	if len(m.Options) == 0 {
		flds = append(flds, core.FieldError{Field: "options", Error: "at least one option is required"})
	}
	if len(m.CorrectOptions) == 0 {
		flds = append(flds, core.FieldError{Field: "correct_options", Error: "at least one correct option is required"})
	}
	if flds != nil {
		return core.NewValidationError(errors.New("invalid mcq"), flds...)
	}

	optionIDs := make(map[string]bool, len(m.Options))
	for _, opt := range m.Options {
		optionIDs[opt.OptionID] = true
	}
	for _, id := range m.CorrectOptions {
		if !optionIDs[id] {
			return core.NewValidationError(fmt.Errorf("correct option %q is not one of the options", id),
				core.FieldError{Field: "correct_options", Error: "unknown option id"})
		}
	}
	if !m.IsMultiple && len(m.CorrectOptions) > 1 {
		return core.NewValidationError(errors.New("multiple correct options not allowed unless is_multiple is set"),
			core.FieldError{Field: "correct_options", Error: "multiple correct options require is_multiple"})
	}
	return nil
}

func (m *MCQ) configValues() ConfigValues {
	return ConfigValues{
		DifficultyLevels: nonEmpty(m.DifficultyLevel),
		Topics:           nonEmpty(m.Topic),
		Subtopics:        nonEmpty(m.Subtopic),
		Tags:             m.Tags,
	}
}
