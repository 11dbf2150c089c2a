package course

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
)

// Item is a single segment of a rearrange question.
type Item struct {
	ItemID string `json:"item_id" bson:"item_id"`
	Value  string `json:"value" bson:"value"`
}

func NewItem(value string) Item {
	return Item{ItemID: uuid.NewString(), Value: value}
}

// Rearrange is a "put these items in the correct order" question.
type Rearrange struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title  string             `json:"title" bson:"title"`
	Prompt string             `json:"prompt" bson:"prompt"`

	Items []Item `json:"items" bson:"items"`
	// CorrectOrder lists item_ids in the intended sequence; it must be a
	// permutation of the item ids.
	CorrectOrder []string `json:"correct_order" bson:"correct_order"`

	IsDragAndDrop bool `json:"is_drag_and_drop" bson:"is_drag_and_drop"`

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

// Validate enforces the permutation invariant before the question may be saved.
func (r *Rearrange) Validate() error {
	r.Title = core.CleanString(r.Title)
	r.Topic = core.CleanString(r.Topic)

	var flds []core.FieldError
	if r.Title == "" {
		flds = append(flds, core.FieldError{Field: "title", Error: "this field is required"})
	}
	if core.CleanString(r.Prompt) == "" {
		flds = append(flds, core.FieldError{Field: "prompt", Error: "this field is required"})
	}
	if r.Topic == "" {
		flds = append(flds, core.FieldError{Field: "topic", Error: "this field is required"})
	}
	if !validDifficulty(r.DifficultyLevel) {
		flds = append(flds, core.FieldError{Field: "difficulty_level", Error: "must be one of Easy, Medium, Hard"})
	}
	if len(r.Items) == 0 {
		flds = append(flds, core.FieldError{Field: "items", Error: "at least one item is required"})
	}
	if flds != nil {
		return core.NewValidationError(errors.New("invalid rearrange question"), flds...)
	}

	if len(r.CorrectOrder) != len(r.Items) {
		return core.NewValidationError(errors.New("correct_order must contain the same number of ids as items"),
			core.FieldError{Field: "correct_order", Error: "length must match items"})
	}
	itemIDs := make(map[string]bool, len(r.Items))
	for _, it := range r.Items {
		itemIDs[it.ItemID] = true
	}
	seen := make(map[string]bool, len(r.CorrectOrder))
	for _, id := range r.CorrectOrder {
		if !itemIDs[id] {
			return core.NewValidationError(fmt.Errorf("correct_order references unknown item id %q", id),
				core.FieldError{Field: "correct_order", Error: "must be a permutation of item ids"})
		}
		if seen[id] {
			return core.NewValidationError(fmt.Errorf("correct_order contains duplicate item id %q", id),
				core.FieldError{Field: "correct_order", Error: "duplicate item id"})
		}
		seen[id] = true
	}
	return nil
}

func (r *Rearrange) configValues() ConfigValues {
	return ConfigValues{
		DifficultyLevels: nonEmpty(r.DifficultyLevel),
		Topics:           nonEmpty(r.Topic),
		Subtopics:        nonEmpty(r.Subtopic),
		Tags:             r.Tags,
	}
}
