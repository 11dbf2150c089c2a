package course

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUnitValidate(t *testing.T) {
	qID := primitive.NewObjectID()

	tests := []struct {
		name    string
		unit    Unit
		wantErr bool
	}{
		{name: "text unit", unit: NewTextUnit("Intro", "Welcome to the course")},
		{name: "mcq unit", unit: NewMCQUnit("Quiz", qID)},
		{name: "rearrange unit", unit: NewRearrangeUnit("Order", qID)},
		{name: "coding unit", unit: NewCodingUnit("Exercise", qID)},
		{name: "missing name", unit: Unit{Type: UnitText, Text: &TextUnit{Content: "x"}}, wantErr: true},
		{name: "unknown type", unit: Unit{Name: "u", Type: "video"}, wantErr: true},
		{name: "text without content", unit: Unit{Name: "u", Type: UnitText}, wantErr: true},
		{name: "mcq without reference", unit: Unit{Name: "u", Type: UnitMCQ}, wantErr: true},
		{
			name:    "text with foreign mcq payload",
			unit:    Unit{Name: "u", Type: UnitText, Text: &TextUnit{Content: "x"}, MCQ: qID},
			wantErr: true,
		},
		{
			name:    "mcq with foreign coding payload",
			unit:    Unit{Name: "u", Type: UnitMCQ, MCQ: qID, Coding: qID},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.unit.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMCQValidate(t *testing.T) {
	opts := []Option{NewOption("a"), NewOption("b"), NewOption("c")}

	base := func() MCQ {
		return MCQ{
			Title:           "Pick one",
			QuestionText:    "Which?",
			Options:         opts,
			CorrectOptions:  []string{opts[0].OptionID},
			DifficultyLevel: DifficultyEasy,
			Topic:           "go",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*MCQ)
		wantErr bool
	}{
		{name: "valid single answer", mutate: func(m *MCQ) {}},
		{
			name:   "valid multiple answers",
			mutate: func(m *MCQ) { m.IsMultiple = true; m.CorrectOptions = []string{opts[0].OptionID, opts[2].OptionID} },
		},
		{name: "missing title", mutate: func(m *MCQ) { m.Title = "  " }, wantErr: true},
		{name: "bad difficulty", mutate: func(m *MCQ) { m.DifficultyLevel = "extreme" }, wantErr: true},
		{name: "no options", mutate: func(m *MCQ) { m.Options = nil }, wantErr: true},
		{name: "no correct options", mutate: func(m *MCQ) { m.CorrectOptions = nil }, wantErr: true},
		{name: "unknown correct option", mutate: func(m *MCQ) { m.CorrectOptions = []string{"nope"} }, wantErr: true},
		{
			name:    "multiple answers without is_multiple",
			mutate:  func(m *MCQ) { m.CorrectOptions = []string{opts[0].OptionID, opts[1].OptionID} },
			wantErr: true,
		},
		{name: "negative marks", mutate: func(m *MCQ) { m.Marks = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base()
			tt.mutate(&m)
			if err := m.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRearrangeValidate(t *testing.T) {
	items := []Item{NewItem("first"), NewItem("second"), NewItem("third")}
	order := []string{items[1].ItemID, items[0].ItemID, items[2].ItemID}

	base := func() Rearrange {
		return Rearrange{
			Title:           "Sort",
			Prompt:          "Put in order",
			Items:           items,
			CorrectOrder:    order,
			DifficultyLevel: DifficultyMedium,
			Topic:           "go",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Rearrange)
		wantErr bool
	}{
		{name: "valid permutation", mutate: func(r *Rearrange) {}},
		{name: "order too short", mutate: func(r *Rearrange) { r.CorrectOrder = order[:2] }, wantErr: true},
		{
			name:    "order too long",
			mutate:  func(r *Rearrange) { r.CorrectOrder = append(append([]string{}, order...), items[0].ItemID) },
			wantErr: true,
		},
		{
			name:    "unknown item id",
			mutate:  func(r *Rearrange) { r.CorrectOrder = []string{order[0], order[1], "ghost"} },
			wantErr: true,
		},
		{
			name:    "duplicate item id",
			mutate:  func(r *Rearrange) { r.CorrectOrder = []string{order[0], order[0], order[2]} },
			wantErr: true,
		},
		{name: "no items", mutate: func(r *Rearrange) { r.Items = nil; r.CorrectOrder = nil }, wantErr: true},
		{name: "missing prompt", mutate: func(r *Rearrange) { r.Prompt = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			tt.mutate(&r)
			if err := r.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTestCaseGroupValidate(t *testing.T) {
	tests := []struct {
		name    string
		group   TestCaseGroup
		wantErr bool
	}{
		{name: "valid", group: TestCaseGroup{Name: "edge", Visibility: VisibilityHidden, ScoringStrategy: ScoringPartial}},
		{name: "missing name", group: TestCaseGroup{Visibility: VisibilityPublic, ScoringStrategy: ScoringBinary}, wantErr: true},
		{name: "bad visibility", group: TestCaseGroup{Name: "g", Visibility: "secret", ScoringStrategy: ScoringBinary}, wantErr: true},
		{name: "bad scoring", group: TestCaseGroup{Name: "g", Visibility: VisibilityPublic, ScoringStrategy: "avg"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.group.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
