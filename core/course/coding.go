package course

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
)

// TestCaseGroup visibility / scoring.
const (
	VisibilityPublic = "public"
	VisibilityHidden = "hidden"

	ScoringBinary  = "binary"
	ScoringPartial = "partial"
)

type AttemptPolicy struct {
	MaxAttemptsPerMinute  int `json:"max_attempts_per_minute" bson:"max_attempts_per_minute"`
	SubmissionCooldownSec int `json:"submission_cooldown_sec" bson:"submission_cooldown_sec"`
}

func DefaultAttemptPolicy() AttemptPolicy {
	return AttemptPolicy{MaxAttemptsPerMinute: 6, SubmissionCooldownSec: 2}
}

type SampleIO struct {
	InputText   string `json:"input_text" bson:"input_text"`
	Output      string `json:"output" bson:"output"`
	Explanation string `json:"explanation,omitempty" bson:"explanation,omitempty"`
}

// TestCase may be referenced by more than one TestCaseGroup. Deleting a case
// does not delete its groups; their references are pulled instead.
type TestCase struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	InputText      string             `json:"input_text" bson:"input_text"`
	ExpectedOutput string             `json:"expected_output" bson:"expected_output"`
	TimeLimitMS    int                `json:"time_limit_ms,omitempty" bson:"time_limit_ms,omitempty"`   // optional override
	MemoryLimitKB  int                `json:"memory_limit_kb,omitempty" bson:"memory_limit_kb,omitempty"` // optional override
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

type TestCaseGroup struct {
	ID              primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	QuestionID      primitive.ObjectID   `json:"question_id" bson:"question_id"` // denormalized parent link
	Name            string               `json:"name" bson:"name"`               // "basic", "edge", "performance"
	Weight          int                  `json:"weight" bson:"weight"`
	Visibility      string               `json:"visibility" bson:"visibility"`
	ScoringStrategy string               `json:"scoring_strategy" bson:"scoring_strategy"`
	Cases           []primitive.ObjectID `json:"cases" bson:"cases"`
	CreatedAt       time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at" bson:"updated_at"`
}

func (g *TestCaseGroup) Validate() error {
	var flds []core.FieldError
	if core.CleanString(g.Name) == "" {
		flds = append(flds, core.FieldError{Field: "name", Error: "this field is required"})
	}
	switch g.Visibility {
	case VisibilityPublic, VisibilityHidden:
	default:
		flds = append(flds, core.FieldError{Field: "visibility", Error: "must be public or hidden"})
	}
	switch g.ScoringStrategy {
	case ScoringBinary, ScoringPartial:
	default:
		flds = append(flds, core.FieldError{Field: "scoring_strategy", Error: "must be binary or partial"})
	}
	if flds != nil {
		return core.NewValidationError(errors.New("invalid testcase group"), flds...)
	}
	return nil
}

// CodingQuestion owns its testcase groups: deleting the question bulk-deletes
// the groups' cases, then the groups, then itself.
type CodingQuestion struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title    string             `json:"title" bson:"title"`
	Topic    string             `json:"topic,omitempty" bson:"topic,omitempty"`
	Subtopic string             `json:"subtopic,omitempty" bson:"subtopic,omitempty"`

	Tags                    []string `json:"tags" bson:"tags"`
	ShortDescription        string   `json:"short_description,omitempty" bson:"short_description,omitempty"`
	LongDescriptionMarkdown string   `json:"long_description_markdown,omitempty" bson:"long_description_markdown,omitempty"`
	Difficulty              string   `json:"difficulty" bson:"difficulty"` // easy, medium, hard
	Points                  int      `json:"points" bson:"points"`

	TimeLimitMS   int `json:"time_limit_ms" bson:"time_limit_ms"`
	MemoryLimitKB int `json:"memory_limit_kb" bson:"memory_limit_kb"`

	PredefinedBoilerplates map[string]string `json:"predefined_boilerplates,omitempty" bson:"predefined_boilerplates,omitempty"`
	SolutionCode           map[string]string `json:"solution_code,omitempty" bson:"solution_code,omitempty"`
	ShowSolution           bool              `json:"show_solution" bson:"show_solution"`
	RunCodeEnabled         bool              `json:"run_code_enabled" bson:"run_code_enabled"`
	SubmissionEnabled      bool              `json:"submission_enabled" bson:"submission_enabled"`
	ShowBoilerplates       bool              `json:"show_boilerplates" bson:"show_boilerplates"`

	TestCaseGroups []primitive.ObjectID `json:"testcase_groups" bson:"testcase_groups"`

	Published bool        `json:"published" bson:"published"`
	Version   int         `json:"version" bson:"version"`
	Authors   []CreatedBy `json:"authors" bson:"authors"`

	AttemptPolicy AttemptPolicy `json:"attempt_policy" bson:"attempt_policy"`
	SampleIO      []SampleIO    `json:"sample_io" bson:"sample_io"`

	AllowedLanguages []string `json:"allowed_languages" bson:"allowed_languages"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

var allowedLanguages = map[string]bool{
	"python": true, "cpp": true, "java": true, "javascript": true, "c": true,
}

func (q *CodingQuestion) Validate() error {
	q.Title = core.CleanString(q.Title)

	var flds []core.FieldError
	if q.Title == "" {
		flds = append(flds, core.FieldError{Field: "title", Error: "this field is required"})
	}
	switch q.Difficulty {
	case "easy", "medium", "hard":
	default:
		flds = append(flds, core.FieldError{Field: "difficulty", Error: "must be one of easy, medium, hard"})
	}
	if q.Points < 0 {
		flds = append(flds, core.FieldError{Field: "points", Error: "must not be negative"})
	}
	for _, lang := range q.AllowedLanguages {
		if !allowedLanguages[lang] {
			flds = append(flds, core.FieldError{Field: "allowed_languages", Error: "unsupported language: " + lang})
		}
	}
	if flds != nil {
		return core.NewValidationError(errors.New("invalid coding question"), flds...)
	}
	return nil
}
