// Package inmemdb provides an in-memory implementation of the repositories,
// used by tests and local development without a running database.
package inmemdb

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core/assessment"
	"github.com/deloai/campus/core/college"
	"github.com/deloai/campus/core/course"
	"github.com/deloai/campus/core/student"
)

type DB struct {
	mu sync.RWMutex

	colleges     map[primitive.ObjectID]college.College
	admins       map[primitive.ObjectID]college.Admin
	tokenLogs    map[primitive.ObjectID]college.TokenLog
	tokenConfigs map[primitive.ObjectID]college.TokenConfig // by college id

	students map[primitive.ObjectID]student.Student

	courses    map[primitive.ObjectID]course.Course
	chapters   map[primitive.ObjectID]course.Chapter
	lessons    map[primitive.ObjectID]course.Lesson
	units      map[primitive.ObjectID]course.Unit
	mcqs       map[primitive.ObjectID]course.MCQ
	rearranges map[primitive.ObjectID]course.Rearrange
	codings    map[primitive.ObjectID]course.CodingQuestion
	groups     map[primitive.ObjectID]course.TestCaseGroup
	cases      map[primitive.ObjectID]course.TestCase
	configs    map[course.ConfigKind]course.QuestionConfig

	tests    map[primitive.ObjectID]assessment.Test
	sections map[primitive.ObjectID]assessment.Section
}

func New() *DB {
	return &DB{
		colleges:     make(map[primitive.ObjectID]college.College),
		admins:       make(map[primitive.ObjectID]college.Admin),
		tokenLogs:    make(map[primitive.ObjectID]college.TokenLog),
		tokenConfigs: make(map[primitive.ObjectID]college.TokenConfig),
		students:     make(map[primitive.ObjectID]student.Student),
		courses:      make(map[primitive.ObjectID]course.Course),
		chapters:     make(map[primitive.ObjectID]course.Chapter),
		lessons:      make(map[primitive.ObjectID]course.Lesson),
		units:        make(map[primitive.ObjectID]course.Unit),
		mcqs:         make(map[primitive.ObjectID]course.MCQ),
		rearranges:   make(map[primitive.ObjectID]course.Rearrange),
		codings:      make(map[primitive.ObjectID]course.CodingQuestion),
		groups:       make(map[primitive.ObjectID]course.TestCaseGroup),
		cases:        make(map[primitive.ObjectID]course.TestCase),
		configs:      make(map[course.ConfigKind]course.QuestionConfig),
		tests:        make(map[primitive.ObjectID]assessment.Test),
		sections:     make(map[primitive.ObjectID]assessment.Section),
	}
}

func ensureID(id primitive.ObjectID) primitive.ObjectID {
	if id.IsZero() {
		return primitive.NewObjectID()
	}
	return id
}

func copyIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	return append([]primitive.ObjectID{}, ids...)
}

func pullID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, cur := range ids {
		if cur != id {
			out = append(out, cur)
		}
	}
	return out
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, cur := range ids {
		if cur == id {
			return true
		}
	}
	return false
}
