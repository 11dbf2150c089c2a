package inmemdb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core/course"
)

var _ course.Repository = (*DB)(nil)

func (db *DB) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	c.ID = ensureID(c.ID)
	db.courses[c.ID] = c
	return c, nil
}

func (db *DB) GetCourse(ctx context.Context, id primitive.ObjectID) (course.Course, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (db *DB) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]course.Course, 0, len(db.courses))
	for _, c := range db.courses {
		out = append(out, c)
	}
	return out, nil
}

func (db *DB) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.courses[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	db.courses[c.ID] = c
	return c, nil
}

func (db *DB) DeleteCourse(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(db.courses, id)
	return nil
}

func (db *DB) CreateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	ch.ID = ensureID(ch.ID)
	db.chapters[ch.ID] = ch
	return ch, nil
}

func (db *DB) GetChapter(ctx context.Context, id primitive.ObjectID) (course.Chapter, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ch, ok := db.chapters[id]
	if !ok {
		return course.Chapter{}, course.ErrNotFound
	}
	return ch, nil
}

func (db *DB) DeleteChapter(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.chapters[id]; !ok {
		return course.ErrNotFound
	}
	delete(db.chapters, id)
	return nil
}

func (db *DB) AddChapterRef(ctx context.Context, courseID, chapterID primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	c.Chapters = append(copyIDs(c.Chapters), chapterID)
	db.courses[courseID] = c
	return nil
}

func (db *DB) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	l.ID = ensureID(l.ID)
	db.lessons[l.ID] = l
	return l, nil
}

func (db *DB) GetLesson(ctx context.Context, id primitive.ObjectID) (course.Lesson, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	l, ok := db.lessons[id]
	if !ok {
		return course.Lesson{}, course.ErrNotFound
	}
	return l, nil
}

func (db *DB) DeleteLesson(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.lessons[id]; !ok {
		return course.ErrNotFound
	}
	delete(db.lessons, id)
	return nil
}

func (db *DB) AddLessonRef(ctx context.Context, chapterID, lessonID primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	ch, ok := db.chapters[chapterID]
	if !ok {
		return course.ErrNotFound
	}
	ch.Lessons = append(copyIDs(ch.Lessons), lessonID)
	db.chapters[chapterID] = ch
	return nil
}

func (db *DB) CreateUnit(ctx context.Context, u course.Unit) (course.Unit, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u.ID = ensureID(u.ID)
	db.units[u.ID] = u
	return u, nil
}

func (db *DB) GetUnit(ctx context.Context, id primitive.ObjectID) (course.Unit, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.units[id]
	if !ok {
		return course.Unit{}, course.ErrNotFound
	}
	return u, nil
}

func (db *DB) DeleteUnit(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.units[id]; !ok {
		return course.ErrNotFound
	}
	delete(db.units, id)
	return nil
}

func (db *DB) AddUnitRef(ctx context.Context, lessonID, unitID primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	l, ok := db.lessons[lessonID]
	if !ok {
		return course.ErrNotFound
	}
	l.Units = append(copyIDs(l.Units), unitID)
	db.lessons[lessonID] = l
	return nil
}

func (db *DB) CreateMCQ(ctx context.Context, m course.MCQ) (course.MCQ, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	m.ID = ensureID(m.ID)
	db.mcqs[m.ID] = m
	return m, nil
}

func (db *DB) GetMCQ(ctx context.Context, id primitive.ObjectID) (course.MCQ, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.mcqs[id]
	if !ok {
		return course.MCQ{}, course.ErrQuestionNotFound
	}
	return m, nil
}

func (db *DB) UpdateMCQ(ctx context.Context, m course.MCQ) (course.MCQ, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.mcqs[m.ID]; !ok {
		return course.MCQ{}, course.ErrQuestionNotFound
	}
	db.mcqs[m.ID] = m
	return m, nil
}

func (db *DB) DeleteMCQ(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.mcqs[id]; !ok {
		return course.ErrQuestionNotFound
	}
	delete(db.mcqs, id)
	return nil
}

func (db *DB) QueryAllMCQs(ctx context.Context) ([]course.MCQ, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]course.MCQ, 0, len(db.mcqs))
	for _, m := range db.mcqs {
		out = append(out, m)
	}
	return out, nil
}

func (db *DB) CreateRearrange(ctx context.Context, r course.Rearrange) (course.Rearrange, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r.ID = ensureID(r.ID)
	db.rearranges[r.ID] = r
	return r, nil
}

func (db *DB) GetRearrange(ctx context.Context, id primitive.ObjectID) (course.Rearrange, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	r, ok := db.rearranges[id]
	if !ok {
		return course.Rearrange{}, course.ErrQuestionNotFound
	}
	return r, nil
}

func (db *DB) UpdateRearrange(ctx context.Context, r course.Rearrange) (course.Rearrange, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.rearranges[r.ID]; !ok {
		return course.Rearrange{}, course.ErrQuestionNotFound
	}
	db.rearranges[r.ID] = r
	return r, nil
}

func (db *DB) DeleteRearrange(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.rearranges[id]; !ok {
		return course.ErrQuestionNotFound
	}
	delete(db.rearranges, id)
	return nil
}

func (db *DB) CreateCodingQuestion(ctx context.Context, q course.CodingQuestion) (course.CodingQuestion, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	q.ID = ensureID(q.ID)
	db.codings[q.ID] = q
	return q, nil
}

func (db *DB) GetCodingQuestion(ctx context.Context, id primitive.ObjectID) (course.CodingQuestion, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	q, ok := db.codings[id]
	if !ok {
		return course.CodingQuestion{}, course.ErrQuestionNotFound
	}
	return q, nil
}

func (db *DB) UpdateCodingQuestion(ctx context.Context, q course.CodingQuestion) (course.CodingQuestion, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.codings[q.ID]; !ok {
		return course.CodingQuestion{}, course.ErrQuestionNotFound
	}
	db.codings[q.ID] = q
	return q, nil
}

func (db *DB) DeleteCodingQuestion(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.codings[id]; !ok {
		return course.ErrQuestionNotFound
	}
	delete(db.codings, id)
	return nil
}

func (db *DB) CreateTestCaseGroup(ctx context.Context, g course.TestCaseGroup) (course.TestCaseGroup, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	g.ID = ensureID(g.ID)
	db.groups[g.ID] = g
	return g, nil
}

func (db *DB) GetTestCaseGroupsByID(ctx context.Context, ids []primitive.ObjectID) ([]course.TestCaseGroup, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]course.TestCaseGroup, 0, len(ids))
	for _, id := range ids {
		if g, ok := db.groups[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (db *DB) AddGroupRef(ctx context.Context, questionID, groupID primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	q, ok := db.codings[questionID]
	if !ok {
		return course.ErrQuestionNotFound
	}
	q.TestCaseGroups = append(copyIDs(q.TestCaseGroups), groupID)
	db.codings[questionID] = q
	return nil
}

func (db *DB) DeleteTestCaseGroupsByID(ctx context.Context, ids ...primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, id := range ids {
		delete(db.groups, id)
	}
	return nil
}

func (db *DB) CreateTestCase(ctx context.Context, tc course.TestCase) (course.TestCase, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	tc.ID = ensureID(tc.ID)
	db.cases[tc.ID] = tc
	return tc, nil
}

func (db *DB) GetTestCase(ctx context.Context, id primitive.ObjectID) (course.TestCase, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	tc, ok := db.cases[id]
	if !ok {
		return course.TestCase{}, course.ErrNotFound
	}
	return tc, nil
}

func (db *DB) AddCaseRef(ctx context.Context, groupID, caseID primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	g, ok := db.groups[groupID]
	if !ok {
		return course.ErrNotFound
	}
	g.Cases = append(copyIDs(g.Cases), caseID)
	db.groups[groupID] = g
	return nil
}

func (db *DB) DeleteTestCasesByID(ctx context.Context, ids ...primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, id := range ids {
		delete(db.cases, id)
	}
	return nil
}

func (db *DB) PullCaseRefs(ctx context.Context, caseID primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for id, g := range db.groups {
		if containsID(g.Cases, caseID) {
			g.Cases = pullID(copyIDs(g.Cases), caseID)
			db.groups[id] = g
		}
	}
	return nil
}

// DeleteQuestionTree deletes the cases, groups and question under one lock,
// which makes the whole tree removal atomic for in-memory callers.
func (db *DB) DeleteQuestionTree(ctx context.Context, questionID primitive.ObjectID, groupIDs, caseIDs []primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.codings[questionID]; !ok {
		return course.ErrQuestionNotFound
	}
	for _, id := range caseIDs {
		delete(db.cases, id)
	}
	for _, id := range groupIDs {
		delete(db.groups, id)
	}
	delete(db.codings, questionID)
	return nil
}

func (db *DB) GetConfig(ctx context.Context, kind course.ConfigKind) (course.QuestionConfig, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	cfg, ok := db.configs[kind]
	if !ok {
		return course.QuestionConfig{}, course.ErrConfigNotFound
	}
	return cfg, nil
}

func (db *DB) AddConfigValues(ctx context.Context, kind course.ConfigKind, values course.ConfigValues) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cfg, ok := db.configs[kind]
	if !ok {
		cfg = course.QuestionConfig{ID: primitive.NewObjectID(), Kind: kind}
	}
	values.MergeInto(&cfg)
	db.configs[kind] = cfg
	return nil
}
