package inmemdb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core/assessment"
)

var _ assessment.Repository = (*DB)(nil)

func (db *DB) CreateTest(ctx context.Context, t assessment.Test) (assessment.Test, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t.ID = ensureID(t.ID)
	db.tests[t.ID] = t
	return t, nil
}

func (db *DB) GetTest(ctx context.Context, id primitive.ObjectID) (assessment.Test, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tests[id]
	if !ok {
		return assessment.Test{}, assessment.ErrNotFound
	}
	return t, nil
}

func (db *DB) UpdateTest(ctx context.Context, t assessment.Test) (assessment.Test, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.tests[t.ID]; !ok {
		return assessment.Test{}, assessment.ErrNotFound
	}
	db.tests[t.ID] = t
	return t, nil
}

func (db *DB) QueryAllTests(ctx context.Context) ([]assessment.Test, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]assessment.Test, 0, len(db.tests))
	for _, t := range db.tests {
		out = append(out, t)
	}
	return out, nil
}

func (db *DB) QueryTestsByWindow(ctx context.Context, w assessment.TestWindow, now time.Time) ([]assessment.Test, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]assessment.Test, 0, len(db.tests))
	for _, t := range db.tests {
		if t.InWindow(w, now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (db *DB) DeleteTest(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.tests[id]; !ok {
		return assessment.ErrNotFound
	}
	delete(db.tests, id)
	return nil
}

func (db *DB) CreateSection(ctx context.Context, s assessment.Section) (assessment.Section, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	s.ID = ensureID(s.ID)
	db.sections[s.ID] = s
	return s, nil
}

func (db *DB) GetSection(ctx context.Context, id primitive.ObjectID) (assessment.Section, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, ok := db.sections[id]
	if !ok {
		return assessment.Section{}, assessment.ErrSectionNotFound
	}
	return s, nil
}

func (db *DB) UpdateSection(ctx context.Context, s assessment.Section) (assessment.Section, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.sections[s.ID]; !ok {
		return assessment.Section{}, assessment.ErrSectionNotFound
	}
	db.sections[s.ID] = s
	return s, nil
}

func (db *DB) DeleteSection(ctx context.Context, id primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.sections[id]; !ok {
		return assessment.ErrSectionNotFound
	}
	delete(db.sections, id)
	return nil
}

func (db *DB) GetSectionsByID(ctx context.Context, ids []primitive.ObjectID) ([]assessment.Section, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]assessment.Section, 0, len(ids))
	for _, id := range ids {
		if s, ok := db.sections[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (db *DB) AddSectionQuestion(ctx context.Context, sectionID primitive.ObjectID, q assessment.SectionQuestion) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.sections[sectionID]
	if !ok {
		return assessment.ErrSectionNotFound
	}
	s.Questions = append(append([]assessment.SectionQuestion{}, s.Questions...), q)
	db.sections[sectionID] = s
	return nil
}

func (db *DB) PushSectionRef(ctx context.Context, testID, sectionID primitive.ObjectID, list assessment.SectionList) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tests[testID]
	if !ok {
		return assessment.ErrNotFound
	}
	if err := pushToList(&t, sectionID, list); err != nil {
		return err
	}
	db.tests[testID] = t
	return nil
}

// MoveSectionRef performs the pull and the push on the same test under one
// lock, matching the single-document atomic update of the mongo store.
func (db *DB) MoveSectionRef(ctx context.Context, testID, sectionID primitive.ObjectID, from, to assessment.SectionList) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tests[testID]
	if !ok {
		return assessment.ErrNotFound
	}
	switch from {
	case assessment.ListTimeRestricted:
		t.SectionsTimeRestricted = pullID(copyIDs(t.SectionsTimeRestricted), sectionID)
	case assessment.ListOpen:
		t.SectionsOpen = pullID(copyIDs(t.SectionsOpen), sectionID)
	default:
		return fmt.Errorf("unknown section list %q", from)
	}
	if err := pushToList(&t, sectionID, to); err != nil {
		return err
	}
	db.tests[testID] = t
	return nil
}

func (db *DB) PullSectionRefs(ctx context.Context, sectionID primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for id, t := range db.tests {
		changed := false
		if containsID(t.SectionsTimeRestricted, sectionID) {
			t.SectionsTimeRestricted = pullID(copyIDs(t.SectionsTimeRestricted), sectionID)
			changed = true
		}
		if containsID(t.SectionsOpen, sectionID) {
			t.SectionsOpen = pullID(copyIDs(t.SectionsOpen), sectionID)
			changed = true
		}
		if changed {
			db.tests[id] = t
		}
	}
	return nil
}

func (db *DB) FindTestIDsWithSection(ctx context.Context, sectionID primitive.ObjectID) ([]primitive.ObjectID, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []primitive.ObjectID
	for id, t := range db.tests {
		if containsID(t.SectionsTimeRestricted, sectionID) || containsID(t.SectionsOpen, sectionID) {
			out = append(out, id)
		}
	}
	return out, nil
}

func pushToList(t *assessment.Test, sectionID primitive.ObjectID, list assessment.SectionList) error {
	switch list {
	case assessment.ListTimeRestricted:
		if !containsID(t.SectionsTimeRestricted, sectionID) {
			t.SectionsTimeRestricted = append(copyIDs(t.SectionsTimeRestricted), sectionID)
		}
	case assessment.ListOpen:
		if !containsID(t.SectionsOpen, sectionID) {
			t.SectionsOpen = append(copyIDs(t.SectionsOpen), sectionID)
		}
	default:
		return fmt.Errorf("unknown section list %q", list)
	}
	return nil
}
