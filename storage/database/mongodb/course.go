package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deloai/campus/core/course"
)

var _ course.Repository = (*DB)(nil)

func (db *DB) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = primitive.NewObjectID()
	if _, err := db.coll(collCourses).InsertOne(ctx, c); err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return c, nil
}

func (db *DB) GetCourse(ctx context.Context, id primitive.ObjectID) (course.Course, error) {
	var c course.Course
	err := db.coll(collCourses).FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return course.Course{}, course.ErrNotFound
	}
	return c, errors.Wrap(err, "getting course")
}

func (db *DB) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	cur, err := db.coll(collCourses).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	cs := []course.Course{}
	if err = cur.All(ctx, &cs); err != nil {
		return nil, errors.Wrap(err, "decoding courses")
	}
	return cs, nil
}

func (db *DB) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	res, err := db.coll(collCourses).ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if res.MatchedCount == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (db *DB) DeleteCourse(ctx context.Context, id primitive.ObjectID) error {
	return db.deleteOne(ctx, collCourses, id, course.ErrNotFound)
}

func (db *DB) CreateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	ch.ID = primitive.NewObjectID()
	if _, err := db.coll(collChapters).InsertOne(ctx, ch); err != nil {
		return course.Chapter{}, errors.Wrap(err, "creating chapter")
	}
	return ch, nil
}

func (db *DB) GetChapter(ctx context.Context, id primitive.ObjectID) (course.Chapter, error) {
	var ch course.Chapter
	err := db.coll(collChapters).FindOne(ctx, bson.M{"_id": id}).Decode(&ch)
	if err == mongo.ErrNoDocuments {
		return course.Chapter{}, course.ErrNotFound
	}
	return ch, errors.Wrap(err, "getting chapter")
}

func (db *DB) DeleteChapter(ctx context.Context, id primitive.ObjectID) error {
	return db.deleteOne(ctx, collChapters, id, course.ErrNotFound)
}

func (db *DB) AddChapterRef(ctx context.Context, courseID, chapterID primitive.ObjectID) error {
	return db.pushRef(ctx, collCourses, courseID, "chapters", chapterID, course.ErrNotFound)
}

func (db *DB) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	l.ID = primitive.NewObjectID()
	if _, err := db.coll(collLessons).InsertOne(ctx, l); err != nil {
		return course.Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return l, nil
}

func (db *DB) GetLesson(ctx context.Context, id primitive.ObjectID) (course.Lesson, error) {
	var l course.Lesson
	err := db.coll(collLessons).FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return course.Lesson{}, course.ErrNotFound
	}
	return l, errors.Wrap(err, "getting lesson")
}

func (db *DB) DeleteLesson(ctx context.Context, id primitive.ObjectID) error {
	return db.deleteOne(ctx, collLessons, id, course.ErrNotFound)
}

func (db *DB) AddLessonRef(ctx context.Context, chapterID, lessonID primitive.ObjectID) error {
	return db.pushRef(ctx, collChapters, chapterID, "lessons", lessonID, course.ErrNotFound)
}

func (db *DB) CreateUnit(ctx context.Context, u course.Unit) (course.Unit, error) {
	u.ID = primitive.NewObjectID()
	if _, err := db.coll(collUnits).InsertOne(ctx, u); err != nil {
		return course.Unit{}, errors.Wrap(err, "creating unit")
	}
	return u, nil
}

func (db *DB) GetUnit(ctx context.Context, id primitive.ObjectID) (course.Unit, error) {
	var u course.Unit
	err := db.coll(collUnits).FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return course.Unit{}, course.ErrNotFound
	}
	return u, errors.Wrap(err, "getting unit")
}

func (db *DB) DeleteUnit(ctx context.Context, id primitive.ObjectID) error {
	return db.deleteOne(ctx, collUnits, id, course.ErrNotFound)
}

func (db *DB) AddUnitRef(ctx context.Context, lessonID, unitID primitive.ObjectID) error {
	return db.pushRef(ctx, collLessons, lessonID, "units", unitID, course.ErrNotFound)
}

func (db *DB) CreateMCQ(ctx context.Context, m course.MCQ) (course.MCQ, error) {
	m.ID = primitive.NewObjectID()
	if _, err := db.coll(collMCQs).InsertOne(ctx, m); err != nil {
		return course.MCQ{}, errors.Wrap(err, "creating mcq")
	}
	return m, nil
}

func (db *DB) GetMCQ(ctx context.Context, id primitive.ObjectID) (course.MCQ, error) {
	var m course.MCQ
	err := db.coll(collMCQs).FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return course.MCQ{}, course.ErrQuestionNotFound
	}
	return m, errors.Wrap(err, "getting mcq")
}

func (db *DB) UpdateMCQ(ctx context.Context, m course.MCQ) (course.MCQ, error) {
	res, err := db.coll(collMCQs).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return course.MCQ{}, errors.Wrap(err, "updating mcq")
	}
	if res.MatchedCount == 0 {
		return course.MCQ{}, course.ErrQuestionNotFound
	}
	return m, nil
}

func (db *DB) DeleteMCQ(ctx context.Context, id primitive.ObjectID) error {
	return db.deleteOne(ctx, collMCQs, id, course.ErrQuestionNotFound)
}

func (db *DB) QueryAllMCQs(ctx context.Context) ([]course.MCQ, error) {
	cur, err := db.coll(collMCQs).Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "querying mcqs")
	}
	ms := []course.MCQ{}
	if err = cur.All(ctx, &ms); err != nil {
		return nil, errors.Wrap(err, "decoding mcqs")
	}
	return ms, nil
}

func (db *DB) CreateRearrange(ctx context.Context, r course.Rearrange) (course.Rearrange, error) {
	r.ID = primitive.NewObjectID()
	if _, err := db.coll(collRearranges).InsertOne(ctx, r); err != nil {
		return course.Rearrange{}, errors.Wrap(err, "creating rearrange")
	}
	return r, nil
}

func (db *DB) GetRearrange(ctx context.Context, id primitive.ObjectID) (course.Rearrange, error) {
	var r course.Rearrange
	err := db.coll(collRearranges).FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return course.Rearrange{}, course.ErrQuestionNotFound
	}
	return r, errors.Wrap(err, "getting rearrange")
}

func (db *DB) UpdateRearrange(ctx context.Context, r course.Rearrange) (course.Rearrange, error) {
	res, err := db.coll(collRearranges).ReplaceOne(ctx, bson.M{"_id": r.ID}, r)
	if err != nil {
		return course.Rearrange{}, errors.Wrap(err, "updating rearrange")
	}
	if res.MatchedCount == 0 {
		return course.Rearrange{}, course.ErrQuestionNotFound
	}
	return r, nil
}

func (db *DB) DeleteRearrange(ctx context.Context, id primitive.ObjectID) error {
	return db.deleteOne(ctx, collRearranges, id, course.ErrQuestionNotFound)
}

func (db *DB) CreateCodingQuestion(ctx context.Context, q course.CodingQuestion) (course.CodingQuestion, error) {
	q.ID = primitive.NewObjectID()
	if _, err := db.coll(collCodings).InsertOne(ctx, q); err != nil {
		return course.CodingQuestion{}, errors.Wrap(err, "creating coding question")
	}
	return q, nil
}

func (db *DB) GetCodingQuestion(ctx context.Context, id primitive.ObjectID) (course.CodingQuestion, error) {
	var q course.CodingQuestion
	err := db.coll(collCodings).FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if err == mongo.ErrNoDocuments {
		return course.CodingQuestion{}, course.ErrQuestionNotFound
	}
	return q, errors.Wrap(err, "getting coding question")
}

func (db *DB) UpdateCodingQuestion(ctx context.Context, q course.CodingQuestion) (course.CodingQuestion, error) {
	res, err := db.coll(collCodings).ReplaceOne(ctx, bson.M{"_id": q.ID}, q)
	if err != nil {
		return course.CodingQuestion{}, errors.Wrap(err, "updating coding question")
	}
	if res.MatchedCount == 0 {
		return course.CodingQuestion{}, course.ErrQuestionNotFound
	}
	return q, nil
}

func (db *DB) DeleteCodingQuestion(ctx context.Context, id primitive.ObjectID) error {
	return db.deleteOne(ctx, collCodings, id, course.ErrQuestionNotFound)
}

func (db *DB) CreateTestCaseGroup(ctx context.Context, g course.TestCaseGroup) (course.TestCaseGroup, error) {
	g.ID = primitive.NewObjectID()
	if _, err := db.coll(collGroups).InsertOne(ctx, g); err != nil {
		return course.TestCaseGroup{}, errors.Wrap(err, "creating testcase group")
	}
	return g, nil
}

func (db *DB) GetTestCaseGroupsByID(ctx context.Context, ids []primitive.ObjectID) ([]course.TestCaseGroup, error) {
	if len(ids) == 0 {
		return []course.TestCaseGroup{}, nil
	}
	cur, err := db.coll(collGroups).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "querying testcase groups")
	}
	gs := []course.TestCaseGroup{}
	if err = cur.All(ctx, &gs); err != nil {
		return nil, errors.Wrap(err, "decoding testcase groups")
	}
	return gs, nil
}

func (db *DB) AddGroupRef(ctx context.Context, questionID, groupID primitive.ObjectID) error {
	return db.pushRef(ctx, collCodings, questionID, "testcase_groups", groupID, course.ErrQuestionNotFound)
}

func (db *DB) DeleteTestCaseGroupsByID(ctx context.Context, ids ...primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.coll(collGroups).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return errors.Wrap(err, "deleting testcase groups")
}

func (db *DB) CreateTestCase(ctx context.Context, tc course.TestCase) (course.TestCase, error) {
	tc.ID = primitive.NewObjectID()
	if _, err := db.coll(collCases).InsertOne(ctx, tc); err != nil {
		return course.TestCase{}, errors.Wrap(err, "creating testcase")
	}
	return tc, nil
}

func (db *DB) GetTestCase(ctx context.Context, id primitive.ObjectID) (course.TestCase, error) {
	var tc course.TestCase
	err := db.coll(collCases).FindOne(ctx, bson.M{"_id": id}).Decode(&tc)
	if err == mongo.ErrNoDocuments {
		return course.TestCase{}, course.ErrNotFound
	}
	return tc, errors.Wrap(err, "getting testcase")
}

func (db *DB) AddCaseRef(ctx context.Context, groupID, caseID primitive.ObjectID) error {
	return db.pushRef(ctx, collGroups, groupID, "cases", caseID, course.ErrNotFound)
}

func (db *DB) DeleteTestCasesByID(ctx context.Context, ids ...primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.coll(collCases).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return errors.Wrap(err, "deleting testcases")
}

func (db *DB) PullCaseRefs(ctx context.Context, caseID primitive.ObjectID) error {
	_, err := db.coll(collGroups).UpdateMany(ctx,
		bson.M{"cases": caseID},
		bson.M{"$pull": bson.M{"cases": caseID}},
	)
	return errors.Wrap(err, "pulling case refs")
}

// DeleteQuestionTree removes the cases, groups and question in one
// multi-document transaction. Requires a replica set deployment.
func (db *DB) DeleteQuestionTree(ctx context.Context, questionID primitive.ObjectID, groupIDs, caseIDs []primitive.ObjectID) error {
	session, err := db.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if len(caseIDs) > 0 {
			if _, err := db.coll(collCases).DeleteMany(sc, bson.M{"_id": bson.M{"$in": caseIDs}}); err != nil {
				return nil, errors.Wrap(err, "deleting testcases")
			}
		}
		if len(groupIDs) > 0 {
			if _, err := db.coll(collGroups).DeleteMany(sc, bson.M{"_id": bson.M{"$in": groupIDs}}); err != nil {
				return nil, errors.Wrap(err, "deleting testcase groups")
			}
		}
		res, err := db.coll(collCodings).DeleteOne(sc, bson.M{"_id": questionID})
		if err != nil {
			return nil, errors.Wrap(err, "deleting coding question")
		}
		if res.DeletedCount == 0 {
			return nil, course.ErrQuestionNotFound
		}
		return nil, nil
	})
	return err
}

func (db *DB) GetConfig(ctx context.Context, kind course.ConfigKind) (course.QuestionConfig, error) {
	var cfg course.QuestionConfig
	err := db.coll(collConfigs).FindOne(ctx, bson.M{"kind": kind}).Decode(&cfg)
	if err == mongo.ErrNoDocuments {
		return course.QuestionConfig{}, course.ErrConfigNotFound
	}
	return cfg, errors.Wrap(err, "getting question config")
}

// AddConfigValues unions the values into the kind's singleton config in one
// upsert, so concurrent saves cannot lose values or create duplicates.
func (db *DB) AddConfigValues(ctx context.Context, kind course.ConfigKind, values course.ConfigValues) error {
	addToSet := bson.M{}
	if len(values.DifficultyLevels) > 0 {
		addToSet["difficulty_levels"] = bson.M{"$each": values.DifficultyLevels}
	}
	if len(values.Topics) > 0 {
		addToSet["topics"] = bson.M{"$each": values.Topics}
	}
	if len(values.Subtopics) > 0 {
		addToSet["subtopics"] = bson.M{"$each": values.Subtopics}
	}
	if len(values.Tags) > 0 {
		addToSet["tags"] = bson.M{"$each": values.Tags}
	}
	if len(addToSet) == 0 {
		return nil
	}
	_, err := db.coll(collConfigs).UpdateOne(ctx,
		bson.M{"kind": kind},
		bson.M{"$addToSet": addToSet},
		options.Update().SetUpsert(true),
	)
	return errors.Wrap(err, "adding config values")
}

func (db *DB) deleteOne(ctx context.Context, coll string, id primitive.ObjectID, notFound error) error {
	res, err := db.coll(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", coll)
	}
	if res.DeletedCount == 0 {
		return notFound
	}
	return nil
}

func (db *DB) pushRef(ctx context.Context, coll string, parentID primitive.ObjectID, field string, childID primitive.ObjectID, notFound error) error {
	res, err := db.coll(coll).UpdateOne(ctx,
		bson.M{"_id": parentID},
		bson.M{"$push": bson.M{field: childID}},
	)
	if err != nil {
		return errors.Wrapf(err, "pushing %s ref", field)
	}
	if res.MatchedCount == 0 {
		return notFound
	}
	return nil
}
