package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deloai/campus/core/assessment"
)

var _ assessment.Repository = (*DB)(nil)

func (db *DB) CreateTest(ctx context.Context, t assessment.Test) (assessment.Test, error) {
	t.ID = primitive.NewObjectID()
	if _, err := db.coll(collTests).InsertOne(ctx, t); err != nil {
		return assessment.Test{}, errors.Wrap(err, "creating test")
	}
	return t, nil
}

func (db *DB) GetTest(ctx context.Context, id primitive.ObjectID) (assessment.Test, error) {
	var t assessment.Test
	err := db.coll(collTests).FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return assessment.Test{}, assessment.ErrNotFound
	}
	return t, errors.Wrap(err, "getting test")
}

func (db *DB) UpdateTest(ctx context.Context, t assessment.Test) (assessment.Test, error) {
	res, err := db.coll(collTests).ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		return assessment.Test{}, errors.Wrap(err, "updating test")
	}
	if res.MatchedCount == 0 {
		return assessment.Test{}, assessment.ErrNotFound
	}
	return t, nil
}

func (db *DB) QueryAllTests(ctx context.Context) ([]assessment.Test, error) {
	cur, err := db.coll(collTests).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "start_datetime", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "querying tests")
	}
	ts := []assessment.Test{}
	if err = cur.All(ctx, &ts); err != nil {
		return nil, errors.Wrap(err, "decoding tests")
	}
	return ts, nil
}

func (db *DB) QueryTestsByWindow(ctx context.Context, w assessment.TestWindow, now time.Time) ([]assessment.Test, error) {
	var filter bson.M
	switch w {
	case assessment.WindowPast:
		filter = bson.M{"end_datetime": bson.M{"$lt": now}}
	case assessment.WindowOngoing:
		filter = bson.M{
			"start_datetime": bson.M{"$lte": now},
			"end_datetime":   bson.M{"$gte": now},
		}
	case assessment.WindowUpcoming:
		filter = bson.M{"start_datetime": bson.M{"$gt": now}}
	default:
		return nil, errors.Errorf("unknown test window %q", w)
	}

	cur, err := db.coll(collTests).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_datetime", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "querying tests by window")
	}
	ts := []assessment.Test{}
	if err = cur.All(ctx, &ts); err != nil {
		return nil, errors.Wrap(err, "decoding tests")
	}
	return ts, nil
}

func (db *DB) DeleteTest(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.coll(collTests).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting test")
	}
	if res.DeletedCount == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

func (db *DB) CreateSection(ctx context.Context, s assessment.Section) (assessment.Section, error) {
	s.ID = primitive.NewObjectID()
	if _, err := db.coll(collSections).InsertOne(ctx, s); err != nil {
		return assessment.Section{}, errors.Wrap(err, "creating section")
	}
	return s, nil
}

func (db *DB) GetSection(ctx context.Context, id primitive.ObjectID) (assessment.Section, error) {
	var s assessment.Section
	err := db.coll(collSections).FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return assessment.Section{}, assessment.ErrSectionNotFound
	}
	return s, errors.Wrap(err, "getting section")
}

func (db *DB) UpdateSection(ctx context.Context, s assessment.Section) (assessment.Section, error) {
	res, err := db.coll(collSections).ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	if err != nil {
		return assessment.Section{}, errors.Wrap(err, "updating section")
	}
	if res.MatchedCount == 0 {
		return assessment.Section{}, assessment.ErrSectionNotFound
	}
	return s, nil
}

func (db *DB) DeleteSection(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.coll(collSections).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting section")
	}
	if res.DeletedCount == 0 {
		return assessment.ErrSectionNotFound
	}
	return nil
}

func (db *DB) GetSectionsByID(ctx context.Context, ids []primitive.ObjectID) ([]assessment.Section, error) {
	if len(ids) == 0 {
		return []assessment.Section{}, nil
	}
	cur, err := db.coll(collSections).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	ss := []assessment.Section{}
	if err = cur.All(ctx, &ss); err != nil {
		return nil, errors.Wrap(err, "decoding sections")
	}
	return ss, nil
}

func (db *DB) AddSectionQuestion(ctx context.Context, sectionID primitive.ObjectID, q assessment.SectionQuestion) error {
	res, err := db.coll(collSections).UpdateOne(ctx,
		bson.M{"_id": sectionID},
		bson.M{"$push": bson.M{"questions": q}},
	)
	if err != nil {
		return errors.Wrap(err, "adding section question")
	}
	if res.MatchedCount == 0 {
		return assessment.ErrSectionNotFound
	}
	return nil
}

func (db *DB) PushSectionRef(ctx context.Context, testID, sectionID primitive.ObjectID, list assessment.SectionList) error {
	res, err := db.coll(collTests).UpdateOne(ctx,
		bson.M{"_id": testID},
		bson.M{"$addToSet": bson.M{string(list): sectionID}},
	)
	if err != nil {
		return errors.Wrap(err, "pushing section ref")
	}
	if res.MatchedCount == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

// MoveSectionRef performs the pull and the push in one single-document update
// command, so no intermediate state (the section on neither list) is ever
// visible or persisted.
func (db *DB) MoveSectionRef(ctx context.Context, testID, sectionID primitive.ObjectID, from, to assessment.SectionList) error {
	res, err := db.coll(collTests).UpdateOne(ctx,
		bson.M{"_id": testID},
		bson.M{
			"$pull":     bson.M{string(from): sectionID},
			"$addToSet": bson.M{string(to): sectionID},
		},
	)
	if err != nil {
		return errors.Wrap(err, "moving section ref")
	}
	if res.MatchedCount == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

func (db *DB) PullSectionRefs(ctx context.Context, sectionID primitive.ObjectID) error {
	_, err := db.coll(collTests).UpdateMany(ctx,
		bson.M{"$or": bson.A{
			bson.M{string(assessment.ListTimeRestricted): sectionID},
			bson.M{string(assessment.ListOpen): sectionID},
		}},
		bson.M{"$pull": bson.M{
			string(assessment.ListTimeRestricted): sectionID,
			string(assessment.ListOpen):           sectionID,
		}},
	)
	return errors.Wrap(err, "pulling section refs")
}

func (db *DB) FindTestIDsWithSection(ctx context.Context, sectionID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := db.coll(collTests).Find(ctx,
		bson.M{"$or": bson.A{
			bson.M{string(assessment.ListTimeRestricted): sectionID},
			bson.M{string(assessment.ListOpen): sectionID},
		}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "finding tests with section")
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding test ids")
	}
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
