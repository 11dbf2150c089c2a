package mongodb

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deloai/campus/core/student"
)

var _ student.Repository = (*DB)(nil)

func (db *DB) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.ID = primitive.NewObjectID()
	if _, err := db.coll(collStudents).InsertOne(ctx, st); err != nil {
		if isDup(err) {
			return student.Student{}, studentDupErr(err)
		}
		return student.Student{}, errors.Wrap(err, "creating student")
	}
	return st, nil
}

func (db *DB) GetStudentByID(ctx context.Context, id primitive.ObjectID) (student.Student, error) {
	var st student.Student
	err := db.coll(collStudents).FindOne(ctx, bson.M{"_id": id}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return student.Student{}, student.ErrNotFound
	}
	return st, errors.Wrap(err, "getting student")
}

func (db *DB) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	var st student.Student
	err := db.coll(collStudents).FindOne(ctx, bson.M{"email": email}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return student.Student{}, student.ErrNotFound
	}
	return st, errors.Wrap(err, "getting student by email")
}

func (db *DB) FindStudentByKey(ctx context.Context, collegeID primitive.ObjectID, key student.MatchKey, value string) (student.Student, error) {
	var st student.Student
	err := db.coll(collStudents).FindOne(ctx, bson.M{
		"college":   collegeID,
		string(key): value,
	}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return student.Student{}, student.ErrNotFound
	}
	return st, errors.Wrap(err, "finding student by key")
}

func (db *DB) QueryStudentsByCollege(ctx context.Context, collegeID primitive.ObjectID) ([]student.Student, error) {
	cur, err := db.coll(collStudents).Find(ctx,
		bson.M{"college": collegeID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	sts := []student.Student{}
	if err = cur.All(ctx, &sts); err != nil {
		return nil, errors.Wrap(err, "decoding students")
	}
	return sts, nil
}

func (db *DB) UpdateStudentFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	set := bson.M{}
	for key, val := range fields {
		set[key] = val
	}
	res, err := db.coll(collStudents).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if isDup(err) {
			return studentDupErr(err)
		}
		return errors.Wrap(err, "updating student fields")
	}
	if res.MatchedCount == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (db *DB) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	res, err := db.coll(collStudents).ReplaceOne(ctx, bson.M{"_id": st.ID}, st)
	if err != nil {
		if isDup(err) {
			return student.Student{}, studentDupErr(err)
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if res.MatchedCount == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return st, nil
}

func (db *DB) DeleteStudentsByID(ctx context.Context, ids ...primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.coll(collStudents).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return errors.Wrap(err, "deleting students")
}

// studentDupErr maps a duplicate key error to the sentinel of the violated
// index, inferred from the error message's index fields.
func studentDupErr(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "usn"):
		return student.ErrUSNExists
	case strings.Contains(msg, "enrollment_number"):
		return student.ErrEnrollmentExists
	default:
		return student.ErrEmailExists
	}
}
