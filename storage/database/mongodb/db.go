// Package mongodb implements the repositories on a MongoDB database.
package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/deloai/campus/core"
)

// Collection names.
const (
	collColleges     = "colleges"
	collAdmins       = "college_admins"
	collTokenLogs    = "token_logs"
	collTokenConfigs = "token_configs"
	collStudents     = "students"
	collCourses      = "courses"
	collChapters     = "chapters"
	collLessons      = "lessons"
	collUnits        = "units"
	collMCQs         = "mcq_questions"
	collRearranges   = "rearrange_questions"
	collCodings      = "coding_questions"
	collGroups       = "testcase_groups"
	collCases        = "testcases"
	collConfigs      = "question_configs"
	collTests        = "tests"
	collSections     = "test_sections"
)

type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to the database, waits for it to be ready and ensures the
// indexes exist.
func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.Database.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = ping(ctx, client); err != nil {
		return nil, err
	}

	db := &DB{client: client, db: client.Database(conf.Database.Name)}
	if err = db.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = client.Ping(ctx, readpref.Primary())
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *DB) coll(name string) *mongo.Collection {
	return db.db.Collection(name)
}

func (db *DB) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	sparseUnique := options.Index().SetUnique(true).SetSparse(true)

	indexes := map[string][]mongo.IndexModel{
		collColleges: {
			{Keys: bson.D{{Key: "college_id", Value: 1}}, Options: unique},
		},
		collAdmins: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		collStudents: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "college", Value: 1}, {Key: "usn", Value: 1}}, Options: sparseUnique},
			{Keys: bson.D{{Key: "college", Value: 1}, {Key: "enrollment_number", Value: 1}}, Options: sparseUnique},
			{Keys: bson.D{{Key: "college", Value: 1}}},
		},
		collTokenConfigs: {
			{Keys: bson.D{{Key: "college", Value: 1}}, Options: unique},
		},
		collConfigs: {
			{Keys: bson.D{{Key: "kind", Value: 1}}, Options: unique},
		},
		collGroups: {
			{Keys: bson.D{{Key: "question_id", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.coll(coll).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", coll)
		}
	}
	return nil
}

func isDup(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
