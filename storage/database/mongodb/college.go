package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deloai/campus/core/college"
)

var _ college.Repository = (*DB)(nil)

func (db *DB) CheckCodeUniqueness(ctx context.Context, code string) error {
	n, err := db.coll(collColleges).CountDocuments(ctx, bson.M{"college_id": code})
	if err != nil {
		return errors.Wrap(err, "checking college code uniqueness")
	}
	if n > 0 {
		return college.ErrCodeExists
	}
	return nil
}

func (db *DB) CreateCollege(ctx context.Context, col college.College) (college.College, error) {
	col.ID = primitive.NewObjectID()
	if _, err := db.coll(collColleges).InsertOne(ctx, col); err != nil {
		if isDup(err) {
			return college.College{}, college.ErrCodeExists
		}
		return college.College{}, errors.Wrap(err, "creating college")
	}
	return col, nil
}

func (db *DB) GetCollegeByID(ctx context.Context, id primitive.ObjectID) (college.College, error) {
	var col college.College
	err := db.coll(collColleges).FindOne(ctx, bson.M{"_id": id}).Decode(&col)
	if err == mongo.ErrNoDocuments {
		return college.College{}, college.ErrNotFound
	}
	return col, errors.Wrap(err, "getting college")
}

func (db *DB) GetCollegeByCode(ctx context.Context, code string) (college.College, error) {
	var col college.College
	err := db.coll(collColleges).FindOne(ctx, bson.M{"college_id": code}).Decode(&col)
	if err == mongo.ErrNoDocuments {
		return college.College{}, college.ErrNotFound
	}
	return col, errors.Wrap(err, "getting college by code")
}

func (db *DB) QueryAllColleges(ctx context.Context) ([]college.College, error) {
	cur, err := db.coll(collColleges).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "querying colleges")
	}
	cols := []college.College{}
	if err = cur.All(ctx, &cols); err != nil {
		return nil, errors.Wrap(err, "decoding colleges")
	}
	return cols, nil
}

func (db *DB) UpdateCollege(ctx context.Context, col college.College) (college.College, error) {
	res, err := db.coll(collColleges).ReplaceOne(ctx, bson.M{"_id": col.ID}, col)
	if err != nil {
		return college.College{}, errors.Wrap(err, "updating college")
	}
	if res.MatchedCount == 0 {
		return college.College{}, college.ErrNotFound
	}
	return col, nil
}

func (db *DB) CheckAdminEmailUniqueness(ctx context.Context, email string) error {
	n, err := db.coll(collAdmins).CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return errors.Wrap(err, "checking admin email uniqueness")
	}
	if n > 0 {
		return college.ErrEmailExists
	}
	return nil
}

func (db *DB) CreateAdmin(ctx context.Context, adm college.Admin) (college.Admin, error) {
	adm.ID = primitive.NewObjectID()
	if _, err := db.coll(collAdmins).InsertOne(ctx, adm); err != nil {
		if isDup(err) {
			return college.Admin{}, college.ErrEmailExists
		}
		return college.Admin{}, errors.Wrap(err, "creating admin")
	}
	return adm, nil
}

func (db *DB) GetAdminByID(ctx context.Context, id primitive.ObjectID) (college.Admin, error) {
	var adm college.Admin
	err := db.coll(collAdmins).FindOne(ctx, bson.M{"_id": id}).Decode(&adm)
	if err == mongo.ErrNoDocuments {
		return college.Admin{}, college.ErrAdminNotFound
	}
	return adm, errors.Wrap(err, "getting admin")
}

func (db *DB) GetAdminByEmail(ctx context.Context, email string) (college.Admin, error) {
	var adm college.Admin
	err := db.coll(collAdmins).FindOne(ctx, bson.M{"email": email}).Decode(&adm)
	if err == mongo.ErrNoDocuments {
		return college.Admin{}, college.ErrAdminNotFound
	}
	return adm, errors.Wrap(err, "getting admin by email")
}

func (db *DB) UpdateAdmin(ctx context.Context, adm college.Admin) (college.Admin, error) {
	res, err := db.coll(collAdmins).ReplaceOne(ctx, bson.M{"_id": adm.ID}, adm)
	if err != nil {
		if isDup(err) {
			return college.Admin{}, college.ErrEmailExists
		}
		return college.Admin{}, errors.Wrap(err, "updating admin")
	}
	if res.MatchedCount == 0 {
		return college.Admin{}, college.ErrAdminNotFound
	}
	return adm, nil
}

func (db *DB) AddAdminRef(ctx context.Context, collegeID, adminID primitive.ObjectID) error {
	res, err := db.coll(collColleges).UpdateOne(ctx,
		bson.M{"_id": collegeID},
		bson.M{"$push": bson.M{"admins": adminID}},
	)
	if err != nil {
		return errors.Wrap(err, "adding admin ref")
	}
	if res.MatchedCount == 0 {
		return college.ErrNotFound
	}
	return nil
}

func (db *DB) GetCollegeByAdmin(ctx context.Context, adminID primitive.ObjectID) (college.College, error) {
	var col college.College
	err := db.coll(collColleges).FindOne(ctx, bson.M{"admins": adminID}).Decode(&col)
	if err == mongo.ErrNoDocuments {
		return college.College{}, college.ErrNotFound
	}
	return col, errors.Wrap(err, "getting college by admin")
}

func (db *DB) CreateTokenLog(ctx context.Context, tl college.TokenLog) (college.TokenLog, error) {
	tl.ID = primitive.NewObjectID()
	if _, err := db.coll(collTokenLogs).InsertOne(ctx, tl); err != nil {
		return college.TokenLog{}, errors.Wrap(err, "creating token log")
	}
	return tl, nil
}

func (db *DB) AddTokenLogRef(ctx context.Context, collegeID, logID primitive.ObjectID) error {
	res, err := db.coll(collColleges).UpdateOne(ctx,
		bson.M{"_id": collegeID},
		bson.M{"$push": bson.M{"token_logs": logID}},
	)
	if err != nil {
		return errors.Wrap(err, "adding token log ref")
	}
	if res.MatchedCount == 0 {
		return college.ErrNotFound
	}
	return nil
}

func (db *DB) GetTokenConfigByCollege(ctx context.Context, collegeID primitive.ObjectID) (college.TokenConfig, error) {
	var tc college.TokenConfig
	err := db.coll(collTokenConfigs).FindOne(ctx, bson.M{"college": collegeID}).Decode(&tc)
	if err == mongo.ErrNoDocuments {
		return college.TokenConfig{}, college.ErrNotFound
	}
	return tc, errors.Wrap(err, "getting token config")
}

func (db *DB) UpsertTokenConfig(ctx context.Context, tc college.TokenConfig) (college.TokenConfig, error) {
	if tc.ID.IsZero() {
		tc.ID = primitive.NewObjectID()
	}
	_, err := db.coll(collTokenConfigs).ReplaceOne(ctx,
		bson.M{"college": tc.College}, tc, options.Replace().SetUpsert(true))
	if err != nil {
		return college.TokenConfig{}, errors.Wrap(err, "upserting token config")
	}
	return tc, nil
}
