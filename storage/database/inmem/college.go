package inmemdb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core/college"
)

var _ college.Repository = (*DB)(nil)

func (db *DB) CheckCodeUniqueness(ctx context.Context, code string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, col := range db.colleges {
		if col.Code == code {
			return college.ErrCodeExists
		}
	}
	return nil
}

func (db *DB) CreateCollege(ctx context.Context, col college.College) (college.College, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	col.ID = ensureID(col.ID)
	db.colleges[col.ID] = col
	return col, nil
}

func (db *DB) GetCollegeByID(ctx context.Context, id primitive.ObjectID) (college.College, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	col, ok := db.colleges[id]
	if !ok {
		return college.College{}, college.ErrNotFound
	}
	return col, nil
}

func (db *DB) GetCollegeByCode(ctx context.Context, code string) (college.College, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, col := range db.colleges {
		if col.Code == code {
			return col, nil
		}
	}
	return college.College{}, college.ErrNotFound
}

func (db *DB) QueryAllColleges(ctx context.Context) ([]college.College, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]college.College, 0, len(db.colleges))
	for _, col := range db.colleges {
		out = append(out, col)
	}
	return out, nil
}

func (db *DB) UpdateCollege(ctx context.Context, col college.College) (college.College, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.colleges[col.ID]; !ok {
		return college.College{}, college.ErrNotFound
	}
	db.colleges[col.ID] = col
	return col, nil
}

func (db *DB) CheckAdminEmailUniqueness(ctx context.Context, email string) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, adm := range db.admins {
		if adm.Email == email {
			return college.ErrEmailExists
		}
	}
	return nil
}

func (db *DB) CreateAdmin(ctx context.Context, adm college.Admin) (college.Admin, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	adm.ID = ensureID(adm.ID)
	db.admins[adm.ID] = adm
	return adm, nil
}

func (db *DB) GetAdminByID(ctx context.Context, id primitive.ObjectID) (college.Admin, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	adm, ok := db.admins[id]
	if !ok {
		return college.Admin{}, college.ErrAdminNotFound
	}
	return adm, nil
}

func (db *DB) GetAdminByEmail(ctx context.Context, email string) (college.Admin, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, adm := range db.admins {
		if adm.Email == email {
			return adm, nil
		}
	}
	return college.Admin{}, college.ErrAdminNotFound
}

func (db *DB) UpdateAdmin(ctx context.Context, adm college.Admin) (college.Admin, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.admins[adm.ID]; !ok {
		return college.Admin{}, college.ErrAdminNotFound
	}
	db.admins[adm.ID] = adm
	return adm, nil
}

func (db *DB) AddAdminRef(ctx context.Context, collegeID, adminID primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	col, ok := db.colleges[collegeID]
	if !ok {
		return college.ErrNotFound
	}
	col.Admins = append(copyIDs(col.Admins), adminID)
	db.colleges[collegeID] = col
	return nil
}

func (db *DB) GetCollegeByAdmin(ctx context.Context, adminID primitive.ObjectID) (college.College, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, col := range db.colleges {
		if containsID(col.Admins, adminID) {
			return col, nil
		}
	}
	return college.College{}, college.ErrNotFound
}

func (db *DB) CreateTokenLog(ctx context.Context, tl college.TokenLog) (college.TokenLog, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	tl.ID = ensureID(tl.ID)
	db.tokenLogs[tl.ID] = tl
	return tl, nil
}

func (db *DB) AddTokenLogRef(ctx context.Context, collegeID, logID primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	col, ok := db.colleges[collegeID]
	if !ok {
		return college.ErrNotFound
	}
	col.TokenLogs = append(copyIDs(col.TokenLogs), logID)
	db.colleges[collegeID] = col
	return nil
}

func (db *DB) GetTokenConfigByCollege(ctx context.Context, collegeID primitive.ObjectID) (college.TokenConfig, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	tc, ok := db.tokenConfigs[collegeID]
	if !ok {
		return college.TokenConfig{}, college.ErrNotFound
	}
	return tc, nil
}

func (db *DB) UpsertTokenConfig(ctx context.Context, tc college.TokenConfig) (college.TokenConfig, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if existing, ok := db.tokenConfigs[tc.College]; ok {
		tc.ID = existing.ID
	} else {
		tc.ID = ensureID(tc.ID)
	}
	db.tokenConfigs[tc.College] = tc
	return tc, nil
}
