package inmemdb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core/student"
)

var _ student.Repository = (*DB)(nil)

func (db *DB) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkStudentUniqueness(st, primitive.NilObjectID); err != nil {
		return student.Student{}, err
	}
	st.ID = ensureID(st.ID)
	db.students[st.ID] = st
	return st, nil
}

func (db *DB) GetStudentByID(ctx context.Context, id primitive.ObjectID) (student.Student, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	st, ok := db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return st, nil
}

func (db *DB) GetStudentByEmail(ctx context.Context, email string) (student.Student, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, st := range db.students {
		if st.Email == email {
			return st, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (db *DB) FindStudentByKey(ctx context.Context, collegeID primitive.ObjectID, key student.MatchKey, value string) (student.Student, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, st := range db.students {
		if st.College != collegeID {
			continue
		}
		if matchValue(st, key) == value {
			return st, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (db *DB) QueryStudentsByCollege(ctx context.Context, collegeID primitive.ObjectID) ([]student.Student, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var out []student.Student
	for _, st := range db.students {
		if st.College == collegeID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (db *DB) UpdateStudentFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	st, ok := db.students[id]
	if !ok {
		return student.ErrNotFound
	}
	for key, val := range fields {
		if err := setStudentField(&st, key, val); err != nil {
			return err
		}
	}
	if err := db.checkStudentUniqueness(st, id); err != nil {
		return err
	}
	db.students[id] = st
	return nil
}

func (db *DB) UpdateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.students[st.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if err := db.checkStudentUniqueness(st, st.ID); err != nil {
		return student.Student{}, err
	}
	db.students[st.ID] = st
	return st, nil
}

func (db *DB) DeleteStudentsByID(ctx context.Context, ids ...primitive.ObjectID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, id := range ids {
		delete(db.students, id)
	}
	return nil
}

// checkStudentUniqueness mirrors the unique indexes of the mongo store:
// email is globally unique; usn and enrollment_number are unique within a
// college when set.
func (db *DB) checkStudentUniqueness(st student.Student, selfID primitive.ObjectID) error {
	for id, other := range db.students {
		if id == selfID {
			continue
		}
		if st.Email != "" && other.Email == st.Email {
			return student.ErrEmailExists
		}
		if other.College != st.College {
			continue
		}
		if st.USN != "" && other.USN == st.USN {
			return student.ErrUSNExists
		}
		if st.EnrollmentNumber != "" && other.EnrollmentNumber == st.EnrollmentNumber {
			return student.ErrEnrollmentExists
		}
	}
	return nil
}

func matchValue(st student.Student, key student.MatchKey) string {
	switch key {
	case student.MatchEmail:
		return st.Email
	case student.MatchUSN:
		return st.USN
	case student.MatchEnrollment:
		return st.EnrollmentNumber
	}
	return ""
}

// setStudentField applies one normalized field value by its wire name.
func setStudentField(st *student.Student, key string, val interface{}) error {
	switch v := val.(type) {
	case string:
		switch key {
		case "name":
			st.Name = v
		case "gender":
			st.Gender = v
		case "email":
			st.Email = v
		case "phone_number":
			st.PhoneNumber = v
		case "usn":
			st.USN = v
		case "enrollment_number":
			st.EnrollmentNumber = v
		case "branch":
			st.Branch = v
		case "address":
			st.Address = v
		case "city":
			st.City = v
		case "state":
			st.State = v
		case "pincode":
			st.Pincode = v
		case "guardian_name":
			st.GuardianName = v
		case "guardian_contact":
			st.GuardianContact = v
		default:
			return fmt.Errorf("unexpected string field %q", key)
		}
	case bool:
		switch key {
		case "is_active":
			st.IsActive = v
		case "first_time_login":
			st.FirstTimeLogin = v
		default:
			return fmt.Errorf("unexpected boolean field %q", key)
		}
	case int:
		switch key {
		case "year_of_study":
			st.YearOfStudy = v
		case "semester":
			st.Semester = v
		default:
			return fmt.Errorf("unexpected integer field %q", key)
		}
	case float64:
		if key != "cgpa" {
			return fmt.Errorf("unexpected number field %q", key)
		}
		st.CGPA = v
	case time.Time:
		if key != "date_of_birth" {
			return fmt.Errorf("unexpected date field %q", key)
		}
		st.DateOfBirth = v
	default:
		return fmt.Errorf("field %q: unsupported value type %T", key, val)
	}
	return nil
}
