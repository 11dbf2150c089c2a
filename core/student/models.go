package student

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/deloai/campus/core"
)

type Student struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Gender      string             `json:"gender,omitempty" bson:"gender,omitempty"`
	DateOfBirth time.Time          `json:"date_of_birth,omitempty" bson:"date_of_birth,omitempty"`
	Email       string             `json:"email" bson:"email"`
	PhoneNumber string             `json:"phone_number,omitempty" bson:"phone_number,omitempty"`

	// college-specific
	USN              string             `json:"usn,omitempty" bson:"usn,omitempty"`
	EnrollmentNumber string             `json:"enrollment_number,omitempty" bson:"enrollment_number,omitempty"`
	Branch           string             `json:"branch,omitempty" bson:"branch,omitempty"`
	YearOfStudy      int                `json:"year_of_study,omitempty" bson:"year_of_study,omitempty"`
	Semester         int                `json:"semester,omitempty" bson:"semester,omitempty"`
	CGPA             float64            `json:"cgpa" bson:"cgpa"`
	College          primitive.ObjectID `json:"college" bson:"college"`

	Address         string `json:"address,omitempty" bson:"address,omitempty"`
	City            string `json:"city,omitempty" bson:"city,omitempty"`
	State           string `json:"state,omitempty" bson:"state,omitempty"`
	Pincode         string `json:"pincode,omitempty" bson:"pincode,omitempty"`
	GuardianName    string `json:"guardian_name,omitempty" bson:"guardian_name,omitempty"`
	GuardianContact string `json:"guardian_contact,omitempty" bson:"guardian_contact,omitempty"`

	PasswordHash   string `json:"-" bson:"password_hash"`
	FirstTimeLogin bool   `json:"first_time_login" bson:"first_time_login"`

	IsActive   bool      `json:"is_active" bson:"is_active"`
	DateJoined time.Time `json:"date_joined" bson:"date_joined"`
}

func (s *Student) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = string(hash)
	return nil
}

func (s *Student) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(pwd))
}

// MatchKey identifies the field used to match incoming bulk records against
// existing students. Only a fixed allow-list is accepted.
type MatchKey string

const (
	MatchEmail      MatchKey = "email"
	MatchUSN        MatchKey = "usn"
	MatchEnrollment MatchKey = "enrollment_number"
)

var matchKeys = map[MatchKey]bool{
	MatchEmail:      true,
	MatchUSN:        true,
	MatchEnrollment: true,
}

func (k MatchKey) Valid() bool { return matchKeys[k] }

// updatableFields is the allow-list of fields a bulk record may set; keys are
// the wire/bson names.
var updatableFields = []string{
	"name", "gender", "date_of_birth", "email", "phone_number",
	"usn", "enrollment_number", "branch", "year_of_study", "semester",
	"cgpa", "address", "city", "state", "pincode",
	"guardian_name", "guardian_contact", "is_active", "first_time_login",
}

const dateLayout = "2006-01-02"

// applyField sets a single allow-listed field on the student from a loosely
// typed JSON value. Unknown keys are ignored by the callers; a value of the
// wrong shape is an error for that record only.
func applyField(st *Student, key string, val interface{}) error {
	switch key {
	case "name":
		return applyString(&st.Name, key, val)
	case "gender":
		return applyString(&st.Gender, key, val)
	case "date_of_birth":
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("field %q: expected a date string", key)
		}
		dob, err := time.Parse(dateLayout, s)
		if err != nil {
			return fmt.Errorf("field %q: invalid date %q (want YYYY-MM-DD)", key, s)
		}
		st.DateOfBirth = dob
	case "email":
		if err := applyString(&st.Email, key, val); err != nil {
			return err
		}
		st.Email = core.CleanString(st.Email, true /* lower */)
	case "phone_number":
		return applyString(&st.PhoneNumber, key, val)
	case "usn":
		return applyString(&st.USN, key, val)
	case "enrollment_number":
		return applyString(&st.EnrollmentNumber, key, val)
	case "branch":
		return applyString(&st.Branch, key, val)
	case "year_of_study":
		return applyInt(&st.YearOfStudy, key, val)
	case "semester":
		return applyInt(&st.Semester, key, val)
	case "cgpa":
		f, ok := toFloat(val)
		if !ok {
			return fmt.Errorf("field %q: expected a number", key)
		}
		st.CGPA = f
	case "address":
		return applyString(&st.Address, key, val)
	case "city":
		return applyString(&st.City, key, val)
	case "state":
		return applyString(&st.State, key, val)
	case "pincode":
		return applyString(&st.Pincode, key, val)
	case "guardian_name":
		return applyString(&st.GuardianName, key, val)
	case "guardian_contact":
		return applyString(&st.GuardianContact, key, val)
	case "is_active":
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("field %q: expected a boolean", key)
		}
		st.IsActive = b
	case "first_time_login":
		b, ok := val.(bool)
		if !ok {
			return fmt.Errorf("field %q: expected a boolean", key)
		}
		st.FirstTimeLogin = b
	}
	return nil
}

func applyString(dst *string, key string, val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("field %q: expected a string", key)
	}
	*dst = s
	return nil
}

func applyInt(dst *int, key string, val interface{}) error {
	f, ok := toFloat(val)
	if !ok {
		return fmt.Errorf("field %q: expected a number", key)
	}
	*dst = int(f)
	return nil
}

func toFloat(val interface{}) (float64, bool) {
	switch n := val.(type) {
	case float64: // encoding/json numbers
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func stringValue(val interface{}) (string, bool) {
	s, ok := val.(string)
	if !ok {
		return "", false
	}
	s = core.CleanString(s)
	return s, s != ""
}
