package student

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
	"github.com/deloai/campus/core/college"
)

var (
	// errors
	ErrNotFound         = errors.New("student not found")
	ErrEmailExists      = errors.New("a student with this email already exists")
	ErrUSNExists        = errors.New("a student with this USN already exists")
	ErrEnrollmentExists = errors.New("a student with this enrollment number already exists")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudentByID(ctx context.Context, id primitive.ObjectID) (Student, error)
		GetStudentByEmail(ctx context.Context, email string) (Student, error)
		// FindStudentByKey matches on (key = value, college = collegeID).
		FindStudentByKey(ctx context.Context, collegeID primitive.ObjectID, key MatchKey, value string) (Student, error)
		QueryStudentsByCollege(ctx context.Context, collegeID primitive.ObjectID) ([]Student, error)
		// UpdateStudentFields applies a partial $set-style update; omitted
		// fields are left untouched.
		UpdateStudentFields(ctx context.Context, id primitive.ObjectID, fields map[string]interface{}) error
		UpdateStudent(ctx context.Context, st Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids ...primitive.ObjectID) error
	}

	// CollegeGetter resolves the owning college of a batch; satisfied by
	// college.Repository.
	CollegeGetter interface {
		GetCollegeByID(ctx context.Context, id primitive.ObjectID) (college.College, error)
	}

	Service struct {
		repo     Repository
		colleges CollegeGetter
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(repo Repository, colleges CollegeGetter, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, colleges: colleges, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) GetByID(ctx context.Context, id primitive.ObjectID) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Student, error) {
	return svc.repo.GetStudentByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) QueryByCollege(ctx context.Context, collegeID primitive.ObjectID) ([]Student, error) {
	return svc.repo.QueryStudentsByCollege(ctx, collegeID)
}

func (svc *Service) Delete(ctx context.Context, ids ...primitive.ObjectID) error {
	return svc.repo.DeleteStudentsByID(ctx, ids...)
}

// Update applies the allow-listed fields present in the record to the
// student; unknown keys are ignored. Returns the updated document.
func (svc *Service) Update(ctx context.Context, id primitive.ObjectID, record map[string]interface{}) (Student, error) {
	if _, err := svc.repo.GetStudentByID(ctx, id); err != nil {
		return Student{}, err
	}
	fields, err := collectUpdates(record, "")
	if err != nil {
		return Student{}, core.NewValidationError(err)
	}
	if len(fields) == 0 {
		return Student{}, core.NewValidationError(errors.New("no updatable fields present"))
	}
	if err = svc.repo.UpdateStudentFields(ctx, id, fields); err != nil {
		return Student{}, err
	}
	return svc.repo.GetStudentByID(ctx, id)
}

// ChangePassword sets a new password and clears the first-login flag.
func (svc *Service) ChangePassword(ctx context.Context, id primitive.ObjectID, newPassword string) (Student, error) {
	if core.CleanString(newPassword) == "" {
		return Student{}, core.NewValidationError(errors.New("new password is required"),
			core.FieldError{Field: "new_password", Error: "this field is required"})
	}
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err = st.SetPassword(newPassword); err != nil {
		return Student{}, err
	}
	st.FirstTimeLogin = false
	return svc.repo.UpdateStudent(ctx, st)
}

func credentialsEmail(st Student, password, collegeName string) *core.EmailMessage {
	subject := fmt.Sprintf("Your %s student account", core.Conf.AppName)
	text := fmt.Sprintf(
		"Hello %s,\n\nYour student account for %s has been created.\n\n"+
			"Login: %s\nPassword: %s\n\nPlease login at %s and change your password.\n",
		st.Name, collegeName, st.Email, password, core.Conf.FrontendBaseURL,
	)
	return &core.EmailMessage{
		To:          []mail.Address{{Name: st.Name, Address: st.Email}},
		Subject:     subject,
		TextContent: text,
	}
}
