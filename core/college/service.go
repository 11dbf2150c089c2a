package college

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/deloai/campus/core"
)

var (
	// errors
	ErrNotFound      = errors.New("college not found")
	ErrAdminNotFound = errors.New("college admin not found")
	ErrCodeExists    = errors.New("a college with this code already exists")
	ErrEmailExists   = errors.New("an admin with this email already exists")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string) error
		CreateCollege(ctx context.Context, col College) (College, error)
		GetCollegeByID(ctx context.Context, id primitive.ObjectID) (College, error)
		GetCollegeByCode(ctx context.Context, code string) (College, error)
		QueryAllColleges(ctx context.Context) ([]College, error)
		UpdateCollege(ctx context.Context, col College) (College, error)

		CheckAdminEmailUniqueness(ctx context.Context, email string) error
		CreateAdmin(ctx context.Context, adm Admin) (Admin, error)
		GetAdminByID(ctx context.Context, id primitive.ObjectID) (Admin, error)
		GetAdminByEmail(ctx context.Context, email string) (Admin, error)
		UpdateAdmin(ctx context.Context, adm Admin) (Admin, error)
		// AddAdminRef pushes the admin onto the college's admins list.
		AddAdminRef(ctx context.Context, collegeID, adminID primitive.ObjectID) error
		GetCollegeByAdmin(ctx context.Context, adminID primitive.ObjectID) (College, error)

		CreateTokenLog(ctx context.Context, tl TokenLog) (TokenLog, error)
		AddTokenLogRef(ctx context.Context, collegeID, logID primitive.ObjectID) error
		GetTokenConfigByCollege(ctx context.Context, collegeID primitive.ObjectID) (TokenConfig, error)
		UpsertTokenConfig(ctx context.Context, tc TokenConfig) (TokenConfig, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) Create(ctx context.Context, nc NewCollege) (College, error) {
	if err := nc.Validate(); err != nil {
		return College{}, err
	}
	if err := svc.repo.CheckCodeUniqueness(ctx, nc.Code); err != nil {
		if errors.Is(err, ErrCodeExists) {
			return College{}, core.NewValidationError(err, core.FieldError{Field: "college_id", Error: err.Error()})
		}
		return College{}, err
	}

	contacts := nc.Contacts
	if contacts == nil {
		contacts = []Contact{}
	}
	for i := range contacts {
		if contacts[i].Status == "" {
			contacts[i].Status = StatusActive
		}
	}
	col := College{
		Name:      nc.Name,
		Code:      nc.Code,
		Address:   nc.Address,
		Notes:     nc.Notes,
		Status:    StatusActive,
		Contacts:  contacts,
		Admins:    []primitive.ObjectID{},
		TokenLogs: []primitive.ObjectID{},
	}
	return svc.repo.CreateCollege(ctx, col)
}

func (svc *Service) GetByID(ctx context.Context, id primitive.ObjectID) (College, error) {
	return svc.repo.GetCollegeByID(ctx, id)
}

func (svc *Service) GetByCode(ctx context.Context, code string) (College, error) {
	return svc.repo.GetCollegeByCode(ctx, core.CleanString(code))
}

func (svc *Service) QueryAll(ctx context.Context) ([]College, error) {
	return svc.repo.QueryAllColleges(ctx)
}

// CreateAdmin creates a college administrator with a generated first-login
// credential, attaches it to the college and emails the credential. An email
// transport failure does not undo the creation; it is logged and reported in
// the returned flag.
func (svc *Service) CreateAdmin(ctx context.Context, collegeID primitive.ObjectID, na NewAdmin) (adm Admin, emailed bool, err error) {
	if err = na.Validate(); err != nil {
		return Admin{}, false, err
	}
	col, err := svc.repo.GetCollegeByID(ctx, collegeID)
	if err != nil {
		return Admin{}, false, err
	}
	if err = svc.repo.CheckAdminEmailUniqueness(ctx, na.Email); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return Admin{}, false, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return Admin{}, false, err
	}

	adm = Admin{
		Name:         na.Name,
		Email:        na.Email,
		Designation:  na.Designation,
		Phone:        na.Phone,
		Status:       StatusActive,
		IsFirstLogin: true,
	}
	pwd := core.GeneratePassword(12)
	if err = adm.SetPassword(pwd); err != nil {
		return Admin{}, false, err
	}
	if adm, err = svc.repo.CreateAdmin(ctx, adm); err != nil {
		return Admin{}, false, err
	}
	if err = svc.repo.AddAdminRef(ctx, col.ID, adm.ID); err != nil {
		return Admin{}, false, err
	}

	msg := credentialsEmail(adm.Name, adm.Email, pwd, col.Name)
	if mailErr := svc.mailSvc.SendMessage(ctx, msg); mailErr != nil {
		svc.logger.Warn(fmt.Sprintf("college admin %s created but credentials email failed", adm.Email), mailErr)
		return adm, false, nil
	}
	return adm, true, nil
}

func (svc *Service) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	return svc.repo.GetAdminByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetAdminByID(ctx context.Context, id primitive.ObjectID) (Admin, error) {
	return svc.repo.GetAdminByID(ctx, id)
}

func (svc *Service) GetByAdmin(ctx context.Context, adminID primitive.ObjectID) (College, error) {
	return svc.repo.GetCollegeByAdmin(ctx, adminID)
}

// ChangeAdminPassword sets a new password and clears the first-login flag.
func (svc *Service) ChangeAdminPassword(ctx context.Context, adminID primitive.ObjectID, newPassword string) (Admin, error) {
	if core.CleanString(newPassword) == "" {
		return Admin{}, core.NewValidationError(errors.New("new password is required"),
			core.FieldError{Field: "new_password", Error: "this field is required"})
	}
	adm, err := svc.repo.GetAdminByID(ctx, adminID)
	if err != nil {
		return Admin{}, err
	}
	if err = adm.SetPassword(newPassword); err != nil {
		return Admin{}, err
	}
	adm.IsFirstLogin = false
	return svc.repo.UpdateAdmin(ctx, adm)
}

// AssignTokens records a token assignment and maintains the per-college
// TokenConfig counters.
func (svc *Service) AssignTokens(ctx context.Context, collegeID, assignedBy primitive.ObjectID, count int, notes string) (TokenLog, error) {
	if count <= 0 {
		return TokenLog{}, core.NewValidationError(errors.New("token count must be positive"),
			core.FieldError{Field: "count", Error: "must be greater than zero"})
	}
	col, err := svc.repo.GetCollegeByID(ctx, collegeID)
	if err != nil {
		return TokenLog{}, err
	}

	tl := TokenLog{
		AssignedDate:      time.Now().UTC(),
		NumberOfTokens:    TokenStatus{Count: count, Status: StatusActive},
		AssignedBy:        assignedBy,
		ConsumedTokens:    TokenStatus{Status: StatusActive},
		PendingInitiation: TokenStatus{Status: StatusActive},
		UnusedTokens:      TokenStatus{Count: count, Status: StatusActive},
		Notes:             notes,
	}
	if tl, err = svc.repo.CreateTokenLog(ctx, tl); err != nil {
		return TokenLog{}, err
	}
	if err = svc.repo.AddTokenLogRef(ctx, col.ID, tl.ID); err != nil {
		return TokenLog{}, err
	}

	tc, err := svc.repo.GetTokenConfigByCollege(ctx, col.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return TokenLog{}, err
	}
	tc.College = col.ID
	tc.TotalTokens.Count += count
	tc.TotalTokens.Status = StatusActive
	tc.UnusedTokens.Count += count
	tc.UnusedTokens.Status = StatusActive
	if _, err = svc.repo.UpsertTokenConfig(ctx, tc); err != nil {
		return TokenLog{}, err
	}
	return tl, nil
}

// TokenConfig returns the college's token counters; a college that never
// received tokens reads as zeroed counters, not as an error.
func (svc *Service) TokenConfig(ctx context.Context, collegeID primitive.ObjectID) (TokenConfig, error) {
	tc, err := svc.repo.GetTokenConfigByCollege(ctx, collegeID)
	if errors.Is(err, ErrNotFound) {
		return TokenConfig{College: collegeID}, nil
	}
	return tc, err
}

func credentialsEmail(name, email, password, collegeName string) *core.EmailMessage {
	subject := fmt.Sprintf("Your %s administrator account", core.Conf.AppName)
	text := fmt.Sprintf(
		"Hello %s,\n\nAn administrator account for %s has been created for you.\n\n"+
			"Login: %s\nPassword: %s\n\nPlease login at %s and change your password.\n",
		name, collegeName, email, password, core.Conf.FrontendBaseURL,
	)
	return &core.EmailMessage{
		To:          []mail.Address{{Name: name, Address: email}},
		Subject:     subject,
		TextContent: text,
	}
}
