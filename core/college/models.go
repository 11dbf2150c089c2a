package college

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/deloai/campus/core"
)

// Statuses
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Address struct {
	Line1   string `json:"line1" bson:"line1"`
	Line2   string `json:"line2,omitempty" bson:"line2,omitempty"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state,omitempty" bson:"state,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
	ZipCode string `json:"zip_code,omitempty" bson:"zip_code,omitempty"`
}

type Contact struct {
	Name        string `json:"name" bson:"name"`
	Phone       string `json:"phone" bson:"phone"`
	Email       string `json:"email" bson:"email"`
	Designation string `json:"designation,omitempty" bson:"designation,omitempty"`
	Status      string `json:"status" bson:"status"`
}

type Admin struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"password"`
	Designation  string             `json:"designation,omitempty" bson:"designation,omitempty"`
	Phone        string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Status       string             `json:"status" bson:"status"`
	IsFirstLogin bool               `json:"is_first_login" bson:"is_first_login"`
}

func (a *Admin) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

func (a *Admin) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(pwd))
}

// TokenStatus is an embedded counter with a state flag.
type TokenStatus struct {
	Count  int    `json:"count" bson:"count"`
	Status string `json:"status" bson:"status"`
}

// TokenLog records one token assignment to a college.
type TokenLog struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AssignedDate      time.Time          `json:"assigned_date" bson:"assigned_date"`
	NumberOfTokens    TokenStatus        `json:"number_of_tokens" bson:"number_of_tokens"`
	AssignedBy        primitive.ObjectID `json:"assigned_by" bson:"assigned_by"`
	ConsumedTokens    TokenStatus        `json:"consumed_tokens" bson:"consumed_tokens"`
	PendingInitiation TokenStatus        `json:"pending_initiation" bson:"pending_initiation"`
	UnusedTokens      TokenStatus        `json:"unused_tokens" bson:"unused_tokens"`
	Notes             string             `json:"notes,omitempty" bson:"notes,omitempty"`
}

// TokenConfig is the per-college token ledger; one document per college.
type TokenConfig struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	College        primitive.ObjectID `json:"college" bson:"college"`
	TotalTokens    TokenStatus        `json:"total_tokens" bson:"total_tokens"`
	ConsumedTokens TokenStatus        `json:"consumed_tokens" bson:"consumed_tokens"`
	PendingTokens  TokenStatus        `json:"pending_tokens" bson:"pending_tokens"`
	UnusedTokens   TokenStatus        `json:"unused_tokens" bson:"unused_tokens"`
}

type College struct {
	ID        primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name      string               `json:"name" bson:"name"`
	Code      string               `json:"college_id" bson:"college_id"` // unique external code
	Address   *Address             `json:"address,omitempty" bson:"address,omitempty"`
	Notes     string               `json:"notes,omitempty" bson:"notes,omitempty"`
	Status    string               `json:"status" bson:"status"`
	Contacts  []Contact            `json:"contacts" bson:"contacts"`
	Admins    []primitive.ObjectID `json:"admins" bson:"admins"`
	TokenLogs []primitive.ObjectID `json:"token_logs" bson:"token_logs"`
	Token     primitive.ObjectID   `json:"token,omitempty" bson:"token,omitempty"`
}

// NewCollege contains information needed to register a new College.
type NewCollege struct {
	Name     string    `json:"name" validate:"required,notblank"`
	Code     string    `json:"college_id" validate:"required,notblank"`
	Address  *Address  `json:"address"`
	Notes    string    `json:"notes"`
	Contacts []Contact `json:"contacts" validate:"omitempty,dive"`
}

func (nc *NewCollege) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)
	return core.Validate.Struct(nc)
}

// NewAdmin contains information needed to create a College administrator.
// The initial password is generated, not supplied.
type NewAdmin struct {
	Name        string `json:"name" validate:"required,notblank"`
	Email       string `json:"email" validate:"required,email"`
	Designation string `json:"designation"`
	Phone       string `json:"phone"`
}

func (na *NewAdmin) Validate() error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	return core.Validate.Struct(na)
}
