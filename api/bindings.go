package echoapi

import (
	"github.com/deloai/campus/core"
	"github.com/deloai/campus/core/student"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return core.Validate.Struct(r)
}

type LoginResponse struct {
	Token string `json:"token"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

func (r *ChangePasswordRequest) Validate() error {
	return core.Validate.Struct(r)
}

type AssignTokensRequest struct {
	Count int    `json:"count" validate:"required,gt=0"`
	Notes string `json:"notes"`
}

func (r *AssignTokensRequest) Validate() error {
	return core.Validate.Struct(r)
}

// BulkStudentsRequest carries a batch of loosely typed student records.
// PrimaryField selects the match key for upserts and is ignored by plain
// bulk creates.
type BulkStudentsRequest struct {
	PrimaryField string        `json:"primary_field"`
	Students     []interface{} `json:"students" validate:"required,min=1"`
}

func (r *BulkStudentsRequest) Validate() error {
	return core.Validate.Struct(r)
}

func (r *BulkStudentsRequest) MatchKey() student.MatchKey {
	if r.PrimaryField == "" {
		return student.MatchEmail
	}
	return student.MatchKey(core.CleanString(r.PrimaryField, true /* lower */))
}
