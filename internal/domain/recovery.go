package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecoveryRecord holds the digest of the single live recovery code of a user.
type RecoveryRecord struct {
	UserID    uuid.UUID
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the record is no longer usable at now.
func (r *RecoveryRecord) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type ForgotPasswordRequest struct {
	Login string `json:"email"`
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Login = NormalizeLogin(r.Login)
}

func (r *ForgotPasswordRequest) Validate() error {
	var v Validator
	v.Check(r.Login != "", "email or username is required")
	return v.Err()
}

type ResetPasswordRequest struct {
	Code            string `json:"code"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (r *ResetPasswordRequest) Normalize() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

func (r *ResetPasswordRequest) Validate() error {
	var v Validator
	v.Check(r.Code != "", "code is required")
	checkPassword(&v, "password", r.Password)
	v.Check(r.Password == r.PasswordConfirm, "passwords do not match")
	return v.Err()
}
