package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/yuki-disu/PPD-back/internal/utils"
	"golang.org/x/text/cases"
)

// Roles
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleCompany = "company"
)

var validRoles = map[string]bool{
	RoleUser:    true,
	RoleAdmin:   true,
	RoleCompany: true,
}

// selfAssignableRoles are the roles a caller may pick for themselves.
var selfAssignableRoles = map[string]bool{
	RoleUser:    true,
	RoleCompany: true,
}

const (
	MinPasswordLen = 8
	MaxPasswordLen = 32
)

var (
	emailRE  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	handleRE = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,29}$`)
	phoneRE  = regexp.MustCompile(`^\+?[0-9]{6,15}$`)
)

type User struct {
	ID                uuid.UUID  `json:"id"`
	Handle            string     `json:"username"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Role              string     `json:"role"`
	FirstName         string     `json:"firstname"`
	LastName          string     `json:"lastname"`
	Phone             string     `json:"phone,omitempty"`
	PasswordChangedAt *time.Time `json:"-"`
	Active            bool       `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ChangedPasswordAfter reports whether the password changed after a token
// issued at iat.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat.Before(*u.PasswordChangedAt)
}

// PasswordFloor is the earliest issue time a new token for u may carry.
func (u *User) PasswordFloor() time.Time {
	if u.PasswordChangedAt == nil {
		return time.Time{}
	}
	return *u.PasswordChangedAt
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type UserInfo struct {
	ID        uuid.UUID `json:"id"`
	Handle    string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Phone     string    `json:"phone,omitempty"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:        u.ID,
		Handle:    u.Handle,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}

func IsValidRole(role string) bool {
	return validRoles[role]
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeHandle case-folds a handle. A Caser is stateful, so each call
// builds its own.
func NormalizeHandle(handle string) string {
	return cases.Fold().String(strings.TrimSpace(handle))
}

// NormalizeLogin folds an email-or-handle identifier. Emails and handles
// share no characters that folding would make ambiguous.
func NormalizeLogin(login string) string {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		return NormalizeEmail(login)
	}
	return NormalizeHandle(login)
}

func checkPassword(v *Validator, field, password string) {
	n := utf8.RuneCountInString(password)
	v.Check(n >= MinPasswordLen, field+" must be at least 8 characters")
	v.Check(n <= MaxPasswordLen, field+" must be at most 32 characters")
}

type SignupRequest struct {
	Handle          string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	FirstName       string `json:"firstname"`
	LastName        string `json:"lastname"`
	Phone           string `json:"phone,omitempty"`
	Role            string `json:"role,omitempty"`
}

func (r *SignupRequest) Normalize() {
	r.Handle = NormalizeHandle(r.Handle)
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = utils.NormalizePhone(r.Phone)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	if r.Role == "" {
		r.Role = RoleUser
	}
}

func (r *SignupRequest) Validate() error {
	var v Validator
	v.Check(handleRE.MatchString(r.Handle), "username must be 3-30 characters of letters, digits, '.', '_' or '-'")
	v.Check(emailRE.MatchString(r.Email), "email must be a valid email address")
	checkPassword(&v, "password", r.Password)
	v.Check(r.Password == r.PasswordConfirm, "passwords do not match")
	v.Check(r.FirstName != "", "firstname is required")
	v.Check(r.Phone == "" || phoneRE.MatchString(r.Phone), "phone must contain 6-15 digits")
	v.Check(selfAssignableRoles[r.Role], "role must be one of: user, company")
	return v.Err()
}

type LoginRequest struct {
	Login    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Login = NormalizeLogin(r.Login)
}

func (r *LoginRequest) Validate() error {
	var v Validator
	v.Check(r.Login != "", "please provide email and password")
	v.Check(r.Password != "", "please provide email and password")
	return v.Err()
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *UserInfo `json:"user"`
}

type ChangePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (r *ChangePasswordRequest) Validate() error {
	var v Validator
	v.Check(r.PasswordCurrent != "", "passwordCurrent is required")
	checkPassword(&v, "password", r.Password)
	v.Check(r.Password == r.PasswordConfirm, "passwords do not match")
	return v.Err()
}

// UpdateMeRequest lists every field a user may change on their own profile.
// Fields absent from this struct are rejected by the decoder.
type UpdateMeRequest struct {
	Handle    *string `json:"username,omitempty"`
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"firstname,omitempty"`
	LastName  *string `json:"lastname,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Role      *string `json:"role,omitempty"`
}

func (r *UpdateMeRequest) Normalize() {
	r.Handle = utils.MapPtr(r.Handle, NormalizeHandle)
	r.Email = utils.MapPtr(r.Email, NormalizeEmail)
	r.FirstName = utils.MapPtr(r.FirstName, strings.TrimSpace)
	r.LastName = utils.MapPtr(r.LastName, strings.TrimSpace)
	r.Phone = utils.MapPtr(r.Phone, utils.NormalizePhone)
	r.Role = utils.MapPtr(r.Role, func(s string) string { return strings.ToLower(strings.TrimSpace(s)) })
}

func (r *UpdateMeRequest) Empty() bool {
	return r.Handle == nil && r.Email == nil && r.FirstName == nil &&
		r.LastName == nil && r.Phone == nil && r.Role == nil
}

func (r *UpdateMeRequest) Validate() error {
	var v Validator
	v.Check(!r.Empty(), "no updatable fields provided")
	if r.Handle != nil {
		v.Check(handleRE.MatchString(*r.Handle), "username must be 3-30 characters of letters, digits, '.', '_' or '-'")
	}
	if r.Email != nil {
		v.Check(emailRE.MatchString(*r.Email), "email must be a valid email address")
	}
	if r.FirstName != nil {
		v.Check(*r.FirstName != "", "firstname cannot be empty")
	}
	if r.Phone != nil {
		v.Check(*r.Phone == "" || phoneRE.MatchString(*r.Phone), "phone must contain 6-15 digits")
	}
	if r.Role != nil {
		v.Check(selfAssignableRoles[*r.Role], "role must be one of: user, company")
	}
	return v.Err()
}

// Apply copies the requested changes onto u.
func (r *UpdateMeRequest) Apply(u *User) {
	if r.Handle != nil {
		u.Handle = *r.Handle
	}
	if r.Email != nil {
		u.Email = *r.Email
	}
	if r.FirstName != nil {
		u.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		u.LastName = *r.LastName
	}
	if r.Phone != nil {
		u.Phone = *r.Phone
	}
	if r.Role != nil {
		u.Role = *r.Role
	}
}

type DeleteMeRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (r *DeleteMeRequest) Validate() error {
	var v Validator
	v.Check(r.Password != "", "password is required")
	v.Check(r.Password == r.PasswordConfirm, "passwords do not match")
	return v.Err()
}
