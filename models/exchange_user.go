package models

import "time"

// ExchangeUser is an end user of one App's exchange. Index is the shared wallet
// derivation index for all of the user's deposit addresses.
type ExchangeUser struct {
	ID             string    `db:"id" json:"id"`
	AppID          string    `db:"app_id" json:"-"`
	FirstName      string    `db:"first_name" json:"firstName"`
	LastName       string    `db:"last_name" json:"lastName"`
	Username       string    `db:"username" json:"username"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone"`
	Password       string    `db:"password" json:"-"`
	Index          int64     `db:"index" json:"-"`
	VerifiedEmail  bool      `db:"verified_email" json:"verifiedEmail"`
	VerifiedPhone  bool      `db:"verified_phone" json:"verifiedPhone"`
	Active         bool      `db:"active" json:"active"`
	TotpSecret     string    `db:"totp_secret" json:"-"`
	LoginValidFrom time.Time `db:"login_valid_from" json:"-"`
	IsDeleted      bool      `db:"is_deleted" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

type SignUpInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	Password  string `json:"password" binding:"required,min=8"`
}

type SignInInput struct {
	User     string `json:"user" binding:"required"` // email or phone
	Password string `json:"password" binding:"required"`
}

type VerifyInput struct {
	Email  string `json:"email" binding:"required,email"`
	Token  string `json:"token"`
	Resend bool   `json:"resend"`
}

type InitiateResetInput struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordInput struct {
	Email              string `json:"email" binding:"required,email"`
	Token              string `json:"token" binding:"required"`
	Password           string `json:"password" binding:"required,min=8"`
	LogOtherDevicesOut bool   `json:"logOtherDevicesOut"`
}

type UpdateProfileInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Username  *string `json:"username"`
}

type UpdatePasswordInput struct {
	Password           string `json:"password" binding:"required"`
	NewPassword        string `json:"newPassword" binding:"required,min=8"`
	LogOtherDevicesOut bool   `json:"logOtherDevicesOut"`
}

type ValidateTotpInput struct {
	Token string `json:"token" binding:"required"`
}
