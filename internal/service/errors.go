package service

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountNotFound    = errors.New("account not found")

	ErrInvalidDestination      = errors.New("invalid destination")
	ErrCodeMismatch            = errors.New("incorrect code")
	ErrCodeExpired             = errors.New("code expired")
	ErrCodeAlreadyUsed         = errors.New("code already used")
	ErrEnrollmentExpired       = errors.New("enrollment expired")
	ErrTokenExpired            = errors.New("token invalid or expired")
	ErrTokenAlreadyUsed        = errors.New("token already used")
	ErrLockedOut               = errors.New("account temporarily locked")
	ErrMethodNotConfigured     = errors.New("method not configured")
	ErrPreferredMethodRequired = errors.New("replacement preferred method required")
	ErrCodeNotFound            = errors.New("recovery code not found")
	ErrRateLimited             = errors.New("too many dispatch requests")
	ErrDeliveryFailed          = errors.New("code delivery failed")
)
