package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access denied")
	ErrNoFile             = errors.New("no file uploaded")
	ErrUnreadableUpload   = errors.New("uploaded file could not be processed")
)

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
