// utils/errors.go
package utils

import "errors"

var (
	ErrUserIDNotFound = errors.New("authentication required: user ID not found")
	ErrForbidden      = errors.New("forbidden")
)
