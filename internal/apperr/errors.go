package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalid         = errors.New("invalid input")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)
