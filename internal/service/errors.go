package service

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("not a participant")
	ErrInvalidInput = errors.New("invalid input")
)
