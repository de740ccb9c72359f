package relay_errors

import "errors"

// Common errors
var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotUploaded   = errors.New("file not uploaded")
	ErrBlobMissing   = errors.New("blob already absent")
)
