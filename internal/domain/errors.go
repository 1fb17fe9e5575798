package domain

import "errors"

var (
	// ErrNotFound is returned when a product does not exist
	ErrNotFound = errors.New("product not found")

	// ErrAlreadyExists is returned when a product code is already taken
	ErrAlreadyExists = errors.New("product already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageProvision is returned when the object storage bucket cannot
	// be created or reached; fatal at startup
	ErrStorageProvision = errors.New("object storage provisioning failed")

	// ErrStorageUpload is returned when streaming an object to storage fails
	ErrStorageUpload = errors.New("object storage upload failed")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)
