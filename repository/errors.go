package repository

import "errors"

var (
	// ErrValidation is returned when a write is missing required fields.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a requested image file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbiddenPath is returned when a file name resolves outside its batch folder.
	ErrForbiddenPath = errors.New("path escapes batch folder")
	// ErrUnknownBatch is returned for batch ids missing from the batch index.
	ErrUnknownBatch = errors.New("unknown batch")
	// ErrStorageCorrupt is returned when a labels file cannot be decoded.
	ErrStorageCorrupt = errors.New("label storage corrupt")
)
