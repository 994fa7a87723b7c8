package domain

import "errors"

// Error kinds surfaced by the listing and comment services. Callers wrap them
// with context and test with errors.Is.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an absent listing or comment.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an actor that does not own the resource.
	ErrForbidden = errors.New("action forbidden")
	// ErrUpload marks an object store failure.
	ErrUpload = errors.New("image upload failed")
	// ErrStorage marks a repository failure.
	ErrStorage = errors.New("storage error")
)
