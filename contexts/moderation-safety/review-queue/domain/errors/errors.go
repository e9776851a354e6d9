package errors

import "errors"

var (
	ErrReviewableNotFound = errors.New("reviewable not found")
	ErrTargetMissing      = errors.New("reviewable target is missing")
	ErrDuplicateTarget    = errors.New("an open reviewable already exists for this target")
	ErrUpdateConflict     = errors.New("reviewable version conflict")
	ErrInvalidAction      = errors.New("action is not offered for this reviewable")
	ErrInvalidType        = errors.New("unknown reviewable type")
	ErrForbidden          = errors.New("actor lacks capability for this operation")
	ErrVersionRequired    = errors.New("expected version is required")
	ErrValidationFailure  = errors.New("field validation failed")
	ErrInvalidSignal      = errors.New("invalid review signal")
)
