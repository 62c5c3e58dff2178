package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrLockHeld      = errors.New("lock already held")
	ErrInvalidIntent = errors.New("invalid trade intent")

	// ErrConfiguration wraps every startup configuration problem. It is the
	// only error class that terminates the process.
	ErrConfiguration = errors.New("configuration error")

	// ErrRiskDenied marks a denial in logs and events. Denials are returned
	// as Rejected outcomes, never as errors.
	ErrRiskDenied = errors.New("risk denied")

	ErrMissingCredential = errors.New("missing signing credential")
	ErrSigning           = errors.New("signing failed")
	ErrTransport         = errors.New("transport failure")
	ErrSubmission        = errors.New("submission failed")
	ErrPersistence       = errors.New("persistence failed")
	ErrNotification      = errors.New("notification failed")
	ErrUnknown           = errors.New("unexpected failure")
)
