package errors

import "errors"

var (
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrSubjectExists      = errors.New("subject already registered")
	ErrStandingNotFound   = errors.New("subject has no standing in this settlement")
	ErrAlreadyJoined      = errors.New("subject already joined this settlement")
	ErrInvalidRosterInput = errors.New("invalid roster input")
)
