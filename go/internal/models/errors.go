package models

import "errors"

var (
	// ErrNoAttemptLeft is returned when a lifter has no attempt to declare or record
	ErrNoAttemptLeft = errors.New("no attempt left")
	// ErrInvalidWeight is returned for weights below the automatic progression or not positive
	ErrInvalidWeight = errors.New("invalid weight")
	// ErrAlreadyDeclared is returned when a second declaration is made for the same attempt
	ErrAlreadyDeclared = errors.New("attempt already declared")
	// ErrTooManyChanges is returned after the declaration and both changes are used
	ErrTooManyChanges = errors.New("too many weight changes")
	// ErrWithdrawn is returned when mutating the attempts of a withdrawn lifter
	ErrWithdrawn = errors.New("lifter withdrawn")
)
