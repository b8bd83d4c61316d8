package domain

import (
	"errors"
	"strings"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidState          = errors.New("invalid state")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrCapacityExceeded      = errors.New("capacity exceeded")
	ErrDuplicatePending      = errors.New("a pending request already exists")
	ErrAlreadyMember         = errors.New("already a member of this contract")
	ErrContractFull          = errors.New("contract is full")
	ErrNotActive             = errors.New("contract is not active")
	ErrDuplicateContractName = errors.New("contract with this name already exists")
)

// ValidationError collects every field problem found in one input.
type ValidationError struct {
	Errors []string `json:"errors"`
}

func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError names the missing ids, e.g. unknown contract members.
type NotFoundError struct {
	Entity string
	IDs    []int32
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
