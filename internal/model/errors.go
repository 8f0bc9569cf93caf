package model

import "errors"

// Error kinds shared across the command layer, the storage guard, and the
// automation engine. Callers classify with errors.Is.
var (
	ErrNotFound                 = errors.New("not found")
	ErrAlreadyArchived          = errors.New("already archived")
	ErrAlreadyAssociated        = errors.New("already associated")
	ErrNoActiveAssociation      = errors.New("no active association")
	ErrInvalidInput             = errors.New("invalid input")
	ErrInvalidPropertyValue     = errors.New("invalid property value")
	ErrForbiddenMutation        = errors.New("forbidden mutation")
	ErrMinimumContactsViolation = errors.New("deal or ticket must retain at least one active contact")
	ErrCannotRemovePrimary      = errors.New("cannot remove primary contact")
	ErrUnsupportedActionType    = errors.New("unsupported action type")
	ErrDuplicateExecution       = errors.New("execution already recorded")
	ErrInternal                 = errors.New("internal error")
)
