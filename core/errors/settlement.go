package errors

import stderrors "errors"

// Shared error taxonomy for the condition, agreement and template stores and
// the condition implementations built on top of them. Callers match with
// errors.Is; wrapped messages carry the per-call detail.
var (
	ErrNotFound            = stderrors.New("settlement: not found")
	ErrAlreadyExists       = stderrors.New("settlement: identifier already exists")
	ErrUnauthorized        = stderrors.New("settlement: caller not authorized")
	ErrInvalidTransition   = stderrors.New("settlement: state transition not allowed")
	ErrTimeLocked          = stderrors.New("settlement: time lock has not elapsed")
	ErrTimedOut            = stderrors.New("settlement: time out has elapsed")
	ErrPolicyViolation     = stderrors.New("settlement: policy check failed")
	ErrTemplateNotApproved = stderrors.New("settlement: template not approved")
	ErrDIDNotRegistered    = stderrors.New("settlement: did not registered")
)
