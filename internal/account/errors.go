package account

import "errors"

// Engine errors. Every violated precondition surfaces as one of these,
// wrapped with the offending value, and leaves state untouched.
var (
	ErrNotOwner                  = errors.New("caller is not the account owner")
	ErrNotGuardian               = errors.New("caller is not a guardian")
	ErrZeroAddress               = errors.New("zero address not allowed")
	ErrOwnerAsGuardian           = errors.New("owner cannot be a guardian")
	ErrDuplicateGuardian         = errors.New("guardian already registered")
	ErrGuardianNotFound          = errors.New("guardian not registered")
	ErrGuardianLimit             = errors.New("guardian limit reached")
	ErrThresholdViolation        = errors.New("guardian count would drop below required threshold")
	ErrInvalidThreshold          = errors.New("required guardians must be between 1 and guardian count")
	ErrSameOwner                 = errors.New("proposed owner is the current owner")
	ErrRequestNotFound           = errors.New("recovery request not found")
	ErrAlreadyConfirmed          = errors.New("guardian already confirmed this request")
	ErrAlreadyExecuted           = errors.New("recovery request already executed")
	ErrInsufficientConfirmations = errors.New("insufficient guardian confirmations")
	ErrRecoveryDelayNotElapsed   = errors.New("recovery delay has not elapsed")
	ErrReentrantCall             = errors.New("reentrant call rejected")
	ErrEmptyBatch                = errors.New("batch must contain at least one call")
	ErrInsufficientBalance       = errors.New("insufficient account balance")
	ErrNilDispatcher             = errors.New("no call dispatcher configured")
)
