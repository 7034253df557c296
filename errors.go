package contenthub

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound        = errors.New("contenthub: not found")
	ErrInvalidInput    = errors.New("contenthub: invalid input")
	ErrUnauthenticated = errors.New("contenthub: caller not authenticated")
	ErrUnauthorized    = errors.New("contenthub: caller not authorized")

	// Platform errors
	ErrPlatformNotInitialized = errors.New("contenthub: platform not initialized")
	ErrAlreadyInitialized     = errors.New("contenthub: platform already initialized")

	// Registry errors
	ErrContentNotFound   = errors.New("contenthub: content not found")
	ErrDuplicateContent  = errors.New("contenthub: content id already registered")
	ErrUnverifiedContent = errors.New("contenthub: content is not verified")

	// Payment errors
	ErrInsufficientPayment = errors.New("contenthub: insufficient payment")
	ErrTransferFailed      = errors.New("contenthub: value transfer failed")
	ErrInsufficientFunds   = errors.New("contenthub: payer has insufficient funds")
	ErrReversalFailed      = errors.New("contenthub: transfer reversal failed")
	ErrCounterOverflow     = errors.New("contenthub: counter overflow")

	// Session errors
	ErrSessionNotFound = errors.New("contenthub: session not found")

	// Ownership errors
	ErrOwnershipNotFound = errors.New("contenthub: ownership record not found")
	ErrAlreadyOwned      = errors.New("contenthub: content already owned")

	// Store errors
	ErrStoreClosed       = errors.New("contenthub: store is closed")
	ErrTransactionFailed = errors.New("contenthub: transaction failed")
	ErrMigrationFailed   = errors.New("contenthub: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("contenthub: validation failed for %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ReversalError reports a settled transfer that could not be reversed after
// its commit failed. The books hold no trace of it; TransferRef names it to
// the custodian for reconciliation.
type ReversalError struct {
	TransferRef string
	ContentID   string
	Commit      error
	Reverse     error
}

func (e *ReversalError) Error() string {
	return fmt.Sprintf("contenthub: transfer %s for %s not reversed: %v (commit failed: %v)",
		e.TransferRef, e.ContentID, e.Reverse, e.Commit)
}

// Is lets errors.Is(err, ErrReversalFailed) match any ReversalError.
func (e *ReversalError) Is(target error) bool {
	return target == ErrReversalFailed
}

func (e *ReversalError) Unwrap() []error {
	return []error{e.Commit, e.Reverse}
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "contenthub: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("contenthub: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrContentNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrOwnershipNotFound) ||
		errors.Is(err, ErrPlatformNotInitialized)
}

// IsPaymentError returns true if the error rejected a payment before any
// value moved.
func IsPaymentError(err error) bool {
	if errors.Is(err, ErrReversalFailed) {
		return false
	}
	return errors.Is(err, ErrInsufficientPayment) ||
		errors.Is(err, ErrUnverifiedContent) ||
		errors.Is(err, ErrAlreadyOwned) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrTransferFailed)
}

// IsConflict returns true if the error reports a write that clashes with
// existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateContent) ||
		errors.Is(err, ErrAlreadyOwned) ||
		errors.Is(err, ErrAlreadyInitialized)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
// A payer short of funds or a stranded transfer is never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrReversalFailed) || errors.Is(err, ErrInsufficientFunds) {
		return false
	}
	return errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrTransferFailed)
}
