package model

import "errors"

// Error kinds. Every failure returned by the engine unwraps to one of these.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrNotListed           = errors.New("not listed")
	ErrAlreadyListed       = errors.New("already listed")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrNotApproved         = errors.New("not approved")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrNothingToWithdraw   = errors.New("nothing to withdraw")
	ErrTransferFailed      = errors.New("transfer failed")

	ErrInvalidArgument     = errors.New("invalid argument")
	ErrZeroAddress         = errors.New("zero address")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOverflow            = errors.New("arithmetic overflow")
)

// RevertError is a contract failure carrying the human readable revert reason.
type RevertError struct {
	Kind   error
	Reason string
	Cause  error
}

// Revert builds a RevertError of the given kind.
func Revert(kind error, reason string) *RevertError {
	return &RevertError{Kind: kind, Reason: reason}
}

// Because returns a copy of e that also wraps cause.
func (e *RevertError) Because(cause error) *RevertError {
	return &RevertError{Kind: e.Kind, Reason: e.Reason, Cause: cause}
}

func (e *RevertError) Error() string {
	if e.Cause != nil {
		return e.Reason + ": " + e.Cause.Error()
	}
	return e.Reason
}

func (e *RevertError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Is matches another RevertError by kind and reason so package level
// sentinels built with Revert can be compared with errors.Is.
func (e *RevertError) Is(target error) bool {
	t, ok := target.(*RevertError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Reason == e.Reason
}

// ReasonOf returns the revert reason of err, or err.Error() for other errors.
func ReasonOf(err error) string {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason
	}
	return err.Error()
}
