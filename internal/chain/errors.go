// internal/chain/errors.go
package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress is returned for strings that are not 20-byte hex addresses.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidTxHash is returned for strings that are not 32-byte hex hashes.
	ErrInvalidTxHash = errors.New("invalid transaction hash")

	// ErrTxPending is returned while a transaction has no receipt yet.
	ErrTxPending = errors.New("transaction not yet mined")

	// ErrTxFailed is returned when a transaction was mined but reverted.
	ErrTxFailed = errors.New("transaction reverted")

	// ErrFeeNotPaid is returned when a transaction does not pay the required fee.
	ErrFeeNotPaid = errors.New("fee not paid")

	// ErrFeeAlreadyUsed is returned when a fee transaction already paid for
	// another comment or vote.
	ErrFeeAlreadyUsed = errors.New("fee transaction already used")

	// ErrUnexpectedOutput is returned when a contract answers with a shape
	// the client does not understand.
	ErrUnexpectedOutput = errors.New("unexpected contract output")
)

// Error is a failed contract interaction.
type Error struct {
	Err    error
	Method string
	Target string
}

func (e *Error) Error() string {
	return fmt.Sprintf("chain error [%s] at %s: %v", e.Method, e.Target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(err error, method, target string) error {
	return &Error{Err: err, Method: method, Target: target}
}
