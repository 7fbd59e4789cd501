package payments

import (
	"fmt"
	"strconv"
)

// MaxTransferAmount is the largest amount, in minor units, a single transfer
// may move.
const MaxTransferAmount = 1000

// ValidationError is a client-correctable transfer rejection. Message is safe
// to show to the user.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrSameAccount          = &ValidationError{Code: "same_account", Message: "You cannot transfer to the same account"}
	ErrInvalidAccountNumber = &ValidationError{Code: "invalid_account_number", Message: "You must enter a valid account number"}
	ErrNonPositiveAmount    = &ValidationError{Code: "non_positive_amount", Message: "Amount cannot be zero or negative"}
	ErrAmountTooLarge       = &ValidationError{Code: "amount_too_large", Message: fmt.Sprintf("Amount cannot exceed %d", MaxTransferAmount)}
)

// Validate applies the transfer rules in order and returns the first one
// that fails. It performs no I/O.
func Validate(source, target string, amount int64) error {
	switch {
	case source == target:
		return ErrSameAccount
	case source == "" || target == "":
		return ErrInvalidAccountNumber
	case amount <= 0:
		return ErrNonPositiveAmount
	case amount > MaxTransferAmount:
		return ErrAmountTooLarge
	}
	return nil
}

// ParseAccountNumber converts a user supplied account number to an id.
func ParseAccountNumber(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidAccountNumber
	}
	return id, nil
}
