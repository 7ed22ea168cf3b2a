/*
errors.go - Centralized error types for the commerce engine

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  Domain packages wrap these with additional context.

ERROR CATEGORIES:
  1. Input errors       - Malformed sale/payout inputs
  2. Precondition errors - Balance/points/transition violations
  3. Store errors       - Missing documents, duplicate keys, backend failures

USAGE:
  Callers branch with errors.Is():

    if errors.Is(err, ledger.ErrInsufficientBalance) {
        // show blocking message, no retry
    }
    if errors.Is(err, ledger.ErrStorageUnavailable) {
        // transient: safe to retry idempotent operations
    }
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidSaleInput is returned for malformed commission inputs
	// (negative price, rate outside [0,100]). No ledger mutation occurs.
	ErrInvalidSaleInput = errors.New("invalid sale input")

	// ErrInvalidAmount is returned when a payout amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrUnknownMember is returned when a referenced member id does not
	// exist. Never swallowed: a sale or payout against a missing member
	// must fail, not log-and-continue.
	ErrUnknownMember = errors.New("unknown member")

	// ErrUnknownOrder is returned when a referenced order id does not exist.
	ErrUnknownOrder = errors.New("unknown order")

	// ErrUnknownCoupon is returned when a referenced coupon id does not exist.
	ErrUnknownCoupon = errors.New("unknown coupon")

	// ErrUnknownProduct is returned when a referenced product id does not exist.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrInsufficientBalance is returned when a payout exceeds the wallet.
	// No partial debit is ever applied.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrInsufficientPoints is returned when a redemption exceeds the
	// member's points.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrInvalidTransition is returned for illegal order or activation
	// status changes. State is left unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateIdempotencyKey is returned when an audit entry with the
	// same idempotency key already exists. Expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrPaymentDeclined is returned when the payment gateway does not
	// approve a charge. The order is not persisted.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrWithdrawalsPaused is returned when payouts are globally disabled.
	ErrWithdrawalsPaused = errors.New("withdrawals are paused")

	// ErrStorageUnavailable wraps backend I/O failures. Transient: callers
	// decide whether to retry; operations guarded by an idempotency key are
	// safe to retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidSaleInputError details a malformed commission input.
type InvalidSaleInputError struct {
	SalePrice decimal.Decimal
	Rate      decimal.Decimal
	Reason    string
}

func (e *InvalidSaleInputError) Error() string {
	return fmt.Sprintf("invalid sale input: %s (price %s, rate %s)",
		e.Reason, e.SalePrice, e.Rate)
}

func (e *InvalidSaleInputError) Unwrap() error { return ErrInvalidSaleInput }

// InsufficientBalanceError details a wallet shortage on payout.
type InsufficientBalanceError struct {
	MemberID  MemberID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient wallet balance for %s: available %s, requested %s",
		e.MemberID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InsufficientPointsError details a points shortage on redemption.
type InsufficientPointsError struct {
	MemberID  MemberID
	Available int64
	Requested int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points for %s: available %d, requested %d",
		e.MemberID, e.Available, e.Requested)
}

func (e *InsufficientPointsError) Unwrap() error { return ErrInsufficientPoints }

// InvalidTransitionError details an illegal status change.
type InvalidTransitionError struct {
	Entity string // "order" or "member"
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s (%s)",
		e.Entity, e.From, e.To, e.ID)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// IsClientError returns true if the error is due to invalid client input or
// a violated precondition.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSaleInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrPaymentDeclined) ||
		errors.Is(err, ErrWithdrawalsPaused)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownMember) ||
		errors.Is(err, ErrUnknownOrder) ||
		errors.Is(err, ErrUnknownCoupon) ||
		errors.Is(err, ErrUnknownProduct)
}
