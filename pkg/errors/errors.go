// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Cart and catalog errors
var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrMenuItemNotFound   = errors.New("menu item not found")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrMixedRestaurants   = errors.New("cart holds items from more than one restaurant")
)

// Checkout errors
var (
	ErrPaymentFailed     = errors.New("payment failed")
	ErrCheckoutInFlight  = errors.New("a checkout is already in progress")
	ErrCheckoutCancelled = errors.New("checkout cancelled")
	ErrCheckoutTimeout   = errors.New("checkout timed out")
	ErrUnknownNetwork    = errors.New("unknown payment network")
	ErrNoCheckout        = errors.New("no checkout in progress")
	ErrAlreadyPaid       = errors.New("payment already confirmed, the proof is being issued")
)

// Proof and review gate errors
var (
	ErrInvalidProof    = errors.New("the proof you're trying to use doesn't exist")
	ErrWrongRestaurant = errors.New("this proof is for a different restaurant")
	ErrAlreadyUsed     = errors.New("this proof has already been used for a review")
	ErrProofNotFound   = errors.New("proof not found")
	ErrProofRequired   = errors.New("a proof of purchase is required to review this restaurant")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrEmptyReview     = errors.New("review text is required")
)

// Request errors
var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrSessionClosed    = errors.New("session expired, retry the request")
)

// Storage errors
var (
	ErrKeyNotFound    = errors.New("key not found")
	ErrStorageCorrupt = errors.New("stored data is corrupt")
	ErrStorageWrite   = errors.New("failed to write to storage")
)

// Chain, wallet and verification errors
var (
	ErrNoWalletAccount      = errors.New("wallet has no connected account")
	ErrChainMismatch        = errors.New("wallet is connected to the wrong chain")
	ErrTransactionReverted  = errors.New("transaction reverted")
	ErrReceiptTimeout       = errors.New("timed out waiting for transaction receipt")
	ErrMissingProof         = errors.New("proof and publicSignals are required")
	ErrMissingIdentifier    = errors.New("public signals carry no user identifier")
	ErrVerificationRejected = errors.New("verifier rejected the proof")
	ErrContractCallFailed   = errors.New("contract call failed")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
