package errors

import (
	"errors"
	"fmt"
)

// Failure kinds shared by the key gate services. They are expected outcomes and are
// translated into structured responses at the request boundary.
var (
	// Session layer
	ErrInvalidState       = errors.New("invalid or expired auth state")
	ErrAddressMismatch    = errors.New("network address mismatch")
	ErrAuthExchangeFailed = errors.New("identity provider exchange failed")
	ErrSessionNotFound    = errors.New("session not found")
	ErrMembershipRequired = errors.New("community membership required")

	// Token layer (verification and download tokens)
	ErrNotFound    = errors.New("token not found or expired")
	ErrAlreadyUsed = errors.New("token already used")

	// Issuance layer
	ErrRateLimited       = errors.New("too many requests")
	ErrDailyLimitReached = errors.New("daily key limit reached")
	ErrKeySpaceExhausted = errors.New("unable to generate a unique key")

	// Redemption layer
	ErrMissing  = errors.New("required parameter missing")
	ErrNotOwned = errors.New("key does not belong to this address")
	ErrConflict = errors.New("conflicting concurrent update, retry")

	// Storage
	ErrRevisionConflict = errors.New("document revision conflict")

	// General
	ErrUnauthorized = errors.New("unauthorized")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
