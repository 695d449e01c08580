package billing

import "errors"

// Error kinds returned by the billing core. Services wrap these with
// fmt.Errorf("...: %w", Err...) so handlers can map them to HTTP statuses
// with errors.Is.
var (
	// ErrValidation flags malformed numeric input: negative quantity or
	// price, a rate or discount percentage outside [0,100].
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition flags a state-machine guard failure, e.g.
	// accepting an expired quote or sending a quote with no lines.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrIntegrity flags stored aggregates that disagree with recomputed
	// values, a partial line copy during conversion, or a number collision
	// that survived the retry.
	ErrIntegrity = errors.New("integrity violation")

	// ErrOverpayment flags a payment whose validation would push the paid
	// amount above the invoice TTC total. Never clamped silently.
	ErrOverpayment = errors.New("overpayment detected")

	// ErrConcurrentModification flags an optimistic status check that
	// failed: the record moved since it was read. Callers must re-read
	// before retrying.
	ErrConcurrentModification = errors.New("concurrent modification")
)
