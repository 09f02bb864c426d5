package funding

import "errors"

var (
	errNilState = errors.New("funding engine: state not configured")

	// Authorization failures.
	ErrUnauthorized = errors.New("funding: unauthorized")

	// State machine failures.
	ErrWrongStatus      = errors.New("funding: wrong status")
	ErrAssetNotFound    = errors.New("funding: asset not found")
	ErrTypeNotFound     = errors.New("funding: asset type not found")
	ErrTokenSetNotFound = errors.New("funding: token set not found")
	ErrCurveNotFound    = errors.New("funding: interest rate curve not found")
	ErrInvestNotFound   = errors.New("funding: investment not found")
	ErrScheduleNotFound = errors.New("funding: repayment schedule not found")
	ErrDepositClaimed   = errors.New("funding: deposit already claimed")
	ErrInvestTaken      = errors.New("funding: invest already taken")
	ErrNoInvestment     = errors.New("funding: asset has no investment")

	// Schedule failures: the operation was issued before the earliest
	// eligible time.
	ErrNotMature         = errors.New("funding: not mature")
	ErrNoMatureRepayment = errors.New("funding: no mature repayment")

	// Validation failures.
	ErrInvalidAmount  = errors.New("funding: amount must be positive")
	ErrInvalidParams  = errors.New("funding: invalid parameters")
	ErrQuotaExceeded  = errors.New("funding: quota exceeds remaining capacity")
	ErrTokenNotListed = errors.New("funding: token not whitelisted")
	ErrEmptyProof     = errors.New("funding: empty delivery proof")

	// Transfer failures: the underlying token debit or credit could not be
	// satisfied.
	ErrInsufficientBalance = errors.New("funding: insufficient balance")
)
