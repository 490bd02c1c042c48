package quota

import "errors"

var (
	// ErrInsufficientTokens denies a reservation on token balance.
	ErrInsufficientTokens = errors.New("insufficient_tokens")
	// ErrDailyLimitReached denies a reservation on the free-tier daily gate.
	ErrDailyLimitReached = errors.New("daily_limit_reached")
)

// Denied reports whether the error is a quota denial rather than an
// infrastructure failure.
func Denied(err error) bool {
	return errors.Is(err, ErrInsufficientTokens) || errors.Is(err, ErrDailyLimitReached)
}
