package portfolio

import "errors"

var (
	// ErrInsufficientFunds rejects a BUY whose cost plus fee exceeds cash.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoPosition rejects a SELL with no matching open position or a
	// quantity above the held quantity.
	ErrNoPosition = errors.New("no matching open position")
)
