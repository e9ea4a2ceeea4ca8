package engine

import "errors"

var (
	ErrWrongSide           = errors.New("order side does not match entry point")
	ErrOrderNotFound       = errors.New("order not found")
	ErrExceedsNotional     = errors.New("payment exceeds order notional")
	ErrEscrowInitiation    = errors.New("escrow initiation failed")
	ErrDuplicateSettlement = errors.New("settlement already applied")
	ErrInvalidOrder        = errors.New("invalid order")
	ErrInvalidPayment      = errors.New("invalid payment")
)
