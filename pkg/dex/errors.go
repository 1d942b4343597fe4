package dex

import "errors"

// Business-rule failures returned by the four operations. Callers branch with
// errors.Is; the API layer renders them as descriptive user-facing outcomes
// instead of transport faults.
var (
	ErrInvalidIdentity          = errors.New("invalid public key")
	ErrInvalidAmount            = errors.New("amount must be positive")
	ErrNotFound                 = errors.New("order not found")
	ErrUnauthorized             = errors.New("not the owner of the order")
	ErrInsufficientOrderAmount  = errors.New("not enough tokens available in order")
	ErrInsufficientPayment      = errors.New("insufficient SOL balance for payment")
	ErrInsufficientAssetBalance = errors.New("insufficient token balance for transfer")
	ErrVerifierUnavailable      = errors.New("ledger unavailable")
	ErrPersist                  = errors.New("order book save failed")
)
