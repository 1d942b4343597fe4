package dex

import (
	"context"
	"fmt"
	"math"

	solana "github.com/gagliardetto/solana-go"
)

// ExecuteRequest asks to fill `Amount` base units of an open sell order.
// Any buyer may request a fill; the only buyer-side check is the balance one.
type ExecuteRequest struct {
	AssetID       string
	OrderID       string
	Buyer         string // base58 pubkey paying in SOL
	Amount        int64  // base units to buy
	TokenMint     string // mint of the token being traded
	TokenDecimals uint8
}

// ExecuteResult reports a passed pre-check. The service does not move funds:
// the caller submits the actual swap transaction out-of-band.
type ExecuteResult struct {
	OrderID      string
	Seller       string
	TokensBought float64 // whole tokens, Amount scaled by the mint decimals
	LamportsOwed uint64  // payment due from buyer to seller
	Removed      bool    // order fully filled and deleted from the book
	Remaining    uint64  // base units left when not removed
}

// RequiredLamports converts a fill of `amount` base units at `price` SOL per
// whole token into the settlement currency's smallest unit.
func RequiredLamports(amount uint64, decimals uint8, price float64) uint64 {
	tokens := float64(amount) / math.Pow10(int(decimals))
	return uint64(math.Round(tokens * price * float64(solana.LAMPORTS_PER_SOL)))
}

// ExecuteOrder runs the fill pre-check: local quantity validation, then the
// buyer's SOL balance and the seller's token balance against the ledger, and
// only when every check passed mutates the book and persists it.
//
// Single pass, no retries, no rollback: the book is touched only after the
// last check, so every failure path leaves state exactly as it was. The
// ledger round-trips happen before the write lock is taken; the remaining
// amount is re-validated once the lock is held, so a concurrent fill that won
// the race surfaces as ErrInsufficientOrderAmount (or ErrNotFound) here.
func (s *Service) ExecuteOrder(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	buyer, err := solana.PublicKeyFromBase58(req.Buyer)
	if err != nil {
		return nil, fmt.Errorf("%w: buyer %q: %v", ErrInvalidIdentity, req.Buyer, err)
	}
	mint, err := solana.PublicKeyFromBase58(req.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("%w: token mint %q: %v", ErrInvalidIdentity, req.TokenMint, err)
	}

	order, ok := s.book.Get(req.AssetID, req.OrderID)
	if !ok {
		return nil, fmt.Errorf("%w: order %s for asset %s", ErrNotFound, req.OrderID, req.AssetID)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAmount, req.Amount)
	}
	amount := uint64(req.Amount)
	if amount > order.Amount {
		return nil, fmt.Errorf("%w: available %d, requested %d",
			ErrInsufficientOrderAmount, order.Amount, amount)
	}

	seller, err := solana.PublicKeyFromBase58(order.Owner)
	if err != nil {
		// Only possible if a restored snapshot carried a bad owner.
		return nil, fmt.Errorf("%w: seller %q: %v", ErrInvalidIdentity, order.Owner, err)
	}
	required := RequiredLamports(amount, req.TokenDecimals, order.Price)

	vctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	if err := s.verifier.Ping(vctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	buyerLamports, err := s.verifier.NativeBalance(vctx, buyer)
	if err != nil {
		return nil, fmt.Errorf("%w: buyer balance lookup: %v", ErrVerifierUnavailable, err)
	}
	if buyerLamports < required {
		return nil, fmt.Errorf("%w: required %d lamports, available %d",
			ErrInsufficientPayment, required, buyerLamports)
	}
	sellerTokens, err := s.verifier.AssetBalance(vctx, seller, mint)
	if err != nil {
		return nil, fmt.Errorf("%w: seller balance lookup: %v", ErrVerifierUnavailable, err)
	}
	if sellerTokens < amount {
		return nil, fmt.Errorf("%w: required %d base units, seller holds %d",
			ErrInsufficientAssetBalance, amount, sellerTokens)
	}

	updated, removed, err := s.book.Reduce(req.AssetID, req.OrderID, amount)
	if err != nil {
		return nil, err
	}

	s.log.Infow("order_filled",
		"order_id", req.OrderID, "asset_id", req.AssetID, "buyer", req.Buyer,
		"amount", amount, "lamports", required, "removed", removed)

	result := &ExecuteResult{
		OrderID:      req.OrderID,
		Seller:       order.Owner,
		TokensBought: float64(amount) / math.Pow10(int(req.TokenDecimals)),
		LamportsOwed: required,
		Removed:      removed,
		Remaining:    updated.Amount,
	}
	if err := s.persist(req.AssetID); err != nil {
		return result, err
	}
	return result, nil
}
