package dex

import "github.com/google/uuid"

// Order is a standing offer to sell `Amount` base units of the asset
// identified by AssetID at a fixed unit price in SOL.
//
// ID and all fields except Amount are immutable after creation. Amount only
// ever decreases: a fill decrements it, and an order whose amount reaches
// zero is removed from the book rather than kept as an empty record.
type Order struct {
	ID          string  `json:"id"`
	AssetID     string  `json:"assetId"`
	Amount      uint64  `json:"amount"`  // base units of the asset
	Price       float64 `json:"price"`   // SOL per whole token
	Owner       string  `json:"ownerId"` // base58 Solana pubkey of the creator
	IsSellOrder bool    `json:"isSellOrder"`
}

// NewOrder assigns a fresh uuid. IDs are never reused, even after the order
// is cancelled or fully filled.
func NewOrder(assetID string, amount uint64, price float64, owner string) *Order {
	return &Order{
		ID:          uuid.NewString(),
		AssetID:     assetID,
		Amount:      amount,
		Price:       price,
		Owner:       owner,
		IsSellOrder: true, // buy orders are not produced yet; queries must not rely on this
	}
}
