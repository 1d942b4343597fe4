package api

import "github.com/tokenmarket/soldex/pkg/dex"

// ==============================
// Request Types
// ==============================

// CreateOrderRequest is the payload for POST /api/v1/orders
type CreateOrderRequest struct {
	AssetID string  `json:"assetId"`
	Amount  int64   `json:"amount"` // base units
	Price   float64 `json:"price"`  // SOL per whole token
	OwnerID string  `json:"ownerId"`
}

// CancelOrderRequest is the payload for POST /api/v1/orders/cancel
type CancelOrderRequest struct {
	AssetID string `json:"assetId"`
	OrderID string `json:"orderId"`
	OwnerID string `json:"ownerId"`
}

// ExecuteOrderRequest is the payload for POST /api/v1/orders/execute
type ExecuteOrderRequest struct {
	AssetID       string `json:"assetId"`
	OrderID       string `json:"orderId"`
	Buyer         string `json:"buyer"`
	Amount        int64  `json:"amount"` // base units to buy
	TokenMint     string `json:"tokenMint"`
	TokenDecimals uint8  `json:"tokenDecimals"`
}

// ==============================
// Response Types
// ==============================

// CreateOrderResponse confirms a created order
type CreateOrderResponse struct {
	Message string    `json:"message"`
	Order   dex.Order `json:"order"`
}

// CancelOrderResponse confirms a cancelled order
type CancelOrderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

// ExecuteOrderResponse reports a passed fill pre-check. The swap itself is
// the caller's to submit; this service only gatekeeps it.
type ExecuteOrderResponse struct {
	Message         string  `json:"message"`
	OrderID         string  `json:"orderId"`
	Seller          string  `json:"seller"`
	TokensBought    float64 `json:"tokensBought"`
	LamportsOwed    uint64  `json:"lamportsOwed"`
	OrderRemoved    bool    `json:"orderRemoved"`
	RemainingAmount uint64  `json:"remainingAmount"`
}

// OrderList is the payload for GET /api/v1/assets/{assetId}/orders,
// sorted ascending by price
type OrderList struct {
	AssetID string      `json:"assetId"`
	Orders  []dex.Order `json:"orders"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by clients to manage channel subscriptions,
// e.g. ["book:MYTOKEN"]
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// BookUpdate is broadcast on a "book:<assetId>" channel after every
// successful mutation
type BookUpdate struct {
	Type    string      `json:"type"` // "book"
	AssetID string      `json:"assetId"`
	Orders  []dex.Order `json:"orders"` // sorted ascending by price
}
