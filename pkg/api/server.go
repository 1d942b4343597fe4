package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/tokenmarket/soldex/pkg/dex"
)

// defaultListLimit applies when the limit query parameter is absent or not an
// integer.
const defaultListLimit = 100

// Server exposes the order book operations over REST and broadcasts book
// updates over WebSocket.
type Server struct {
	svc    *dex.Service
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
	http   *http.Server
}

// NewServer wires the routes and hooks the service's change notifications
// into the WebSocket hub.
func NewServer(svc *dex.Service, log *zap.SugaredLogger) *Server {
	s := &Server{
		svc:    svc,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}

	s.setupRoutes()
	svc.OnChange = s.BroadcastBook
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/execute", s.handleExecuteOrder).Methods("POST")
	api.HandleFunc("/assets/{assetId}/orders", s.handleListOrders).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start(addr string, corsOrigins []string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.http = &http.Server{Addr: addr, Handler: c.Handler(s.router)}

	s.log.Infow("api_server_starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	order, err := s.svc.CreateOrder(r.Context(), req.AssetID, req.Amount, req.Price, req.OwnerID)
	if err != nil {
		s.respondOperationError(w, err)
		return
	}

	respondJSON(w, CreateOrderResponse{
		Message: fmt.Sprintf("Order %s created successfully for %d tokens of %s at price %v SOL.",
			order.ID, order.Amount, order.AssetID, order.Price),
		Order: *order,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := s.svc.CancelOrder(r.Context(), req.AssetID, req.OrderID, req.OwnerID); err != nil {
		s.respondOperationError(w, err)
		return
	}

	respondJSON(w, CancelOrderResponse{
		Message: fmt.Sprintf("Order %s cancelled successfully.", req.OrderID),
		OrderID: req.OrderID,
	})
}

func (s *Server) handleExecuteOrder(w http.ResponseWriter, r *http.Request) {
	var req ExecuteOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := s.svc.ExecuteOrder(r.Context(), dex.ExecuteRequest{
		AssetID:       req.AssetID,
		OrderID:       req.OrderID,
		Buyer:         req.Buyer,
		Amount:        req.Amount,
		TokenMint:     req.TokenMint,
		TokenDecimals: req.TokenDecimals,
	})
	if err != nil {
		s.respondOperationError(w, err)
		return
	}

	respondJSON(w, ExecuteOrderResponse{
		Message: fmt.Sprintf("Pre-check passed for order %s: buy %v tokens for %d lamports. Submit the swap transaction out-of-band to settle.",
			result.OrderID, result.TokensBought, result.LamportsOwed),
		OrderID:         result.OrderID,
		Seller:          result.Seller,
		TokensBought:    result.TokensBought,
		LamportsOwed:    result.LamportsOwed,
		OrderRemoved:    result.Removed,
		RemainingAmount: result.Remaining,
	})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	assetID := mux.Vars(r)["assetId"]

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	orders := s.svc.ListOrders(assetID, limit)
	if orders == nil {
		orders = []dex.Order{}
	}

	respondJSON(w, OrderList{AssetID: assetID, Orders: orders})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods
// ==============================

// BroadcastBook pushes the asset's current book to every client subscribed to
// its channel. Registered as the service's OnChange hook.
func (s *Server) BroadcastBook(assetID string) {
	orders := s.svc.ListOrders(assetID, defaultListLimit)
	if orders == nil {
		orders = []dex.Order{}
	}

	s.hub.BroadcastToChannel("book:"+assetID, BookUpdate{
		Type:    "book",
		AssetID: assetID,
		Orders:  orders,
	})
}

// ==============================
// Helper Functions
// ==============================

// respondOperationError turns the service's error taxonomy into user-facing
// outcomes. Anything outside the taxonomy is logged and reported generically
// instead of crashing the request.
func (s *Server) respondOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dex.ErrInvalidIdentity), errors.Is(err, dex.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, dex.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found", err.Error())
	case errors.Is(err, dex.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "not order owner", err.Error())
	case errors.Is(err, dex.ErrInsufficientOrderAmount),
		errors.Is(err, dex.ErrInsufficientPayment),
		errors.Is(err, dex.ErrInsufficientAssetBalance):
		respondError(w, http.StatusConflict, "pre-check failed", err.Error())
	case errors.Is(err, dex.ErrVerifierUnavailable):
		respondError(w, http.StatusBadGateway, "ledger unavailable", err.Error())
	case errors.Is(err, dex.ErrPersist):
		respondError(w, http.StatusInternalServerError, "order book save failed", err.Error())
	default:
		s.log.Errorw("operation_failed", "err", err)
		respondError(w, http.StatusInternalServerError, "internal error", "an unexpected error occurred")
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
