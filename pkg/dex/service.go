package dex

import (
	"context"
	"fmt"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Store persists whole-book snapshots. A save failure is surfaced to the
// caller of the triggering mutation; the in-memory mutation stands either way.
type Store interface {
	Save(book map[string][]Order) error
}

// BalanceVerifier is the read-only view of the ledger consulted during the
// execute pre-check. Both lookups may fail with a transport error, which is
// distinct from a balance below requirement. An asset holding account that
// does not exist on the ledger reports a balance of zero, not an error.
type BalanceVerifier interface {
	Ping(ctx context.Context) error
	NativeBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	AssetBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
}

// Service owns the order book and applies the four operations to it.
// Every successful mutation is followed by a snapshot save before the
// operation returns.
type Service struct {
	log      *zap.SugaredLogger
	book     *Book
	store    Store
	verifier BalanceVerifier

	// verifyTimeout bounds the ledger round-trips in ExecuteOrder; expiry is
	// reported as ErrVerifierUnavailable.
	verifyTimeout time.Duration

	// saveMu serializes snapshot-then-save so two concurrent mutations cannot
	// interleave their writes.
	saveMu sync.Mutex

	// OnChange, when set, is called with the asset id after every successful
	// mutation. Used by the API server to broadcast book updates.
	OnChange func(assetID string)
}

func NewService(log *zap.SugaredLogger, book *Book, store Store, verifier BalanceVerifier, verifyTimeout time.Duration) *Service {
	return &Service{
		log:           log,
		book:          book,
		store:         store,
		verifier:      verifier,
		verifyTimeout: verifyTimeout,
	}
}

// CreateOrder validates the owner identity, appends a new sell order and
// persists the book. The owner's token holdings are NOT verified against the
// ledger here; only the execute pre-check consults balances.
func (s *Service) CreateOrder(ctx context.Context, assetID string, amount int64, price float64, owner string) (*Order, error) {
	if _, err := solana.PublicKeyFromBase58(owner); err != nil {
		return nil, fmt.Errorf("%w: owner %q: %v", ErrInvalidIdentity, owner, err)
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive, got %v", ErrInvalidAmount, price)
	}

	order := NewOrder(assetID, uint64(amount), price, owner)
	s.book.Insert(order)

	s.log.Infow("order_created",
		"order_id", order.ID, "asset_id", assetID, "amount", amount, "price", price, "owner", owner)

	if err := s.persist(assetID); err != nil {
		return order, err
	}
	return order, nil
}

// CancelOrder removes the order if the caller created it.
func (s *Service) CancelOrder(ctx context.Context, assetID, orderID, owner string) error {
	if _, err := solana.PublicKeyFromBase58(owner); err != nil {
		return fmt.Errorf("%w: owner %q: %v", ErrInvalidIdentity, owner, err)
	}

	if err := s.book.Remove(assetID, orderID, owner); err != nil {
		return err
	}

	s.log.Infow("order_cancelled", "order_id", orderID, "asset_id", assetID, "owner", owner)
	return s.persist(assetID)
}

// ListOrders returns up to limit open orders for the asset, lowest price
// first. Unknown assets yield an empty slice.
func (s *Service) ListOrders(assetID string, limit int) []Order {
	return s.book.List(assetID, limit)
}

// Persist saves a snapshot of the whole book. Called after every mutation and
// once more at shutdown.
func (s *Service) Persist() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.store.Save(s.book.Snapshot()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (s *Service) persist(assetID string) error {
	err := s.Persist()
	if err != nil {
		// The in-memory mutation stands; the inconsistency window closes on
		// the next successful save or a restart-reload.
		s.log.Errorw("book_save_failed", "asset_id", assetID, "err", err)
	} else {
		s.log.Debugw("book_saved", "asset_id", assetID)
	}
	if s.OnChange != nil {
		s.OnChange(assetID)
	}
	return err
}
