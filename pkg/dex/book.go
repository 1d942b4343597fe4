package dex

import (
	"fmt"
	"sort"
	"sync"
)

// Book holds every open order, grouped by asset id. An absent key and an
// empty slice both mean "no orders for this asset".
//
// All access goes through the Book's own mutex so that two concurrent fills
// against the same order cannot both observe a sufficient amount and both
// decrement past zero. Callers that validated against a read snapshot must
// expect Reduce to re-check under the write lock.
type Book struct {
	mu     sync.RWMutex
	orders map[string][]*Order // assetID -> open orders, insertion order
}

func NewBook() *Book {
	return &Book{orders: make(map[string][]*Order)}
}

// Restore replaces the book's contents with a loaded snapshot.
func (b *Book) Restore(snapshot map[string][]Order) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.orders = make(map[string][]*Order, len(snapshot))
	for assetID, orders := range snapshot {
		list := make([]*Order, 0, len(orders))
		for _, o := range orders {
			cp := o
			list = append(list, &cp)
		}
		b.orders[assetID] = list
	}
}

// Insert appends an order to its asset's list, creating the list if absent.
func (b *Book) Insert(o *Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.AssetID] = append(b.orders[o.AssetID], o)
}

// Get returns a copy of the order, so callers can inspect it without holding
// the lock. The copy may be stale by the time it is acted on.
func (b *Book) Get(assetID, orderID string) (Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, o := range b.orders[assetID] {
		if o.ID == orderID {
			return *o, true
		}
	}
	return Order{}, false
}

// Remove deletes the order if, and only if, owner created it.
func (b *Book) Remove(assetID, orderID, owner string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.orders[assetID]
	for i, o := range list {
		if o.ID != orderID {
			continue
		}
		if o.Owner != owner {
			return fmt.Errorf("%w: %s did not create order %s", ErrUnauthorized, owner, orderID)
		}
		b.orders[assetID] = append(list[:i], list[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: order %s for asset %s", ErrNotFound, orderID, assetID)
}

// Reduce decrements the order's remaining amount by exactly `amount`,
// deleting the order when it reaches zero. The remaining amount is
// re-validated under the write lock, so a fill that lost a race with another
// fill fails here instead of driving the amount negative.
// Returns the order as it stands after the fill and whether it was removed.
func (b *Book) Reduce(assetID, orderID string, amount uint64) (Order, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.orders[assetID]
	for i, o := range list {
		if o.ID != orderID {
			continue
		}
		if amount > o.Amount {
			return Order{}, false, fmt.Errorf("%w: available %d, requested %d",
				ErrInsufficientOrderAmount, o.Amount, amount)
		}
		o.Amount -= amount
		if o.Amount == 0 {
			b.orders[assetID] = append(list[:i], list[i+1:]...)
			return *o, true, nil
		}
		return *o, false, nil
	}
	return Order{}, false, fmt.Errorf("%w: order %s for asset %s", ErrNotFound, orderID, assetID)
}

// List returns up to limit orders for the asset, sorted ascending by price.
// The sort happens before the truncation so the lowest-priced offers are
// always visible, however large the book. An unknown asset yields an empty
// slice, never an error.
func (b *Book) List(assetID string, limit int) []Order {
	if limit < 0 {
		limit = 0
	}

	b.mu.RLock()
	out := make([]Order, 0, len(b.orders[assetID]))
	for _, o := range b.orders[assetID] {
		out = append(out, *o)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Snapshot deep-copies the whole book for persistence.
func (b *Book) Snapshot() map[string][]Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snapshot := make(map[string][]Order, len(b.orders))
	for assetID, list := range b.orders {
		orders := make([]Order, 0, len(list))
		for _, o := range list {
			orders = append(orders, *o)
		}
		snapshot[assetID] = orders
	}
	return snapshot
}
