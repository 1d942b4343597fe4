package dex

import (
	"errors"
	"sync"
	"testing"
)

func TestBookReduceRevalidatesRemaining(t *testing.T) {
	b := NewBook()
	o := NewOrder("MYTOKEN", 100, 0.5, "owner")
	b.Insert(o)

	if _, _, err := b.Reduce("MYTOKEN", o.ID, 70); err != nil {
		t.Fatalf("first reduce: %v", err)
	}

	// A second fill validated against the stale amount of 100 must fail here.
	_, _, err := b.Reduce("MYTOKEN", o.ID, 70)
	if !errors.Is(err, ErrInsufficientOrderAmount) {
		t.Fatalf("err = %v, want ErrInsufficientOrderAmount", err)
	}

	got, ok := b.Get("MYTOKEN", o.ID)
	if !ok || got.Amount != 30 {
		t.Errorf("remaining = %+v, want amount 30", got)
	}
}

func TestBookReduceToZeroDeletes(t *testing.T) {
	b := NewBook()
	o := NewOrder("MYTOKEN", 100, 0.5, "owner")
	b.Insert(o)

	_, removed, err := b.Reduce("MYTOKEN", o.ID, 100)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !removed {
		t.Error("expected order to be removed at zero")
	}
	if _, ok := b.Get("MYTOKEN", o.ID); ok {
		t.Error("zero-amount order retained in book")
	}
}

// Many goroutines race to fill the same order; the decrements must add up to
// at most the starting amount, never past zero.
func TestBookConcurrentReduce(t *testing.T) {
	b := NewBook()
	o := NewOrder("MYTOKEN", 100, 0.5, "owner")
	b.Insert(o)

	var wg sync.WaitGroup
	var mu sync.Mutex
	filled := uint64(0)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := b.Reduce("MYTOKEN", o.ID, 10); err == nil {
				mu.Lock()
				filled += 10
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if filled != 100 {
		t.Errorf("filled %d base units, want exactly 100", filled)
	}
	if _, ok := b.Get("MYTOKEN", o.ID); ok {
		t.Error("fully raced-down order should be gone")
	}
}

func TestBookSnapshotIsACopy(t *testing.T) {
	b := NewBook()
	o := NewOrder("MYTOKEN", 100, 0.5, "owner")
	b.Insert(o)

	snap := b.Snapshot()
	snap["MYTOKEN"][0].Amount = 1

	got, _ := b.Get("MYTOKEN", o.ID)
	if got.Amount != 100 {
		t.Errorf("mutating the snapshot leaked into the book: %+v", got)
	}
}

func TestBookRestoreRoundTrip(t *testing.T) {
	b := NewBook()
	b.Insert(NewOrder("AAA", 10, 1.5, "o1"))
	b.Insert(NewOrder("AAA", 20, 0.5, "o2"))
	b.Insert(NewOrder("BBB", 30, 2.5, "o3"))

	restored := NewBook()
	restored.Restore(b.Snapshot())

	for _, assetID := range []string{"AAA", "BBB"} {
		want := b.List(assetID, 100)
		got := restored.List(assetID, 100)
		if len(got) != len(want) {
			t.Fatalf("asset %s: restored %d orders, want %d", assetID, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("asset %s order %d: got %+v, want %+v", assetID, i, got[i], want[i])
			}
		}
	}
}
