package storage

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/tokenmarket/soldex/pkg/dex"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "book.db"), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadFreshDatabase(t *testing.T) {
	s := newTestStore(t)

	book, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(book) != 0 {
		t.Errorf("fresh database loaded %d assets, want 0", len(book))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	book := map[string][]dex.Order{
		"AAA": {
			{ID: "a1", AssetID: "AAA", Amount: 100, Price: 0.5, Owner: "o1", IsSellOrder: true},
			{ID: "a2", AssetID: "AAA", Amount: 250, Price: 1.25, Owner: "o2", IsSellOrder: true},
		},
		"BBB": {
			{ID: "b1", AssetID: "BBB", Amount: 7, Price: 3, Owner: "o1", IsSellOrder: true},
		},
		"CCC": {
			{ID: "c1", AssetID: "CCC", Amount: 1, Price: 0.000000001, Owner: "o3", IsSellOrder: true},
		},
	}

	if err := s.Save(book); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(loaded, book) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, book)
	}
}

// Each save is a whole-book overwrite: assets and orders gone from the
// snapshot must be gone from disk too.
func TestSaveOverwritesWholeBook(t *testing.T) {
	s := newTestStore(t)

	first := map[string][]dex.Order{
		"AAA": {{ID: "a1", AssetID: "AAA", Amount: 100, Price: 0.5, Owner: "o1", IsSellOrder: true}},
		"BBB": {{ID: "b1", AssetID: "BBB", Amount: 7, Price: 3, Owner: "o1", IsSellOrder: true}},
	}
	if err := s.Save(first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := map[string][]dex.Order{
		"AAA": {{ID: "a1", AssetID: "AAA", Amount: 40, Price: 0.5, Owner: "o1", IsSellOrder: true}},
		"BBB": {}, // fully drained asset
	}
	if err := s.Save(second); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := loaded["BBB"]; ok {
		t.Error("drained asset BBB survived the overwrite")
	}
	if len(loaded["AAA"]) != 1 || loaded["AAA"][0].Amount != 40 {
		t.Errorf("AAA = %+v, want single order with amount 40", loaded["AAA"])
	}
}

func TestLoadSkipsCorruptRecord(t *testing.T) {
	s := newTestStore(t)

	good := map[string][]dex.Order{
		"AAA": {{ID: "a1", AssetID: "AAA", Amount: 100, Price: 0.5, Owner: "o1", IsSellOrder: true}},
	}
	if err := s.Save(good); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Plant an undecodable record alongside the good one.
	if err := s.db.Set(bookKey("BAD"), []byte("{not json"), pebble.Sync); err != nil {
		t.Fatalf("plant corrupt record: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := loaded["BAD"]; ok {
		t.Error("corrupt record should be skipped")
	}
	if len(loaded["AAA"]) != 1 {
		t.Errorf("good record lost: %+v", loaded)
	}
}
