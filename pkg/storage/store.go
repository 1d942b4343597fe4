package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/tokenmarket/soldex/pkg/dex"
)

// Store keeps the durable order book snapshot in a Pebble database, one
// record per asset id. The whole book is rewritten on every save so the disk
// state always matches the last successful mutation.
type Store struct {
	db  *pebble.DB
	log *zap.SugaredLogger
}

// Open creates any missing parent directory and opens the database.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create book db parent: %w", err)
		}
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open book db at %s: %w", path, err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save writes the snapshot as a single synced batch: the book keyspace is
// cleared and every asset's list rewritten, so a reader never sees a half
// overwrite. Callers serialize saves; the batch keeps each one atomic.
func (s *Store) Save(book map[string][]dex.Order) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange(bookPrefix(), keyUpperBound(bookPrefix()), nil); err != nil {
		return fmt.Errorf("clear book keyspace: %w", err)
	}
	for assetID, orders := range book {
		if len(orders) == 0 {
			continue // absent and empty are the same thing on read
		}
		data, err := json.Marshal(orders)
		if err != nil {
			return fmt.Errorf("marshal orders for %s: %w", assetID, err)
		}
		if err := batch.Set(bookKey(assetID), data, nil); err != nil {
			return fmt.Errorf("set orders for %s: %w", assetID, err)
		}
	}

	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		return fmt.Errorf("apply book batch: %w", err)
	}
	return nil
}

// Load reads the snapshot back. A fresh database yields an empty book. An
// undecodable record is logged and skipped, so the process starts with
// whatever still parses rather than refusing to come up.
func (s *Store) Load() (map[string][]dex.Order, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: bookPrefix(),
		UpperBound: keyUpperBound(bookPrefix()),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate book keyspace: %w", err)
	}

	book := make(map[string][]dex.Order)
	for iter.First(); iter.Valid(); iter.Next() {
		assetID := strings.TrimPrefix(string(iter.Key()), prefixBook)
		var orders []dex.Order
		if err := json.Unmarshal(iter.Value(), &orders); err != nil {
			s.log.Errorw("book_record_corrupt", "asset_id", assetID, "err", err)
			continue
		}
		book[assetID] = orders
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("close book iterator: %w", err)
	}
	return book, nil
}
