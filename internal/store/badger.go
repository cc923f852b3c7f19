package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/types"
)

// BadgerStore keeps scores in an embedded BadgerDB with a per-entry TTL, so
// stale analyses age out without a sweeper.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadger opens (or creates) a score store rooted at path.
func OpenBadger(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(path)).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error { return s.db.Close() }

// Lookup returns the stored score for the token, or (nil, nil) when absent
// or expired.
func (s *BadgerStore) Lookup(_ context.Context, chain types.SupportedChain, address string) (*model.RiskScore, error) {
	key := scoreKey(chain, address)

	var out *model.RiskScore
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var score model.RiskScore
			if err := json.Unmarshal(val, &score); err != nil {
				return err
			}
			out = &score
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// Store writes the score with the configured TTL, overwriting any previous
// entry for the token.
func (s *BadgerStore) Store(_ context.Context, score *model.RiskScore) error {
	val, err := json.Marshal(score)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(scoreKey(score.Token.Chain, score.Token.Address), val)
		// A zero TTL means entries never expire.
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
}

func scoreKey(chain types.SupportedChain, address string) []byte {
	return []byte("score:" + string(chain) + ":" + chain.NormalizeAddress(address))
}
