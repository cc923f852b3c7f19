// Package store persists risk scores across instances. The store is the
// durable source of truth behind the process-local caches; writes are
// best-effort and last-writer-wins.
package store

import (
	"context"

	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/types"
)

// Store is the persistent score store consumed by the batch processor.
// Lookup returns (nil, nil) when no score is stored for the token.
type Store interface {
	Lookup(ctx context.Context, chain types.SupportedChain, address string) (*model.RiskScore, error)
	Store(ctx context.Context, score *model.RiskScore) error
	Close() error
}
