// Package batch implements the bulk analysis pipeline: validation, batch
// cache, persistent-store lookups, and bounded-concurrency analysis of the
// remaining misses.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/token-risk-engine/internal/batchcache"
	"github.com/yourorg/token-risk-engine/internal/dedup"
	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/ratelimit"
	"github.com/yourorg/token-risk-engine/internal/store"
	"github.com/yourorg/token-risk-engine/internal/validation"
)

// DefaultChunkSize bounds how many tokens are analyzed concurrently. Chunks
// run strictly one after another, so at most this many provider calls are in
// flight per batch.
const DefaultChunkSize = 5

// SizeExceededError rejects a whole batch whose unique token count is over
// the caller's ceiling. No per-item work has started when it is returned.
type SizeExceededError struct {
	Unique int
	Limit  int
}

func (e *SizeExceededError) Error() string {
	return fmt.Sprintf("batch of %d unique tokens exceeds limit of %d", e.Unique, e.Limit)
}

// Processor runs batch analysis requests end to end.
type Processor struct {
	registry  *dedup.Registry
	cache     *batchcache.Cache
	store     store.Store
	chunkSize int
}

// NewProcessor wires the pipeline together. The store may be nil, in which
// case every token goes through analysis.
func NewProcessor(registry *dedup.Registry, cache *batchcache.Cache, st store.Store) *Processor {
	return &Processor{
		registry:  registry,
		cache:     cache,
		store:     st,
		chunkSize: DefaultChunkSize,
	}
}

// WithChunkSize overrides the per-chunk concurrency bound.
func (p *Processor) WithChunkSize(n int) *Processor {
	if n > 0 {
		p.chunkSize = n
	}
	return p
}

// itemOutcome is the result of analyzing one unique token.
type itemOutcome struct {
	key      string
	score    *model.RiskScore
	itemErr  *model.ItemError
	cacheHit bool
}

// Process analyzes a batch of request items. Malformed items fail
// individually; an oversized batch fails wholesale with *SizeExceededError
// before any token is touched.
func (p *Processor) Process(ctx context.Context, items []model.BatchItem, maxBatchSize int, requestID string) (*model.BatchResponse, error) {
	start := time.Now()

	resp := &model.BatchResponse{
		Results: make(map[string]*model.RiskScore),
		Errors:  make(map[string]model.ItemError),
		Meta: model.BatchMeta{
			Requested: len(items),
			RequestID: requestID,
		},
	}

	// Validate everything up front and collapse duplicates. The first
	// occurrence of a token wins; its liquidity figure is the one used.
	seen := make(map[string]bool)
	var unique []validation.ValidItem
	for _, r := range validation.ValidateItems(items) {
		if r.Err != nil {
			resp.Errors[r.Key] = *r.Err
			continue
		}
		if seen[r.Key] {
			continue
		}
		seen[r.Key] = true
		unique = append(unique, *r.Valid)
	}
	resp.Meta.Unique = len(unique)

	// The size check runs against unique tokens, before any cache or
	// provider traffic.
	if maxBatchSize > 0 && len(unique) > maxBatchSize {
		return nil, &SizeExceededError{Unique: len(unique), Limit: maxBatchSize}
	}

	tokens := make([]model.TokenKey, len(unique))
	for i, v := range unique {
		tokens[i] = v.Token
	}
	batchKey := batchcache.CompositeKey(tokens)

	// The cache only applies to batches with at least one valid token;
	// otherwise every all-invalid request would share the empty key.
	if len(unique) > 0 {
		if cached := p.cache.Get(batchKey); cached != nil {
			out := *cached
			// This request's own validation errors are not part of the
			// cached entry; merge them in without touching the shared maps.
			errs := make(map[string]model.ItemError, len(resp.Errors))
			for k, v := range resp.Errors {
				errs[k] = v
			}
			out.Errors = errs
			out.Meta.Requested = len(items)
			out.Meta.Failed = len(errs)
			out.Meta.Cached = true
			out.Meta.RequestID = requestID
			out.Meta.ProcessingTimeMs = time.Since(start).Milliseconds()
			logrus.WithFields(logrus.Fields{
				"requestId": requestID,
				"tokens":    len(tokens),
			}).Debug("Batch served from response cache")
			return &out, nil
		}
	}

	// Sequential chunks, concurrent items within a chunk.
	for offset := 0; offset < len(unique); offset += p.chunkSize {
		end := offset + p.chunkSize
		if end > len(unique) {
			end = len(unique)
		}
		chunk := unique[offset:end]

		outcomes := make([]itemOutcome, len(chunk))
		var wg sync.WaitGroup
		for i, item := range chunk {
			wg.Add(1)
			go func(i int, item validation.ValidItem) {
				defer wg.Done()
				outcomes[i] = p.processOne(ctx, item)
			}(i, item)
		}
		wg.Wait()

		for _, out := range outcomes {
			if out.itemErr != nil {
				resp.Errors[out.key] = *out.itemErr
				continue
			}
			resp.Results[out.key] = out.score
			if out.cacheHit {
				resp.Meta.CacheHits++
			} else {
				resp.Meta.CacheMisses++
			}
		}
	}

	resp.Meta.Succeeded = len(resp.Results)
	resp.Meta.Failed = len(resp.Errors)
	resp.Meta.ProcessingTimeMs = time.Since(start).Milliseconds()

	// The response cache only accepts fully successful batches, so a batch
	// with any failed item is recomputed on the next identical request.
	if len(unique) > 0 {
		p.cache.Put(batchKey, resp)
	}

	logrus.WithFields(logrus.Fields{
		"requestId": requestID,
		"requested": resp.Meta.Requested,
		"unique":    resp.Meta.Unique,
		"succeeded": resp.Meta.Succeeded,
		"failed":    resp.Meta.Failed,
		"ms":        resp.Meta.ProcessingTimeMs,
	}).Info("Batch processed")

	return resp, nil
}

// processOne resolves a single token: persistent store first, then the
// dedup registry. Store writes are fire-and-forget.
func (p *Processor) processOne(ctx context.Context, item validation.ValidItem) itemOutcome {
	key := item.Token.String()

	if p.store != nil {
		if score, err := p.store.Lookup(ctx, item.Token.Chain, item.Token.Address); err != nil {
			logrus.WithFields(logrus.Fields{
				"token": key,
				"error": err,
			}).Warn("Store lookup failed, falling through to analysis")
		} else if score != nil {
			return itemOutcome{key: key, score: score, cacheHit: true}
		}
	}

	score, err := p.registry.Analyze(ctx, item.Token, item.Liquidity)
	if err != nil {
		return itemOutcome{key: key, itemErr: classifyError(err)}
	}

	if p.store != nil {
		// Persisting is best-effort and must not delay the response.
		go func(score *model.RiskScore) {
			if err := p.store.Store(context.Background(), score); err != nil {
				logrus.WithFields(logrus.Fields{
					"token": key,
					"error": err,
				}).Warn("Store write failed")
			}
		}(score)
	}

	return itemOutcome{key: key, score: score}
}

// classifyError maps analysis failures onto client-facing item errors.
func classifyError(err error) *model.ItemError {
	var rle *ratelimit.RateLimitedError
	switch {
	case errors.Is(err, dedup.ErrTimeout):
		return &model.ItemError{
			Code:    model.CodeAnalysisTimeout,
			Message: "analysis timed out",
		}
	case errors.As(err, &rle):
		return &model.ItemError{
			Code:    model.CodeRateLimited,
			Message: rle.Error(),
		}
	default:
		return &model.ItemError{
			Code:    model.CodeAnalysisException,
			Message: err.Error(),
		}
	}
}
