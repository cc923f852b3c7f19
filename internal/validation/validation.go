// Package validation checks batch request items before any analysis work.
// Malformed entries are rejected individually; they never fail the batch.
package validation

import (
	"fmt"

	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/types"
)

// ValidItem is a request item that passed validation, carrying its
// normalized token key.
type ValidItem struct {
	Token     model.TokenKey
	Liquidity float64
}

// ItemResult pairs a raw request item with its validation outcome. Exactly
// one of Valid and Err is set.
type ItemResult struct {
	Valid *ValidItem
	Err   *model.ItemError

	// Key is the per-token composite key when the item parsed far enough to
	// have one; raw chain-address otherwise, so error maps stay addressable.
	Key string
}

// ValidateItems checks every item and returns a result per input, in input
// order. Unknown chains and malformed addresses become per-item errors.
func ValidateItems(items []model.BatchItem) []ItemResult {
	results := make([]ItemResult, 0, len(items))
	for _, item := range items {
		results = append(results, validateItem(item))
	}
	return results
}

func validateItem(item model.BatchItem) ItemResult {
	chain, ok := types.ParseChain(item.Chain)
	if !ok {
		return ItemResult{
			Key: fmt.Sprintf("%s-%s", item.Chain, item.Address),
			Err: &model.ItemError{
				Code:    model.CodeInvalidChain,
				Message: fmt.Sprintf("unsupported chain %q", item.Chain),
			},
		}
	}

	if !chain.ValidAddress(item.Address) {
		return ItemResult{
			Key: fmt.Sprintf("%s-%s", chain, item.Address),
			Err: &model.ItemError{
				Code:    model.CodeInvalidAddress,
				Message: fmt.Sprintf("malformed address %q for chain %s", item.Address, chain),
			},
		}
	}

	token := model.NewTokenKey(chain, item.Address)
	return ItemResult{
		Key:   token.String(),
		Valid: &ValidItem{Token: token, Liquidity: item.Liquidity},
	}
}
