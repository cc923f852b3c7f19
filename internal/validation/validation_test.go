package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/types"
)

func TestValidateItems_MixedBatch(t *testing.T) {
	items := []model.BatchItem{
		{Chain: "ethereum", Address: "0xDAC17F958D2ee523a2206206994597C13D831ec7", Liquidity: 120000},
		{Chain: "dogechain", Address: "0xdac17f958d2ee523a2206206994597c13d831ec7"},
		{Chain: "bsc", Address: "not-an-address"},
		{Chain: "solana", Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"},
	}

	results := ValidateItems(items)
	require.Len(t, results, 4, "one result per input item")

	require.NotNil(t, results[0].Valid)
	assert.Equal(t, types.ChainEthereum, results[0].Valid.Token.Chain)
	assert.Equal(t, "0xdac17f958d2ee523a2206206994597c13d831ec7", results[0].Valid.Token.Address,
		"EVM addresses are lowercased")
	assert.Equal(t, 120000.0, results[0].Valid.Liquidity)

	require.NotNil(t, results[1].Err)
	assert.Equal(t, model.CodeInvalidChain, results[1].Err.Code)
	assert.Equal(t, "dogechain-0xdac17f958d2ee523a2206206994597c13d831ec7", results[1].Key,
		"invalid items still get an addressable key")

	require.NotNil(t, results[2].Err)
	assert.Equal(t, model.CodeInvalidAddress, results[2].Err.Code)

	require.NotNil(t, results[3].Valid)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", results[3].Valid.Token.Address,
		"Solana addresses keep their case")
}

func TestValidateItems_Empty(t *testing.T) {
	assert.Empty(t, ValidateItems(nil))
}
