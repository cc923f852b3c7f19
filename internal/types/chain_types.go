// Package types contains shared type definitions used across multiple packages
package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SupportedChain represents a blockchain network supported by the risk engine
type SupportedChain string

// Supported blockchain networks
const (
	ChainEthereum SupportedChain = "ethereum"
	ChainBSC      SupportedChain = "bsc"
	ChainPolygon  SupportedChain = "polygon"
	ChainArbitrum SupportedChain = "arbitrum"
	ChainBase     SupportedChain = "base"
	ChainSolana   SupportedChain = "solana"
)

// ZeroAddress is the EVM zero address, used as the chain-native pseudo-token.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// GoPlusChainIDs maps supported EVM chains to the numeric chain IDs used by
// the GoPlus token_security endpoint.
var GoPlusChainIDs = map[SupportedChain]string{
	ChainEthereum: "1",
	ChainBSC:      "56",
	ChainPolygon:  "137",
	ChainArbitrum: "42161",
	ChainBase:     "8453",
}

// ParseChain validates a chain identifier from a request.
func ParseChain(s string) (SupportedChain, bool) {
	switch c := SupportedChain(strings.ToLower(s)); c {
	case ChainEthereum, ChainBSC, ChainPolygon, ChainArbitrum, ChainBase, ChainSolana:
		return c, true
	default:
		return "", false
	}
}

// IsEVM reports whether the chain uses hexadecimal account-model addresses.
func (c SupportedChain) IsEVM() bool {
	return c != ChainSolana
}

// NormalizeAddress canonicalizes an address for use in cache and dedup keys.
// EVM hex addresses are lowercased; base58 addresses (Solana) are
// case-sensitive and preserved verbatim.
func (c SupportedChain) NormalizeAddress(address string) string {
	if c.IsEVM() {
		return strings.ToLower(address)
	}
	return address
}

// ValidAddress reports whether the address is well-formed for the chain.
func (c SupportedChain) ValidAddress(address string) bool {
	if c.IsEVM() {
		return common.IsHexAddress(address)
	}
	return validBase58(address)
}

// Solana addresses are base58-encoded 32-byte public keys, 32-44 characters.
func validBase58(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '1' && r <= '9':
		case r >= 'A' && r <= 'Z' && r != 'I' && r != 'O':
		case r >= 'a' && r <= 'z' && r != 'l':
		default:
			return false
		}
	}
	return true
}

// IsNativeToken reports whether the address refers to the chain-native
// pseudo-token rather than a deployed contract.
func (c SupportedChain) IsNativeToken(address string) bool {
	if c.IsEVM() {
		return strings.EqualFold(address, ZeroAddress)
	}
	return address == "So11111111111111111111111111111111111111112"
}
