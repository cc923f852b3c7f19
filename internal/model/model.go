// Package model defines the core data structures for the token risk engine.
package model

import (
	"fmt"
	"time"

	"github.com/yourorg/token-risk-engine/internal/types"
)

// Severity classifies how urgent a risk warning is.
type Severity string

// Warning severities, from most to least urgent.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityRank orders severities for warning sorting; lower sorts first.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Rank returns the sort rank of the severity. Unknown severities sort last.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// Warning is a single risk finding. Warnings are created once and never mutated.
type Warning struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// RiskLevel buckets a total score into a coarse risk classification.
type RiskLevel string

// Risk levels mapped from the 0-100 total score.
const (
	LevelLow      RiskLevel = "low"
	LevelMedium   RiskLevel = "medium"
	LevelHigh     RiskLevel = "high"
	LevelCritical RiskLevel = "critical"
)

// TokenKey identifies a token on a specific chain. The address is stored in
// normalized form so equality, cache keys and dedup keys all agree.
type TokenKey struct {
	Chain   types.SupportedChain `json:"chain"`
	Address string               `json:"address"`
}

// NewTokenKey builds a TokenKey with the address normalized for the chain.
func NewTokenKey(chain types.SupportedChain, address string) TokenKey {
	return TokenKey{Chain: chain, Address: chain.NormalizeAddress(address)}
}

// String renders the per-token composite key "{chain}-{normalizedAddress}".
func (k TokenKey) String() string {
	return fmt.Sprintf("%s-%s", k.Chain, k.Address)
}

// HolderInfo carries holder-distribution figures from the security provider.
type HolderInfo struct {
	HolderCount    int     `json:"holder_count"`
	Top10Percent   float64 `json:"top10_percent"`
	CreatorPercent float64 `json:"creator_percent"`
}

// SecurityReport is the provider view of a token's contract properties.
// A nil *SecurityReport means the provider has no data for the token, which
// is a valid, non-error outcome. Holder data may be absent independently of
// the rest of the report, so it lives behind its own pointer.
type SecurityReport struct {
	IsHoneypot    bool    `json:"is_honeypot"`
	CannotSellAll bool    `json:"cannot_sell_all"`
	BuyTaxPct     float64 `json:"buy_tax_pct"`
	SellTaxPct    float64 `json:"sell_tax_pct"`

	IsOpenSource        bool `json:"is_open_source"`
	IsProxy             bool `json:"is_proxy"`
	IsMintable          bool `json:"is_mintable"`
	CanReclaimOwnership bool `json:"can_reclaim_ownership"`
	OwnerChangeBalance  bool `json:"owner_change_balance"`
	HiddenOwner         bool `json:"hidden_owner"`
	TransferPausable    bool `json:"transfer_pausable"`
	HasBlacklist        bool `json:"has_blacklist"`
	SlippageModifiable  bool `json:"slippage_modifiable"`

	Holders *HolderInfo `json:"holders,omitempty"`

	LPLockedPercent float64 `json:"lp_locked_percent"`
}

// HoneypotScore is the honeypot/tax sub-score, capped at 50.
type HoneypotScore struct {
	Score      int       `json:"score"`
	IsHoneypot bool      `json:"is_honeypot"`
	BuyTaxPct  float64   `json:"buy_tax_pct"`
	SellTaxPct float64   `json:"sell_tax_pct"`
	Warnings   []Warning `json:"-"`
}

// ContractScore is the contract-properties sub-score, capped at 30.
type ContractScore struct {
	Score         int       `json:"score"`
	Verified      bool      `json:"verified"`
	Renounced     bool      `json:"renounced"`
	MaxTaxPercent float64   `json:"max_tax_percent"`
	Warnings      []Warning `json:"-"`
}

// HolderScore is the holder-concentration sub-score, capped at 25.
type HolderScore struct {
	Score          int       `json:"score"`
	HolderCount    int       `json:"holder_count"`
	Top10Percent   float64   `json:"top10_percent"`
	CreatorPercent float64   `json:"creator_percent"`
	Warnings       []Warning `json:"-"`
}

// LiquidityScore is the liquidity/LP-lock sub-score, capped at 25.
type LiquidityScore struct {
	Score         int       `json:"score"`
	LiquidityUSD  float64   `json:"liquidity_usd"`
	LPLocked      bool      `json:"lp_locked"`
	LockedPercent float64   `json:"locked_percent"`
	Warnings      []Warning `json:"-"`
}

// RiskScore is the aggregate analysis result for one token. It is produced
// once per analysis and treated as immutable afterwards.
type RiskScore struct {
	Token      TokenKey       `json:"token"`
	TotalScore int            `json:"total_score"`
	Level      RiskLevel      `json:"level"`
	Liquidity  LiquidityScore `json:"liquidity"`
	Holders    HolderScore    `json:"holders"`
	Contract   ContractScore  `json:"contract"`
	Honeypot   HoneypotScore  `json:"honeypot"`
	Warnings   []Warning      `json:"warnings"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
}
