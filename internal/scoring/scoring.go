// Package scoring converts raw security reports into normalized risk scores.
// Everything in this package is pure and deterministic: the same report and
// liquidity figure always produce the same RiskScore.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yourorg/token-risk-engine/internal/model"
)

// Sub-score ceilings and the combined raw maximum.
const (
	HoneypotCeiling  = 50
	ContractCeiling  = 30
	HolderCeiling    = 25
	LiquidityCeiling = 25
	RawMax           = HoneypotCeiling + ContractCeiling + HolderCeiling + LiquidityCeiling
)

// Score runs the full scoring pipeline for one token. A nil report is a
// valid input meaning the provider has no data for the token.
func Score(token model.TokenKey, report *model.SecurityReport, liquidityUSD float64) *model.RiskScore {
	honeypot := ScoreHoneypot(report)
	contract := ScoreContract(report)
	holders := ScoreHolders(report)
	liquidity := ScoreLiquidity(report, liquidityUSD)

	raw := honeypot.Score + contract.Score + holders.Score + liquidity.Score
	total := int(math.Round(float64(raw) / float64(RawMax) * 100))
	if total > 100 {
		total = 100
	}

	warnings := make([]model.Warning, 0,
		len(honeypot.Warnings)+len(contract.Warnings)+len(holders.Warnings)+len(liquidity.Warnings))
	warnings = append(warnings, honeypot.Warnings...)
	warnings = append(warnings, contract.Warnings...)
	warnings = append(warnings, holders.Warnings...)
	warnings = append(warnings, liquidity.Warnings...)
	SortWarnings(warnings)

	return &model.RiskScore{
		Token:      token,
		TotalScore: total,
		Level:      GetLevel(total),
		Liquidity:  liquidity,
		Holders:    holders,
		Contract:   contract,
		Honeypot:   honeypot,
		Warnings:   warnings,
		AnalyzedAt: time.Now().UTC(),
	}
}

// NativeScore returns the synthetic all-safe score for the chain-native
// pseudo-token. Native assets are not contracts and carry no warnings.
func NativeScore(token model.TokenKey) *model.RiskScore {
	return &model.RiskScore{
		Token:      token,
		TotalScore: 0,
		Level:      model.LevelLow,
		Contract:   model.ContractScore{Verified: true, Renounced: true},
		Liquidity:  model.LiquidityScore{LPLocked: true, LockedPercent: 100},
		Warnings:   []model.Warning{},
		AnalyzedAt: time.Now().UTC(),
	}
}

// UnknownScore returns the synthetic midpoint score used when the provider
// call itself failed. The failure is absorbed here instead of propagating.
func UnknownScore(token model.TokenKey, reason string) *model.RiskScore {
	return &model.RiskScore{
		Token:      token,
		TotalScore: 25,
		Level:      model.LevelMedium,
		Warnings: []model.Warning{{
			Code:     "ANALYSIS_UNAVAILABLE",
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("Security analysis unavailable: %s", reason),
		}},
		AnalyzedAt: time.Now().UTC(),
	}
}

// ScoreHoneypot computes the honeypot/tax sub-score, capped at 50.
func ScoreHoneypot(report *model.SecurityReport) model.HoneypotScore {
	if report == nil {
		return model.HoneypotScore{
			Score: 0,
			Warnings: []model.Warning{{
				Code:     "NO_DATA",
				Severity: model.SeverityMedium,
				Message:  "No security data available for this token",
			}},
		}
	}

	score := 0
	var warnings []model.Warning

	if report.IsHoneypot {
		score += 50
		warnings = append(warnings, model.Warning{
			Code:     "HONEYPOT",
			Severity: model.SeverityCritical,
			Message:  "Token is flagged as a honeypot",
		})
	}
	if report.CannotSellAll {
		score += 40
		warnings = append(warnings, model.Warning{
			Code:     "CANNOT_SELL",
			Severity: model.SeverityCritical,
			Message:  "Holders cannot sell their full balance",
		})
	}

	// Only the highest matching sell-tax tier applies.
	switch {
	case report.SellTaxPct > 50:
		score += 30
		warnings = append(warnings, taxWarning("HIGH_SELL_TAX", model.SeverityCritical, "Sell", report.SellTaxPct))
	case report.SellTaxPct > 20:
		score += 15
		warnings = append(warnings, taxWarning("HIGH_SELL_TAX", model.SeverityHigh, "Sell", report.SellTaxPct))
	case report.SellTaxPct > 10:
		score += 5
		warnings = append(warnings, taxWarning("HIGH_SELL_TAX", model.SeverityMedium, "Sell", report.SellTaxPct))
	}

	if report.BuyTaxPct > 20 {
		score += 10
		warnings = append(warnings, taxWarning("HIGH_BUY_TAX", model.SeverityHigh, "Buy", report.BuyTaxPct))
	}

	return model.HoneypotScore{
		Score:      clamp(score, HoneypotCeiling),
		IsHoneypot: report.IsHoneypot,
		BuyTaxPct:  report.BuyTaxPct,
		SellTaxPct: report.SellTaxPct,
		Warnings:   warnings,
	}
}

// ScoreContract computes the contract-properties sub-score, capped at 30.
func ScoreContract(report *model.SecurityReport) model.ContractScore {
	if report == nil {
		return model.ContractScore{
			Score: 10,
			Warnings: []model.Warning{{
				Code:     "UNVERIFIED",
				Severity: model.SeverityMedium,
				Message:  "Contract could not be verified",
			}},
		}
	}

	score := 0
	var warnings []model.Warning
	add := func(points int, code string, severity model.Severity, message string) {
		score += points
		warnings = append(warnings, model.Warning{Code: code, Severity: severity, Message: message})
	}

	if !report.IsOpenSource {
		add(15, "NOT_OPEN_SOURCE", model.SeverityHigh, "Contract source code is not verified")
	}
	if report.IsProxy {
		add(5, "PROXY_CONTRACT", model.SeverityMedium, "Contract uses an upgradeable proxy pattern")
	}
	if report.IsMintable {
		add(10, "MINTABLE", model.SeverityHigh, "Token supply can be increased by minting")
	}
	if report.CanReclaimOwnership {
		add(15, "OWNERSHIP_RECLAIMABLE", model.SeverityCritical, "Ownership can be reclaimed after renouncement")
	}
	if report.OwnerChangeBalance {
		add(20, "OWNER_CHANGE_BALANCE", model.SeverityCritical, "Owner can directly modify holder balances")
	}
	if report.HiddenOwner {
		add(10, "HIDDEN_OWNER", model.SeverityHigh, "Contract has a hidden owner")
	}
	if report.TransferPausable {
		add(5, "TRANSFER_PAUSABLE", model.SeverityMedium, "Transfers can be paused by the owner")
	}
	if report.HasBlacklist {
		add(5, "BLACKLIST", model.SeverityMedium, "Contract contains a blacklist function")
	}
	if report.SlippageModifiable {
		add(10, "SLIPPAGE_MODIFIABLE", model.SeverityHigh, "Taxes or slippage can be modified by the owner")
	}

	return model.ContractScore{
		Score:         clamp(score, ContractCeiling),
		Verified:      report.IsOpenSource,
		Renounced:     !report.HiddenOwner && !report.CanReclaimOwnership,
		MaxTaxPercent: math.Max(report.BuyTaxPct, report.SellTaxPct),
		Warnings:      warnings,
	}
}

// ScoreHolders computes the holder-concentration sub-score, capped at 25.
func ScoreHolders(report *model.SecurityReport) model.HolderScore {
	if report == nil || report.Holders == nil {
		return model.HolderScore{
			Score: 5,
			Warnings: []model.Warning{{
				Code:     "NO_HOLDER_DATA",
				Severity: model.SeverityLow,
				Message:  "No holder distribution data available",
			}},
		}
	}

	h := report.Holders
	score := 0
	var warnings []model.Warning

	switch {
	case h.HolderCount < 50:
		score += 10
		warnings = append(warnings, model.Warning{
			Code:     "LOW_HOLDER_COUNT",
			Severity: model.SeverityHigh,
			Message:  fmt.Sprintf("Only %d holders", h.HolderCount),
		})
	case h.HolderCount < 200:
		score += 5
		warnings = append(warnings, model.Warning{
			Code:     "LOW_HOLDER_COUNT",
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("Only %d holders", h.HolderCount),
		})
	}

	// Only the highest matching concentration tier applies.
	switch {
	case h.Top10Percent > 80:
		score += 15
		warnings = append(warnings, concentrationWarning(model.SeverityCritical, h.Top10Percent))
	case h.Top10Percent > 60:
		score += 10
		warnings = append(warnings, concentrationWarning(model.SeverityHigh, h.Top10Percent))
	case h.Top10Percent > 40:
		score += 5
		warnings = append(warnings, concentrationWarning(model.SeverityMedium, h.Top10Percent))
	}

	switch {
	case h.CreatorPercent > 20:
		score += 10
		warnings = append(warnings, creatorWarning(model.SeverityHigh, h.CreatorPercent))
	case h.CreatorPercent > 10:
		score += 5
		warnings = append(warnings, creatorWarning(model.SeverityMedium, h.CreatorPercent))
	}

	return model.HolderScore{
		Score:          clamp(score, HolderCeiling),
		HolderCount:    h.HolderCount,
		Top10Percent:   h.Top10Percent,
		CreatorPercent: h.CreatorPercent,
		Warnings:       warnings,
	}
}

// ScoreLiquidity computes the liquidity/LP-lock sub-score, capped at 25.
// The LP-locked percentage comes from the report and defaults to zero when
// the provider has no data.
func ScoreLiquidity(report *model.SecurityReport, liquidityUSD float64) model.LiquidityScore {
	lockedPercent := 0.0
	if report != nil {
		lockedPercent = report.LPLockedPercent
	}

	score := 0
	var warnings []model.Warning

	// Only the highest matching liquidity tier applies.
	switch {
	case liquidityUSD < 10_000:
		score += 15
		warnings = append(warnings, liquidityWarning(model.SeverityCritical, liquidityUSD))
	case liquidityUSD < 50_000:
		score += 10
		warnings = append(warnings, liquidityWarning(model.SeverityHigh, liquidityUSD))
	case liquidityUSD < 100_000:
		score += 5
		warnings = append(warnings, liquidityWarning(model.SeverityMedium, liquidityUSD))
	}

	if lockedPercent < 50 && liquidityUSD > 10_000 {
		score += 10
		warnings = append(warnings, model.Warning{
			Code:     "LP_UNLOCKED",
			Severity: model.SeverityHigh,
			Message:  fmt.Sprintf("Only %.1f%% of liquidity is locked", lockedPercent),
		})
	} else if lockedPercent < 80 {
		score += 5
		warnings = append(warnings, model.Warning{
			Code:     "LP_UNLOCKED",
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("Only %.1f%% of liquidity is locked", lockedPercent),
		})
	}

	return model.LiquidityScore{
		Score:         clamp(score, LiquidityCeiling),
		LiquidityUSD:  liquidityUSD,
		LPLocked:      lockedPercent >= 80,
		LockedPercent: lockedPercent,
		Warnings:      warnings,
	}
}

// GetLevel maps a total score to its risk level. The ranges are inclusive,
// exhaustive and non-overlapping: low 0-14, medium 15-29, high 30-49,
// critical 50-100.
func GetLevel(total int) model.RiskLevel {
	switch {
	case total < 15:
		return model.LevelLow
	case total < 30:
		return model.LevelMedium
	case total < 50:
		return model.LevelHigh
	default:
		return model.LevelCritical
	}
}

// SortWarnings orders warnings in place by severity, most urgent first.
// The sort is stable: warnings of equal severity keep their insertion order.
func SortWarnings(warnings []model.Warning) {
	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].Severity.Rank() < warnings[j].Severity.Rank()
	})
}

func clamp(score, ceiling int) int {
	if score < 0 {
		return 0
	}
	if score > ceiling {
		return ceiling
	}
	return score
}

func taxWarning(code string, severity model.Severity, kind string, pct float64) model.Warning {
	return model.Warning{
		Code:     code,
		Severity: severity,
		Message:  fmt.Sprintf("%s tax is %.1f%%", kind, pct),
	}
}

func concentrationWarning(severity model.Severity, pct float64) model.Warning {
	return model.Warning{
		Code:     "HIGH_CONCENTRATION",
		Severity: severity,
		Message:  fmt.Sprintf("Top 10 holders control %.1f%% of supply", pct),
	}
}

func creatorWarning(severity model.Severity, pct float64) model.Warning {
	return model.Warning{
		Code:     "CREATOR_HOLDINGS",
		Severity: severity,
		Message:  fmt.Sprintf("Creator holds %.1f%% of supply", pct),
	}
}

func liquidityWarning(severity model.Severity, usd float64) model.Warning {
	return model.Warning{
		Code:     "LOW_LIQUIDITY",
		Severity: severity,
		Message:  fmt.Sprintf("Liquidity is only $%.0f", usd),
	}
}
