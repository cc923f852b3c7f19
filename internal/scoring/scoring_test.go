package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/types"
)

// safeReport returns a report with every field at its safest value.
func safeReport() *model.SecurityReport {
	return &model.SecurityReport{
		IsOpenSource: true,
		Holders: &model.HolderInfo{
			HolderCount:    1000,
			Top10Percent:   25,
			CreatorPercent: 2,
		},
		LPLockedPercent: 95,
	}
}

func testKey() model.TokenKey {
	return model.NewTokenKey(types.ChainEthereum, "0xAbC0000000000000000000000000000000000001")
}

func TestScore_HoneypotOnly(t *testing.T) {
	report := safeReport()
	report.IsHoneypot = true

	score := Score(testKey(), report, 200_000)

	assert.Equal(t, 50, score.Honeypot.Score, "honeypot flag alone should max the honeypot sub-score")
	assert.Equal(t, 0, score.Contract.Score, "safe contract fields should add nothing")
	assert.Equal(t, 0, score.Holders.Score, "safe holder fields should add nothing")
	assert.Equal(t, 0, score.Liquidity.Score, "deep locked liquidity should add nothing")
	assert.Equal(t, 38, score.TotalScore, "total should be round(50/130*100)")
	assert.Equal(t, model.LevelHigh, score.Level)

	require.NotEmpty(t, score.Warnings)
	assert.Equal(t, "HONEYPOT", score.Warnings[0].Code, "honeypot warning should sort first")
	assert.Equal(t, model.SeverityCritical, score.Warnings[0].Severity)
}

func TestScore_SafeToken(t *testing.T) {
	score := Score(testKey(), safeReport(), 200_000)
	assert.Equal(t, 0, score.TotalScore)
	assert.Equal(t, model.LevelLow, score.Level)
	assert.Empty(t, score.Warnings)
	assert.True(t, score.Contract.Verified)
	assert.True(t, score.Contract.Renounced)
	assert.True(t, score.Liquidity.LPLocked)
}

func TestScoreHoneypot_TaxTiers(t *testing.T) {
	tests := []struct {
		name     string
		sellTax  float64
		buyTax   float64
		expected int
	}{
		{"no tax", 0, 0, 0},
		{"sell tax just above 10", 10.5, 0, 5},
		{"sell tax just above 20", 25, 0, 15},
		{"sell tax above 50", 60, 0, 30},
		{"only highest sell tier applies", 60, 0, 30},
		{"buy tax above 20", 0, 25, 10},
		{"both taxes", 60, 25, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := safeReport()
			report.SellTaxPct = tt.sellTax
			report.BuyTaxPct = tt.buyTax
			got := ScoreHoneypot(report)
			assert.Equal(t, tt.expected, got.Score)
		})
	}
}

func TestScoreHoneypot_ClampAndNoData(t *testing.T) {
	report := safeReport()
	report.IsHoneypot = true
	report.CannotSellAll = true
	report.SellTaxPct = 99
	report.BuyTaxPct = 99

	got := ScoreHoneypot(report)
	assert.Equal(t, HoneypotCeiling, got.Score, "sub-score must clamp at its ceiling")

	noData := ScoreHoneypot(nil)
	assert.Equal(t, 0, noData.Score)
	require.Len(t, noData.Warnings, 1)
	assert.Equal(t, "NO_DATA", noData.Warnings[0].Code)
	assert.Equal(t, model.SeverityMedium, noData.Warnings[0].Severity)
}

func TestScoreContract_Flags(t *testing.T) {
	report := safeReport()
	report.IsOpenSource = false
	report.OwnerChangeBalance = true

	got := ScoreContract(report)
	assert.Equal(t, ContractCeiling, got.Score, "15+20 should clamp to the ceiling")
	assert.False(t, got.Verified)

	report = safeReport()
	report.HiddenOwner = true
	got = ScoreContract(report)
	assert.Equal(t, 10, got.Score)
	assert.False(t, got.Renounced, "hidden owner means ownership is not renounced")

	absent := ScoreContract(nil)
	assert.Equal(t, 10, absent.Score)
	require.Len(t, absent.Warnings, 1)
	assert.Equal(t, "UNVERIFIED", absent.Warnings[0].Code)
}

func TestScoreContract_MaxTax(t *testing.T) {
	report := safeReport()
	report.BuyTaxPct = 3
	report.SellTaxPct = 8
	got := ScoreContract(report)
	assert.Equal(t, 8.0, got.MaxTaxPercent)
}

func TestScoreHolders(t *testing.T) {
	tests := []struct {
		name     string
		holders  model.HolderInfo
		expected int
	}{
		{"healthy distribution", model.HolderInfo{HolderCount: 1000, Top10Percent: 25, CreatorPercent: 2}, 0},
		{"tiny holder base", model.HolderInfo{HolderCount: 10, Top10Percent: 25, CreatorPercent: 2}, 10},
		{"small holder base", model.HolderInfo{HolderCount: 150, Top10Percent: 25, CreatorPercent: 2}, 5},
		{"extreme concentration", model.HolderInfo{HolderCount: 1000, Top10Percent: 90, CreatorPercent: 2}, 15},
		{"moderate concentration", model.HolderInfo{HolderCount: 1000, Top10Percent: 65, CreatorPercent: 2}, 10},
		{"mild concentration", model.HolderInfo{HolderCount: 1000, Top10Percent: 45, CreatorPercent: 2}, 5},
		{"creator heavy", model.HolderInfo{HolderCount: 1000, Top10Percent: 25, CreatorPercent: 30}, 10},
		{"creator moderate", model.HolderInfo{HolderCount: 1000, Top10Percent: 25, CreatorPercent: 15}, 5},
		{"worst case clamps", model.HolderInfo{HolderCount: 5, Top10Percent: 95, CreatorPercent: 50}, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := safeReport()
			holders := tt.holders
			report.Holders = &holders
			got := ScoreHolders(report)
			assert.Equal(t, tt.expected, got.Score)
		})
	}

	t.Run("missing holder data", func(t *testing.T) {
		report := safeReport()
		report.Holders = nil
		got := ScoreHolders(report)
		assert.Equal(t, 5, got.Score)
		require.Len(t, got.Warnings, 1)
		assert.Equal(t, "NO_HOLDER_DATA", got.Warnings[0].Code)
		assert.Equal(t, model.SeverityLow, got.Warnings[0].Severity)
	})
}

func TestScoreLiquidity(t *testing.T) {
	tests := []struct {
		name      string
		liquidity float64
		locked    float64
		expected  int
	}{
		{"deep and locked", 200_000, 95, 0},
		{"deep but barely locked", 200_000, 70, 5},
		{"deep and unlocked", 200_000, 30, 10},
		{"thin", 75_000, 95, 5},
		{"very thin", 25_000, 95, 10},
		{"dust", 5_000, 95, 15},
		{"dust and unlocked", 5_000, 30, 20}, // low-liquidity gate skips the high LP tier
		{"worst case", 5_000, 0, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := safeReport()
			report.LPLockedPercent = tt.locked
			got := ScoreLiquidity(report, tt.liquidity)
			assert.Equal(t, tt.expected, got.Score)
			assert.Equal(t, tt.locked >= 80, got.LPLocked)
		})
	}
}

func TestGetLevel_ExhaustiveAndMonotonic(t *testing.T) {
	assert.Equal(t, model.LevelLow, GetLevel(0))
	assert.Equal(t, model.LevelLow, GetLevel(14))
	assert.Equal(t, model.LevelMedium, GetLevel(15))
	assert.Equal(t, model.LevelMedium, GetLevel(29))
	assert.Equal(t, model.LevelHigh, GetLevel(30))
	assert.Equal(t, model.LevelHigh, GetLevel(49))
	assert.Equal(t, model.LevelCritical, GetLevel(50))
	assert.Equal(t, model.LevelCritical, GetLevel(100))

	// Every integer score maps to exactly one level and the mapping never
	// steps back toward a lower rank.
	rank := map[model.RiskLevel]int{
		model.LevelLow: 0, model.LevelMedium: 1, model.LevelHigh: 2, model.LevelCritical: 3,
	}
	prev := 0
	for score := 0; score <= 100; score++ {
		level := GetLevel(score)
		r, known := rank[level]
		require.True(t, known, "score %d mapped to unknown level %q", score, level)
		require.GreaterOrEqual(t, r, prev, "level mapping must be monotonic at score %d", score)
		prev = r
	}
}

func TestSortWarnings_Stable(t *testing.T) {
	warnings := []model.Warning{
		{Code: "A", Severity: model.SeverityMedium},
		{Code: "B", Severity: model.SeverityHigh},
		{Code: "C", Severity: model.SeverityMedium},
		{Code: "D", Severity: model.SeverityCritical},
	}

	SortWarnings(warnings)

	codes := make([]string, len(warnings))
	for i, w := range warnings {
		codes[i] = w.Code
	}
	assert.Equal(t, []string{"D", "B", "A", "C"}, codes,
		"equal-severity warnings must keep their insertion order")
}

func TestNativeScore(t *testing.T) {
	score := NativeScore(model.NewTokenKey(types.ChainEthereum, types.ZeroAddress))
	assert.Equal(t, 0, score.TotalScore)
	assert.Equal(t, model.LevelLow, score.Level)
	assert.Empty(t, score.Warnings)
}

func TestUnknownScore(t *testing.T) {
	score := UnknownScore(testKey(), "provider unreachable")
	assert.Equal(t, 25, score.TotalScore)
	assert.Equal(t, model.LevelMedium, score.Level)
	require.Len(t, score.Warnings, 1)
	assert.Contains(t, score.Warnings[0].Message, "provider unreachable")
}

func TestScore_Determinism(t *testing.T) {
	report := safeReport()
	report.IsMintable = true
	report.SellTaxPct = 12

	a := Score(testKey(), report, 60_000)
	b := Score(testKey(), report, 60_000)

	assert.Equal(t, a.TotalScore, b.TotalScore)
	assert.Equal(t, a.Level, b.Level)
	assert.Equal(t, a.Warnings, b.Warnings)
}
