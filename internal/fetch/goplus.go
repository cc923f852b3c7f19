package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/token-risk-engine/internal/circuitbreaker"
	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/types"
)

// GoPlusClient fetches token security reports from the GoPlus Labs API.
type GoPlusClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

// goPlusResponse mirrors the token_security payload. GoPlus encodes numbers
// and booleans as strings ("0.05", "1"), so every field parses explicitly.
type goPlusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Result  map[string]struct {
		IsHoneypot    string `json:"is_honeypot"`
		CannotSellAll string `json:"cannot_sell_all"`
		BuyTax        string `json:"buy_tax"`
		SellTax       string `json:"sell_tax"`

		IsOpenSource       string `json:"is_open_source"`
		IsProxy            string `json:"is_proxy"`
		IsMintable         string `json:"is_mintable"`
		CanTakeBackOwner   string `json:"can_take_back_ownership"`
		OwnerChangeBalance string `json:"owner_change_balance"`
		HiddenOwner        string `json:"hidden_owner"`
		TransferPausable   string `json:"transfer_pausable"`
		IsBlacklisted      string `json:"is_blacklisted"`
		SlippageModifiable string `json:"slippage_modifiable"`

		HolderCount    string `json:"holder_count"`
		CreatorPercent string `json:"creator_percent"`
		Holders        []struct {
			Address string `json:"address"`
			Percent string `json:"percent"`
		} `json:"holders"`

		LPHolders []struct {
			Address  string `json:"address"`
			Percent  string `json:"percent"`
			IsLocked int    `json:"is_locked"`
		} `json:"lp_holders"`
	} `json:"result"`
}

// NewGoPlusClient creates a GoPlus API client. The breaker is optional; when
// nil the client calls the upstream unconditionally.
func NewGoPlusClient(baseURL string, breaker *circuitbreaker.CircuitBreaker) *GoPlusClient {
	return &GoPlusClient{
		baseURL:    baseURL,
		httpClient: StandardClient(newRetryClient()),
		breaker:    breaker,
	}
}

// ServiceName identifies this provider in the rate limiter.
func (g *GoPlusClient) ServiceName() string { return "goplus" }

// FetchSecurity retrieves and decodes the security report for one token.
// Returns (nil, nil) when the provider has no data for the address.
func (g *GoPlusClient) FetchSecurity(ctx context.Context, chain types.SupportedChain, address string) (*model.SecurityReport, error) {
	chainID, ok := types.GoPlusChainIDs[chain]
	if !ok {
		return nil, fmt.Errorf("chain %s is not covered by goplus", chain)
	}

	if g.breaker != nil {
		if err := g.breaker.Allow(); err != nil {
			return nil, err
		}
	}

	report, err := g.fetch(ctx, chainID, address)
	if g.breaker != nil {
		if err != nil {
			g.breaker.RecordFailure(err.Error())
		} else {
			g.breaker.RecordSuccess()
		}
	}
	return report, err
}

func (g *GoPlusClient) fetch(ctx context.Context, chainID, address string) (*model.SecurityReport, error) {
	url := fmt.Sprintf("%s/api/v1/token_security/%s?contract_addresses=%s", g.baseURL, chainID, address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logrus.WithFields(logrus.Fields{"chain_id": chainID, "address": address}).
		Debug("Fetching security report from GoPlus")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching data from GoPlus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GoPlus API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var decoded goPlusResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	if decoded.Code != 1 {
		return nil, fmt.Errorf("GoPlus API error: %s", decoded.Message)
	}

	// The result map is keyed by the lowercased contract address. An empty
	// map means GoPlus has no data, which is not an error.
	token, ok := decoded.Result[normalizedKey(address)]
	if !ok {
		return nil, nil
	}

	report := &model.SecurityReport{
		IsHoneypot:          token.IsHoneypot == "1",
		CannotSellAll:       token.CannotSellAll == "1",
		BuyTaxPct:           parsePercent(token.BuyTax),
		SellTaxPct:          parsePercent(token.SellTax),
		IsOpenSource:        token.IsOpenSource == "1",
		IsProxy:             token.IsProxy == "1",
		IsMintable:          token.IsMintable == "1",
		CanReclaimOwnership: token.CanTakeBackOwner == "1",
		OwnerChangeBalance:  token.OwnerChangeBalance == "1",
		HiddenOwner:         token.HiddenOwner == "1",
		TransferPausable:    token.TransferPausable == "1",
		HasBlacklist:        token.IsBlacklisted == "1",
		SlippageModifiable:  token.SlippageModifiable == "1",
	}

	// Holder data is optional; a missing holder list keeps Holders nil so
	// scoring can apply its no-holder-data path.
	if token.HolderCount != "" {
		holderCount, _ := strconv.Atoi(token.HolderCount)
		creatorPercent, _ := strconv.ParseFloat(token.CreatorPercent, 64)

		var top10 float64
		for _, h := range token.Holders {
			pct, _ := strconv.ParseFloat(h.Percent, 64)
			top10 += pct
		}

		report.Holders = &model.HolderInfo{
			HolderCount:    holderCount,
			Top10Percent:   top10 * 100,
			CreatorPercent: creatorPercent * 100,
		}
	}

	var locked float64
	for _, lp := range token.LPHolders {
		if lp.IsLocked == 1 {
			pct, _ := strconv.ParseFloat(lp.Percent, 64)
			locked += pct
		}
	}
	report.LPLockedPercent = locked * 100

	return report, nil
}

// parsePercent converts GoPlus's fractional tax strings ("0.05") to percent.
func parsePercent(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v * 100
}

// normalizedKey lowercases the address the way GoPlus keys its result map.
func normalizedKey(address string) string {
	return types.ChainEthereum.NormalizeAddress(address)
}
