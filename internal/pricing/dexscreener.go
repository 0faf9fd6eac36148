package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"post-sniper/internal/domain"
	"post-sniper/internal/observability"
)

// Default configuration values.
const (
	DefaultDexScreenerURL    = "https://api.dexscreener.com"
	DefaultRequestsPerMinute = 300
)

// Pair is one DexScreener trading pair.
type Pair struct {
	ChainID     string     `json:"chainId"`
	DexID       string     `json:"dexId"`
	PairAddress string     `json:"pairAddress"`
	BaseToken   Token      `json:"baseToken"`
	QuoteToken  Token      `json:"quoteToken"`
	PriceNative string     `json:"priceNative"`
	PriceUSD    string     `json:"priceUsd"`
	Liquidity   *Liquidity `json:"liquidity"`
}

// Liquidity is the pooled depth of a pair.
type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// Token is a pair side.
type Token struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

// LiquidityUSD returns the pair's USD liquidity, 0 when unknown.
func (p Pair) LiquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

// DexScreener quotes assets from the DexScreener token-pairs API.
type DexScreener struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewDexScreener creates a DexScreener client throttled to requestsPerMinute.
func NewDexScreener(baseURL string, requestsPerMinute int, timeout time.Duration) *DexScreener {
	if baseURL == "" {
		baseURL = DefaultDexScreenerURL
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DexScreener{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// Pairs returns every pair listing assetID on chain.
func (d *DexScreener) Pairs(ctx context.Context, chain domain.Chain, assetID string) ([]Pair, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/tokens/v1/%s/%s", d.baseURL, chain, assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dexscreener: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("dexscreener: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var pairs []Pair
	if err := json.NewDecoder(resp.Body).Decode(&pairs); err != nil {
		return nil, fmt.Errorf("dexscreener: decode: %w", err)
	}
	return pairs, nil
}

// Quote returns priceNative of the most liquid pair that trades assetID
// against the chain's wrapped native asset.
func (d *DexScreener) Quote(ctx context.Context, chain domain.Chain, assetID string) (*decimal.Decimal, error) {
	pairs, err := d.Pairs(ctx, chain, assetID)
	if err != nil {
		observability.RecordQuoteError(chain.String())
		return nil, err
	}

	best := BestNativePair(pairs, chain, assetID, "")
	if best == nil {
		observability.RecordQuoteError(chain.String())
		return nil, nil
	}

	price, err := decimal.NewFromString(best.PriceNative)
	if err != nil {
		observability.RecordQuoteError(chain.String())
		return nil, fmt.Errorf("dexscreener: parse priceNative %q: %w", best.PriceNative, err)
	}
	return &price, nil
}

// BestNativePair returns the most liquid pair with assetID as base token and the
// wrapped native asset as quote. A non-empty dexID restricts the search to that dex.
func BestNativePair(pairs []Pair, chain domain.Chain, assetID, dexID string) *Pair {
	native := WrappedNative(chain)
	var best *Pair
	for i := range pairs {
		p := &pairs[i]
		if !sameAddress(chain, p.BaseToken.Address, assetID) || !sameAddress(chain, p.QuoteToken.Address, native) {
			continue
		}
		if dexID != "" && p.DexID != dexID {
			continue
		}
		if p.PriceNative == "" {
			continue
		}
		if best == nil || p.LiquidityUSD() > best.LiquidityUSD() {
			best = p
		}
	}
	return best
}

// sameAddress compares addresses; EVM hex is case-insensitive, base58 is not.
func sameAddress(chain domain.Chain, a, b string) bool {
	if chain == domain.ChainBase {
		return strings.EqualFold(a, b)
	}
	return a == b
}

var _ Source = (*DexScreener)(nil)
