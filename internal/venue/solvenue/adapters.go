package solvenue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"post-sniper/internal/domain"
	"post-sniper/internal/pricing"
	"post-sniper/internal/venue"
)

// PumpPortal pool identifiers.
const (
	poolPump    = "pump"
	poolPumpAMM = "pump-amm"
	poolRaydium = "raydium"
)

// PumpFun trades on the pump.fun bonding curve while it is not complete.
type PumpFun struct {
	apiURL string
	client *http.Client
	trader *Trader
}

// NewPumpFun creates the bonding-curve adapter. apiURL is the pump.fun frontend API.
func NewPumpFun(apiURL string, trader *Trader) *PumpFun {
	return &PumpFun{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
		trader: trader,
	}
}

// Name implements venue.Adapter.
func (p *PumpFun) Name() string { return domain.VenuePumpFun }

// Chain implements venue.Adapter.
func (p *PumpFun) Chain() domain.Chain { return domain.ChainSolana }

type coinResponse struct {
	Mint     string `json:"mint"`
	Complete bool   `json:"complete"`
	Pool     string `json:"raydium_pool"`
}

// Probe reports availability while the coin exists and its curve is not complete.
func (p *PumpFun) Probe(ctx context.Context, mint string) (venue.Availability, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/coins/"+mint, nil)
	if err != nil {
		return venue.Availability{}, fmt.Errorf("pumpfun: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return venue.Availability{}, fmt.Errorf("pumpfun: request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return venue.Availability{}, nil
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return venue.Availability{}, fmt.Errorf("pumpfun: HTTP %d: %s", resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return venue.Availability{}, fmt.Errorf("pumpfun: read: %w", err)
	}
	// Unknown mints come back as an empty body
	if len(strings.TrimSpace(string(raw))) == 0 {
		return venue.Availability{}, nil
	}

	var coin coinResponse
	if err := json.Unmarshal(raw, &coin); err != nil {
		return venue.Availability{}, fmt.Errorf("pumpfun: decode: %w", err)
	}
	if coin.Mint == "" || coin.Complete {
		return venue.Availability{}, nil
	}
	return venue.Availability{Available: true, Metadata: map[string]string{"pool": poolPump}}, nil
}

// Execute implements venue.Adapter.
func (p *PumpFun) Execute(ctx context.Context, mint string, amount decimal.Decimal, dir domain.Direction) (venue.Fill, error) {
	return p.trader.Trade(ctx, poolPump, mint, amount, dir)
}

// PairSource lists DexScreener pairs for an asset.
type PairSource interface {
	Pairs(ctx context.Context, chain domain.Chain, assetID string) ([]pricing.Pair, error)
}

// Pool trades on an AMM found through DexScreener (PumpSwap or Raydium).
type Pool struct {
	name   string
	dexID  string
	pool   string
	pairs  PairSource
	trader *Trader
}

// NewPumpSwap creates the PumpSwap AMM adapter.
func NewPumpSwap(pairs PairSource, trader *Trader) *Pool {
	return &Pool{name: domain.VenuePumpSwap, dexID: "pumpswap", pool: poolPumpAMM, pairs: pairs, trader: trader}
}

// NewRaydium creates the Raydium adapter.
func NewRaydium(pairs PairSource, trader *Trader) *Pool {
	return &Pool{name: domain.VenueRaydium, dexID: "raydium", pool: poolRaydium, pairs: pairs, trader: trader}
}

// Name implements venue.Adapter.
func (p *Pool) Name() string { return p.name }

// Chain implements venue.Adapter.
func (p *Pool) Chain() domain.Chain { return domain.ChainSolana }

// Probe reports availability when a SOL pair with liquidity exists on the dex.
func (p *Pool) Probe(ctx context.Context, mint string) (venue.Availability, error) {
	pairs, err := p.pairs.Pairs(ctx, domain.ChainSolana, mint)
	if err != nil {
		return venue.Availability{}, err
	}
	best := pricing.BestNativePair(pairs, domain.ChainSolana, mint, p.dexID)
	if best == nil || best.LiquidityUSD() <= 0 {
		return venue.Availability{}, nil
	}
	return venue.Availability{
		Available: true,
		Metadata:  map[string]string{"pair": best.PairAddress, "pool": p.pool},
	}, nil
}

// Execute implements venue.Adapter.
func (p *Pool) Execute(ctx context.Context, mint string, amount decimal.Decimal, dir domain.Direction) (venue.Fill, error) {
	return p.trader.Trade(ctx, p.pool, mint, amount, dir)
}

var (
	_ venue.Adapter = (*PumpFun)(nil)
	_ venue.Adapter = (*Pool)(nil)
)
