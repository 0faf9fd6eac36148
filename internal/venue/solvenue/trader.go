// Package solvenue implements Solana venue adapters: the pump.fun bonding
// curve, PumpSwap and Raydium pools. Trades go through the PumpPortal trade API
// and are confirmed over the Solana WebSocket.
package solvenue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"post-sniper/internal/domain"
	"post-sniper/internal/solana"
	"post-sniper/internal/venue"
)

// TraderConfig configures Trader.
type TraderConfig struct {
	PumpPortalURL  string
	APIKey         string
	Wallet         string // base58 public key of the trading wallet
	SlippagePct    float64
	PriorityFee    float64 // SOL
	ConfirmTimeout time.Duration
	HTTPTimeout    time.Duration
}

// Trader submits PumpPortal trades, waits for confirmation and measures the
// wallet delta.
type Trader struct {
	cfg    TraderConfig
	client *http.Client
	rpc    solana.RPCClient
	ws     solana.WSClient
	logger *logrus.Entry
}

// NewTrader creates a Trader.
func NewTrader(cfg TraderConfig, rpc solana.RPCClient, ws solana.WSClient, logger *logrus.Entry) *Trader {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 20 * time.Second
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	cfg.PumpPortalURL = strings.TrimRight(cfg.PumpPortalURL, "/")
	return &Trader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		rpc:    rpc,
		ws:     ws,
		logger: logger,
	}
}

type tradeRequest struct {
	Action           string  `json:"action"`
	Mint             string  `json:"mint"`
	Amount           string  `json:"amount"`
	DenominatedInSol string  `json:"denominatedInSol"`
	Slippage         float64 `json:"slippage"`
	PriorityFee      float64 `json:"priorityFee"`
	Pool             string  `json:"pool"`
}

type tradeResponse struct {
	Signature string   `json:"signature"`
	Errors    []string `json:"errors"`
}

// Trade buys mint for amount SOL or sells amount tokens of mint on pool.
func (t *Trader) Trade(ctx context.Context, pool, mint string, amount decimal.Decimal, dir domain.Direction) (venue.Fill, error) {
	before, err := t.measure(ctx, mint, dir)
	if err != nil {
		return venue.Fill{}, fmt.Errorf("balance before trade: %w", err)
	}

	sig, err := t.submit(ctx, pool, mint, amount, dir)
	if err != nil {
		return venue.Fill{}, err
	}
	log := t.logger.WithFields(logrus.Fields{"signature": sig, "mint": mint, "pool": pool})
	log.Info("trade submitted")

	confirmCtx, cancel := context.WithTimeout(ctx, t.cfg.ConfirmTimeout)
	defer cancel()
	if err := solana.WaitForSignature(confirmCtx, t.ws, t.rpc, sig); err != nil {
		return venue.Fill{ExternalRef: sig}, fmt.Errorf("confirm %s: %w", sig, err)
	}

	after, err := t.measure(ctx, mint, dir)
	if err != nil {
		// Trade landed; report it without a measured amount.
		log.WithError(err).Warn("balance after trade unavailable")
		return venue.Fill{ExternalRef: sig, AmountIn: amount}, nil
	}

	out := after.Sub(before)
	if out.IsNegative() {
		out = decimal.Zero
	}
	return venue.Fill{ExternalRef: sig, AmountIn: amount, AmountOut: out}, nil
}

// measure returns what the trade increases: token balance on buy, SOL on sell.
func (t *Trader) measure(ctx context.Context, mint string, dir domain.Direction) (decimal.Decimal, error) {
	if dir == domain.DirectionBuy {
		return t.rpc.GetTokenBalance(ctx, t.cfg.Wallet, mint)
	}
	lamports, err := t.rpc.GetBalance(ctx, t.cfg.Wallet)
	if err != nil {
		return decimal.Zero, err
	}
	return solana.LamportsToSOL(lamports), nil
}

// submit posts the trade to PumpPortal and returns the transaction signature.
func (t *Trader) submit(ctx context.Context, pool, mint string, amount decimal.Decimal, dir domain.Direction) (string, error) {
	body, err := json.Marshal(tradeRequest{
		Action:           dir.String(),
		Mint:             mint,
		Amount:           amount.String(),
		DenominatedInSol: fmt.Sprintf("%t", dir == domain.DirectionBuy),
		Slippage:         t.cfg.SlippagePct,
		PriorityFee:      t.cfg.PriorityFee,
		Pool:             pool,
	})
	if err != nil {
		return "", fmt.Errorf("pumpportal: marshal: %w", err)
	}

	endpoint := t.cfg.PumpPortalURL + "/api/trade?api-key=" + url.QueryEscape(t.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("pumpportal: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pumpportal: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("pumpportal: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pumpportal: HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var tr tradeResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("pumpportal: decode: %w", err)
	}
	if len(tr.Errors) > 0 {
		return "", fmt.Errorf("pumpportal: %s", strings.Join(tr.Errors, "; "))
	}
	if tr.Signature == "" {
		return "", fmt.Errorf("pumpportal: response has no signature")
	}
	return tr.Signature, nil
}

// WalletBalance reports the trading wallet's SOL balance.
type WalletBalance struct {
	RPC    solana.RPCClient
	Wallet string
}

// NativeBalance implements venue.BalanceSource.
func (w WalletBalance) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	lamports, err := w.RPC.GetBalance(ctx, w.Wallet)
	if err != nil {
		return decimal.Zero, err
	}
	return solana.LamportsToSOL(lamports), nil
}

// TokenBalance implements venue.HoldingSource.
func (w WalletBalance) TokenBalance(ctx context.Context, mint string) (decimal.Decimal, error) {
	return w.RPC.GetTokenBalance(ctx, w.Wallet, mint)
}

var (
	_ venue.BalanceSource = WalletBalance{}
	_ venue.HoldingSource = WalletBalance{}
)
