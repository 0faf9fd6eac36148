package evmvenue

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"post-sniper/internal/domain"
	"post-sniper/internal/evm"
	"post-sniper/internal/venue"
)

// UniswapV2 trades through a Uniswap V2 router against the WETH pair.
type UniswapV2 struct {
	client  Chain
	router  common.Address
	factory common.Address
	cfg     Config
	now     func() time.Time
}

// NewUniswapV2 creates the V2 adapter.
func NewUniswapV2(client Chain, router, factory common.Address, cfg Config) *UniswapV2 {
	return &UniswapV2{client: client, router: router, factory: factory, cfg: cfg, now: time.Now}
}

// Name implements venue.Adapter.
func (u *UniswapV2) Name() string { return domain.VenueUniswapV2 }

// Chain implements venue.Adapter.
func (u *UniswapV2) Chain() domain.Chain { return domain.ChainBase }

// Probe reports availability when the factory has a WETH pair for the token.
func (u *UniswapV2) Probe(ctx context.Context, assetID string) (venue.Availability, error) {
	token, err := evm.ParseAddress(assetID)
	if err != nil {
		return venue.Availability{}, err
	}
	pair, err := callAddress(ctx, u.client, v2FactoryABI, u.factory, "getPair", u.cfg.WETH, token)
	if err != nil {
		return venue.Availability{}, fmt.Errorf("uniswap-v2: getPair: %w", err)
	}
	if pair == (common.Address{}) {
		return venue.Availability{}, nil
	}
	return venue.Availability{Available: true, Metadata: map[string]string{"pair": pair.Hex()}}, nil
}

// Execute implements venue.Adapter.
func (u *UniswapV2) Execute(ctx context.Context, assetID string, amount decimal.Decimal, dir domain.Direction) (venue.Fill, error) {
	token, err := evm.ParseAddress(assetID)
	if err != nil {
		return venue.Fill{}, err
	}
	if dir == domain.DirectionSell {
		return u.sell(ctx, token, amount)
	}
	return u.buy(ctx, token, amount)
}

func (u *UniswapV2) buy(ctx context.Context, token common.Address, amount decimal.Decimal) (venue.Fill, error) {
	value := evm.EtherToWei(amount)
	if value.Sign() <= 0 {
		return venue.Fill{}, venue.ErrInvalidQuantity
	}
	path := []common.Address{u.cfg.WETH, token}

	minAmount, err := u.amountOutMin(ctx, value, path)
	if err != nil {
		return venue.Fill{}, err
	}
	before, err := u.client.TokenBalance(ctx, token, u.client.Address())
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v2: balance before: %w", err)
	}

	data, err := v2RouterABI.Pack("swapExactETHForTokensSupportingFeeOnTransferTokens",
		minAmount, path, u.client.Address(), u.cfg.deadline(u.now()))
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v2: pack buy: %w", err)
	}
	receipt, err := u.client.Transact(ctx, u.router, value, data)
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v2: buy: %w", err)
	}
	return buyFill(ctx, u.client, token, before, amount, receipt), nil
}

func (u *UniswapV2) sell(ctx context.Context, token common.Address, amount decimal.Decimal) (venue.Fill, error) {
	units, err := tokenAmount(ctx, u.client, token, amount)
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v2: %w", err)
	}
	path := []common.Address{token, u.cfg.WETH}

	minAmount, err := u.amountOutMin(ctx, units, path)
	if err != nil {
		return venue.Fill{}, err
	}
	if err := u.client.EnsureAllowance(ctx, token, u.router, units); err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v2: approve: %w", err)
	}
	before, err := u.client.NativeBalance(ctx)
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v2: balance before: %w", err)
	}

	data, err := v2RouterABI.Pack("swapExactTokensForETHSupportingFeeOnTransferTokens",
		units, minAmount, path, u.client.Address(), u.cfg.deadline(u.now()))
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v2: pack sell: %w", err)
	}
	receipt, err := u.client.Transact(ctx, u.router, nil, data)
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v2: sell: %w", err)
	}
	return sellFill(ctx, u.client, before, amount, receipt), nil
}

func (u *UniswapV2) amountOutMin(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	vals, err := u.client.Call(ctx, v2RouterABI, u.router, "getAmountsOut", amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("uniswap-v2: getAmountsOut: %w", err)
	}
	if len(vals) < 1 {
		return nil, fmt.Errorf("uniswap-v2: getAmountsOut: empty result")
	}
	amounts, ok := vals[0].([]*big.Int)
	if !ok || len(amounts) < len(path) {
		return nil, fmt.Errorf("uniswap-v2: getAmountsOut: unexpected result %T", vals[0])
	}
	return minOut(amounts[len(amounts)-1], u.cfg.SlippageBps), nil
}

var _ venue.Adapter = (*UniswapV2)(nil)
