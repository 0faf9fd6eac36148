package evmvenue

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"post-sniper/internal/domain"
	"post-sniper/internal/evm"
	"post-sniper/internal/venue"
)

// addressThis makes SwapRouter02 hold the swap output for a following unwrap.
var addressThis = common.HexToAddress("0x0000000000000000000000000000000000000002")

type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// UniswapV3 trades through SwapRouter02 on the first fee tier with a WETH pool.
type UniswapV3 struct {
	client   Chain
	router   common.Address
	factory  common.Address
	quoter   common.Address
	feeTiers []int64
	cfg      Config
	now      func() time.Time

	mu    sync.Mutex
	tiers map[common.Address]int64 // fee tier found by the last probe
}

// NewUniswapV3 creates the V3 adapter. feeTiers are tried in order.
func NewUniswapV3(client Chain, router, factory, quoter common.Address, feeTiers []int64, cfg Config) *UniswapV3 {
	return &UniswapV3{
		client:   client,
		router:   router,
		factory:  factory,
		quoter:   quoter,
		feeTiers: feeTiers,
		cfg:      cfg,
		now:      time.Now,
		tiers:    make(map[common.Address]int64),
	}
}

// Name implements venue.Adapter.
func (u *UniswapV3) Name() string { return domain.VenueUniswapV3 }

// Chain implements venue.Adapter.
func (u *UniswapV3) Chain() domain.Chain { return domain.ChainBase }

// Probe reports availability when any configured fee tier has a WETH pool.
func (u *UniswapV3) Probe(ctx context.Context, assetID string) (venue.Availability, error) {
	token, err := evm.ParseAddress(assetID)
	if err != nil {
		return venue.Availability{}, err
	}
	fee, pool, err := u.findPool(ctx, token)
	if err != nil {
		return venue.Availability{}, err
	}
	if pool == (common.Address{}) {
		return venue.Availability{}, nil
	}
	return venue.Availability{
		Available: true,
		Metadata:  map[string]string{"pool": pool.Hex(), "fee": strconv.FormatInt(fee, 10)},
	}, nil
}

func (u *UniswapV3) findPool(ctx context.Context, token common.Address) (int64, common.Address, error) {
	for _, fee := range u.feeTiers {
		pool, err := callAddress(ctx, u.client, v3FactoryABI, u.factory, "getPool", u.cfg.WETH, token, big.NewInt(fee))
		if err != nil {
			return 0, common.Address{}, fmt.Errorf("uniswap-v3: getPool(%d): %w", fee, err)
		}
		if pool != (common.Address{}) {
			u.mu.Lock()
			u.tiers[token] = fee
			u.mu.Unlock()
			return fee, pool, nil
		}
	}
	return 0, common.Address{}, nil
}

func (u *UniswapV3) feeFor(ctx context.Context, token common.Address) (int64, error) {
	u.mu.Lock()
	fee, ok := u.tiers[token]
	u.mu.Unlock()
	if ok {
		return fee, nil
	}
	fee, pool, err := u.findPool(ctx, token)
	if err != nil {
		return 0, err
	}
	if pool == (common.Address{}) {
		return 0, fmt.Errorf("uniswap-v3: no pool for %s", token.Hex())
	}
	return fee, nil
}

// Execute implements venue.Adapter.
func (u *UniswapV3) Execute(ctx context.Context, assetID string, amount decimal.Decimal, dir domain.Direction) (venue.Fill, error) {
	token, err := evm.ParseAddress(assetID)
	if err != nil {
		return venue.Fill{}, err
	}
	fee, err := u.feeFor(ctx, token)
	if err != nil {
		return venue.Fill{}, err
	}
	if dir == domain.DirectionSell {
		return u.sell(ctx, token, fee, amount)
	}
	return u.buy(ctx, token, fee, amount)
}

func (u *UniswapV3) buy(ctx context.Context, token common.Address, fee int64, amount decimal.Decimal) (venue.Fill, error) {
	value := evm.EtherToWei(amount)
	if value.Sign() <= 0 {
		return venue.Fill{}, venue.ErrInvalidQuantity
	}
	minAmount, err := u.amountOutMin(ctx, u.cfg.WETH, token, fee, value)
	if err != nil {
		return venue.Fill{}, err
	}
	before, err := u.client.TokenBalance(ctx, token, u.client.Address())
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v3: balance before: %w", err)
	}

	data, err := v3RouterABI.Pack("exactInputSingle", exactInputSingleParams{
		TokenIn:           u.cfg.WETH,
		TokenOut:          token,
		Fee:               big.NewInt(fee),
		Recipient:         u.client.Address(),
		AmountIn:          value,
		AmountOutMinimum:  minAmount,
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v3: pack buy: %w", err)
	}
	receipt, err := u.client.Transact(ctx, u.router, value, data)
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v3: buy: %w", err)
	}
	return buyFill(ctx, u.client, token, before, amount, receipt), nil
}

func (u *UniswapV3) sell(ctx context.Context, token common.Address, fee int64, amount decimal.Decimal) (venue.Fill, error) {
	units, err := tokenAmount(ctx, u.client, token, amount)
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v3: %w", err)
	}
	minAmount, err := u.amountOutMin(ctx, token, u.cfg.WETH, fee, units)
	if err != nil {
		return venue.Fill{}, err
	}
	if err := u.client.EnsureAllowance(ctx, token, u.router, units); err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v3: approve: %w", err)
	}

	swap, err := v3RouterABI.Pack("exactInputSingle", exactInputSingleParams{
		TokenIn:           token,
		TokenOut:          u.cfg.WETH,
		Fee:               big.NewInt(fee),
		Recipient:         addressThis,
		AmountIn:          units,
		AmountOutMinimum:  minAmount,
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v3: pack swap: %w", err)
	}
	unwrap, err := v3RouterABI.Pack("unwrapWETH9", minAmount, u.client.Address())
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v3: pack unwrap: %w", err)
	}
	data, err := v3RouterABI.Pack("multicall", u.cfg.deadline(u.now()), [][]byte{swap, unwrap})
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v3: pack multicall: %w", err)
	}

	before, err := u.client.NativeBalance(ctx)
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v3: balance before: %w", err)
	}
	receipt, err := u.client.Transact(ctx, u.router, nil, data)
	if err != nil {
		return venue.Fill{}, fmt.Errorf("uniswap-v3: sell: %w", err)
	}
	return sellFill(ctx, u.client, before, amount, receipt), nil
}

func (u *UniswapV3) amountOutMin(ctx context.Context, tokenIn, tokenOut common.Address, fee int64, amountIn *big.Int) (*big.Int, error) {
	vals, err := u.client.Call(ctx, v3QuoterABI, u.quoter, "quoteExactInputSingle", quoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(fee),
		SqrtPriceLimitX96: new(big.Int),
	})
	if err != nil {
		return nil, fmt.Errorf("uniswap-v3: quote: %w", err)
	}
	if len(vals) < 1 {
		return nil, fmt.Errorf("uniswap-v3: quote: empty result")
	}
	quoted, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("uniswap-v3: quote: unexpected type %T", vals[0])
	}
	return minOut(quoted, u.cfg.SlippageBps), nil
}

var _ venue.Adapter = (*UniswapV3)(nil)
