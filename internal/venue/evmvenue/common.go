// Package evmvenue implements Uniswap V2 and V3 venue adapters on Base.
package evmvenue

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"post-sniper/internal/evm"
	"post-sniper/internal/venue"
)

// Chain is the EVM client surface the adapters need; *evm.Client implements it.
type Chain interface {
	Address() common.Address
	NativeBalance(ctx context.Context) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	EnsureAllowance(ctx context.Context, token, spender common.Address, amount *big.Int) error
	Call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error)
	Transact(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error)
}

var _ Chain = (*evm.Client)(nil)

// Config holds addresses and trade parameters shared by both adapters.
type Config struct {
	WETH        common.Address
	SlippageBps int64
	Deadline    time.Duration // swap deadline from submission
}

func (c Config) deadline(now time.Time) *big.Int {
	d := c.Deadline
	if d <= 0 {
		d = 5 * time.Minute
	}
	return big.NewInt(now.Add(d).Unix())
}

// minOut applies slippage to a quoted amount.
func minOut(quoted *big.Int, slippageBps int64) *big.Int {
	out := new(big.Int).Mul(quoted, big.NewInt(10000-slippageBps))
	return out.Div(out, big.NewInt(10000))
}

func callAddress(ctx context.Context, c Chain, contractABI abi.ABI, to common.Address, method string, args ...interface{}) (common.Address, error) {
	vals, err := c.Call(ctx, contractABI, to, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(vals) < 1 {
		return common.Address{}, fmt.Errorf("%s: empty result", method)
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected type %T", method, vals[0])
	}
	return addr, nil
}

// tokenAmount converts a decimal token amount to base units.
func tokenAmount(ctx context.Context, c Chain, token common.Address, amount decimal.Decimal) (*big.Int, error) {
	dec, err := c.TokenDecimals(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("token decimals: %w", err)
	}
	units := evm.ToBaseUnits(amount, dec)
	if units.Sign() <= 0 {
		return nil, fmt.Errorf("amount %s rounds to zero base units", amount)
	}
	return units, nil
}

// buyFill measures tokens received by a buy that spent ethIn.
func buyFill(ctx context.Context, c Chain, token common.Address, before *big.Int, ethIn decimal.Decimal, receipt *types.Receipt) venue.Fill {
	fill := venue.Fill{ExternalRef: receipt.TxHash.Hex(), AmountIn: ethIn}

	after, err := c.TokenBalance(ctx, token, c.Address())
	if err != nil {
		return fill
	}
	dec, err := c.TokenDecimals(ctx, token)
	if err != nil {
		return fill
	}
	fill.AmountOut = evm.FromBaseUnits(new(big.Int).Sub(after, before), dec)
	return fill
}

// sellFill measures ETH received by a sell, adding back the swap's gas cost.
func sellFill(ctx context.Context, c Chain, before *big.Int, tokensIn decimal.Decimal, receipt *types.Receipt) venue.Fill {
	fill := venue.Fill{ExternalRef: receipt.TxHash.Hex(), AmountIn: tokensIn}

	after, err := c.NativeBalance(ctx)
	if err != nil {
		return fill
	}
	delta := new(big.Int).Sub(after, before)
	if receipt.EffectiveGasPrice != nil {
		delta.Add(delta, new(big.Int).Mul(receipt.EffectiveGasPrice, new(big.Int).SetUint64(receipt.GasUsed)))
	}
	if delta.Sign() > 0 {
		fill.AmountOut = evm.WeiToEther(delta)
	}
	return fill
}

// WalletBalance reports the trading account's ETH balance.
type WalletBalance struct {
	Client Chain
}

// NativeBalance implements venue.BalanceSource.
func (w WalletBalance) NativeBalance(ctx context.Context) (decimal.Decimal, error) {
	wei, err := w.Client.NativeBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return evm.WeiToEther(wei), nil
}

// TokenBalance implements venue.HoldingSource.
func (w WalletBalance) TokenBalance(ctx context.Context, assetID string) (decimal.Decimal, error) {
	token, err := evm.ParseAddress(assetID)
	if err != nil {
		return decimal.Zero, err
	}
	raw, err := w.Client.TokenBalance(ctx, token, w.Client.Address())
	if err != nil {
		return decimal.Zero, fmt.Errorf("token balance: %w", err)
	}
	dec, err := w.Client.TokenDecimals(ctx, token)
	if err != nil {
		return decimal.Zero, fmt.Errorf("token decimals: %w", err)
	}
	return evm.FromBaseUnits(raw, dec), nil
}

var (
	_ venue.BalanceSource = WalletBalance{}
	_ venue.HoldingSource = WalletBalance{}
)
