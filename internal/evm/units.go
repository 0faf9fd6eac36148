package evm

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the precision of ETH (wei per ether = 10^18).
const NativeDecimals = 18

// FromBaseUnits converts an integer token amount to a decimal with the given precision.
func FromBaseUnits(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

// ToBaseUnits converts a decimal amount to integer base units, truncating extra precision.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).Truncate(0).BigInt()
}

// WeiToEther converts wei to ether.
func WeiToEther(wei *big.Int) decimal.Decimal {
	return FromBaseUnits(wei, NativeDecimals)
}

// EtherToWei converts ether to wei.
func EtherToWei(eth decimal.Decimal) *big.Int {
	return ToBaseUnits(eth, NativeDecimals)
}
