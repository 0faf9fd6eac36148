package domain

import "github.com/shopspring/decimal"

// ExecutionResult is the normalized outcome of one router invocation.
// Produced once per (asset, direction) call and never mutated after return.
type ExecutionResult struct {
	Success bool
	Venue   string // empty when no venue was reached

	AmountSpent      decimal.Decimal // native units (buy) or asset units (sell)
	QuantityReceived decimal.Decimal // asset units received on buy
	Proceeds         decimal.Decimal // native units received on sell

	ExternalRef string // transaction signature or hash
	Error       string
}

// Failed builds a failed result for the given venue (may be empty).
func Failed(venue string, err error) ExecutionResult {
	r := ExecutionResult{Venue: venue}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
