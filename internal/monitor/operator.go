package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"post-sniper/internal/domain"
)

// Liquidator closes positions; *venue.Router implements it.
type Liquidator interface {
	Liquidate(ctx context.Context, chain domain.Chain, assetID string, quantity decimal.Decimal) domain.ExecutionResult
}

// PositionBook lists and closes open positions; *tracker.Tracker implements it.
type PositionBook interface {
	PositionsOn(chain domain.Chain) []domain.Position
	Close(ids ...string) []domain.Position
}

// Holdings reads the wallet's current balance of an asset; venue.Holdings implements it.
type Holdings interface {
	TokenBalance(ctx context.Context, chain domain.Chain, assetID string) (decimal.Decimal, error)
}

// LiquidationResult summarizes one operator liquidation of a chain.
type LiquidationResult struct {
	Chain       domain.Chain
	Attempted   int
	Succeeded   int
	Failed      int
	Closed      int             // positions removed from the open set
	Kept        int             // positions left open: not reached or quantity unknown
	CostBasis   decimal.Decimal // of succeeded positions
	Proceeds    decimal.Decimal
	RealizedPnL decimal.Decimal
	Errors      []string
}

// Operator executes operator commands. Liquidations are serialized.
type Operator struct {
	router    Liquidator
	positions PositionBook
	holdings  Holdings
	pacing    time.Duration
	logger    *logrus.Entry
	sleep     func(ctx context.Context, d time.Duration) error

	mu sync.Mutex
}

// NewOperator creates an Operator.
func NewOperator(router Liquidator, positions PositionBook, pacing time.Duration, logger *logrus.Entry) *Operator {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Operator{
		router:    router,
		positions: positions,
		pacing:    pacing,
		logger:    logger.WithField("component", "operator"),
		sleep:     sleepCtx,
	}
}

// WithHoldings sets the wallet balance source used for positions whose
// acquisition landed without a measured quantity.
func (o *Operator) WithHoldings(h Holdings) *Operator {
	o.holdings = h
	return o
}

// LiquidateChain sells the chain's open positions sequentially and closes every
// position it attempted, whatever the outcome. Positions opened meanwhile, and
// those not reached before ctx is cancelled, stay open. A sell already submitted
// runs to completion after ctx is cancelled.
func (o *Operator) LiquidateChain(ctx context.Context, chain domain.Chain) LiquidationResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	res := LiquidationResult{Chain: chain}
	open := o.positions.PositionsOn(chain)
	o.logger.WithFields(logrus.Fields{
		"chain":     chain,
		"positions": len(open),
	}).Info("liquidating chain")

	var done []string
	for i, p := range open {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, err.Error())
			break
		}
		if i > 0 {
			if err := o.sleep(ctx, o.pacing); err != nil {
				res.Errors = append(res.Errors, err.Error())
				break
			}
		}

		callCtx := context.WithoutCancel(ctx)
		log := o.logger.WithFields(logrus.Fields{
			"position": p.ID,
			"asset":    p.AssetID,
		})

		qty, err := o.quantity(callCtx, chain, p)
		if err != nil {
			res.Errors = append(res.Errors, p.AssetID+": "+err.Error())
			log.WithError(err).Warn("quantity unknown; position kept open")
			continue
		}
		if !qty.IsPositive() {
			done = append(done, p.ID)
			log.Info("wallet holds none of the asset; closing position")
			continue
		}

		res.Attempted++
		done = append(done, p.ID)
		result := o.router.Liquidate(callCtx, chain, p.AssetID, qty)
		log = log.WithField("venue", result.Venue)
		if !result.Success {
			res.Failed++
			res.Errors = append(res.Errors, p.AssetID+": "+result.Error)
			log.WithField("error", result.Error).Warn("liquidation failed")
			continue
		}

		res.Succeeded++
		res.CostBasis = res.CostBasis.Add(p.CostBasis)
		res.Proceeds = res.Proceeds.Add(result.Proceeds)
		log.WithFields(logrus.Fields{
			"proceeds": result.Proceeds.String(),
			"pnl":      result.Proceeds.Sub(p.CostBasis).String(),
			"ref":      result.ExternalRef,
		}).Info("position liquidated")
	}

	res.Closed = len(o.positions.Close(done...))
	res.Kept = len(open) - len(done)
	res.RealizedPnL = res.Proceeds.Sub(res.CostBasis)

	o.logger.WithFields(logrus.Fields{
		"chain":        chain,
		"attempted":    res.Attempted,
		"succeeded":    res.Succeeded,
		"failed":       res.Failed,
		"closed":       res.Closed,
		"kept":         res.Kept,
		"proceeds":     res.Proceeds.String(),
		"realized_pnl": res.RealizedPnL.String(),
		"symbol":       chain.NativeSymbol(),
	}).Info("liquidation complete")
	return res
}

// quantity is the recorded fill, or the wallet balance when the fill was not measured.
func (o *Operator) quantity(ctx context.Context, chain domain.Chain, p domain.Position) (decimal.Decimal, error) {
	if p.QuantityReceived.IsPositive() {
		return p.QuantityReceived, nil
	}
	if o.holdings == nil {
		return decimal.Zero, errors.New("no measured quantity and no wallet balance source")
	}
	bal, err := o.holdings.TokenBalance(ctx, chain, p.AssetID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read wallet balance: %w", err)
	}
	return bal, nil
}
