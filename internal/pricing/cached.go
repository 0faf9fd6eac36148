package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"post-sniper/internal/domain"
	"post-sniper/internal/storage"
)

// PriceStore keeps the last known quote per asset.
type PriceStore interface {
	SetPrice(ctx context.Context, chain domain.Chain, assetID string, price decimal.Decimal, ts time.Time) error
	GetPrice(ctx context.Context, chain domain.Chain, assetID string) (decimal.Decimal, time.Time, error)
}

// Cached stores fresh quotes and answers from the store when the inner source
// fails or has no price. Store entries expire on their own.
type Cached struct {
	inner  Source
	store  PriceStore
	now    func() time.Time
	logger *logrus.Entry
}

// NewCached wraps inner with store.
func NewCached(inner Source, store PriceStore, logger *logrus.Entry) *Cached {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Cached{inner: inner, store: store, now: time.Now, logger: logger}
}

// Quote implements Source.
func (c *Cached) Quote(ctx context.Context, chain domain.Chain, assetID string) (*decimal.Decimal, error) {
	price, err := c.inner.Quote(ctx, chain, assetID)
	if err == nil && price != nil {
		if serr := c.store.SetPrice(ctx, chain, assetID, *price, c.now()); serr != nil {
			c.logger.WithError(serr).WithField("asset", assetID).Warn("cache price failed")
		}
		return price, nil
	}

	cached, ts, cerr := c.store.GetPrice(ctx, chain, assetID)
	if cerr != nil {
		if !errors.Is(cerr, storage.ErrNotFound) {
			c.logger.WithError(cerr).WithField("asset", assetID).Warn("read cached price failed")
		}
		return price, err
	}

	c.logger.WithFields(logrus.Fields{
		"asset": assetID,
		"age":   c.now().Sub(ts).Round(time.Second).String(),
	}).Debug("using cached price")
	return &cached, nil
}

var _ Source = (*Cached)(nil)
