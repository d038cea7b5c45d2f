package oracle

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/NamanSrivas/precious-metals-app/internal/logger"
	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/metrics"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

// Oracle wraps a Source so that price lookups always resolve to a usable
// snapshot. Failures are logged and replaced with fallback data.
type Oracle struct {
	Source  Source
	Catalog *metals.Catalog
	Clock   clock.Clock
	log     *logrus.Entry
}

// Result pairs a metal code with its fetched snapshot.
type Result struct {
	Metal string              `json:"metal"`
	Data  model.PriceSnapshot `json:"data"`
}

// New creates an Oracle. A nil clock uses the wall clock.
func New(src Source, cat *metals.Catalog, clk clock.Clock) *Oracle {
	if clk == nil {
		clk = clock.New()
	}
	return &Oracle{
		Source:  src,
		Catalog: cat,
		Clock:   clk,
		log:     logger.For("oracle").WithField("source", src.Name()),
	}
}

// Fetch returns the current snapshot for code. It never fails: unknown codes
// and source errors yield Fallback with IsOffline set.
func (o *Oracle) Fetch(ctx context.Context, code string) model.PriceSnapshot {
	if _, ok := o.Catalog.Lookup(code); !ok {
		o.log.WithField("metal", code).Error("unknown metal code")
		metrics.Fallbacks.WithLabelValues(fallbackReason(ErrUnknownMetal)).Inc()
		return Fallback(o.Catalog, code, o.Clock.Now())
	}

	snap, err := o.fetch(ctx, code)
	if err != nil {
		o.log.WithError(err).WithField("metal", code).Warn("fetch failed, using fallback data")
		metrics.Fallbacks.WithLabelValues(fallbackReason(err)).Inc()
		return Fallback(o.Catalog, code, o.Clock.Now())
	}
	o.log.WithFields(logrus.Fields{"metal": code, "price": snap.Price}).Debug("price loaded")
	return snap
}

// Try calls the source without fallback substitution.
func (o *Oracle) Try(ctx context.Context, code string) (model.PriceSnapshot, error) {
	if _, ok := o.Catalog.Lookup(code); !ok {
		return model.PriceSnapshot{}, errors.Wrapf(ErrUnknownMetal, "invalid metal code %s", code)
	}
	return o.fetch(ctx, code)
}

// FetchAll fetches every catalog metal concurrently. Results keep catalog order.
func (o *Oracle) FetchAll(ctx context.Context) []Result {
	codes := o.Catalog.Codes()
	results := make([]Result, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			results[i] = Result{Metal: code, Data: o.Fetch(gctx, code)}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Oracle) fetch(ctx context.Context, code string) (model.PriceSnapshot, error) {
	name := o.Source.Name()
	start := o.Clock.Now()
	snap, err := o.Source.FetchPrice(ctx, code)
	metrics.OracleLatency.WithLabelValues(name).Observe(o.Clock.Since(start).Seconds())
	if err != nil {
		metrics.OracleFetches.WithLabelValues(name, "error").Inc()
		return model.PriceSnapshot{}, err
	}
	metrics.OracleFetches.WithLabelValues(name, "ok").Inc()
	return snap, nil
}

// Fallback is the snapshot served when the price source fails. Unknown codes
// have no base price, so every price field is zero.
func Fallback(cat *metals.Catalog, code string, now time.Time) model.PriceSnapshot {
	var base float64
	name := code
	if m, ok := cat.Lookup(code); ok {
		base = m.BasePrice
		name = m.Name
	}
	return model.PriceSnapshot{
		MetalCode:     code,
		Name:          name,
		Price:         base,
		High:          base * 1.02,
		Low:           base * 0.98,
		Open:          base,
		PreviousClose: base,
		Unit:          model.UnitTroyOunce,
		GeneratedAt:   now,
		IsOffline:     true,
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownMetal):
		return "unknown_metal"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "source_error"
	}
}
