package oracle

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

// Defaults of the simulated price API.
const (
	DefaultMinDelay    = 200 * time.Millisecond
	DefaultMaxDelay    = 1000 * time.Millisecond
	DefaultFailureRate = 0.01
)

// MockOptions configures a MockSource. Zero delays disable the simulated latency.
type MockOptions struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	FailureRate float64
	Seed        int64
	Generator   Generator
	Clock       clock.Clock
}

// MockSource simulates a price API: latency, rare transient failures and
// randomized prices.
type MockSource struct {
	Catalog     *metals.Catalog
	Generator   Generator
	Clock       clock.Clock
	MinDelay    time.Duration
	MaxDelay    time.Duration
	FailureRate float64

	mu    sync.Mutex
	rnd   *rand.Rand
	calls int64
}

// NewMockSource creates a mock source over cat.
func NewMockSource(cat *metals.Catalog, opts MockOptions) *MockSource {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := opts.Generator
	if gen == nil {
		gen = NewRandomGenerator(seed + 1)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	maxDelay := opts.MaxDelay
	if maxDelay < opts.MinDelay {
		maxDelay = opts.MinDelay
	}
	return &MockSource{
		Catalog:     cat,
		Generator:   gen,
		Clock:       clk,
		MinDelay:    opts.MinDelay,
		MaxDelay:    maxDelay,
		FailureRate: opts.FailureRate,
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

func (m *MockSource) Name() string { return "mock" }

// FetchPrice waits the simulated latency, then fails with ErrTransient at
// FailureRate, then generates a price for code.
func (m *MockSource) FetchPrice(ctx context.Context, code string) (model.PriceSnapshot, error) {
	if err := m.wait(ctx); err != nil {
		return model.PriceSnapshot{}, err
	}
	if m.roll() < m.FailureRate {
		return model.PriceSnapshot{}, ErrTransient
	}
	metal, ok := m.Catalog.Lookup(code)
	if !ok {
		return model.PriceSnapshot{}, errors.Wrapf(ErrUnknownMetal, "invalid metal code %s", code)
	}

	tick := int(atomic.AddInt64(&m.calls, 1))
	snap := m.Generator.Generate(metal, tick)
	snap.GeneratedAt = m.Clock.Now()
	return snap, nil
}

// Calls returns the number of successful generations so far.
func (m *MockSource) Calls() int {
	return int(atomic.LoadInt64(&m.calls))
}

func (m *MockSource) wait(ctx context.Context) error {
	d := m.MinDelay
	if span := m.MaxDelay - m.MinDelay; span > 0 {
		d += time.Duration(m.roll() * float64(span))
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := m.Clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MockSource) roll() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rnd.Float64()
}
