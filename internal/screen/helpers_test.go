package screen

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/NamanSrivas/precious-metals-app/internal/alert"
	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
	"github.com/NamanSrivas/precious-metals-app/internal/oracle"
)

const (
	interval = 3 * time.Second
	waitFor  = time.Second
)

func newOracle(mc *clock.Mock, failureRate float64) *oracle.Oracle {
	src := oracle.NewMockSource(metals.Default(), oracle.MockOptions{
		FailureRate: failureRate,
		Seed:        11,
		Clock:       mc,
	})
	return oracle.New(src, metals.Default(), mc)
}

func newList(mc *clock.Mock) *ListScreen {
	return NewListScreen(metals.Default(), oracle.SineGenerator{}, Options{Interval: interval, Clock: mc})
}

func newDetail(t *testing.T, mc *clock.Mock, o *oracle.Oracle, a alert.Alerter, code string, initial model.PriceSnapshot) *DetailScreen {
	t.Helper()
	metal, ok := metals.Default().Lookup(code)
	require.True(t, ok)
	return NewDetailScreen(model.Selection{Metal: metal, Data: initial}, o, a, Options{Interval: interval, Clock: mc})
}

func waitListTick(t *testing.T, l *ListScreen, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return l.State().TickCount == want }, waitFor, time.Millisecond)
}

func waitDetailTick(t *testing.T, d *DetailScreen, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return d.State().TickCount == want }, waitFor, time.Millisecond)
}

// blockingSource holds every call until its context is cancelled, then
// returns a result anyway, like a response arriving after teardown.
type blockingSource struct {
	started chan struct{}
	once    sync.Once
}

func newBlockingSource() *blockingSource {
	return &blockingSource{started: make(chan struct{})}
}

func (b *blockingSource) Name() string { return "blocking" }

func (b *blockingSource) FetchPrice(ctx context.Context, code string) (model.PriceSnapshot, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return model.PriceSnapshot{MetalCode: code, Price: 1}, nil
}
