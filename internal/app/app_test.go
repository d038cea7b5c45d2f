package app

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanSrivas/precious-metals-app/internal/alert"
	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
	"github.com/NamanSrivas/precious-metals-app/internal/oracle"
	"github.com/NamanSrivas/precious-metals-app/internal/screen"
)

func newTestApp(t *testing.T, failureRate float64) (*App, *clock.Mock, *alert.LogAlerter) {
	t.Helper()
	mc := clock.NewMock()
	src := oracle.NewMockSource(metals.Default(), oracle.MockOptions{FailureRate: failureRate, Seed: 3, Clock: mc})
	a, alerts := newTestAppWithSource(t, mc, src)
	return a, mc, alerts
}

func newTestAppWithSource(t *testing.T, mc *clock.Mock, src oracle.Source) (*App, *alert.LogAlerter) {
	t.Helper()
	cat := metals.Default()
	o := oracle.New(src, cat, mc)
	alerts := alert.NewLogAlerter()
	opts := screen.Options{Interval: 3 * time.Second, Clock: mc}

	nav := screen.NewNavigator(screen.NewListScreen(cat, oracle.SineGenerator{}, opts), func(sel model.Selection) *screen.DetailScreen {
		return screen.NewDetailScreen(sel, o, alerts, opts)
	})
	a := New(context.Background(), nav, o, cat, mc)
	require.NoError(t, a.RegisterAll("0 * * * * *"))
	require.NoError(t, a.Start())
	t.Cleanup(a.Stop)
	return a, alerts
}

// gatedSource holds every fetch until release is closed.
type gatedSource struct {
	release chan struct{}
}

func (g *gatedSource) Name() string { return "gated" }

func (g *gatedSource) FetchPrice(ctx context.Context, code string) (model.PriceSnapshot, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return model.PriceSnapshot{}, ctx.Err()
	}
	return model.PriceSnapshot{MetalCode: code, Price: 1}, nil
}

func TestHandleCommand_Navigation(t *testing.T) {
	a, _, _ := newTestApp(t, 0)

	out := a.HandleCommand("list")
	assert.Contains(t, out, "LIVE METALS HUD | Updates: 0")
	assert.Contains(t, out, "Gold")

	out = a.HandleCommand("select gold")
	assert.Contains(t, out, "GOLD DETAILS")
	assert.Equal(t, model.ScreenDetail, a.Navigator.Current())

	out = a.HandleCommand("/xag")
	assert.Contains(t, out, "SILVER DETAILS")
	assert.Equal(t, "XAG", a.Navigator.Detail().Metal().Code)

	out = a.HandleCommand("back")
	assert.Contains(t, out, "LIVE METALS HUD")
	assert.Equal(t, model.ScreenList, a.Navigator.Current())

	out = a.HandleCommand("back")
	assert.Contains(t, out, "Already on the list screen")
}

func TestHandleCommand_Refresh(t *testing.T) {
	a, _, alerts := newTestApp(t, 0)
	assert.Equal(t, "No metal selected", a.HandleCommand("refresh"))

	a.HandleCommand("select XPT")
	out := a.HandleCommand("refresh")
	assert.Contains(t, out, "PLATINUM DETAILS")
	assert.NotContains(t, out, "Error")
	assert.Zero(t, alerts.Count())
}

func TestHandleCommand_RefreshFailure(t *testing.T) {
	a, _, alerts := newTestApp(t, 1)
	a.HandleCommand("select XAU")
	before := a.Navigator.Detail().Snapshot()

	out := a.HandleCommand("refresh")
	assert.Contains(t, out, "Error: Failed to refresh data")
	assert.Contains(t, out, "Last error: network timeout")
	assert.Equal(t, before, a.Navigator.Detail().Snapshot())
	require.Eventually(t, func() bool { return alerts.Count() == 1 }, time.Second, time.Millisecond)
}

func TestHandleCommand_RefreshNotFailed(t *testing.T) {
	src := &gatedSource{release: make(chan struct{})}
	a, alerts := newTestAppWithSource(t, clock.NewMock(), src)
	a.HandleCommand("select XAU")
	d := a.Navigator.Detail()

	first := make(chan string, 1)
	go func() { first <- a.HandleCommand("refresh") }()
	require.Eventually(t, func() bool { return d.State().Loading }, time.Second, time.Millisecond)

	assert.Equal(t, "Refresh already in progress", a.HandleCommand("refresh"))

	a.HandleCommand("back")
	close(src.release)

	select {
	case reply := <-first:
		assert.Equal(t, "Detail screen closed", reply)
	case <-time.After(time.Second):
		t.Fatal("refresh never returned")
	}
	assert.Zero(t, alerts.Count())
}

func TestHandleCommand_Quotes(t *testing.T) {
	a, _, _ := newTestApp(t, 1)
	out := a.HandleCommand("quotes")
	assert.Contains(t, out, "Quotes from mock")
	for _, name := range []string{"Gold", "Silver", "Platinum", "Palladium"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "$2,015.75")
	assert.Contains(t, out, "[offline]")
}

func TestHandleCommand_Misc(t *testing.T) {
	a, mc, _ := newTestApp(t, 0)

	tests := []struct {
		command string
		want    string
	}{
		{"", "Available commands"},
		{"help", "Available commands"},
		{"select", "Usage: select"},
		{"select unobtainium", `Unknown metal "unobtainium"`},
		{"dance", `Unknown command "dance"`},
		{"status", "List updates: 0"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Contains(t, a.HandleCommand(tt.command), tt.want)
		})
	}

	a.HandleCommand("select XPD")
	mc.Add(10 * time.Second)
	out := a.Status()
	assert.Contains(t, out, "Screen: detail")
	assert.Contains(t, out, "Detail: Palladium")
}

func TestRegisterAll_InvalidCron(t *testing.T) {
	a := New(context.Background(), nil, nil, metals.Default(), nil)
	assert.Error(t, a.RegisterAll("not a cron"))
}
