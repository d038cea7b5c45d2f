package oracle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

func gold(t *testing.T) model.Metal {
	t.Helper()
	m, ok := metals.Default().Lookup("XAU")
	require.True(t, ok)
	return m
}

func TestSineGenerator_GoldAtTickZero(t *testing.T) {
	snap := SineGenerator{}.Generate(gold(t), 0)

	want := 2015.75 * (1 + math.Sin(0+88)*0.02)
	assert.Equal(t, want, snap.Price)
	assert.Equal(t, want-2015.75, snap.Change)
	assert.Equal(t, "XAU", snap.MetalCode)
	assert.Equal(t, "Gold", snap.Name)
	assert.False(t, snap.IsOffline)
}

func TestSineGenerator_Pure(t *testing.T) {
	g := SineGenerator{}
	for _, m := range metals.Default().All() {
		for tick := 0; tick < 50; tick++ {
			assert.Equal(t, g.Generate(m, tick), g.Generate(m, tick), "%s tick %d", m.Code, tick)
		}
	}

	m := gold(t)
	assert.NotEqual(t, g.Generate(m, 1).Price, g.Generate(m, 2).Price)
}

func TestSineGenerator_Bounds(t *testing.T) {
	g := SineGenerator{}
	for _, m := range metals.Default().All() {
		for tick := 0; tick < 200; tick++ {
			snap := g.Generate(m, tick)
			assert.InDelta(t, m.BasePrice, snap.Price, m.BasePrice*0.02+1e-9)
			assert.GreaterOrEqual(t, snap.High, snap.Price)
			assert.LessOrEqual(t, snap.Low, snap.Price)
			assert.Equal(t, m.BasePrice, snap.PreviousClose)
		}
	}
}

func TestRandomGenerator_Ranges(t *testing.T) {
	g := NewRandomGenerator(42)
	for _, m := range metals.Default().All() {
		for i := 0; i < 500; i++ {
			snap := g.Generate(m, i)
			assert.InDelta(t, m.BasePrice, snap.Price, m.BasePrice*0.01+1e-9)
			assert.GreaterOrEqual(t, snap.High, snap.Price)
			assert.LessOrEqual(t, snap.High, snap.Price+15)
			assert.LessOrEqual(t, snap.Low, snap.Price)
			assert.GreaterOrEqual(t, snap.Low, snap.Price-15)
			assert.InDelta(t, m.BasePrice, snap.Open, 10)
			assert.Equal(t, m.BasePrice, snap.PreviousClose)
			assert.Equal(t, model.UnitTroyOunce, snap.Unit)
		}
	}
}

func TestChangePercentInvariant(t *testing.T) {
	generators := []Generator{SineGenerator{}, NewRandomGenerator(7)}
	for _, g := range generators {
		for _, m := range metals.Default().All() {
			for tick := 0; tick < 100; tick++ {
				snap := g.Generate(m, tick)
				assert.Equal(t, snap.Price-m.BasePrice, snap.Change, g.Name())
				assert.Equal(t, snap.Change/m.BasePrice*100, snap.ChangePercent, g.Name())
			}
		}
	}
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		strategy string
		name     string
		wantErr  bool
	}{
		{"", StrategySine, false},
		{StrategySine, StrategySine, false},
		{StrategyRandom, StrategyRandom, false},
		{"brownian", "", true},
	}
	for _, tt := range tests {
		g, err := NewGenerator(tt.strategy, 1)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.name, g.Name())
	}
}
