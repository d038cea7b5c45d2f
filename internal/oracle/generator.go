package oracle

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

// Generator strategies selectable from config.
const (
	StrategySine   = "sine"
	StrategyRandom = "random"
)

// maxFluctuation bounds the relative move away from the base price.
const maxFluctuation = 0.02

// Generator derives a simulated snapshot for a metal at a tick.
// Implementations leave GeneratedAt unset; the caller stamps it.
type Generator interface {
	Generate(metal model.Metal, tick int) model.PriceSnapshot
	Name() string
}

// NewGenerator returns the generator for strategy. A zero seed seeds from the clock.
func NewGenerator(strategy string, seed int64) (Generator, error) {
	switch strategy {
	case StrategySine, "":
		return SineGenerator{}, nil
	case StrategyRandom:
		return NewRandomGenerator(seed), nil
	default:
		return nil, fmt.Errorf("unknown generator strategy %q", strategy)
	}
}

// SineGenerator is a pure function of (metal, tick).
type SineGenerator struct{}

func (SineGenerator) Name() string { return StrategySine }

// Generate computes price = base * (1 + sin(tick + ord(code[0])) * 0.02).
func (SineGenerator) Generate(metal model.Metal, tick int) model.PriceSnapshot {
	fluctuation := math.Sin(float64(tick)+float64(firstRune(metal.Code))) * maxFluctuation
	price := metal.BasePrice * (1 + fluctuation)

	snap := model.PriceSnapshot{
		MetalCode:     metal.Code,
		Name:          metal.Name,
		Price:         price,
		High:          math.Max(price, metal.BasePrice),
		Low:           math.Min(price, metal.BasePrice),
		Open:          metal.BasePrice,
		PreviousClose: metal.BasePrice,
		Unit:          model.UnitTroyOunce,
	}
	snap.ChangeFrom(metal.BasePrice)
	return snap
}

func firstRune(code string) rune {
	if code == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(code)
	return r
}

// RandomGenerator jitters uniformly around the base price. The tick is ignored.
type RandomGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomGenerator creates a generator with its own random source.
func NewRandomGenerator(seed int64) *RandomGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomGenerator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *RandomGenerator) Name() string { return StrategyRandom }

// Generate draws a price within ±1% of base. High and low always bracket price.
func (g *RandomGenerator) Generate(metal model.Metal, _ int) model.PriceSnapshot {
	g.mu.Lock()
	move, up, down, open := g.rnd.Float64(), g.rnd.Float64(), g.rnd.Float64(), g.rnd.Float64()
	g.mu.Unlock()

	base := metal.BasePrice
	price := base * (1 + (move-0.5)*maxFluctuation)

	snap := model.PriceSnapshot{
		MetalCode:     metal.Code,
		Name:          metal.Name,
		Price:         price,
		High:          price + math.Abs(up*15),
		Low:           price - math.Abs(down*15),
		Open:          base + (open-0.5)*20,
		PreviousClose: base,
		Unit:          model.UnitTroyOunce,
	}
	snap.ChangeFrom(base)
	return snap
}
