package model

import "time"

// UnitTroyOunce is the quoting unit of every snapshot.
const UnitTroyOunce = "USD per troy ounce"

// TroyOunceGrams is the weight of one troy ounce in grams.
const TroyOunceGrams = 31.1035

// PriceSnapshot holds the derived price fields for one metal at one point in time.
type PriceSnapshot struct {
	MetalCode     string    `json:"metal"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previousClose"`
	Unit          string    `json:"unit"`
	GeneratedAt   time.Time `json:"timestamp"`
	IsOffline     bool      `json:"isOffline,omitempty"`
}

// ChangeFrom fills Change and ChangePercent relative to base.
func (s *PriceSnapshot) ChangeFrom(base float64) {
	s.Change = s.Price - base
	if base == 0 {
		s.ChangePercent = 0
		return
	}
	s.ChangePercent = s.Change / base * 100
}
