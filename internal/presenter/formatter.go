package presenter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

// Direction of a price move; replaces the green/red/grey color rules.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// ChangeDirection classifies a change value.
func ChangeDirection(change float64) Direction {
	switch {
	case change > 0:
		return Up
	case change < 0:
		return Down
	default:
		return Flat
	}
}

// FormatPrice renders $1,234.56, or N/A for a non-finite value.
func FormatPrice(price float64) string {
	if !finite(price) {
		return "N/A"
	}
	d := round2(price)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(2)
	return sign + "$" + humanize.Comma(d.IntPart()) + fixed[len(fixed)-3:]
}

// FormatChange renders a signed change with two decimals.
func FormatChange(change float64) string {
	if !finite(change) {
		return "N/A"
	}
	d := round2(change)
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

// FormatPercent renders a signed percentage with two decimals.
func FormatPercent(pct float64) string {
	if !finite(pct) {
		return "N/A"
	}
	return FormatChange(pct) + "%"
}

// PerGram converts a per-troy-ounce price to a per-gram price.
func PerGram(price float64) float64 {
	return price / model.TroyOunceGrams
}

// FormatInterval renders a refresh cadence: "3 seconds", "1 second" or "1.5s".
func FormatInterval(d time.Duration) string {
	switch {
	case d == time.Second:
		return "1 second"
	case d > 0 && d%time.Second == 0:
		return fmt.Sprintf("%d seconds", d/time.Second)
	default:
		return d.String()
	}
}

// SinceUpdate reports how long ago last was, relative to now.
func SinceUpdate(now, last time.Time) string {
	s := int(now.Sub(last) / time.Second)
	switch {
	case s < 5:
		return "Just now"
	case s < 60:
		return fmt.Sprintf("%ds ago", s)
	default:
		return fmt.Sprintf("%dm ago", s/60)
	}
}

// FormatList renders the tile grid for a list screen.
func FormatList(state model.ScreenState, cat *metals.Catalog) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("LIVE METALS HUD | Updates: %d", state.TickCount))
	if state.Interval > 0 {
		b.WriteString(" • Every " + FormatInterval(state.Interval))
	}
	b.WriteString("\n\n")
	for _, m := range cat.All() {
		snap, ok := state.Snapshots[m.Code]
		if !ok {
			b.WriteString(fmt.Sprintf("  %-10s %s\n", m.Name, "N/A"))
			continue
		}
		b.WriteString(fmt.Sprintf("  %-10s %12s  %s (%s)%s\n",
			m.Name, FormatPrice(snap.Price), FormatChange(snap.Change), FormatPercent(snap.ChangePercent), offlineTag(snap)))
	}
	if state.Selected != "" {
		b.WriteString(fmt.Sprintf("\nSelected: %s\n", cat.Name(state.Selected)))
	}
	return b.String()
}

// FormatDetail renders the detail card for one metal.
func FormatDetail(state model.ScreenState, metal model.Metal, now time.Time) string {
	snap, ok := state.Snapshots[metal.Code]
	var b strings.Builder
	b.WriteString(strings.ToUpper(metal.Name) + " DETAILS | LIVE")
	if state.Interval > 0 {
		b.WriteString(" • Updates every " + FormatInterval(state.Interval))
	}
	b.WriteString(fmt.Sprintf(" | Updated %s\n\n", SinceUpdate(now, state.LastUpdated)))
	if !ok {
		b.WriteString("  No data\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  Price:          %s%s\n", FormatPrice(snap.Price), offlineTag(snap)))
	b.WriteString(fmt.Sprintf("  Change:         %s (%s) %s\n", FormatChange(snap.Change), FormatPercent(snap.ChangePercent), ChangeDirection(snap.Change)))
	b.WriteString(fmt.Sprintf("  High:           %s\n", FormatPrice(snap.High)))
	b.WriteString(fmt.Sprintf("  Low:            %s\n", FormatPrice(snap.Low)))
	b.WriteString(fmt.Sprintf("  Open:           %s\n", FormatPrice(snap.Open)))
	b.WriteString(fmt.Sprintf("  Previous close: %s\n", FormatPrice(snap.PreviousClose)))
	if snap.Unit != "" {
		b.WriteString(fmt.Sprintf("  Unit:           %s\n", snap.Unit))
	}
	b.WriteString("\n  24 Karat price\n")
	b.WriteString(fmt.Sprintf("  Current (24K):  %s\n", FormatPrice(snap.Price)))
	b.WriteString(fmt.Sprintf("  Per gram:       %s\n", FormatPrice(PerGram(snap.Price))))
	b.WriteString(fmt.Sprintf("  Per 10 gram:    %s\n\n", FormatPrice(PerGram(snap.Price)*10)))
	b.WriteString(fmt.Sprintf("  Update #%d", state.TickCount))
	if state.Loading {
		b.WriteString(" • refreshing…")
	}
	b.WriteString("\n")
	if state.LastError != "" {
		b.WriteString(fmt.Sprintf("  Last error: %s\n", state.LastError))
	}
	return b.String()
}

func offlineTag(snap model.PriceSnapshot) string {
	if snap.IsOffline {
		return " [offline]"
	}
	return ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
