package metals

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

var builtin = []model.Metal{
	{Code: "XAU", Name: "Gold", BasePrice: 2015.75, Color: "#ffd700"},
	{Code: "XAG", Name: "Silver", BasePrice: 23.45, Color: "#c0c0c0"},
	{Code: "XPT", Name: "Platinum", BasePrice: 925.30, Color: "#e5e4e2"},
	{Code: "XPD", Name: "Palladium", BasePrice: 1245.60, Color: "#cdd2dd"},
}

var (
	defaultCatalog *Catalog
	defaultOnce    sync.Once
)

// Catalog is the read-only table of tracked metals. It has no mutation API.
type Catalog struct {
	metals []model.Metal
	byCode map[string]model.Metal
}

// Default returns the built-in catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := NewCatalog(builtin)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// NewCatalog validates and freezes a metal table.
func NewCatalog(metals []model.Metal) (*Catalog, error) {
	if len(metals) == 0 {
		return nil, fmt.Errorf("catalog: no metals")
	}
	c := &Catalog{
		metals: make([]model.Metal, 0, len(metals)),
		byCode: make(map[string]model.Metal, len(metals)),
	}
	for _, m := range metals {
		if m.Code == "" {
			return nil, fmt.Errorf("catalog: metal %q has no code", m.Name)
		}
		if !(m.BasePrice > 0) || math.IsInf(m.BasePrice, 0) {
			return nil, fmt.Errorf("catalog: %s base price must be positive and finite", m.Code)
		}
		if _, dup := c.byCode[m.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate code %s", m.Code)
		}
		if m.Name == "" {
			m.Name = m.Code
		}
		c.metals = append(c.metals, m)
		c.byCode[m.Code] = m
	}
	return c, nil
}

// Lookup returns the metal for code.
func (c *Catalog) Lookup(code string) (model.Metal, bool) {
	m, ok := c.byCode[code]
	return m, ok
}

// All returns a copy of the table in declaration order.
func (c *Catalog) All() []model.Metal {
	out := make([]model.Metal, len(c.metals))
	copy(out, c.metals)
	return out
}

// Codes returns the metal codes in declaration order.
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.metals))
	for i, m := range c.metals {
		out[i] = m.Code
	}
	return out
}

// Name returns the display name for code, or the code itself when unknown.
func (c *Catalog) Name(code string) string {
	if m, ok := c.byCode[code]; ok {
		return m.Name
	}
	return code
}

// Find resolves a code or a case-insensitive metal name.
func (c *Catalog) Find(key string) (model.Metal, bool) {
	if m, ok := c.byCode[key]; ok {
		return m, true
	}
	for _, m := range c.metals {
		if strings.EqualFold(m.Code, key) || strings.EqualFold(m.Name, key) {
			return m, true
		}
	}
	return model.Metal{}, false
}
