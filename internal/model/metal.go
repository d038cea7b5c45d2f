package model

// Metal is static reference data for one tracked metal.
type Metal struct {
	Code      string  `json:"code" yaml:"code"`
	Name      string  `json:"name" yaml:"name"`
	BasePrice float64 `json:"basePrice" yaml:"base_price"`
	Color     string  `json:"color" yaml:"color"`
}

// Selection is what the list screen hands to a detail screen.
type Selection struct {
	Metal Metal         `json:"metal"`
	Data  PriceSnapshot `json:"data"`
}
