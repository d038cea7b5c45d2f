package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

// DefaultMetalPriceURL is the public metalpriceapi endpoint.
const DefaultMetalPriceURL = "https://api.metalpriceapi.com/v1"

// MetalPriceSource implements Source using the metalpriceapi REST API.
type MetalPriceSource struct {
	BaseURL  string
	APIKey   string
	Currency string
	Catalog  *metals.Catalog
	Client   *http.Client
}

// NewMetalPriceSource creates a source with optional proxy support.
func NewMetalPriceSource(baseURL, apiKey, currency, proxyURL string, cat *metals.Catalog) *MetalPriceSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = DefaultMetalPriceURL
	}
	if currency == "" {
		currency = "USD"
	}
	return &MetalPriceSource{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		Currency: currency,
		Catalog:  cat,
		Client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
}

func (s *MetalPriceSource) Name() string { return "metalpriceapi" }

// latestResponse is the JSON shape of GET /latest.
type latestResponse struct {
	Success   *bool              `json:"success"`
	Base      string             `json:"base"`
	Timestamp int64              `json:"timestamp"`
	Rates     map[string]float64 `json:"rates"`
}

// FetchPrice maps rates[code] into a snapshot. The API carries no change data,
// so change is zero and high/low are ±2% of the rate.
func (s *MetalPriceSource) FetchPrice(ctx context.Context, code string) (model.PriceSnapshot, error) {
	q := url.Values{}
	q.Set("api_key", s.APIKey)
	q.Set("base", s.Currency)
	q.Set("currencies", code)
	endpoint := fmt.Sprintf("%s/latest?%s", s.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.PriceSnapshot{}, errors.Wrap(err, "build request")
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return model.PriceSnapshot{}, errors.Wrap(err, "fetch latest rates")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.PriceSnapshot{}, errors.Wrapf(ErrInvalidResponse, "status %d, body: %s", resp.StatusCode, string(body))
	}

	var latest latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		return model.PriceSnapshot{}, errors.Wrapf(ErrInvalidResponse, "decode: %v", err)
	}
	if latest.Success != nil && !*latest.Success {
		return model.PriceSnapshot{}, errors.Wrap(ErrInvalidResponse, "success=false")
	}
	price, ok := latest.Rates[code]
	if !ok || price <= 0 {
		return model.PriceSnapshot{}, errors.Wrapf(ErrInvalidResponse, "no rate for %s", code)
	}

	generatedAt := time.Now()
	if latest.Timestamp > 0 {
		generatedAt = time.Unix(latest.Timestamp, 0)
	}
	return model.PriceSnapshot{
		MetalCode:     code,
		Name:          s.Catalog.Name(code),
		Price:         price,
		High:          price * 1.02,
		Low:           price * 0.98,
		Open:          price,
		PreviousClose: price,
		Unit:          model.UnitTroyOunce,
		GeneratedAt:   generatedAt,
	}, nil
}
