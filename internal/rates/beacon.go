package rates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/govalues/decimal"
	"go.uber.org/zap"

	"github.com/danyeu/fx"
	"github.com/danyeu/fx/internal/logger"
)

const beaconSource = "beacon"

// BeaconClient fetches latest rates from the CurrencyBeacon API.
type BeaconClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	base    fx.Currency
	symbols []fx.Currency
}

// NewBeaconClient creates a client quoting symbols against base.
func NewBeaconClient(baseURL, apiKey string, timeout time.Duration, base fx.Currency, symbols []fx.Currency) *BeaconClient {
	return &BeaconClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		base:    base,
		symbols: symbols,
	}
}

type beaconResponse struct {
	Meta struct {
		Code         int    `json:"code"`
		ErrorType    string `json:"error_type"`
		ErrorMessage string `json:"error_detail"`
	} `json:"meta"`
	Response struct {
		Rates map[string]json.RawMessage `json:"rates"`
	} `json:"response"`
}

// Rates returns quoted rates for every configured symbol.
func (c *BeaconClient) Rates(ctx context.Context, side Side) (map[fx.Currency]fx.Rate, error) {
	start := time.Now()
	market, err := c.fetch(ctx)
	recordFetch(beaconSource, err, time.Since(start).Seconds())
	if err != nil {
		logger.Warn("rate fetch failed", zap.String("source", beaconSource), zap.Error(err))
		return nil, err
	}
	return quantize(market, side)
}

func (c *BeaconClient) endpoint() string {
	codes := make([]string, len(c.symbols))
	for i, s := range c.symbols {
		codes[i] = s.Code()
	}
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("base", c.base.Code())
	q.Set("symbols", strings.Join(codes, ","))
	return c.baseURL + "/v1/latest?" + q.Encode()
}

func (c *BeaconClient) fetch(ctx context.Context) (map[fx.Currency]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fxtrader/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrUnavailable, resp.StatusCode)
	}

	var body beaconResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrUnavailable, err)
	}
	if body.Meta.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: api error code %d %s", ErrUnavailable, body.Meta.Code, body.Meta.ErrorType)
	}

	market := make(map[fx.Currency]decimal.Decimal, len(c.symbols))
	for _, curr := range c.symbols {
		raw, ok := body.Response.Rates[curr.Code()]
		if !ok {
			return nil, fmt.Errorf("%w: no rate for %v", ErrUnavailable, curr)
		}
		d, err := parseRate(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: 1 %v = %v %s: %w", ErrInvalidRate, c.base, curr, raw, err)
		}
		market[curr] = d
	}
	return market, nil
}

// parseRate accepts only JSON numbers greater than zero.
func parseRate(raw json.RawMessage) (decimal.Decimal, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return decimal.Decimal{}, err
	}
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("non-numeric rate")
	}
	d, err := decimal.Parse(n.String())
	if err != nil {
		// exponent notation
		f, ferr := n.Float64()
		if ferr != nil {
			return decimal.Decimal{}, ferr
		}
		if d, err = decimal.NewFromFloat64(f); err != nil {
			return decimal.Decimal{}, err
		}
	}
	if !d.IsPos() {
		return decimal.Decimal{}, fmt.Errorf("non-positive rate")
	}
	return d, nil
}
