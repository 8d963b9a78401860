package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

// SimplePrice is the /simple/price payload keyed by coin id, then by field
// ("usd", "usd_24h_change", ...). Null fields decode as invalid NullDecimals.
type SimplePrice map[string]map[string]decimal.NullDecimal

// Price returns the quote of coin id in currency, if present.
func (s SimplePrice) Price(id, currency string) (decimal.Decimal, bool) {
	v, ok := s[id][strings.ToLower(currency)]
	if !ok || !v.Valid {
		return decimal.Decimal{}, false
	}
	return v.Decimal, true
}

// Change24h returns the 24h percentage change of coin id in currency, if present.
func (s SimplePrice) Change24h(id, currency string) (decimal.Decimal, bool) {
	v, ok := s[id][strings.ToLower(currency)+"_24h_change"]
	if !ok || !v.Valid {
		return decimal.Decimal{}, false
	}
	return v.Decimal, true
}

// GetSimplePrice retrieves spot prices for ids in every vsCurrencies entry,
// with the 24h change included when include24hChange is set.
func (c *Client) GetSimplePrice(ctx context.Context, ids []string, vsCurrencies []string, include24hChange bool, opts ...ClientOption) (SimplePrice, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no ids", ErrBadRequest)
	}
	if len(vsCurrencies) == 0 {
		return nil, fmt.Errorf("%w: no vs_currencies", ErrBadRequest)
	}

	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}

	query := maps.Clone(override.query)
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", strings.ToLower(strings.Join(vsCurrencies, ",")))
	if include24hChange {
		query.Set("include_24hr_change", "true")
	}

	url := fmt.Sprintf("%s/simple/price?%s", override.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w with ids=%s", ErrBadRequest, strings.Join(ids, ","))

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized

	case http.StatusTooManyRequests:
		return nil, ErrRateLimited

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.StatusCode)
	}

	var body SimplePrice
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding simple price response: %w", err)
	}
	if body == nil {
		body = SimplePrice{}
	}
	return body, nil
}
