package pricing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const defaultCoinGeckoEndpoint = "https://api.coingecko.com/api/v3/simple/price"

// CoinGeckoClient adapts the public CoinGecko simple price API for
// reference-priced assets (ETH, USDC).
type CoinGeckoClient struct {
	client   *http.Client
	endpoint string
}

// NewCoinGeckoClient constructs a client against the public endpoint.
func NewCoinGeckoClient(client *http.Client) *CoinGeckoClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &CoinGeckoClient{client: client, endpoint: defaultCoinGeckoEndpoint}
}

// SimplePrices fetches USD quotes for the given canonical asset IDs in one
// request. Assets with missing or non-positive quotes are absent from the
// result; the caller decides whether that is fatal.
func (c *CoinGeckoClient) SimplePrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("ids", strings.Join(ids, ","))
	values.Set("vs_currencies", "usd")
	req.URL.RawQuery = values.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Errorf("coingecko: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload map[string]map[string]json.Number
	if err := decoder.Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "coingecko: decode")
	}

	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		entry, ok := payload[id]
		if !ok {
			continue
		}
		raw, ok := entry["usd"]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(raw.String())
		if err != nil || !price.IsPositive() {
			continue
		}
		out[id] = price
	}
	return out, nil
}
