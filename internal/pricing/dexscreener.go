package pricing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const defaultDexScreenerEndpoint = "https://api.dexscreener.com/latest/dex/tokens"

// ErrNoQuote indicates the provider responded but had no usable price.
var ErrNoQuote = errors.New("no usable price quote")

// DexScreenerClient adapts the public DexScreener token-pairs API.
type DexScreenerClient struct {
	client   *http.Client
	endpoint string
}

// NewDexScreenerClient constructs a client against the public endpoint.
func NewDexScreenerClient(client *http.Client) *DexScreenerClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &DexScreenerClient{client: client, endpoint: defaultDexScreenerEndpoint}
}

type dexScreenerPair struct {
	PriceUSD string `json:"priceUsd"`
}

type dexScreenerResponse struct {
	Pairs []dexScreenerPair `json:"pairs"`
}

// TokenPrice looks up all trading pairs for the contract address and returns
// the first pair reporting a strictly positive USD price, in
// provider-returned order. There is no liquidity ranking.
func (c *DexScreenerClient) TokenPrice(ctx context.Context, address string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+address, nil)
	if err != nil {
		return decimal.Zero, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, errors.Errorf("dexscreener: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload dexScreenerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, errors.Wrap(err, "dexscreener: decode")
	}

	for _, pair := range payload.Pairs {
		if pair.PriceUSD == "" {
			continue
		}
		price, err := decimal.NewFromString(pair.PriceUSD)
		if err != nil {
			continue
		}
		if price.IsPositive() {
			return price, nil
		}
	}
	return decimal.Zero, errors.Wrap(ErrNoQuote, "dexscreener")
}
