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

const (
	defaultGeckoTerminalEndpoint = "https://api.geckoterminal.com/api/v2"

	// geckoTerminalAccept pins the API version. GeckoTerminal is rate
	// limited to roughly 10 requests/minute; callers own backoff.
	geckoTerminalAccept = "application/json;version=20230203"
)

// GeckoTerminalClient adapts the GeckoTerminal network-scoped token price
// API. It covers Base tokens that DexScreener has no pairs for.
type GeckoTerminalClient struct {
	client   *http.Client
	endpoint string
}

// NewGeckoTerminalClient constructs a client against the public endpoint.
func NewGeckoTerminalClient(client *http.Client) *GeckoTerminalClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &GeckoTerminalClient{client: client, endpoint: defaultGeckoTerminalEndpoint}
}

type geckoTerminalResponse struct {
	Data struct {
		Attributes struct {
			TokenPrices map[string]string `json:"token_prices"`
		} `json:"attributes"`
	} `json:"data"`
}

// TokenPrice quotes a token by (network, contract address). The response
// keys token prices by address in the provider's casing, so the lookup is
// case-insensitive.
func (c *GeckoTerminalClient) TokenPrice(ctx context.Context, network, address string) (decimal.Decimal, error) {
	url := c.endpoint + "/simple/networks/" + network + "/token_price/" + address
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", geckoTerminalAccept)

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, errors.Errorf("geckoterminal: status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload geckoTerminalResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, errors.Wrap(err, "geckoterminal: decode")
	}

	for key, raw := range payload.Data.Attributes.TokenPrices {
		if !strings.EqualFold(key, address) {
			continue
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "geckoterminal: parse price")
		}
		if price.IsPositive() {
			return price, nil
		}
	}
	return decimal.Zero, errors.Wrap(ErrNoQuote, "geckoterminal")
}
