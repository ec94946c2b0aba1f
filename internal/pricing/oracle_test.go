package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOracle(dexURL, geckoURL, refURL string) *Oracle {
	o := NewOracle(http.DefaultClient, nil)
	if dexURL != "" {
		o.dex.endpoint = dexURL
	}
	if geckoURL != "" {
		o.gecko.endpoint = geckoURL
	}
	if refURL != "" {
		o.reference.endpoint = refURL
	}
	return o
}

func TestDexScreener_FirstPositivePair(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"pairs":[
		{"priceUsd":""},
		{"priceUsd":"0"},
		{"priceUsd":"0.0042"},
		{"priceUsd":"9.99"}
	]}`)
	o := testOracle(srv.URL, "", "")

	price, ok := o.PriceUSD(context.Background(), DexPair("0xfeed", "base"))
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("0.0042").Equal(price))
}

func TestDexScreener_NoPairsFallsBackToGeckoTerminal(t *testing.T) {
	dex := jsonServer(t, http.StatusOK, `{"pairs":[]}`)
	gecko := jsonServer(t, http.StatusOK, `{"data":{"attributes":{"token_prices":{
		"0xFEED":"0.0117"
	}}}}`)
	o := testOracle(dex.URL, gecko.URL, "")

	// Address casing differs from the provider's response key.
	price, ok := o.PriceUSD(context.Background(), DexPair("0xfeed", "base"))
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("0.0117").Equal(price))
}

func TestDexScreener_NoFallbackOffBase(t *testing.T) {
	dex := jsonServer(t, http.StatusOK, `{"pairs":[]}`)
	var geckoCalls atomic.Int32
	gecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		geckoCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(gecko.Close)
	o := testOracle(dex.URL, gecko.URL, "")

	// Ethereum-only tokens have no secondary provider.
	_, ok := o.PriceUSD(context.Background(), DexPair("0xfeed", ""))
	assert.False(t, ok)
	assert.Zero(t, geckoCalls.Load())
}

func TestDexScreener_UpstreamErrorIsUnavailable(t *testing.T) {
	dex := jsonServer(t, http.StatusTooManyRequests, `rate limited`)
	gecko := jsonServer(t, http.StatusInternalServerError, ``)
	o := testOracle(dex.URL, gecko.URL, "")

	_, ok := o.PriceUSD(context.Background(), DexPair("0xfeed", "base"))
	assert.False(t, ok)
}

func TestGeckoTerminal_VersionHeader(t *testing.T) {
	dex := jsonServer(t, http.StatusOK, `{}`)
	var accept string
	gecko := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"attributes":{"token_prices":{"0xfeed":"1"}}}}`))
	}))
	t.Cleanup(gecko.Close)
	o := testOracle(dex.URL, gecko.URL, "")

	_, ok := o.PriceUSD(context.Background(), DexPair("0xfeed", "base"))
	require.True(t, ok)
	assert.Equal(t, "application/json;version=20230203", accept)
}

func TestReferencePrice(t *testing.T) {
	ref := jsonServer(t, http.StatusOK, `{"ethereum":{"usd":3501.77}}`)
	o := testOracle("", "", ref.URL)

	price, ok := o.PriceUSD(context.Background(), Reference("ethereum"))
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("3501.77").Equal(price))
}

func TestReferencePrice_MissingAsset(t *testing.T) {
	ref := jsonServer(t, http.StatusOK, `{}`)
	o := testOracle("", "", ref.URL)

	_, ok := o.PriceUSD(context.Background(), Reference("usd-coin"))
	assert.False(t, ok)
}

func TestReferencePrice_NonPositiveSkipped(t *testing.T) {
	ref := jsonServer(t, http.StatusOK, `{"usd-coin":{"usd":0}}`)
	o := testOracle("", "", ref.URL)

	_, ok := o.PriceUSD(context.Background(), Reference("usd-coin"))
	assert.False(t, ok)
}

func TestSourceKey(t *testing.T) {
	assert.Equal(t, "ref:ethereum", Reference("ethereum").Key())
	assert.Equal(t, "dex:base:0xfeed", DexPair("0xfeed", "base").Key())
	// Keys must distinguish the same address across networks.
	assert.NotEqual(t, DexPair("0xfeed", "base").Key(), DexPair("0xfeed", "").Key())
}

type stubQuoter struct {
	prices map[string]decimal.Decimal
	calls  atomic.Int32
}

func (s *stubQuoter) PriceUSD(_ context.Context, src Source) (decimal.Decimal, bool) {
	s.calls.Add(1)
	p, ok := s.prices[src.Key()]
	return p, ok
}

func TestFetchAll(t *testing.T) {
	q := &stubQuoter{prices: map[string]decimal.Decimal{
		"ref:ethereum": decimal.NewFromInt(3500),
		"ref:usd-coin": decimal.RequireFromString("0.9998"),
	}}

	out := FetchAll(context.Background(), q, []NamedSource{
		{ID: "eth-base", Source: Reference("ethereum")},
		{ID: "eth-ethereum", Source: Reference("ethereum")},
		{ID: "usdc-base", Source: Reference("usd-coin")},
		{ID: "bread-base", Source: DexPair("0xfeed", "base")},
	})

	require.Len(t, out, 4)
	// Shared sources resolve once but fan out to every ID.
	assert.Equal(t, int32(3), q.calls.Load())
	require.NotNil(t, out["eth-base"])
	require.NotNil(t, out["eth-ethereum"])
	assert.True(t, out["eth-base"].Equal(*out["eth-ethereum"]))
	// Unavailable quotes are present, as nil.
	assert.Nil(t, out["bread-base"])
}
