// Package pricing fetches live USD token prices from upstream quote
// providers with provider fallback.
//
// Three upstreams are consulted: DexScreener (primary DEX-pair lookup by
// contract address), GeckoTerminal (secondary, network-scoped fallback for
// Base tokens DexScreener often misses) and CoinGecko (reference prices for
// ETH/USDC-class assets). All upstreams are best-effort: any failure
// degrades to "price unavailable" rather than an error, and callers own
// their own refresh cadence and backoff.
package pricing

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SourceType discriminates the two quote lookup styles.
type SourceType string

const (
	// SourceDexPair quotes by token contract address via DEX aggregators.
	SourceDexPair SourceType = "dexpair"
	// SourceReference quotes by canonical asset ID via a market-data API.
	SourceReference SourceType = "reference"
)

// Source describes where a token's USD price comes from.
type Source struct {
	Type SourceType
	// Address is the token contract address (dexpair only).
	Address string
	// Network optionally scopes the address to a chain ("base", "ethereum"),
	// enabling the secondary network-scoped fallback (dexpair only).
	Network string
	// AssetID is the canonical market-data identifier, e.g. "ethereum",
	// "usd-coin" (reference only).
	AssetID string
}

// DexPair builds a DEX-pair price source for a contract address, optionally
// scoped to a network.
func DexPair(address, network string) Source {
	return Source{Type: SourceDexPair, Address: address, Network: network}
}

// Reference builds a reference-price source for a canonical asset ID.
func Reference(assetID string) Source {
	return Source{Type: SourceReference, AssetID: assetID}
}

// Key returns a stable cache key for the source.
func (s Source) Key() string {
	if s.Type == SourceReference {
		return "ref:" + s.AssetID
	}
	return "dex:" + s.Network + ":" + s.Address
}

// Quoter resolves prices for the payment options. Implemented by Oracle and
// by the redis-backed QuoteCache wrapper.
type Quoter interface {
	PriceUSD(ctx context.Context, src Source) (decimal.Decimal, bool)
}

// Oracle resolves USD prices with provider fallback. It holds no cache and
// no state beyond its HTTP clients; a quote request is a live round trip.
type Oracle struct {
	dex       *DexScreenerClient
	gecko     *GeckoTerminalClient
	reference *CoinGeckoClient
	lg        *zap.Logger
}

// NewOracle constructs an Oracle. A nil client selects the default for that
// provider; a nil logger disables logging.
func NewOracle(client *http.Client, lg *zap.Logger) *Oracle {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Oracle{
		dex:       NewDexScreenerClient(client),
		gecko:     NewGeckoTerminalClient(client),
		reference: NewCoinGeckoClient(client),
		lg:        lg,
	}
}

// PriceUSD resolves the USD price for a source. The second return value is
// false when no usable quote could be obtained from any provider; callers
// must treat that as a first-class, expected outcome.
func (o *Oracle) PriceUSD(ctx context.Context, src Source) (decimal.Decimal, bool) {
	switch src.Type {
	case SourceDexPair:
		return o.dexPairPrice(ctx, src)
	case SourceReference:
		return o.referencePrice(ctx, src.AssetID)
	default:
		return decimal.Zero, false
	}
}

// dexPairPrice queries DexScreener first and, for Base-scoped tokens it has
// no pairs for, falls through to GeckoTerminal before giving up.
func (o *Oracle) dexPairPrice(ctx context.Context, src Source) (decimal.Decimal, bool) {
	price, err := o.dex.TokenPrice(ctx, src.Address)
	if err == nil {
		return price, true
	}
	o.lg.Debug("dexscreener quote failed",
		zap.String("address", src.Address), zap.Error(err))

	if src.Network == "base" {
		price, err = o.gecko.TokenPrice(ctx, src.Network, src.Address)
		if err == nil {
			return price, true
		}
		o.lg.Debug("geckoterminal quote failed",
			zap.String("address", src.Address), zap.Error(err))
	}
	return decimal.Zero, false
}

func (o *Oracle) referencePrice(ctx context.Context, assetID string) (decimal.Decimal, bool) {
	prices, err := o.reference.SimplePrices(ctx, []string{assetID})
	if err != nil {
		o.lg.Debug("coingecko quote failed",
			zap.String("asset", assetID), zap.Error(err))
		return decimal.Zero, false
	}
	price, ok := prices[assetID]
	return price, ok
}
