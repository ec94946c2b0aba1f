package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// NamedSource pairs a caller-assigned ID (a payment method ID) with the
// price source that quotes it.
type NamedSource struct {
	ID     string
	Source Source
}

// FetchAll resolves every named source concurrently, deduplicating sources
// shared between IDs (USDC and ETH are each quoted once for both chains).
// Unavailable prices map to nil rather than being dropped, so the result
// always has one entry per input ID.
func FetchAll(ctx context.Context, q Quoter, sources []NamedSource) map[string]*decimal.Decimal {
	unique := make(map[string]Source, len(sources))
	for _, ns := range sources {
		unique[ns.Source.Key()] = ns.Source
	}

	var mu sync.Mutex
	quotes := make(map[string]*decimal.Decimal, len(unique))

	g, ctx := errgroup.WithContext(ctx)
	for key, src := range unique {
		g.Go(func() error {
			price, ok := q.PriceUSD(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				quotes[key] = &price
			} else {
				quotes[key] = nil
			}
			return nil
		})
	}
	// Workers never return errors; unavailable quotes are nil entries.
	_ = g.Wait()

	out := make(map[string]*decimal.Decimal, len(sources))
	for _, ns := range sources {
		out[ns.ID] = quotes[ns.Source.Key()]
	}
	return out
}
