package selection

import (
	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/marketdata/stub"
)

// fixture describes one token across listing, overview and security.
type fixture struct {
	addr      string
	mc        float64
	liquidity float64
	trades    *int64
	owner     *string
	freeze    *string
}

func goodToken(addr string) fixture {
	return fixture{addr: addr, mc: 1_000_000, liquidity: 200_000, trades: ptr(int64(1_000))}
}

func (ts fixture) listing() domain.TokenListing {
	return domain.TokenListing{
		Address:   ts.addr,
		Name:      "Token " + ts.addr[:4],
		Symbol:    ts.addr[:4],
		MarketCap: ts.mc,
		Liquidity: ts.liquidity,
		Decimals:  6,
	}
}

// register adds the token to page and wires its overview and security fixtures.
func register(c *stub.Client, page int, ts fixture) {
	c.AddListing(page, ts.listing())
	c.SetOverview(ts.addr, &domain.TokenOverview{
		Trades24h:         ts.trades,
		PriceChange24hPct: ptr(1.5),
		Volume24hUSD:      ptr(250_000.0),
		Decimals:          6,
	})
	c.SetSecurity(ts.addr, &domain.TokenSecurity{
		OwnerAddress:    ts.owner,
		FreezeAuthority: ts.freeze,
	})
}

func listingsOf(fixtures []fixture) []domain.TokenListing {
	out := make([]domain.TokenListing, len(fixtures))
	for i, s := range fixtures {
		out[i] = s.listing()
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
