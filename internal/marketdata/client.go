// Package marketdata is a typed client for the Birdeye-compatible market data API.
package marketdata

import (
	"context"

	"solana-token-selector/internal/domain"
)

// Client fetches token listings and per-token analytics.
// Implementations do not retry; a failed call returns *FetchError or *DecodeError.
type Client interface {
	// FetchListingsPage returns one page of listings sorted by 24h volume, descending.
	FetchListingsPage(ctx context.Context, page int) ([]domain.TokenListing, error)

	// FetchOverview returns trade count, price change, volume, decimals and socials.
	FetchOverview(ctx context.Context, address string) (*domain.TokenOverview, error)

	// FetchSecurity returns the owner and freeze authority of a mint.
	FetchSecurity(ctx context.Context, address string) (*domain.TokenSecurity, error)
}
