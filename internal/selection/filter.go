// Package selection picks the set of tokens that should be active.
package selection

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/logging"
	"solana-token-selector/internal/marketdata"
	"solana-token-selector/internal/solana"
)

// Default filter thresholds.
const (
	DefaultMinMarketCap = 500_000.0
	DefaultMinLiquidity = 100_000.0
	DefaultMinTrades24h = 500
	DefaultFloor        = 25
)

// FilterConfig holds the thresholds for both filter stages.
type FilterConfig struct {
	MinMarketCap float64
	MinLiquidity float64
	MinTrades24h int64
	Floor        int // minimum survivors per stage, also the final selection size
	Excluded     map[string]struct{}
}

// DefaultFilterConfig returns the default thresholds with the given exclusions.
func DefaultFilterConfig(excluded []string) FilterConfig {
	return FilterConfig{
		MinMarketCap: DefaultMinMarketCap,
		MinLiquidity: DefaultMinLiquidity,
		MinTrades24h: DefaultMinTrades24h,
		Floor:        DefaultFloor,
		Excluded:     ExcludedSet(excluded),
	}
}

// ExcludedSet builds a lookup set from addrs.
func ExcludedSet(addrs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[a] = struct{}{}
	}
	return set
}

// IsExcluded reports whether addr is on the exclusion list.
func (c FilterConfig) IsExcluded(addr string) bool {
	_, ok := c.Excluded[addr]
	return ok
}

// CoarseFilter keeps listings meeting the market cap and liquidity thresholds
// that are not excluded, deduplicated by address with the first occurrence
// winning. Listings whose address is not a valid mint are dropped before the
// floor is counted. Fewer than Floor survivors is an *InsufficientCandidatesError.
func CoarseFilter(listings []domain.TokenListing, cfg FilterConfig, logger *zap.Logger) ([]domain.TokenListing, error) {
	logger = logging.OrNop(logger)
	seen := make(map[string]struct{}, len(listings))
	survivors := make([]domain.TokenListing, 0, len(listings))

	for _, l := range listings {
		if l.MarketCap < cfg.MinMarketCap || l.Liquidity < cfg.MinLiquidity {
			continue
		}
		if cfg.IsExcluded(l.Address) {
			continue
		}
		if err := solana.ValidateAddress(l.Address); err != nil {
			logger.Debug("dropped invalid mint address",
				zap.String("address", l.Address),
				zap.Error(err),
			)
			continue
		}
		if _, dup := seen[l.Address]; dup {
			continue
		}
		seen[l.Address] = struct{}{}
		survivors = append(survivors, l)
	}

	if len(survivors) < cfg.Floor {
		return nil, &InsufficientCandidatesError{Stage: StageCoarse, Got: len(survivors), Want: cfg.Floor}
	}
	return survivors, nil
}

// FineFilter enriches each listing and keeps those with enough trades and no
// owner or freeze authority. Tokens are processed sequentially in input
// order; the security call is skipped for tokens failing the trade gate.
// Any fetch error aborts the whole stage. On success the result is truncated
// to exactly Floor candidates.
func FineFilter(ctx context.Context, client marketdata.Client, listings []domain.TokenListing, cfg FilterConfig, logger *zap.Logger) ([]domain.Candidate, int, error) {
	logger = logging.OrNop(logger)
	survivors := make([]domain.Candidate, 0, len(listings))

	for _, l := range listings {
		overview, err := client.FetchOverview(ctx, l.Address)
		if err != nil {
			return nil, 0, fmt.Errorf("overview %s: %w", l.Address, err)
		}
		if overview.TradeCount() < cfg.MinTrades24h {
			logger.Debug("dropped by trade count",
				zap.String("address", l.Address),
				zap.Int64("trades_24h", overview.TradeCount()),
			)
			continue
		}

		security, err := client.FetchSecurity(ctx, l.Address)
		if err != nil {
			return nil, 0, fmt.Errorf("security %s: %w", l.Address, err)
		}
		if !security.IsSafe() {
			logger.Debug("dropped by security check",
				zap.String("address", l.Address),
				zap.Bool("has_owner", security.OwnerAddress != nil),
				zap.Bool("has_freeze_authority", security.FreezeAuthority != nil),
			)
			continue
		}

		survivors = append(survivors, domain.Candidate{
			Listing:  l,
			Overview: *overview,
			Security: *security,
		})
	}

	if len(survivors) < cfg.Floor {
		return nil, len(survivors), &InsufficientCandidatesError{Stage: StageFine, Got: len(survivors), Want: cfg.Floor}
	}

	// First Floor survivors in input order.
	return survivors[:cfg.Floor], len(survivors), nil
}
