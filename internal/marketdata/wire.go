package marketdata

import "solana-token-selector/internal/domain"

// envelope is the common response wrapper. success is absent on some endpoints.
type envelope[T any] struct {
	Data    *T    `json:"data"`
	Success *bool `json:"success"`
}

type tokenListData struct {
	Tokens []tokenListItem `json:"tokens"`
}

type tokenListItem struct {
	Address   string   `json:"address"`
	Decimals  int      `json:"decimals"`
	Liquidity *float64 `json:"liquidity"`
	LogoURI   *string  `json:"logoURI"`
	MC        *float64 `json:"mc"`
	Name      string   `json:"name"`
	Symbol    string   `json:"symbol"`
	V24hUSD   *float64 `json:"v24hUSD"`
}

type overviewData struct {
	Trade24h              *int64      `json:"trade24h"`
	Decimals              int         `json:"decimals"`
	PriceChange24hPercent *float64    `json:"priceChange24hPercent"`
	V24hUSD               *float64    `json:"v24hUSD"`
	Extensions            *extensions `json:"extensions"`
}

type extensions struct {
	Discord  *string `json:"discord"`
	Twitter  *string `json:"twitter"`
	Telegram *string `json:"telegram"`
	Website  *string `json:"website"`
}

type securityData struct {
	OwnerAddress    *string `json:"ownerAddress"`
	FreezeAuthority *string `json:"freezeAuthority"`
}

func (i tokenListItem) toDomain() domain.TokenListing {
	return domain.TokenListing{
		Address:      i.Address,
		Name:         i.Name,
		Symbol:       i.Symbol,
		LogoURI:      i.LogoURI,
		MarketCap:    valueOrZero(i.MC),
		Liquidity:    valueOrZero(i.Liquidity),
		Volume24hUSD: valueOrZero(i.V24hUSD),
		Decimals:     i.Decimals,
	}
}

func (o overviewData) toDomain() *domain.TokenOverview {
	ov := &domain.TokenOverview{
		Trades24h:         o.Trade24h,
		PriceChange24hPct: o.PriceChange24hPercent,
		Volume24hUSD:      o.V24hUSD,
		Decimals:          o.Decimals,
	}
	// A missing extensions object means every social link is absent.
	if o.Extensions != nil {
		ov.Socials = domain.SocialLinks{
			Discord:  nonEmpty(o.Extensions.Discord),
			Twitter:  nonEmpty(o.Extensions.Twitter),
			Telegram: nonEmpty(o.Extensions.Telegram),
			Website:  nonEmpty(o.Extensions.Website),
		}
	}
	return ov
}

func (s securityData) toDomain() *domain.TokenSecurity {
	return &domain.TokenSecurity{
		OwnerAddress:    nonEmpty(s.OwnerAddress),
		FreezeAuthority: nonEmpty(s.FreezeAuthority),
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}
