package domain

// TokenListing is one entry of a paginated market listing.
// Ephemeral: lives only for the duration of a selection run.
type TokenListing struct {
	Address      string  // base58 mint address
	Name         string  // display name
	Symbol       string  // ticker symbol
	LogoURI      *string // logo image URL (nullable)
	MarketCap    float64 // market capitalization in USD
	Liquidity    float64 // pooled liquidity in USD
	Volume24hUSD float64 // 24h traded volume in USD
	Decimals     int     // mint decimals
}

// TokenOverview is the per-token analytics snapshot.
type TokenOverview struct {
	Trades24h         *int64   // number of trades in the last 24h (nullable)
	PriceChange24hPct *float64 // 24h price change in percent (nullable)
	Volume24hUSD      *float64 // 24h traded volume in USD (nullable)
	Decimals          int
	Socials           SocialLinks
}

// TradeCount returns the 24h trade count, treating an unknown count as zero.
func (o *TokenOverview) TradeCount() int64 {
	if o == nil || o.Trades24h == nil {
		return 0
	}
	return *o.Trades24h
}

// TokenSecurity is the per-token authority report.
type TokenSecurity struct {
	OwnerAddress    *string // mint owner (nullable)
	FreezeAuthority *string // freeze authority (nullable)
}

// IsSafe reports whether the token has neither an owner nor a freeze authority.
func (s *TokenSecurity) IsSafe() bool {
	if s == nil {
		return false
	}
	return isAbsent(s.OwnerAddress) && isAbsent(s.FreezeAuthority)
}

func isAbsent(v *string) bool {
	return v == nil || *v == ""
}

// Candidate is a listing that passed the coarse filter and has been enriched
// with overview and security data. Discarded after reconciliation.
type Candidate struct {
	Listing  TokenListing
	Overview TokenOverview
	Security TokenSecurity
}

// Address returns the candidate mint address.
func (c *Candidate) Address() string {
	return c.Listing.Address
}

// ToToken builds the persisted form of the candidate.
func (c *Candidate) ToToken(active bool, nowMs int64) *Token {
	decimals := c.Overview.Decimals
	if decimals == 0 {
		decimals = c.Listing.Decimals
	}
	return &Token{
		Address:           c.Listing.Address,
		Symbol:            c.Listing.Symbol,
		Name:              c.Listing.Name,
		LogoURL:           c.Listing.LogoURI,
		PriceChange24hPct: c.Overview.PriceChange24hPct,
		Volume24hUSD:      c.Overview.Volume24hUSD,
		Decimals:          decimals,
		Socials:           c.Overview.Socials,
		IsActive:          active,
		CreatedAt:         nowMs,
		UpdatedAt:         nowMs,
	}
}

// Financials extracts the refreshable market fields.
func (o *TokenOverview) Financials() Financials {
	return Financials{
		PriceChange24hPct: o.PriceChange24hPct,
		Volume24hUSD:      o.Volume24hUSD,
		Decimals:          o.Decimals,
	}
}
