package domain

// SocialLinks holds optional community links reported for a token.
type SocialLinks struct {
	Discord  *string // discord invite URL (nullable)
	Twitter  *string // twitter profile URL (nullable)
	Telegram *string // telegram channel URL (nullable)
	Website  *string // project website (nullable)
}

// Token is the persisted record of a tracked token.
// Corresponds to tokens table in PostgreSQL.
// Rows are created once on first selection and never deleted; later
// selections only flip IsActive.
type Token struct {
	Address           string   // PRIMARY KEY, base58 mint address
	Symbol            string   // ticker symbol
	Name              string   // display name
	LogoURL           *string  // logo image URL (nullable)
	PriceChange24hPct *float64 // 24h price change in percent (nullable)
	Volume24hUSD      *float64 // 24h traded volume in USD (nullable)
	Decimals          int      // mint decimals
	Socials           SocialLinks
	IsActive          bool  // currently selected
	CreatedAt         int64 // record creation timestamp (ms)
	UpdatedAt         int64 // last mutation timestamp (ms)
}

// Financials is the market snapshot written by the financials refresh job.
type Financials struct {
	PriceChange24hPct *float64
	Volume24hUSD      *float64
	Decimals          int
}
