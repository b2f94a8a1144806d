package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL  = "https://public-api.birdeye.so"
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 50
	DefaultChain    = "solana"
)

// Endpoint paths.
const (
	endpointTokenList     = "/defi/tokenlist"
	endpointTokenOverview = "/defi/token_overview"
	endpointTokenSecurity = "/defi/token_security"
)

// maxErrorBody caps the response body echoed into FetchError.
const maxErrorBody = 512

// HTTPClient implements Client over HTTPS with an API key header.
type HTTPClient struct {
	baseURL  string
	apiKey   string
	chain    string
	pageSize int
	client   *http.Client
	logger   *zap.Logger
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets HTTP client timeout. Non-positive values are ignored so
// every request stays bounded.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithPageSize sets the listing page size.
func WithPageSize(n int) ClientOption {
	return func(c *HTTPClient) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithChain sets the x-chain header. Empty disables the header.
func WithChain(chain string) ClientOption {
	return func(c *HTTPClient) {
		c.chain = chain
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *HTTPClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewHTTPClient creates a new market data client authenticated with apiKey.
func NewHTTPClient(apiKey string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		chain:    DefaultChain,
		pageSize: DefaultPageSize,
		client:   &http.Client{Timeout: DefaultTimeout},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Client = (*HTTPClient)(nil)

// FetchListingsPage returns one page of listings sorted by 24h USD volume.
// The page index is sent as the offset parameter.
func (c *HTTPClient) FetchListingsPage(ctx context.Context, page int) ([]domain.TokenListing, error) {
	q := url.Values{}
	q.Set("sort_by", "v24hUSD")
	q.Set("sort_type", "desc")
	q.Set("offset", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(c.pageSize))

	var resp envelope[tokenListData]
	if err := c.get(ctx, endpointTokenList, q, &resp); err != nil {
		return nil, err
	}

	listings := make([]domain.TokenListing, 0, len(resp.Data.Tokens))
	for _, item := range resp.Data.Tokens {
		if item.Address == "" {
			return nil, &DecodeError{Endpoint: endpointTokenList, Reason: "token without address"}
		}
		listings = append(listings, item.toDomain())
	}

	c.logger.Debug("fetched listings page",
		zap.Int("page", page),
		zap.Int("count", len(listings)),
	)
	return listings, nil
}

// FetchOverview returns the analytics snapshot for a token.
func (c *HTTPClient) FetchOverview(ctx context.Context, address string) (*domain.TokenOverview, error) {
	q := url.Values{}
	q.Set("address", address)

	var resp envelope[overviewData]
	if err := c.get(ctx, endpointTokenOverview, q, &resp); err != nil {
		return nil, err
	}
	return resp.Data.toDomain(), nil
}

// FetchSecurity returns the authority report for a token.
func (c *HTTPClient) FetchSecurity(ctx context.Context, address string) (*domain.TokenSecurity, error) {
	q := url.Values{}
	q.Set("address", address)

	var resp envelope[securityData]
	if err := c.get(ctx, endpointTokenSecurity, q, &resp); err != nil {
		return nil, err
	}
	return resp.Data.toDomain(), nil
}

// responseEnvelope is satisfied by every envelope instantiation.
type responseEnvelope interface {
	validate(endpoint string) error
}

func (e *envelope[T]) validate(endpoint string) error {
	if e.Success != nil && !*e.Success {
		return &DecodeError{Endpoint: endpoint, Reason: "success=false"}
	}
	if e.Data == nil {
		return &DecodeError{Endpoint: endpoint, Reason: "missing data"}
	}
	return nil
}

// get performs a single GET and decodes the JSON body into out. No retries.
func (c *HTTPClient) get(ctx context.Context, endpoint string, query url.Values, out responseEnvelope) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordMarketDataCall(endpoint, errorKind(err), time.Since(start).Seconds())
	}()

	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)
	if c.chain != "" {
		req.Header.Set("x-chain", c.chain)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Endpoint: endpoint, Reason: "invalid json", Err: err}
	}
	return out.validate(endpoint)
}

func errorKind(err error) string {
	switch err.(type) {
	case nil:
		return ""
	case *FetchError:
		return "fetch"
	case *DecodeError:
		return "decode"
	default:
		return "other"
	}
}
