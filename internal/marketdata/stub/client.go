// Package stub provides an in-memory marketdata.Client for tests.
package stub

import (
	"context"
	"strconv"
	"sync"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/marketdata"
)

// Client implements marketdata.Client from in-memory fixtures.
// Unknown addresses yield a *marketdata.FetchError with status 404.
type Client struct {
	mu         sync.Mutex
	Pages      map[int][]domain.TokenListing
	Overviews  map[string]*domain.TokenOverview
	Securities map[string]*domain.TokenSecurity

	// Errors injected per call key ("page:N", "overview:ADDR", "security:ADDR").
	Errors map[string]error

	calls []string
}

// NewClient creates a new stub client.
func NewClient() *Client {
	return &Client{
		Pages:      make(map[int][]domain.TokenListing),
		Overviews:  make(map[string]*domain.TokenOverview),
		Securities: make(map[string]*domain.TokenSecurity),
		Errors:     make(map[string]error),
	}
}

var _ marketdata.Client = (*Client)(nil)

// AddListing appends a listing to page.
func (c *Client) AddListing(page int, l domain.TokenListing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Pages[page] = append(c.Pages[page], l)
}

// SetOverview registers the overview for address.
func (c *Client) SetOverview(address string, o *domain.TokenOverview) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Overviews[address] = o
}

// SetSecurity registers the security report for address.
func (c *Client) SetSecurity(address string, s *domain.TokenSecurity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Securities[address] = s
}

// FailOn makes the call identified by key return err.
func (c *Client) FailOn(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Errors[key] = err
}

// Calls returns the call keys recorded so far, in order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// CallCount returns how many recorded calls have the given key.
func (c *Client) CallCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.calls {
		if k == key {
			n++
		}
	}
	return n
}

// FetchListingsPage returns the fixtures for page. Missing pages are empty.
func (c *Client) FetchListingsPage(_ context.Context, page int) ([]domain.TokenListing, error) {
	key := PageKey(page)
	if err := c.record(key); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.TokenListing(nil), c.Pages[page]...), nil
}

// FetchOverview returns the registered overview for address.
func (c *Client) FetchOverview(_ context.Context, address string) (*domain.TokenOverview, error) {
	key := OverviewKey(address)
	if err := c.record(key); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.Overviews[address]
	if !ok {
		return nil, notFound(key)
	}
	ov := *o
	return &ov, nil
}

// FetchSecurity returns the registered security report for address.
func (c *Client) FetchSecurity(_ context.Context, address string) (*domain.TokenSecurity, error) {
	key := SecurityKey(address)
	if err := c.record(key); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.Securities[address]
	if !ok {
		return nil, notFound(key)
	}
	sec := *s
	return &sec, nil
}

func (c *Client) record(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, key)
	return c.Errors[key]
}

// PageKey is the call key for a listings page.
func PageKey(page int) string {
	return "page:" + strconv.Itoa(page)
}

// OverviewKey is the call key for an overview fetch.
func OverviewKey(address string) string {
	return "overview:" + address
}

// SecurityKey is the call key for a security fetch.
func SecurityKey(address string) string {
	return "security:" + address
}

func notFound(key string) error {
	return &marketdata.FetchError{Endpoint: key, StatusCode: 404, Body: "not found"}
}
