package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-resty/resty/v2"

	"loadwatch-engine/internal/extract"
)

// Board polls the load board's listing page directly over HTTP using a
// session cookie captured from a logged-in browser. The board has no API;
// we ask for the same HTML the browser would get and parse the table out
// of it.
type Board struct {
	client *resty.Client
	url    string
	cookie string
}

type BoardOption func(*Board)

// WithBoardClient overrides the HTTP client, mainly for tests.
func WithBoardClient(c *resty.Client) BoardOption {
	return func(b *Board) { b.client = c }
}

func NewBoard(baseURL, listingURL, cookie string, opts ...BoardOption) (*Board, error) {
	if listingURL == "" {
		return nil, errors.New("board listing url is required")
	}
	b := &Board{
		url:    listingURL,
		cookie: cookie,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = resty.New().
			SetBaseURL(baseURL).
			SetRetryCount(2)
	}
	// Look like the browser the session cookie came from, or the board
	// serves a login page instead of the listing.
	b.client.
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36").
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	return b, nil
}

func (b *Board) Name() string { return "board" }

func (b *Board) Fetch(ctx context.Context) ([]extract.RawRow, error) {
	req := b.client.R().SetContext(ctx)
	if b.cookie != "" {
		req.SetHeader("Cookie", b.cookie)
	}

	resp, err := req.Get(b.url)
	if err != nil {
		return nil, fmt.Errorf("board fetch: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("board fetch: status %d", resp.StatusCode())
	}

	body := resp.String()
	// A session that expired gets redirected to the login form, which
	// still comes back as 200. Catch it before we "parse" zero rows
	// forever without anyone noticing.
	if looksLikeLoginPage(body) {
		return nil, errors.New("board fetch: got login page, session cookie likely expired")
	}

	rows, err := extract.RowsFromHTML(body)
	if err != nil {
		return nil, fmt.Errorf("board parse: %w", err)
	}
	log.Printf("[board] fetched %d rows", len(rows))
	return rows, nil
}

// looksLikeLoginPage sniffs for a password input near the top of the
// document. Listing pages can mention "login" in the nav, so an input
// field is the only reliable tell.
func looksLikeLoginPage(body string) bool {
	if len(body) > 8192 {
		body = body[:8192]
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, `type="password"`) || strings.Contains(lower, `type=password`)
}
