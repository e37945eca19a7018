// Package enrich fetches a company-profile page and runs the email cascade
// over it. This is the one network-involving step of extraction, so it is
// rate-limited and timeout-bounded, and invoked by the orchestrator only when
// a posting resolved no email of its own.
package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

var (
	reEmail        = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	reEmailLabeled = regexp.MustCompile(`(?i)(?:E-?mail|Contact|Email)[:\s]*([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
	reEmailExact   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// Page text runs words together; a captured email can pick up trailing
	// uppercase junk like certification acronyms.
	reTrailingCaps = regexp.MustCompile(`[A-Z]{3,}$`)
)

// Placeholder domains the vendor's templates leave behind.
var skipDomains = []string{"example.com", "test.com", "domain.com"}

type Enricher struct {
	hc      *resty.Client
	limiter *rate.Limiter
}

type Option func(*Enricher)

// WithClient swaps the HTTP client (tests).
func WithClient(hc *resty.Client) Option {
	return func(e *Enricher) { e.hc = hc }
}

// New builds an Enricher resolving relative profile paths against baseURL,
// with the given per-request timeout and a fixed delay between consecutive
// fetches.
func New(baseURL string, timeout, delay time.Duration, opts ...Option) *Enricher {
	e := &Enricher{
		hc: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout),
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Email fetches the profile page and returns the first plausible email, or
// "" when the page has none. A timeout or non-200 is an error for the caller
// to log; either way the posting's email simply stays unknown.
func (e *Enricher) Email(ctx context.Context, profileURL string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	path := profileURL
	if !strings.HasPrefix(path, "http") && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	resp, err := e.hc.R().SetContext(ctx).Get(path)
	if err != nil {
		return "", fmt.Errorf("profile fetch: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("profile fetch: status %d", resp.StatusCode())
	}

	return EmailFromProfile(resp.String()), nil
}

// EmailFromProfile applies the email cascade to a profile page: labeled
// patterns in the page text, then bare patterns, then mailto anchors, form
// field values, and inline script text.
func EmailFromProfile(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Not parseable as HTML; fall back to a raw text scan.
		return cleanCandidate(reEmail.FindString(html))
	}

	text := doc.Text()
	if m := reEmailLabeled.FindStringSubmatch(text); m != nil {
		if email := cleanCandidate(m[1]); email != "" {
			return email
		}
	}
	for _, m := range reEmail.FindAllString(text, -1) {
		if email := cleanCandidate(m); email != "" {
			return email
		}
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(strings.ToLower(href), "mailto:") {
			return true
		}
		if email := cleanCandidate(strings.TrimSpace(href[7:])); email != "" {
			found = email
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	doc.Find("input").EachWithBreak(func(_ int, in *goquery.Selection) bool {
		val, _ := in.Attr("value")
		if !strings.Contains(val, "@") {
			return true
		}
		if email := cleanCandidate(reEmail.FindString(val)); email != "" {
			found = email
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if email := cleanCandidate(reEmail.FindString(s.Text())); email != "" {
			found = email
			return false
		}
		return true
	})
	return found
}

func cleanCandidate(email string) string {
	email = strings.TrimSpace(reTrailingCaps.ReplaceAllString(email, ""))
	if email == "" || !reEmailExact.MatchString(email) {
		return ""
	}
	lower := strings.ToLower(email)
	for _, d := range skipDomains {
		if strings.HasSuffix(lower, "@"+d) || strings.Contains(lower, d) {
			return ""
		}
	}
	return email
}
