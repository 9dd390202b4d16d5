// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package letterboxd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jcodagnone/cinemap/utils/htmlutils"
	"golang.org/x/net/html"
)

// DefaultBaseURL is the Letterboxd site root.
const DefaultBaseURL = "https://letterboxd.com"

// ErrNoPosters is returned when the first page of a profile lists no films.
var ErrNoPosters = errors.New("letterboxd: no films found")

// ScraperOptions configuration for Scraper.
type ScraperOptions struct {
	// BaseURL overrides DefaultBaseURL
	BaseURL string

	// PageDelay is the pause between two page requests
	PageDelay time.Duration

	// MaxPages stops the walk after this many pages. Zero means no limit.
	MaxPages int
}

// ScrapeMetrics tracks statistics about a profile walk.
type ScrapeMetrics struct {
	Pages int // pages retrieved
	Films int // films found
}

// Scraper walks the paginated films pages of a member profile.
type Scraper struct {
	client  *http.Client
	options ScraperOptions
	sleep   func(context.Context, time.Duration) error
	now     func() time.Time
	Metrics ScrapeMetrics
}

// NewScraper creates a new scraper. A nil client means http.DefaultClient.
func NewScraper(options *ScraperOptions, client *http.Client) *Scraper {
	if options == nil {
		options = &ScraperOptions{}
	}

	opts := *options
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &Scraper{
		client:  client,
		options: opts,
		sleep:   sleepContext,
		now:     time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Films returns the films watched by user, in the order the profile lists
// them. Failing to retrieve the first page is an error; a failure on a later
// page ends the walk with what was collected so far.
func (s *Scraper) Films(ctx context.Context, user string) ([]Film, error) {
	user = strings.Trim(strings.TrimSpace(user), "/")
	if user == "" {
		return nil, errors.New("letterboxd: user must not be empty")
	}

	base, err := url.Parse(s.options.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL <%s>: %w", s.options.BaseURL, err)
	}

	current := base.JoinPath(user, "films").String() + "/"

	var films []Film

	for current != "" {
		log.Printf("Scraping page <%s>", current)

		page, next, err := s.retrievePage(ctx, current)
		if err != nil {
			if s.Metrics.Pages == 0 {
				return nil, fmt.Errorf("retrieving %s: %w", current, err)
			}

			log.Printf("⚠️  Stopping at <%s>: %s", current, err)

			break
		}

		s.Metrics.Pages++

		if len(page) == 0 {
			if s.Metrics.Pages == 1 {
				return nil, fmt.Errorf("%w for %s", ErrNoPosters, user)
			}

			log.Println("No films on this page, stopping.")

			break
		}

		films = append(films, page...)
		s.Metrics.Films += len(page)

		if s.options.MaxPages > 0 && s.Metrics.Pages >= s.options.MaxPages {
			log.Printf("Reached the maximum of %d pages", s.options.MaxPages)

			break
		}

		current = ""

		if next != "" {
			nextURL, err := base.Parse(next)
			if err != nil {
				log.Printf("⚠️  Ignoring next page link %q: %s", next, err)

				break
			}

			current = nextURL.String()

			if err := s.sleep(ctx, s.options.PageDelay); err != nil {
				return films, err
			}
		}
	}

	return films, nil
}

func (s *Scraper) retrievePage(ctx context.Context, pageURL string) (_ []Film, _ string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing resp.Body: %w", cerr))
		}
	}()

	r, err := htmlutils.AsReader(resp)
	if err != nil {
		return nil, "", err
	}

	n, err := htmlutils.AsNode(r)
	if err != nil {
		return nil, "", err
	}

	films, next := parseFilmsPage(n, s.now())

	return films, next, nil
}

func isPosterItem(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "li" {
		return false
	}

	return htmlutils.HasClass(n, "poster-container") || htmlutils.HasClass(n, "griditem")
}

func hasSlug(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}

	if _, ok := htmlutils.Attr(n, "data-film-slug"); ok {
		return true
	}

	_, ok := htmlutils.Attr(n, "data-item-slug")

	return ok
}

// parseFilmsPage extracts the films listed in a films page and the link to
// the next page, if any.
func parseFilmsPage(n *html.Node, now time.Time) ([]Film, string) {
	var films []Film

	for _, item := range htmlutils.FindAll(n, isPosterItem) {
		if film, ok := parsePoster(item, now); ok {
			films = append(films, film)
		}
	}

	var next string
	if a := htmlutils.FindFirst(n, htmlutils.Element("a", "next")); a != nil {
		next, _ = htmlutils.Attr(a, "href")
	}

	return films, next
}

func parsePoster(item *html.Node, now time.Time) (Film, bool) {
	var title, year string

	if img := htmlutils.FindFirst(item, htmlutils.Element("img", "")); img != nil {
		alt, _ := htmlutils.Attr(img, "alt")
		// newer markup prefixes the alt text
		title, year = splitTitleYear(strings.TrimPrefix(strings.TrimSpace(alt), "Poster for "))
	}

	if poster := htmlutils.FindFirst(item, hasSlug); poster != nil {
		if title == "" {
			name, _ := htmlutils.Attr(poster, "data-item-name")
			title, year = splitTitleYear(name)
		}

		if y, ok := htmlutils.Attr(poster, "data-film-release-year"); ok {
			year = y
		}

		if year == "" {
			slug, ok := htmlutils.Attr(poster, "data-film-slug")
			if !ok {
				slug, _ = htmlutils.Attr(poster, "data-item-slug")
			}

			year = YearFromSlug(slug, now)
		}
	}

	if !validYear(year, now) {
		year = ""
	}

	return Film{Title: title, Year: year}, title != ""
}
