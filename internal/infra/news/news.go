// Package news retrieves items from RSS/Atom news feeds. It fetches feeds
// concurrently, filters items for relevance by keyword, and optionally
// enhances thin items with extracted article text.
package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"pulsepost/internal/observability/metrics"
	"pulsepost/internal/resilience/recovery"
	"pulsepost/internal/utils/text"
)

const (
	userAgent = "pulsepost/1.0"

	// maxConcurrentFeeds bounds parallel feed fetches.
	maxConcurrentFeeds = 4

	// thinContentThreshold: items with shorter summaries are candidates for
	// full-text enhancement.
	thinContentThreshold = 280

	// maxSummaryLength caps stored summaries; generation prompts do not
	// benefit from more.
	maxSummaryLength = 2000
)

// ErrNoItems is returned when no feed produced a usable item.
var ErrNoItems = errors.New("no news items available")

// Item is one news story selected for posting.
type Item struct {
	Title       string
	URL         string
	Summary     string
	FeedTitle   string
	PublishedAt time.Time
}

// Config configures the news fetcher.
type Config struct {
	// FeedURLs are the RSS/Atom feeds to poll.
	FeedURLs []string

	// Keywords filter items for relevance; empty keeps everything.
	Keywords []string

	// MaxItems caps the number of items returned, newest first.
	MaxItems int

	// FetchContent enables full-text extraction for thin items.
	FetchContent bool

	// FetchTimeout bounds one feed or article fetch.
	FetchTimeout time.Duration
}

// Fetcher retrieves and filters news items from the configured feeds.
// It is safe for concurrent use.
type Fetcher struct {
	client *http.Client
	config Config
}

// NewFetcher creates a news fetcher using the given HTTP client.
func NewFetcher(client *http.Client, config Config) *Fetcher {
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 20 * time.Second
	}
	if config.MaxItems <= 0 {
		config.MaxItems = 10
	}
	return &Fetcher{client: client, config: config}
}

// FetchLatest fetches all configured feeds concurrently and returns the
// relevant items, newest first, capped at MaxItems. Individual feed failures
// are logged and tolerated; only when every feed fails is an error returned,
// tagged as a network failure for the recovery layer.
func (f *Fetcher) FetchLatest(ctx context.Context) ([]Item, error) {
	var (
		mu       sync.Mutex
		items    []Item
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFeeds)

	for _, feedURL := range f.config.FeedURLs {
		feedURL := feedURL
		g.Go(func() error {
			fetched, err := f.fetchFeed(gctx, feedURL)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("feed fetch failed",
					slog.String("feed", feedURL),
					slog.String("error", err.Error()))
				failures = append(failures, fmt.Errorf("%s: %w", feedURL, err))
				return nil
			}
			items = append(items, fetched...)
			return nil
		})
	}
	_ = g.Wait()

	if len(items) == 0 {
		if len(failures) > 0 {
			return nil, recovery.Tag(fmt.Errorf("all feeds failed: %w", errors.Join(failures...)), recovery.CategoryNetwork)
		}
		return nil, ErrNoItems
	}

	items = f.filterRelevant(items)
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if len(items) > f.config.MaxItems {
		items = items[:f.config.MaxItems]
	}

	if f.config.FetchContent {
		f.enhanceThinItems(ctx, items)
	}

	return items, nil
}

// fetchFeed retrieves and parses one feed.
func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.FetchTimeout)
	defer cancel()

	start := time.Now()

	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = f.client

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		publishedAt := time.Now()
		if it.PublishedParsed != nil {
			publishedAt = *it.PublishedParsed
		}

		summary := it.Content
		if summary == "" {
			summary = it.Description
		}
		summary = text.Truncate(text.CollapseWhitespace(stripHTML(summary)), maxSummaryLength, "...")

		items = append(items, Item{
			Title:       text.CollapseWhitespace(it.Title),
			URL:         it.Link,
			Summary:     summary,
			FeedTitle:   feed.Title,
			PublishedAt: publishedAt,
		})
	}

	metrics.RecordNewsFetch(feedURL, len(items), time.Since(start))
	return items, nil
}

// filterRelevant keeps items whose title or summary contains a configured
// keyword. No keywords means everything is relevant.
func (f *Fetcher) filterRelevant(items []Item) []Item {
	if len(f.config.Keywords) == 0 {
		return items
	}

	kept := items[:0]
	for _, item := range items {
		haystack := strings.ToLower(item.Title + " " + item.Summary)
		for _, keyword := range f.config.Keywords {
			if strings.Contains(haystack, strings.ToLower(keyword)) {
				kept = append(kept, item)
				break
			}
		}
	}
	return kept
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes markup from feed-provided summaries.
func stripHTML(s string) string {
	return htmlTagPattern.ReplaceAllString(s, " ")
}
