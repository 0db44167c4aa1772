// Command feedcheck probes the configured news feeds and prints a JSON
// diagnostic per feed: reachability, item count, newest item timestamp and
// response time. Useful for vetting feed URLs before handing them to the
// agent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mmcdole/gofeed"

	"pulsepost/internal/config"
)

// FeedDiagnostic is the result of probing one feed.
type FeedDiagnostic struct {
	URL            string `json:"url"`
	Status         string `json:"status"` // "ok", "fetch_error", "empty"
	Title          string `json:"title,omitempty"`
	FeedType       string `json:"feed_type,omitempty"`
	ItemCount      int    `json:"item_count"`
	NewestItem     string `json:"newest_item,omitempty"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	Error          string `json:"error,omitempty"`
}

func main() {
	cfg := config.Load()

	feeds := cfg.News.FeedURLs
	if len(os.Args) > 1 {
		feeds = os.Args[1:]
	}
	if len(feeds) == 0 {
		fmt.Fprintln(os.Stderr, "no feeds: set NEWS_FEED_URLS or pass URLs as arguments")
		os.Exit(2)
	}

	client := &http.Client{Timeout: cfg.News.FetchTimeout}
	failures := 0

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	for _, feedURL := range feeds {
		diag := probe(client, feedURL, cfg.News.FetchTimeout)
		if diag.Status != "ok" {
			failures++
		}
		_ = encoder.Encode(diag)
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d feeds unhealthy\n", failures, len(feeds))
		os.Exit(1)
	}
}

func probe(client *http.Client, feedURL string, timeout time.Duration) FeedDiagnostic {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "pulsepost-feedcheck/1.0"

	start := time.Now()
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		return FeedDiagnostic{
			URL:            feedURL,
			Status:         "fetch_error",
			ResponseTimeMS: elapsed,
			Error:          err.Error(),
		}
	}

	diag := FeedDiagnostic{
		URL:            feedURL,
		Status:         "ok",
		Title:          feed.Title,
		FeedType:       feed.FeedType,
		ItemCount:      len(feed.Items),
		ResponseTimeMS: elapsed,
	}
	if len(feed.Items) == 0 {
		diag.Status = "empty"
		return diag
	}

	var newest time.Time
	for _, item := range feed.Items {
		if item.PublishedParsed != nil && item.PublishedParsed.After(newest) {
			newest = *item.PublishedParsed
		}
	}
	if !newest.IsZero() {
		diag.NewestItem = newest.UTC().Format(time.RFC3339)
	}
	return diag
}
