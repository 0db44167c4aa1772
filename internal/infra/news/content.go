package news

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-shiori/go-readability"

	"pulsepost/internal/utils/text"
)

// maxArticleBodySize caps the HTML read for content extraction.
const maxArticleBodySize = 2 << 20 // 2 MiB

// enhanceThinItems replaces short feed summaries with extracted article text.
// Extraction failures are logged and leave the feed summary in place.
func (f *Fetcher) enhanceThinItems(ctx context.Context, items []Item) {
	for i := range items {
		if text.CountRunes(items[i].Summary) >= thinContentThreshold {
			continue
		}

		extracted, err := f.extractArticle(ctx, items[i].URL)
		if err != nil {
			slog.Debug("article extraction failed, keeping feed summary",
				slog.String("url", items[i].URL),
				slog.String("error", err.Error()))
			continue
		}
		items[i].Summary = text.Truncate(text.CollapseWhitespace(extracted), maxSummaryLength, "...")
	}
}

// extractArticle fetches the article page and extracts readable text.
func (f *Fetcher) extractArticle(ctx context.Context, articleURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("create article request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch article: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	htmlBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxArticleBodySize+1))
	if err != nil {
		return "", fmt.Errorf("read article body: %w", err)
	}
	if int64(len(htmlBytes)) > maxArticleBodySize {
		return "", fmt.Errorf("article body exceeds %d bytes", int64(maxArticleBodySize))
	}

	parsedURL, err := url.Parse(articleURL)
	if err != nil {
		parsedURL = nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		parsedURL = resp.Request.URL
	}

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extract article content: %w", err)
	}

	if article.TextContent != "" {
		return article.TextContent, nil
	}
	if article.Content != "" {
		return article.Content, nil
	}
	return "", fmt.Errorf("no readable content at %s", articleURL)
}
