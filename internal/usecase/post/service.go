// Package post orchestrates one posting cycle: fetch news, compose a post,
// vet it, and publish. Every outbound stage runs behind its circuit breaker
// and the error recovery layer.
package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pulsepost/internal/infra/news"
	"pulsepost/internal/observability/metrics"
	"pulsepost/internal/resilience"
	"pulsepost/internal/resilience/circuitbreaker"
	"pulsepost/internal/resilience/recovery"
)

// Breaker names used by the pipeline stages.
const (
	BreakerNewsAPI   = "news-api"
	BreakerGenerator = "generator"
	BreakerPublisher = "publisher"
)

// NewsFetcher supplies candidate news items.
type NewsFetcher interface {
	FetchLatest(ctx context.Context) ([]news.Item, error)
}

// PostComposer turns a news item into post text.
type PostComposer interface {
	Provider() string
	ComposePost(ctx context.Context, item news.Item) (string, error)
}

// Publisher delivers a finished post. The metadata map is shared with the
// recovery layer so credential recovery flags reach the publisher.
type Publisher interface {
	PublishPost(ctx context.Context, post string, metadata map[string]any) error
}

// Service runs the posting pipeline.
type Service struct {
	fetcher   NewsFetcher
	composer  PostComposer
	publisher Publisher
	filter    *ContentFilter

	breakers     *circuitbreaker.Registry
	orchestrator *recovery.Orchestrator

	// postedURLs remembers recently published story URLs so the same story
	// is not posted twice across cycles.
	postedURLs    []string
	maxPostedURLs int
}

// NewService wires the pipeline stages together. The breaker registry and
// orchestrator are shared with the rest of the process so health and error
// reporting see every stage.
func NewService(
	fetcher NewsFetcher,
	composer PostComposer,
	publisher Publisher,
	filter *ContentFilter,
	breakers *circuitbreaker.Registry,
	orchestrator *recovery.Orchestrator,
) *Service {
	return &Service{
		fetcher:       fetcher,
		composer:      composer,
		publisher:     publisher,
		filter:        filter,
		breakers:      breakers,
		orchestrator:  orchestrator,
		maxPostedURLs: 100,
	}
}

// Run executes one posting cycle. A cycle that finds nothing worth posting is
// not an error; failures of outbound stages are, after the recovery layer has
// had its chance.
func (s *Service) Run(ctx context.Context) error {
	start := time.Now()

	err := s.run(ctx)
	switch {
	case err != nil:
		metrics.RecordPipelineRun("failure", time.Since(start))
	default:
		metrics.RecordPipelineRun("success", time.Since(start))
	}
	return err
}

func (s *Service) run(ctx context.Context) error {
	items, err := s.fetchNews(ctx)
	if err != nil {
		return fmt.Errorf("fetch news: %w", err)
	}

	item, ok := s.pickCandidate(items)
	if !ok {
		slog.InfoContext(ctx, "no unposted news item this cycle",
			slog.Int("items_fetched", len(items)))
		metrics.RecordPostSkipped("no_candidates")
		return nil
	}

	post, err := s.composePost(ctx, item)
	if err != nil {
		return fmt.Errorf("compose post: %w", err)
	}

	if err := s.filter.Check(post); err != nil {
		var filtered *FilteredError
		if errors.As(err, &filtered) {
			slog.WarnContext(ctx, "post rejected by content filter",
				slog.String("reason", filtered.Reason),
				slog.String("title", item.Title))
			metrics.RecordPostSkipped(filtered.Reason)
			return nil
		}
		return err
	}

	if err := s.publish(ctx, post); err != nil {
		return fmt.Errorf("publish post: %w", err)
	}

	s.filter.MarkPublished(post)
	s.markPosted(item.URL)

	slog.InfoContext(ctx, "posting cycle completed",
		slog.String("title", item.Title),
		slog.String("url", item.URL),
		slog.String("provider", s.composer.Provider()))
	return nil
}

// fetchNews runs the fetch stage behind its breaker and recovery middleware.
func (s *Service) fetchNews(ctx context.Context) ([]news.Item, error) {
	var items []news.Item

	op := resilience.Chain(
		func(ctx context.Context) error {
			fetched, err := s.fetcher.FetchLatest(ctx)
			if err != nil {
				return err
			}
			items = fetched
			return nil
		},
		s.orchestrator.Middleware("news", "fetch", nil),
		circuitbreaker.Middleware(s.breakers, BreakerNewsAPI, circuitbreaker.NewsAPIConfig()),
	)

	if err := op(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

// composePost runs the generation stage behind its breaker and recovery
// middleware.
func (s *Service) composePost(ctx context.Context, item news.Item) (string, error) {
	var post string

	op := resilience.Chain(
		func(ctx context.Context) error {
			composed, err := s.composer.ComposePost(ctx, item)
			if err != nil {
				return err
			}
			post = composed
			return nil
		},
		s.orchestrator.Middleware("generator", "compose", nil),
		circuitbreaker.Middleware(s.breakers, BreakerGenerator, circuitbreaker.GeneratorConfig()),
	)

	if err := op(ctx); err != nil {
		return "", err
	}
	return post, nil
}

// publish runs the publish stage. The metadata map is shared between the
// recovery middleware and the publisher so an attempted credential recovery
// makes the retried call re-authenticate.
func (s *Service) publish(ctx context.Context, post string) error {
	metadata := make(map[string]any)

	op := resilience.Chain(
		func(ctx context.Context) error {
			return s.publisher.PublishPost(ctx, post, metadata)
		},
		s.orchestrator.Middleware("publisher", "publish", metadata),
		circuitbreaker.Middleware(s.breakers, BreakerPublisher, circuitbreaker.PublisherConfig()),
	)

	return op(ctx)
}

// pickCandidate returns the newest item not yet posted.
func (s *Service) pickCandidate(items []news.Item) (news.Item, bool) {
	for _, item := range items {
		if !s.alreadyPosted(item.URL) {
			return item, true
		}
	}
	return news.Item{}, false
}

func (s *Service) alreadyPosted(url string) bool {
	for _, posted := range s.postedURLs {
		if posted == url {
			return true
		}
	}
	return false
}

func (s *Service) markPosted(url string) {
	s.postedURLs = append(s.postedURLs, url)
	if len(s.postedURLs) > s.maxPostedURLs {
		s.postedURLs = s.postedURLs[len(s.postedURLs)-s.maxPostedURLs:]
	}
}
