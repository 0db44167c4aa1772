// Package config aggregates the agent's runtime configuration from
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"pulsepost/pkg/config"
)

// Default posting cadence: every four hours on the hour.
const defaultCronSchedule = "0 */4 * * *"

// AgentConfig is the full configuration of the posting agent.
type AgentConfig struct {
	// CronSchedule is the posting cadence in cron syntax.
	CronSchedule string

	// Timezone is the IANA timezone for the cron schedule.
	Timezone string

	// AdminPort is the port for the /healthz and /metrics HTTP server.
	AdminPort int

	// PipelineTimeout bounds one full pipeline run.
	PipelineTimeout time.Duration

	// RecordRetention is how long error records are kept before pruning.
	RecordRetention time.Duration

	News      NewsConfig
	Generator GeneratorConfig
	Bluesky   BlueskyConfig
	Alert     AlertConfig
}

// NewsConfig configures news feed retrieval.
type NewsConfig struct {
	// FeedURLs are the RSS/Atom feeds to poll.
	FeedURLs []string

	// Keywords filter feed items for relevance; empty means keep everything.
	Keywords []string

	// MaxItems caps how many items one pipeline run considers.
	MaxItems int

	// FetchContent enables full-text extraction when feed content is thin.
	FetchContent bool

	// FetchTimeout bounds one feed or article fetch.
	FetchTimeout time.Duration
}

// GeneratorConfig configures post text generation.
type GeneratorConfig struct {
	// Provider selects the generation backend: claude, openai, or noop.
	Provider string

	// APIKey authenticates against the selected provider.
	APIKey string

	// Model overrides the provider's default model when non-empty.
	Model string

	// MaxTokens caps the generation response.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float64

	// CharacterLimit is the maximum post length in characters.
	CharacterLimit int
}

// BlueskyConfig configures the Bluesky publisher.
type BlueskyConfig struct {
	// Host is the PDS base URL.
	Host string

	// Handle is the account handle to post as.
	Handle string

	// Password is an app password for the account.
	Password string

	// DryRun logs posts instead of publishing them.
	DryRun bool
}

// AlertConfig configures alert delivery.
type AlertConfig struct {
	// SlackWebhookURL enables Slack alerts when non-empty.
	SlackWebhookURL string

	// Cooldown suppresses repeated alerts for the same component within
	// the window.
	Cooldown time.Duration
}

// defaultFeeds are well-known crypto news feeds used when NEWS_FEED_URLS is
// not set.
var defaultFeeds = []string{
	"https://www.coindesk.com/arc/outboundfeeds/rss/",
	"https://cointelegraph.com/rss",
}

// defaultKeywords pick out the stories the agent posts about.
var defaultKeywords = []string{
	"bitcoin", "ethereum", "crypto", "blockchain", "defi", "stablecoin",
}

// Load reads the agent configuration from environment variables, applying
// defaults for anything unset.
func Load() AgentConfig {
	return AgentConfig{
		CronSchedule:    config.GetEnvString("POST_CRON_SCHEDULE", defaultCronSchedule),
		Timezone:        config.GetEnvString("POST_TIMEZONE", "UTC"),
		AdminPort:       config.GetEnvInt("ADMIN_PORT", 9090),
		PipelineTimeout: config.GetEnvDuration("PIPELINE_TIMEOUT", 5*time.Minute),
		RecordRetention: config.GetEnvDuration("ERROR_RECORD_RETENTION", 24*time.Hour),
		News: NewsConfig{
			FeedURLs:     config.GetEnvStringList("NEWS_FEED_URLS", defaultFeeds),
			Keywords:     config.GetEnvStringList("NEWS_KEYWORDS", defaultKeywords),
			MaxItems:     config.GetEnvInt("NEWS_MAX_ITEMS", 10),
			FetchContent: config.GetEnvBool("NEWS_FETCH_CONTENT", false),
			FetchTimeout: config.GetEnvDuration("NEWS_FETCH_TIMEOUT", 20*time.Second),
		},
		Generator: GeneratorConfig{
			Provider:       config.GetEnvString("GENERATOR_PROVIDER", "claude"),
			APIKey:         generatorAPIKey(),
			Model:          config.GetEnvString("GENERATOR_MODEL", ""),
			MaxTokens:      config.GetEnvInt("GENERATOR_MAX_TOKENS", 1024),
			Temperature:    config.GetEnvFloat("GENERATOR_TEMPERATURE", 0.7),
			CharacterLimit: config.GetEnvInt("POST_CHAR_LIMIT", 300),
		},
		Bluesky: BlueskyConfig{
			Host:     config.GetEnvString("BLUESKY_HOST", "https://bsky.social"),
			Handle:   config.GetEnvString("BLUESKY_HANDLE", ""),
			Password: config.GetEnvString("BLUESKY_APP_PASSWORD", ""),
			DryRun:   config.GetEnvBool("BLUESKY_DRY_RUN", false),
		},
		Alert: AlertConfig{
			SlackWebhookURL: config.GetEnvString("ALERT_SLACK_WEBHOOK_URL", ""),
			Cooldown:        config.GetEnvDuration("ALERT_COOLDOWN", 15*time.Minute),
		},
	}
}

// Validate checks the loaded configuration for values the agent cannot run
// without.
func (c AgentConfig) Validate() error {
	switch c.Generator.Provider {
	case "claude", "openai":
		if c.Generator.APIKey == "" {
			return fmt.Errorf("missing API key for generator provider %q", c.Generator.Provider)
		}
	case "noop":
	default:
		return fmt.Errorf("invalid generator provider %q: expected claude, openai, or noop", c.Generator.Provider)
	}

	if !c.Bluesky.DryRun {
		if c.Bluesky.Handle == "" {
			return fmt.Errorf("missing environment variable BLUESKY_HANDLE")
		}
		if c.Bluesky.Password == "" {
			return fmt.Errorf("missing environment variable BLUESKY_APP_PASSWORD")
		}
	}

	u, err := url.Parse(c.Bluesky.Host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid BLUESKY_HOST %q", c.Bluesky.Host)
	}

	if c.Alert.SlackWebhookURL != "" {
		wu, err := url.Parse(c.Alert.SlackWebhookURL)
		if err != nil || wu.Scheme != "https" || wu.Host != "hooks.slack.com" || !strings.HasPrefix(wu.Path, "/services/") {
			return fmt.Errorf("invalid ALERT_SLACK_WEBHOOK_URL")
		}
	}

	if len(c.News.FeedURLs) == 0 {
		return fmt.Errorf("no news feeds configured")
	}

	if c.Generator.CharacterLimit <= 0 {
		return fmt.Errorf("POST_CHAR_LIMIT must be positive, got %d", c.Generator.CharacterLimit)
	}

	if err := config.ValidatePositiveDuration(c.PipelineTimeout); err != nil {
		return fmt.Errorf("invalid PIPELINE_TIMEOUT: %w", err)
	}
	if err := config.ValidateDurationRange(c.News.FetchTimeout, time.Second, 2*time.Minute); err != nil {
		return fmt.Errorf("invalid NEWS_FETCH_TIMEOUT: %w", err)
	}

	return nil
}

// generatorAPIKey resolves the API key for the selected provider, falling
// back to the provider-specific conventional variable names.
func generatorAPIKey() string {
	if key := config.GetEnvString("GENERATOR_API_KEY", ""); key != "" {
		return key
	}
	switch config.GetEnvString("GENERATOR_PROVIDER", "claude") {
	case "openai":
		return config.GetEnvString("OPENAI_API_KEY", "")
	default:
		return config.GetEnvString("ANTHROPIC_API_KEY", "")
	}
}
