package config

import (
	"testing"
	"time"
)

func validConfig() AgentConfig {
	cfg := Load()
	cfg.Generator.Provider = "noop"
	cfg.Bluesky.Handle = "agent.bsky.social"
	cfg.Bluesky.Password = "app-password"
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.CronSchedule != defaultCronSchedule {
		t.Errorf("expected default schedule, got %q", cfg.CronSchedule)
	}
	if cfg.AdminPort != 9090 {
		t.Errorf("expected AdminPort=9090, got %d", cfg.AdminPort)
	}
	if cfg.Generator.CharacterLimit != 300 {
		t.Errorf("expected 300 char limit, got %d", cfg.Generator.CharacterLimit)
	}
	if cfg.Bluesky.Host != "https://bsky.social" {
		t.Errorf("unexpected default host: %q", cfg.Bluesky.Host)
	}
	if len(cfg.News.FeedURLs) == 0 {
		t.Error("expected default feeds")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("POST_CRON_SCHEDULE", "0 * * * *")
	t.Setenv("NEWS_FEED_URLS", "https://example.com/rss, https://example.org/feed")
	t.Setenv("GENERATOR_TEMPERATURE", "0.3")
	t.Setenv("PIPELINE_TIMEOUT", "2m")
	t.Setenv("BLUESKY_DRY_RUN", "true")

	cfg := Load()

	if cfg.CronSchedule != "0 * * * *" {
		t.Errorf("unexpected schedule: %q", cfg.CronSchedule)
	}
	if len(cfg.News.FeedURLs) != 2 {
		t.Errorf("expected 2 feeds, got %v", cfg.News.FeedURLs)
	}
	if cfg.Generator.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %f", cfg.Generator.Temperature)
	}
	if cfg.PipelineTimeout != 2*time.Minute {
		t.Errorf("expected 2m timeout, got %v", cfg.PipelineTimeout)
	}
	if !cfg.Bluesky.DryRun {
		t.Error("expected dry run enabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AgentConfig)
		wantErr bool
	}{
		{"valid", func(c *AgentConfig) {}, false},
		{"claude without key", func(c *AgentConfig) {
			c.Generator.Provider = "claude"
			c.Generator.APIKey = ""
		}, true},
		{"claude with key", func(c *AgentConfig) {
			c.Generator.Provider = "claude"
			c.Generator.APIKey = "sk-test"
		}, false},
		{"unknown provider", func(c *AgentConfig) {
			c.Generator.Provider = "gemini"
		}, true},
		{"missing handle", func(c *AgentConfig) {
			c.Bluesky.Handle = ""
		}, true},
		{"missing password", func(c *AgentConfig) {
			c.Bluesky.Password = ""
		}, true},
		{"dry run without credentials", func(c *AgentConfig) {
			c.Bluesky.DryRun = true
			c.Bluesky.Handle = ""
			c.Bluesky.Password = ""
		}, false},
		{"bad host", func(c *AgentConfig) {
			c.Bluesky.Host = "not a url"
		}, true},
		{"bad webhook", func(c *AgentConfig) {
			c.Alert.SlackWebhookURL = "https://example.com/hook"
		}, true},
		{"good webhook", func(c *AgentConfig) {
			c.Alert.SlackWebhookURL = "https://hooks.slack.com/services/T0/B0/xyz"
		}, false},
		{"no feeds", func(c *AgentConfig) {
			c.News.FeedURLs = nil
		}, true},
		{"zero char limit", func(c *AgentConfig) {
			c.Generator.CharacterLimit = 0
		}, true},
		{"zero pipeline timeout", func(c *AgentConfig) {
			c.PipelineTimeout = 0
		}, true},
		{"fetch timeout too large", func(c *AgentConfig) {
			c.News.FetchTimeout = time.Hour
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
