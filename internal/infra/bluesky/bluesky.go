// Package bluesky publishes posts to Bluesky over the XRPC HTTP API. The
// client authenticates with an app password, caches the session token, and
// re-authenticates when the recovery layer signals that credential recovery
// was attempted.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pulsepost/internal/observability/metrics"
	"pulsepost/internal/resilience/recovery"
	"pulsepost/internal/utils/text"
)

const (
	createSessionPath = "/xrpc/com.atproto.server.createSession"
	createRecordPath  = "/xrpc/com.atproto.repo.createRecord"

	postCollection = "app.bsky.feed.post"

	maxErrorBodySize = 4096
)

// Config configures the Bluesky client.
type Config struct {
	// Host is the PDS base URL, typically https://bsky.social.
	Host string

	// Handle is the account handle used as the login identifier.
	Handle string

	// Password is an app password, never the account password.
	Password string

	// DryRun logs posts instead of publishing them.
	DryRun bool

	// Timeout bounds one XRPC call.
	Timeout time.Duration
}

// session is the authenticated state returned by createSession.
type session struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
	Handle    string `json:"handle"`
}

// Client publishes posts to Bluesky. It is safe for concurrent use; the
// session is created lazily on first publish and reused until invalidated.
type Client struct {
	config     Config
	httpClient *http.Client

	mu      sync.Mutex
	session *session
}

// NewClient creates a Bluesky client from the given configuration.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// PublishPost publishes the given text as a Bluesky post.
//
// When the recovery layer marks metadata with an attempted credential
// recovery, the cached session is dropped first so the retried call logs in
// again instead of replaying a token the server already rejected.
func (c *Client) PublishPost(ctx context.Context, post string, metadata map[string]any) error {
	if c.config.DryRun {
		slog.InfoContext(ctx, "dry run, post not published",
			slog.String("post", post),
			slog.Int("post_length", text.CountRunes(post)))
		metrics.RecordPostPublished("dry-run")
		return nil
	}

	if attempted, _ := metadata[recovery.MetaAuthRecoveryAttempted].(bool); attempted {
		slog.InfoContext(ctx, "credential recovery signaled, discarding cached session")
		c.invalidateSession()
		delete(metadata, recovery.MetaAuthRecoveryAttempted)
	}

	sess, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	if err := c.createRecord(ctx, sess, post); err != nil {
		return err
	}

	metrics.RecordPostPublished("bluesky")
	metrics.RecordPostLength(text.CountRunes(post))
	slog.InfoContext(ctx, "post published",
		slog.String("handle", sess.Handle),
		slog.Int("post_length", text.CountRunes(post)))
	return nil
}

// ensureSession returns the cached session, logging in if necessary.
func (c *Client) ensureSession(ctx context.Context) (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.session, nil
	}

	sess, err := c.login(ctx)
	if err != nil {
		return nil, err
	}
	c.session = sess
	return sess, nil
}

// invalidateSession drops the cached session so the next publish logs in.
func (c *Client) invalidateSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
}

// login creates a new session with the configured app password.
func (c *Client) login(ctx context.Context) (*session, error) {
	body := map[string]string{
		"identifier": c.config.Handle,
		"password":   c.config.Password,
	}

	var sess session
	if err := c.doXRPC(ctx, createSessionPath, "", body, &sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if sess.AccessJwt == "" || sess.Did == "" {
		return nil, recovery.Tag(fmt.Errorf("create session: response missing token"), recovery.CategoryAuthentication)
	}

	slog.InfoContext(ctx, "bluesky session created",
		slog.String("handle", sess.Handle),
		slog.String("did", sess.Did))
	return &sess, nil
}

// createRecord publishes one post record into the account's feed.
func (c *Client) createRecord(ctx context.Context, sess *session, post string) error {
	body := map[string]any{
		"repo":       sess.Did,
		"collection": postCollection,
		"record": map[string]any{
			"$type":     postCollection,
			"text":      post,
			"createdAt": time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := c.doXRPC(ctx, createRecordPath, sess.AccessJwt, body, nil); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// doXRPC posts a JSON body to an XRPC endpoint and decodes the response.
// Non-2xx responses become StatusError; 401 and 403 are additionally tagged
// as authentication failures and drop the cached session.
func (c *Client) doXRPC(ctx context.Context, path, accessJwt string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+accessJwt)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return recovery.Tag(fmt.Errorf("execute request: %w", err), recovery.CategoryNetwork)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		statusErr := &recovery.StatusError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s: %s", path, string(respBody)),
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			c.invalidateSession()
			return recovery.Tag(statusErr, recovery.CategoryAuthentication)
		}
		return statusErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
