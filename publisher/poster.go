package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Poster publishes one rendered summary to the social feed. This is the
// narrow seam towards the outside world; everything upstream of it only
// deals in incident rows.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// WebhookPoster delivers summaries as JSON to an HTTP endpoint.
type WebhookPoster struct {
	URL        string
	Token      string // sent as a bearer token when set
	httpClient *http.Client
}

func NewWebhookPoster(url, token string, timeout time.Duration) *WebhookPoster {
	return &WebhookPoster{
		URL:        url,
		Token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	Text string `json:"text"`
}

func (p *WebhookPoster) Post(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookPayload{Text: text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post summary: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post summary: HTTP %d from %s", resp.StatusCode, p.URL)
	}
	return nil
}

// LogPoster writes summaries to the log instead of posting them. Used for
// dry runs.
type LogPoster struct {
	Log zerolog.Logger
}

func (p *LogPoster) Post(_ context.Context, text string) error {
	p.Log.Info().Str("summary", text).Msg("dry-run post")
	return nil
}
