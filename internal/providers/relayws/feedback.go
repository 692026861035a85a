package relayws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pitchdojo/internal/domain"
	"pitchdojo/internal/feedback"
	"pitchdojo/internal/ports"
)

// FeedbackClient requests post-call reports from the relay, which holds
// the API key.
type FeedbackClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewFeedbackClient(relayURL string) *FeedbackClient {
	return &FeedbackClient{
		endpoint:   feedbackEndpoint(relayURL),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *FeedbackClient) Generate(ctx context.Context, history []domain.Utterance) (domain.FeedbackReport, error) {
	body, err := json.Marshal(map[string]any{"history": history})
	if err != nil {
		return domain.FeedbackReport{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.FeedbackReport{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FeedbackReport{}, fmt.Errorf("feedback request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.FeedbackReport{}, fmt.Errorf("failed to read feedback response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.FeedbackReport{}, fmt.Errorf("relay feedback returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	return feedback.ParseReport(string(payload))
}

// feedbackEndpoint derives the HTTP feedback URL from the websocket URL.
func feedbackEndpoint(relayURL string) string {
	base := strings.TrimSpace(relayURL)
	if strings.HasPrefix(base, "wss://") {
		base = "https://" + strings.TrimPrefix(base, "wss://")
	} else if strings.HasPrefix(base, "ws://") {
		base = "http://" + strings.TrimPrefix(base, "ws://")
	}
	base = strings.TrimSuffix(base, "/ws")
	return strings.TrimRight(base, "/") + "/api/feedback"
}

var _ ports.FeedbackGenerator = (*FeedbackClient)(nil)
