// Package feedback turns a finished call transcript into the gamified
// coaching report.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"pitchdojo/internal/domain"
	"pitchdojo/internal/ports"
	"pitchdojo/internal/prompt"
)

const defaultFeedbackModel = "gemini-2.5-flash"

// Generator produces feedback reports with a text model constrained to
// JSON output.
type Generator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewGenerator(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Generator, error) {
	if model == "" {
		model = defaultFeedbackModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Generator{client: client, model: model, logger: logger}, nil
}

// NewGeneratorWithClient reuses an existing client.
func NewGeneratorWithClient(client *genai.Client, model string, logger *slog.Logger) *Generator {
	if model == "" {
		model = defaultFeedbackModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, model: model, logger: logger}
}

func (g *Generator) Generate(ctx context.Context, history []domain.Utterance) (domain.FeedbackReport, error) {
	request := prompt.FeedbackPrompt(history)

	response, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(request),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return domain.FeedbackReport{}, fmt.Errorf("feedback request failed: %w", err)
	}

	raw := strings.TrimSpace(response.Text())
	report, err := ParseReport(raw)
	if err != nil {
		g.logger.Warn("feedback response rejected", "error", err)
		return domain.FeedbackReport{}, err
	}
	return report, nil
}

// ParseReport decodes and validates one report payload. Models sometimes
// wrap JSON in markdown fences despite the response MIME type, so fences
// are stripped before decoding.
func ParseReport(raw string) (domain.FeedbackReport, error) {
	raw = stripFences(raw)
	if raw == "" {
		return domain.FeedbackReport{}, fmt.Errorf("empty feedback response")
	}

	var report domain.FeedbackReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return domain.FeedbackReport{}, fmt.Errorf("malformed feedback response: %w", err)
	}
	if report.Type != "feedback_report" {
		return domain.FeedbackReport{}, fmt.Errorf("unexpected feedback payload type %q", report.Type)
	}

	switch report.Outcome {
	case domain.OutcomeBooked, domain.OutcomeTentative, domain.OutcomeStalled, domain.OutcomeDisqualified:
	default:
		report.Outcome = domain.OutcomeStalled
	}
	if report.Wins == nil {
		report.Wins = []string{}
	}
	if report.FixNext == nil {
		report.FixNext = []string{}
	}
	if report.OneLinerRepair == nil {
		report.OneLinerRepair = []string{}
	}
	if report.Badges == nil {
		report.Badges = []string{}
	}
	return report, nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}
	return strings.TrimSpace(raw)
}

var _ ports.FeedbackGenerator = (*Generator)(nil)
