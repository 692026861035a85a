// Package geminilive connects directly to the Gemini Live API over the
// official SDK.
package geminilive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"pitchdojo/internal/domain"
	"pitchdojo/internal/ports"
)

const defaultLiveModel = "gemini-2.5-flash-native-audio-preview-09-2025"

// Provider opens live audio sessions against the Gemini API using the
// caller's own API key.
type Provider struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Provider, error) {
	if model == "" {
		model = defaultLiveModel
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
	return &Provider{client: client, model: model, logger: logger}, nil
}

func (p *Provider) Connect(ctx context.Context, cfg ports.StreamConfig) (ports.AgentStream, error) {
	connectConfig := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.VoiceName},
			},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		Tools:                    toolDeclarations(),
	}

	session, err := p.client.Live.Connect(ctx, p.model, connectConfig)
	if err != nil {
		return nil, classifyConnectError(err)
	}

	stream := &liveStream{
		session:   session,
		events:    make(chan domain.StreamEvent, 64),
		stop:      make(chan struct{}),
		inputRate: cfg.InputSampleRate,
		logger:    p.logger,
	}
	go stream.readLoop()
	return stream, nil
}

// classifyConnectError maps the API's "entity not found" rejection, which
// is how an invalid or unentitled key surfaces, onto the access sentinel.
func classifyConnectError(err error) error {
	if strings.Contains(err.Error(), "Requested entity was not found") {
		return fmt.Errorf("%w: %v", ports.ErrAccessDenied, err)
	}
	return fmt.Errorf("failed to connect live session: %w", err)
}
