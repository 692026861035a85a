package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"pitchdojo/internal/audio"
	"pitchdojo/internal/config"
	"pitchdojo/internal/feedback"
	"pitchdojo/internal/ports"
	"pitchdojo/internal/providers/geminilive"
	"pitchdojo/internal/providers/relayws"
	"pitchdojo/internal/scrub"
	"pitchdojo/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime. The
// transport setting selects between a direct API connection and the
// hosted relay.
func Build(ctx context.Context, eventSink ports.EventSink, logger *slog.Logger) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	cleaner, err := scrub.NewCleaner(cfg.Scrub.RulesPath)
	if err != nil {
		return Services{}, err
	}

	provider, generator, err := buildTransport(ctx, cfg, logger)
	if err != nil {
		return Services{}, err
	}

	playbackRate := cfg.Audio.PlaybackSampleRate
	playerCommand := cfg.Audio.PlayerCommand
	controller := usecase.NewSessionController(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		func() (ports.AudioPlayer, error) {
			return audio.NewFFPlayPlayer(playerCommand, playbackRate), nil
		},
		provider,
		generator,
		cleaner,
		eventSink,
		logger,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			ChunkSize:     cfg.Session.ChunkSize,
			CallDuration:  cfg.Session.CallDuration,
			WarningBefore: cfg.Session.WarningBefore,
			FinalGrace:    cfg.Session.FinalGrace,
			MeterInterval: cfg.Session.MeterInterval,
		},
	)

	return Services{Controller: controller, Config: cfg}, nil
}

// buildTransport pairs the stream provider with a matching feedback
// generator: relay clients use the relay for both, direct clients talk
// to the API with their own key.
func buildTransport(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.AgentStreamProvider, ports.FeedbackGenerator, error) {
	if cfg.Relay.Transport == config.TransportRelay {
		provider := relayws.NewProvider(relayws.Config{RelayURL: cfg.Relay.URL})
		return provider, relayws.NewFeedbackClient(cfg.Relay.URL), nil
	}

	if cfg.Gemini.APIKey == "" {
		return nil, nil, fmt.Errorf("GEMINI_API_KEY is not configured; set it or switch PITCHDOJO_TRANSPORT=relay")
	}
	provider, err := geminilive.New(ctx, cfg.Gemini.APIKey, cfg.Gemini.LiveModel, logger)
	if err != nil {
		return nil, nil, err
	}
	generator, err := feedback.NewGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.FeedbackModel, logger)
	if err != nil {
		return nil, nil, err
	}
	return provider, generator, nil
}
