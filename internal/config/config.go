package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Transport selects how the app reaches the live agent.
const (
	TransportDirect = "direct"
	TransportRelay  = "relay"
)

// Config stores runtime configuration for the app and the relay.
type Config struct {
	Gemini  GeminiConfig
	Relay   RelayConfig
	Audio   AudioConfig
	Session SessionConfig
	Scrub   ScrubConfig
}

type GeminiConfig struct {
	APIKey        string
	LiveModel     string
	FeedbackModel string
}

type RelayConfig struct {
	// Transport is "direct" (own API key) or "relay" (hosted bridge).
	Transport string
	URL       string

	ListenAddr         string
	SessionMaxDuration time.Duration
	WarningBefore      time.Duration
	PerIPPerHour       int
	DailyMax           int
}

type AudioConfig struct {
	RecorderCommand    string
	PlayerCommand      string
	InputFormat        string
	InputDevice        string
	SampleRate         int
	Channels           int
	PlaybackSampleRate int
}

type SessionConfig struct {
	ChunkSize     int
	CallDuration  time.Duration
	WarningBefore time.Duration
	FinalGrace    time.Duration
	MeterInterval time.Duration
}

type ScrubConfig struct {
	RulesPath string
}

// Load resolves configuration from environment variables and sensible
// defaults.
func Load() (Config, error) {
	rulesPath := strings.TrimSpace(os.Getenv("PITCHDOJO_SCRUB_RULES_FILE"))
	if rulesPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".config", "pitchdojo", "scrub.rules")
			if _, err := os.Stat(candidate); err == nil {
				rulesPath = candidate
			}
		}
	}

	cfg := Config{
		Gemini: GeminiConfig{
			APIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			LiveModel:     envOrDefault("PITCHDOJO_LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
			FeedbackModel: envOrDefault("PITCHDOJO_FEEDBACK_MODEL", "gemini-2.5-flash"),
		},
		Relay: RelayConfig{
			Transport:          envOrDefault("PITCHDOJO_TRANSPORT", TransportDirect),
			URL:                envOrDefault("PITCHDOJO_RELAY_URL", "ws://localhost:3001/ws"),
			ListenAddr:         envOrDefault("PITCHDOJO_RELAY_ADDR", ":3001"),
			SessionMaxDuration: envOrDefaultDuration("PITCHDOJO_RELAY_SESSION_MAX", 10*time.Minute),
			WarningBefore:      envOrDefaultDuration("PITCHDOJO_RELAY_WARNING_BEFORE", 2*time.Minute),
			PerIPPerHour:       envOrDefaultInt("PITCHDOJO_RELAY_SESSIONS_PER_IP_PER_HOUR", 5),
			DailyMax:           envOrDefaultInt("PITCHDOJO_RELAY_DAILY_SESSIONS", 200),
		},
		Audio: AudioConfig{
			RecorderCommand:    envOrDefault("PITCHDOJO_FFMPEG_COMMAND", "ffmpeg"),
			PlayerCommand:      envOrDefault("PITCHDOJO_FFPLAY_COMMAND", "ffplay"),
			InputFormat:        envOrDefault("PITCHDOJO_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:        envOrDefault("PITCHDOJO_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:         envOrDefaultInt("PITCHDOJO_SAMPLE_RATE", 16000),
			Channels:           envOrDefaultInt("PITCHDOJO_CHANNELS", 1),
			PlaybackSampleRate: envOrDefaultInt("PITCHDOJO_PLAYBACK_SAMPLE_RATE", 24000),
		},
		Session: SessionConfig{
			ChunkSize:     envOrDefaultInt("PITCHDOJO_AUDIO_CHUNK_SIZE", 4096),
			CallDuration:  envOrDefaultDuration("PITCHDOJO_CALL_DURATION", 2*time.Minute),
			WarningBefore: envOrDefaultDuration("PITCHDOJO_TIME_WARNING_BEFORE", 20*time.Second),
			FinalGrace:    envOrDefaultDuration("PITCHDOJO_FINAL_GRACE", 3*time.Second),
			MeterInterval: envOrDefaultDuration("PITCHDOJO_METER_INTERVAL", 50*time.Millisecond),
		},
		Scrub: ScrubConfig{
			RulesPath: rulesPath,
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.PlaybackSampleRate <= 0 {
		cfg.Audio.PlaybackSampleRate = 24000
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Relay.Transport != TransportRelay {
		cfg.Relay.Transport = TransportDirect
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
