package ports

import (
	"context"
	"errors"
	"io"

	"pitchdojo/internal/domain"
)

// ErrPermissionDenied indicates the capture device refused access.
// Fatal to session start; never retried automatically.
var ErrPermissionDenied = errors.New("microphone permission denied")

// ErrDeviceUnavailable indicates no usable capture device was found.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// ErrAccessDenied indicates the remote agent rejected the credential or
// entitlement ("requested entity was not found").
var ErrAccessDenied = errors.New("model access denied")

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live microphone capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// AudioPlayer schedules inbound agent audio for gap-free, in-order
// playback. Flush stops everything still scheduled and resets the
// playback cursor (barge-in). Close is idempotent.
type AudioPlayer interface {
	Play(pcm []byte) error
	Flush()
	Close() error
}

// StreamConfig describes one agent-stream connection.
type StreamConfig struct {
	Options           domain.SessionOptions
	SystemInstruction string
	VoiceName         string
	InputSampleRate   int
}

// AgentStream is one open bidirectional connection to the remote agent.
// Events are delivered in the order the transport produced them; the
// stream never retries or reconnects on its own.
type AgentStream interface {
	SendAudio(pcm []byte) error
	SendToolResponse(id string, name string, result map[string]any) error
	Events() <-chan domain.StreamEvent
	Close() error
}

// AgentStreamProvider opens agent-stream connections.
type AgentStreamProvider interface {
	Connect(ctx context.Context, cfg StreamConfig) (AgentStream, error)
}

// FeedbackGenerator produces the post-call coaching report from the
// finalized utterance history. Not cancellable once issued.
type FeedbackGenerator interface {
	Generate(ctx context.Context, history []domain.Utterance) (domain.FeedbackReport, error)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	LiveTranscript(speaker domain.Speaker, text string)
	UtteranceFinalized(u domain.Utterance)
	CoachStateChanged(state domain.CoachState)
	VolumeLevel(level float64)
	TimeLeft(seconds int)
	CallFinished(result domain.CallResult)
	SessionError(code domain.ErrorCode, detail string)
}
