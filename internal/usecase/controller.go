package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pitchdojo/internal/audio"
	"pitchdojo/internal/domain"
	"pitchdojo/internal/ports"
	"pitchdojo/internal/prompt"
	"pitchdojo/internal/scrub"
)

// ErrSessionActive is returned when a start request arrives while a call
// is already connecting or active; the request is rejected, not queued.
var ErrSessionActive = errors.New("a call is already in progress")

// ErrNoActiveSession is returned by operations that need a live call.
var ErrNoActiveSession = errors.New("no active call session")

// Config controls call timing and capture behavior.
type Config struct {
	Audio         ports.AudioConfig
	ChunkSize     int
	CallDuration  time.Duration
	WarningBefore time.Duration
	FinalGrace    time.Duration
	MeterInterval time.Duration
}

// SessionController orchestrates the life of one simulated sales call:
// audio pipe setup/teardown, stream event routing, the hard duration cap,
// and post-call feedback generation. Exactly one call may be live at a
// time.
type SessionController struct {
	capture   ports.AudioCapture
	newPlayer func() (ports.AudioPlayer, error)
	provider  ports.AgentStreamProvider
	feedback  ports.FeedbackGenerator
	events    ports.EventSink
	cleaner   *scrub.Cleaner
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time

	mu      sync.Mutex
	current *activeCall
}

// NewSessionController wires the controller with its collaborators.
func NewSessionController(
	capture ports.AudioCapture,
	newPlayer func() (ports.AudioPlayer, error),
	provider ports.AgentStreamProvider,
	feedback ports.FeedbackGenerator,
	cleaner *scrub.Cleaner,
	events ports.EventSink,
	logger *slog.Logger,
	cfg Config,
) *SessionController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.CallDuration <= 0 {
		cfg.CallDuration = 2 * time.Minute
	}
	if cfg.FinalGrace <= 0 {
		cfg.FinalGrace = 3 * time.Second
	}
	if cfg.WarningBefore <= 0 || cfg.WarningBefore >= cfg.CallDuration {
		cfg.WarningBefore = 20 * time.Second
	}
	if cfg.MeterInterval <= 0 {
		cfg.MeterInterval = 50 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionController{
		capture:   capture,
		newPlayer: newPlayer,
		provider:  provider,
		feedback:  feedback,
		events:    events,
		cleaner:   cleaner,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start begins a new simulated call. A request while another call is
// connecting or active is rejected without touching the live call.
func (c *SessionController) Start(ctx context.Context, opts domain.SessionOptions) error {
	call := &activeCall{
		id:         uuid.NewString(),
		opts:       opts,
		state:      domain.SessionStateConnecting,
		eventsDone: make(chan struct{}),
		audioDone:  make(chan struct{}),
	}

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.current = call
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateConnecting, domain.SessionReasonCallRequested)

	// Reconciler and dispatcher exist before any blocking acquisition so a
	// Stop or stage override landing mid-connect always finds them.
	call.startedAt = c.now()
	call.reconciler = NewTurnReconciler(c.cleaner, c.events, c.now)
	call.reconciler.Reset(call.startedAt)
	call.dispatcher = NewToolCallDispatcher(opts, call.sendToolResponse, c.events, c.logger)
	c.events.CoachStateChanged(call.dispatcher.State())

	sessionCtx, cancel := context.WithCancel(ctx)
	if !call.adopt(func() { call.cancel = cancel }) {
		cancel()
		return nil
	}

	audioSession, err := c.capture.Start(sessionCtx, c.cfg.Audio)
	if err != nil {
		c.failStart(call, captureErrorCode(err), err)
		return err
	}
	if !call.adopt(func() { call.audio = audioSession }) {
		_ = audioSession.Stop()
		return nil
	}

	player, err := c.newPlayer()
	if err != nil {
		_ = audioSession.Stop()
		c.failStart(call, domain.ErrorCodeDeviceUnavailable, err)
		return err
	}
	if !call.adopt(func() { call.player = player }) {
		_ = player.Close()
		return nil
	}

	stream, err := c.provider.Connect(sessionCtx, ports.StreamConfig{
		Options:           opts,
		SystemInstruction: prompt.SystemInstruction(opts),
		VoiceName:         prompt.VoiceFor(opts.Persona),
		InputSampleRate:   c.cfg.Audio.SampleRate,
	})
	if err != nil {
		_ = audioSession.Stop()
		_ = player.Close()
		c.failStart(call, streamErrorCode(err), err)
		return err
	}
	if !call.adopt(func() { call.stream = stream }) {
		_ = stream.Close()
		return nil
	}

	go c.consumeStreamEvents(call)
	return nil
}

// Stop ends the live call on user request and returns the call result
// once feedback has resolved.
func (c *SessionController) Stop() (domain.CallResult, error) {
	call, err := c.getCurrent()
	if err != nil {
		return domain.CallResult{}, err
	}
	return c.finish(call, domain.SessionReasonEndedByUser), nil
}

// OverrideStage applies a manual stage change from the UI.
func (c *SessionController) OverrideStage(stage domain.SalesStage) error {
	call, err := c.getCurrent()
	if err != nil {
		return err
	}
	c.events.CoachStateChanged(call.dispatcher.OverrideStage(stage))
	return nil
}

// Status returns the current backend status.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	state := c.current.getState()
	return domain.Status{State: state, Active: state != domain.SessionStateIdle && state != domain.SessionStateEnded}
}

func (c *SessionController) getCurrent() (*activeCall, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveSession
	}
	return c.current, nil
}

// consumeStreamEvents is the single consumer of the inbound stream; all
// reconciler and dispatcher mutation driven by the transport happens on
// this goroutine, in delivery order.
func (c *SessionController) consumeStreamEvents(call *activeCall) {
	defer close(call.eventsDone)

	for event := range call.stream.Events() {
		switch event.Kind {
		case domain.StreamEventOpened:
			c.activate(call)
		case domain.StreamEventAudioChunk:
			if err := call.player.Play(event.Audio); err != nil {
				c.logger.Debug("dropping agent audio chunk", "error", err)
			}
		case domain.StreamEventInputFragment:
			call.reconciler.OnInputFragment(event.Text)
		case domain.StreamEventOutputFragment:
			call.reconciler.OnOutputFragment(event.Text)
		case domain.StreamEventToolCallBatch:
			call.dispatcher.HandleBatch(event.Tools)
		case domain.StreamEventTurnComplete:
			call.reconciler.OnTurnComplete()
			if call.getState() == domain.SessionStateAwaitingFinal {
				c.finish(call, domain.SessionReasonFinalTurnDone)
				return
			}
		case domain.StreamEventInterrupted:
			// Barge-in: kill pending playback before touching transcript
			// state so the agent goes silent immediately.
			call.player.Flush()
			call.reconciler.OnInterrupted()
		case domain.StreamEventError:
			code := streamErrorCode(event.Err)
			c.events.SessionError(code, errorDetail(event.Err))
			c.finish(call, domain.SessionReasonStreamFailed)
			return
		case domain.StreamEventClosed:
			switch call.getState() {
			case domain.SessionStateConnecting, domain.SessionStateActive, domain.SessionStateAwaitingFinal:
				c.finish(call, domain.SessionReasonStreamClosed)
			}
			return
		}
	}
}

// activate moves the call to Active once the stream reports open: the
// countdown starts and mic frames begin flowing.
func (c *SessionController) activate(call *activeCall) {
	if !call.transition(domain.SessionStateConnecting, domain.SessionStateActive) {
		return
	}

	call.forwardAudio.Store(true)
	go c.pumpAudio(call)

	deadline := c.now().Add(c.cfg.CallDuration)
	call.timerMu.Lock()
	call.durationTimer = time.AfterFunc(c.cfg.CallDuration, func() { c.onTimeUp(call) })
	call.warningTimer = time.AfterFunc(c.cfg.CallDuration-c.cfg.WarningBefore, func() {
		c.events.SessionStateChanged(domain.SessionStateActive, domain.SessionReasonTimeWarning)
	})
	call.tickerStop = make(chan struct{})
	tickerStop := call.tickerStop
	call.timerMu.Unlock()

	go c.runCountdown(deadline, tickerStop)

	c.events.TimeLeft(int(c.cfg.CallDuration.Seconds()))
	c.events.SessionStateChanged(domain.SessionStateActive, domain.SessionReasonCallConnected)
}

func (c *SessionController) runCountdown(deadline time.Time, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining := int(time.Until(deadline).Round(time.Second).Seconds())
			if remaining < 0 {
				remaining = 0
			}
			c.events.TimeLeft(remaining)
			if remaining == 0 {
				return
			}
		}
	}
}

// onTimeUp handles the hard duration cap: stop forwarding mic frames and
// give the agent a bounded grace window to land its final utterance.
func (c *SessionController) onTimeUp(call *activeCall) {
	if !call.transition(domain.SessionStateActive, domain.SessionStateAwaitingFinal) {
		return
	}

	call.forwardAudio.Store(false)
	c.events.SessionStateChanged(domain.SessionStateAwaitingFinal, domain.SessionReasonTimeUp)

	call.timerMu.Lock()
	call.graceTimer = time.AfterFunc(c.cfg.FinalGrace, func() {
		c.finish(call, domain.SessionReasonGraceExpired)
	})
	call.timerMu.Unlock()
}

// pumpAudio forwards mic frames to the agent stream, feeding the volume
// meter along the way. Frames are dropped, not queued, while forwarding
// is gated off.
func (c *SessionController) pumpAudio(call *activeCall) {
	defer close(call.audioDone)

	meter := audio.NewMeter(c.events, c.cfg.MeterInterval)
	defer meter.Stop()

	buf := make([]byte, c.cfg.ChunkSize*4)
	for {
		n, err := call.audio.Read(buf)
		if n > 0 {
			samples := audio.DecodeF32LE(buf[:n])
			meter.Observe(samples)
			if call.forwardAudio.Load() {
				if sendErr := call.stream.SendAudio(audio.EncodePCM16(samples)); sendErr != nil {
					c.logger.Warn("failed to stream mic audio", "call", call.id, "error", sendErr)
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Warn("mic capture error", "call", call.id, "error", err)
			}
			return
		}
	}
}

// finish funnels every way a call can end (user stop, grace expiry, final
// turn, stream failure) through one idempotent path: teardown, finalize
// the timeline, then one feedback request on the captured snapshot.
func (c *SessionController) finish(call *activeCall, reason domain.SessionStateReason) domain.CallResult {
	call.endOnce.Do(func() {
		call.setState(domain.SessionStateEnded)
		c.teardown(call)

		history, segments, durationMs := call.reconciler.Finalize()
		c.events.SessionStateChanged(domain.SessionStateEnded, reason)

		result := domain.CallResult{History: history, Segments: segments, DurationMs: durationMs}
		if len(history) > 0 {
			c.events.SessionStateChanged(domain.SessionStateGeneratingFeedback, domain.SessionReasonAnalyzing)
			report, err := c.feedback.Generate(context.Background(), history)
			if err != nil {
				c.events.SessionError(domain.ErrorCodeFeedback, err.Error())
				c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonFeedbackFailed)
			} else {
				result.Report = &report
				c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonFeedbackReady)
			}
		} else {
			c.events.SessionStateChanged(domain.SessionStateIdle, reason)
		}

		call.result = result
		c.events.CallFinished(result)
		c.clearCurrent(call)
	})
	return call.result
}

// teardown releases every per-call resource. Safe to invoke multiple
// times from any state; timers are cancelled and the mic pump gated off
// before the stream connection goes down.
func (c *SessionController) teardown(call *activeCall) {
	call.teardownOnce.Do(func() {
		call.stopTimers()
		call.forwardAudio.Store(false)
		cancel, audioSession, stream, player := call.resources()
		if cancel != nil {
			cancel()
		}
		if audioSession != nil {
			if err := audioSession.Stop(); err != nil {
				c.logger.Warn("failed to stop audio capture cleanly", "call", call.id, "error", err)
			}
		}
		if stream != nil {
			_ = stream.Close()
		}
		if player != nil {
			_ = player.Close()
		}
	})
}

func (c *SessionController) failStart(call *activeCall, code domain.ErrorCode, err error) {
	// A racing Stop may have already finished the call; its result was
	// delivered there, so the failed acquisition stays silent.
	if call.getState() == domain.SessionStateEnded {
		return
	}
	cancel, _, _, _ := call.resources()
	if cancel != nil {
		cancel()
	}
	c.events.SessionError(code, errorDetail(err))
	c.clearCurrent(call)
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonStreamFailed)
}

func (c *SessionController) clearCurrent(call *activeCall) {
	c.mu.Lock()
	if c.current == call {
		c.current = nil
	}
	c.mu.Unlock()
}

func captureErrorCode(err error) domain.ErrorCode {
	if errors.Is(err, ports.ErrPermissionDenied) {
		return domain.ErrorCodePermissionDenied
	}
	return domain.ErrorCodeDeviceUnavailable
}

// streamErrorCode distinguishes credential rejection from everything
// else; the remote service reports the former as a missing entity.
func streamErrorCode(err error) domain.ErrorCode {
	if err == nil {
		return domain.ErrorCodeConnection
	}
	if errors.Is(err, ports.ErrAccessDenied) {
		return domain.ErrorCodeAccessDenied
	}
	if strings.Contains(err.Error(), "Requested entity was not found") {
		return domain.ErrorCodeAccessDenied
	}
	return domain.ErrorCodeConnection
}

func errorDetail(err error) string {
	if err == nil {
		return "unknown stream failure"
	}
	return err.Error()
}
