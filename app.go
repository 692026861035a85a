package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"pitchdojo/internal/bootstrap"
	"pitchdojo/internal/config"
	"pitchdojo/internal/domain"
	"pitchdojo/internal/usecase"
)

const (
	eventSession    = "pitchdojo:session"
	eventTranscript = "pitchdojo:transcript"
	eventUtterance  = "pitchdojo:utterance"
	eventCoach      = "pitchdojo:coach"
	eventVolume     = "pitchdojo:volume"
	eventTimeLeft   = "pitchdojo:timeleft"
	eventFinished   = "pitchdojo:finished"
	eventError      = "pitchdojo:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.SessionController
	cfg        config.Config
	logger     *slog.Logger
	bootErr    error
}

func NewApp() *App {
	return &App{
		logger: slog.New(slog.NewJSONHandler(os.Stderr, nil)),
	}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(ctx, a, a.logger)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonCallRequested)
}

// StartCall begins a new simulated sales call with the given options.
func (a *App) StartCall(opts domain.SessionOptions) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx, opts); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// EndCall ends the live call and returns its result once feedback has
// resolved.
func (a *App) EndCall() (domain.CallResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.CallResult{}, err
	}
	return a.controller.Stop()
}

// SetStage applies a manual sales-stage override from the UI.
func (a *App) SetStage(stage domain.SalesStage) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.OverrideStage(stage)
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateIdle, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"transport":     a.cfg.Relay.Transport,
		"liveModel":     a.cfg.Gemini.LiveModel,
		"feedbackModel": a.cfg.Gemini.FeedbackModel,
		"audioInput":    a.cfg.Audio.InputDevice,
		"callDuration":  a.cfg.Session.CallDuration.String(),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// LiveTranscript emits the in-progress text for the active speaker.
func (a *App) LiveTranscript(speaker domain.Speaker, text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, map[string]string{
		"speaker": string(speaker),
		"text":    text,
	})
}

// UtteranceFinalized emits one finalized utterance.
func (a *App) UtteranceFinalized(u domain.Utterance) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventUtterance, u)
}

// CoachStateChanged emits the updated coaching snapshot.
func (a *App) CoachStateChanged(state domain.CoachState) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventCoach, state)
}

// VolumeLevel emits the current mic level for the UI meter.
func (a *App) VolumeLevel(level float64) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventVolume, level)
}

// TimeLeft emits the remaining call seconds.
func (a *App) TimeLeft(seconds int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTimeLeft, seconds)
}

// CallFinished emits the finished call result, including the feedback
// report when generation succeeded.
func (a *App) CallFinished(result domain.CallResult) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventFinished, result)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonCallRequested:
		return "Connecting..."
	case domain.SessionReasonCallConnected:
		return "Call connected"
	case domain.SessionReasonTimeWarning:
		return "20 seconds left"
	case domain.SessionReasonTimeUp:
		return "Time is up; waiting for the prospect to finish"
	case domain.SessionReasonFinalTurnDone, domain.SessionReasonGraceExpired:
		return "Call ended"
	case domain.SessionReasonEndedByUser:
		return "Call ended by you"
	case domain.SessionReasonStreamClosed:
		return "Connection closed"
	case domain.SessionReasonStreamFailed:
		return "Connection failed"
	case domain.SessionReasonAnalyzing:
		return "Analyzing your call..."
	case domain.SessionReasonFeedbackReady:
		return "Feedback ready"
	case domain.SessionReasonFeedbackFailed:
		return "Feedback generation failed; transcript preserved"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermissionDenied:
		return "Microphone permission denied"
	case domain.ErrorCodeDeviceUnavailable:
		return "No usable audio device found"
	case domain.ErrorCodeConnection:
		return "Could not reach the live agent"
	case domain.ErrorCodeAccessDenied:
		return "API key was rejected"
	case domain.ErrorCodeFeedback:
		return "Feedback generation failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
