package usecase

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"pitchdojo/internal/domain"
	"pitchdojo/internal/ports"
)

// activeCall bundles everything owned by one simulated call. All per-call
// resources hang off this aggregate so teardown has a single root.
type activeCall struct {
	id   string
	opts domain.SessionOptions

	// cancel and the three resources below are acquired one by one while
	// the call is Connecting and a concurrent Stop may end it at any
	// point, so they are registered through adopt and read under stateMu.
	cancel func()
	audio  ports.AudioSession
	stream ports.AgentStream
	player ports.AudioPlayer

	reconciler *TurnReconciler
	dispatcher *ToolCallDispatcher

	stateMu sync.Mutex
	state   domain.SessionState

	// forwardAudio gates the mic pump; cleared when the countdown hits
	// zero so no frames are sent into a closing stream.
	forwardAudio atomic.Bool

	timerMu       sync.Mutex
	durationTimer *time.Timer
	warningTimer  *time.Timer
	graceTimer    *time.Timer
	tickerStop    chan struct{}

	teardownOnce sync.Once
	endOnce      sync.Once
	result       domain.CallResult

	eventsDone chan struct{}
	audioDone  chan struct{}

	startedAt time.Time
}

func (c *activeCall) setState(state domain.SessionState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = state
}

func (c *activeCall) getState() domain.SessionState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// transition applies from -> to atomically; returns false when the call
// is not in the expected state (first-to-fire-wins for competing timers
// and stream events).
func (c *activeCall) transition(from, to domain.SessionState) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state != from {
		return false
	}
	c.state = to
	return true
}

// adopt registers a per-call resource unless the call has already ended.
// A false return means teardown has run and will never see the resource;
// the caller still owns it and must release it itself.
func (c *activeCall) adopt(assign func()) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state == domain.SessionStateEnded {
		return false
	}
	assign()
	return true
}

func (c *activeCall) resources() (func(), ports.AudioSession, ports.AgentStream, ports.AudioPlayer) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.cancel, c.audio, c.stream, c.player
}

// sendToolResponse resolves the stream lazily so the dispatcher can be
// built before the connection exists.
func (c *activeCall) sendToolResponse(id string, name string, result map[string]any) error {
	c.stateMu.Lock()
	stream := c.stream
	c.stateMu.Unlock()
	if stream == nil {
		return errors.New("agent stream is not connected")
	}
	return stream.SendToolResponse(id, name, result)
}

func (c *activeCall) stopTimers() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.durationTimer != nil {
		c.durationTimer.Stop()
		c.durationTimer = nil
	}
	if c.warningTimer != nil {
		c.warningTimer.Stop()
		c.warningTimer = nil
	}
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
	if c.tickerStop != nil {
		close(c.tickerStop)
		c.tickerStop = nil
	}
}
