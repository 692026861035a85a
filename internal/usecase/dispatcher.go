package usecase

import (
	"log/slog"
	"strings"
	"sync"

	"pitchdojo/internal/domain"
	"pitchdojo/internal/ports"
	"pitchdojo/internal/prompt"
)

// ackFunc sends one tool acknowledgment back to the remote agent.
type ackFunc func(id string, name string, result map[string]any) error

// ToolCallDispatcher owns the coaching state for one call and applies
// inbound tool signals to it. Every signal is acknowledged exactly once,
// valid or not: the remote agent blocks further speech until it sees the
// ack, so an unrecognized payload is a no-op mutation, never a dropped
// response.
type ToolCallDispatcher struct {
	persona domain.Persona
	ack     ackFunc
	events  ports.EventSink
	logger  *slog.Logger

	mu    sync.Mutex
	state domain.CoachState
}

// NewToolCallDispatcher seeds the coach state for a fresh call.
func NewToolCallDispatcher(opts domain.SessionOptions, ack ackFunc, events ports.EventSink, logger *slog.Logger) *ToolCallDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolCallDispatcher{
		persona: opts.Persona,
		ack:     ack,
		events:  events,
		logger:  logger,
		state: domain.CoachState{
			Stage:         domain.StageOpening,
			Sentiment:     domain.SentimentOrange,
			InterestLevel: prompt.StartingInterest(opts.Difficulty),
			Checklist:     prompt.ChecklistTemplate(opts.Persona, domain.StageOpening),
		},
	}
}

var toolHandlers = map[domain.ToolKind]func(*ToolCallDispatcher, map[string]any) bool{
	domain.ToolInterestLevel: (*ToolCallDispatcher).applyInterestLevel,
	domain.ToolSentiment:     (*ToolCallDispatcher).applySentiment,
	domain.ToolStageAdvance:  (*ToolCallDispatcher).applyStage,
	domain.ToolChecklistMark: (*ToolCallDispatcher).applyChecklistMark,
}

// HandleBatch applies tool signals in the order received.
func (d *ToolCallDispatcher) HandleBatch(batch []domain.ToolSignal) {
	for _, signal := range batch {
		changed := d.apply(signal)

		if err := d.ack(signal.ID, signal.Name, map[string]any{"result": "ok"}); err != nil {
			d.logger.Warn("tool acknowledgment failed", "tool", signal.Name, "id", signal.ID, "error", err)
		}

		if changed && d.events != nil {
			d.events.CoachStateChanged(d.State())
		}
	}
}

// State returns a deep snapshot of the current coach state.
func (d *ToolCallDispatcher) State() domain.CoachState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// OverrideStage handles a manual stage change from the UI, bypassing the
// monotonic advance driven by the agent.
func (d *ToolCallDispatcher) OverrideStage(stage domain.SalesStage) domain.CoachState {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Stage = stage
	d.state.Checklist = prompt.ChecklistTemplate(d.persona, stage)
	return d.snapshotLocked()
}

func (d *ToolCallDispatcher) apply(signal domain.ToolSignal) bool {
	kind, known := signal.Kind()
	if !known {
		d.logger.Debug("unrecognized tool call acknowledged as no-op", "tool", signal.Name)
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	changed := toolHandlers[kind](d, signal.Args)
	if !changed {
		d.logger.Debug("tool call payload rejected, acknowledged as no-op", "tool", signal.Name)
	}
	return changed
}

// applyInterestLevel passes the value through as given by the remote
// agent; no [0,100] clamp is applied.
func (d *ToolCallDispatcher) applyInterestLevel(args map[string]any) bool {
	level, ok := numberArg(args, "level")
	if !ok {
		return false
	}
	d.state.InterestLevel = level
	return true
}

func (d *ToolCallDispatcher) applySentiment(args map[string]any) bool {
	raw, _ := args["sentiment"].(string)
	switch domain.Sentiment(raw) {
	case domain.SentimentRed, domain.SentimentOrange, domain.SentimentGreen:
		d.state.Sentiment = domain.Sentiment(raw)
		return true
	}
	return false
}

// applyStage replaces the whole checklist with the fresh template for the
// new stage, all items reset to incomplete.
func (d *ToolCallDispatcher) applyStage(args map[string]any) bool {
	raw, _ := args["stage"].(string)
	switch domain.SalesStage(raw) {
	case domain.StageOpening, domain.StageDiscovery, domain.StageSolution, domain.StageClosing:
	default:
		return false
	}
	stage := domain.SalesStage(raw)
	d.state.Stage = stage
	d.state.Checklist = prompt.ChecklistTemplate(d.persona, stage)
	return true
}

// applyChecklistMark does a best-effort bidirectional substring match and
// marks every matching item, not just the first.
func (d *ToolCallDispatcher) applyChecklistMark(args map[string]any) bool {
	raw, _ := args["item_text"].(string)
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return false
	}

	changed := false
	for i := range d.state.Checklist {
		label := strings.ToLower(d.state.Checklist[i].Label)
		if strings.Contains(label, needle) || strings.Contains(needle, label) {
			if !d.state.Checklist[i].Completed {
				d.state.Checklist[i].Completed = true
				changed = true
			}
		}
	}
	return changed
}

func (d *ToolCallDispatcher) snapshotLocked() domain.CoachState {
	snapshot := d.state
	snapshot.Checklist = make([]domain.ChecklistItem, len(d.state.Checklist))
	copy(snapshot.Checklist, d.state.Checklist)
	return snapshot
}

// numberArg accepts both float64 (JSON) and integer payload encodings.
func numberArg(args map[string]any, key string) (float64, bool) {
	switch value := args[key].(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case float32:
		return float64(value), true
	}
	return 0, false
}
