package usecase

import (
	"sync"
	"testing"

	"pitchdojo/internal/domain"
)

type ackRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (a *ackRecorder) ack(id string, _ string, result map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if result["result"] != "ok" {
		panic("acknowledgment payload must be ok")
	}
	a.ids = append(a.ids, id)
	return nil
}

func (a *ackRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.ids)
}

func newTestDispatcher(events *fakeEventSink) (*ToolCallDispatcher, *ackRecorder) {
	acks := &ackRecorder{}
	dispatcher := NewToolCallDispatcher(testOptions(), acks.ack, events, nil)
	return dispatcher, acks
}

func TestDispatcherSeedsStateFromOptions(t *testing.T) {
	t.Parallel()

	dispatcher, _ := newTestDispatcher(&fakeEventSink{})
	state := dispatcher.State()

	if state.Stage != domain.StageOpening {
		t.Fatalf("expected opening stage, got %s", state.Stage)
	}
	if state.Sentiment != domain.SentimentOrange {
		t.Fatalf("expected orange sentiment, got %s", state.Sentiment)
	}
	if state.InterestLevel != 30 {
		t.Fatalf("expected medium difficulty starting interest 30, got %v", state.InterestLevel)
	}
	if len(state.Checklist) == 0 {
		t.Fatalf("expected a seeded checklist")
	}
}

func TestDispatcherAcknowledgesEverySignalExactlyOnce(t *testing.T) {
	t.Parallel()

	dispatcher, acks := newTestDispatcher(&fakeEventSink{})

	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "1", Name: "set_interest_level", Args: map[string]any{"level": float64(55)}},
		{ID: "2", Name: "set_sentiment", Args: map[string]any{"sentiment": "blue"}},
		{ID: "3", Name: "warp_reality", Args: map[string]any{}},
		{ID: "4", Name: "set_interest_level", Args: map[string]any{"level": "high"}},
	})

	if acks.count() != 4 {
		t.Fatalf("every signal must be acknowledged, got %d acks", acks.count())
	}

	state := dispatcher.State()
	if state.InterestLevel != 55 {
		t.Fatalf("valid interest update lost: %v", state.InterestLevel)
	}
	if state.Sentiment != domain.SentimentOrange {
		t.Fatalf("invalid sentiment must not mutate state, got %s", state.Sentiment)
	}
}

func TestDispatcherInterestLevelPassesThroughUnclamped(t *testing.T) {
	t.Parallel()

	dispatcher, _ := newTestDispatcher(&fakeEventSink{})

	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "1", Name: "set_interest_level", Args: map[string]any{"level": float64(150)}},
	})
	if got := dispatcher.State().InterestLevel; got != 150 {
		t.Fatalf("expected unclamped interest 150, got %v", got)
	}

	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "2", Name: "set_interest_level", Args: map[string]any{"level": int(-5)}},
	})
	if got := dispatcher.State().InterestLevel; got != -5 {
		t.Fatalf("expected unclamped interest -5, got %v", got)
	}
}

func TestDispatcherStageAdvanceResetsChecklist(t *testing.T) {
	t.Parallel()

	dispatcher, _ := newTestDispatcher(&fakeEventSink{})

	opening := dispatcher.State().Checklist
	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "1", Name: "set_checklist_item", Args: map[string]any{"item_text": opening[0].Label}},
	})
	if !dispatcher.State().Checklist[0].Completed {
		t.Fatalf("expected first opening item to be marked")
	}

	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "2", Name: "set_stage", Args: map[string]any{"stage": "discovery"}},
	})

	state := dispatcher.State()
	if state.Stage != domain.StageDiscovery {
		t.Fatalf("expected discovery stage, got %s", state.Stage)
	}
	for _, item := range state.Checklist {
		if item.Completed {
			t.Fatalf("stage advance must reset the checklist, got %+v", state.Checklist)
		}
	}
}

func TestDispatcherRejectsUnknownStage(t *testing.T) {
	t.Parallel()

	dispatcher, acks := newTestDispatcher(&fakeEventSink{})

	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "1", Name: "set_stage", Args: map[string]any{"stage": "negotiation"}},
	})

	if dispatcher.State().Stage != domain.StageOpening {
		t.Fatalf("unknown stage must not mutate state")
	}
	if acks.count() != 1 {
		t.Fatalf("rejected payload still needs its acknowledgment")
	}
}

func TestDispatcherChecklistMatchingIsBidirectional(t *testing.T) {
	t.Parallel()

	dispatcher, _ := newTestDispatcher(&fakeEventSink{})
	label := dispatcher.State().Checklist[0].Label

	// Agent quoting a fragment of the label.
	fragment := label[:len(label)-3]
	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "1", Name: "set_checklist_item", Args: map[string]any{"item_text": fragment}},
	})
	if !dispatcher.State().Checklist[0].Completed {
		t.Fatalf("substring of label must match")
	}

	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "2", Name: "set_stage", Args: map[string]any{"stage": "discovery"}},
	})

	// Agent wrapping the whole label in extra words.
	label = dispatcher.State().Checklist[1].Label
	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "3", Name: "set_checklist_item", Args: map[string]any{"item_text": "the user just " + label + " nicely"}},
	})
	if !dispatcher.State().Checklist[1].Completed {
		t.Fatalf("label contained in payload must match")
	}
}

func TestDispatcherChecklistStageNameDoesNotMark(t *testing.T) {
	t.Parallel()

	dispatcher, acks := newTestDispatcher(&fakeEventSink{})

	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "1", Name: "set_stage", Args: map[string]any{"stage": "discovery"}},
		// Naming the stage is not naming an item; "discovery" overlaps no
		// label on the discovery checklist.
		{ID: "2", Name: "set_checklist_item", Args: map[string]any{"item_text": "discovery"}},
	})

	for _, item := range dispatcher.State().Checklist {
		if item.Completed {
			t.Fatalf("stage keyword must not mark checklist items: %+v", item)
		}
	}
	if acks.count() != 2 {
		t.Fatalf("both signals need acknowledgments, got %d", acks.count())
	}
}

func TestDispatcherChecklistIgnoresUnrelatedText(t *testing.T) {
	t.Parallel()

	dispatcher, acks := newTestDispatcher(&fakeEventSink{})

	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "1", Name: "set_checklist_item", Args: map[string]any{"item_text": "xyzzy plugh"}},
	})

	for _, item := range dispatcher.State().Checklist {
		if item.Completed {
			t.Fatalf("unrelated text must not mark items: %+v", item)
		}
	}
	if acks.count() != 1 {
		t.Fatalf("non-matching mark still needs its acknowledgment")
	}
}

func TestDispatcherEmitsCoachStateOnChangeOnly(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	dispatcher, _ := newTestDispatcher(events)

	dispatcher.HandleBatch([]domain.ToolSignal{
		{ID: "1", Name: "set_sentiment", Args: map[string]any{"sentiment": "green"}},
		{ID: "2", Name: "set_sentiment", Args: map[string]any{"sentiment": "blue"}},
	})

	coach := events.snapshotCoach()
	if len(coach) != 1 {
		t.Fatalf("expected exactly one coach emission, got %d", len(coach))
	}
	if coach[0].Sentiment != domain.SentimentGreen {
		t.Fatalf("unexpected sentiment: %s", coach[0].Sentiment)
	}
}

func TestDispatcherOverrideStage(t *testing.T) {
	t.Parallel()

	dispatcher, _ := newTestDispatcher(&fakeEventSink{})

	state := dispatcher.OverrideStage(domain.StageClosing)
	if state.Stage != domain.StageClosing {
		t.Fatalf("expected closing stage, got %s", state.Stage)
	}
	for _, item := range state.Checklist {
		if item.Completed {
			t.Fatalf("override must hand out a fresh checklist")
		}
	}
}
