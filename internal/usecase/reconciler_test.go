package usecase

import (
	"testing"
	"time"

	"pitchdojo/internal/domain"
	"pitchdojo/internal/scrub"
)

// testClock hands out strictly increasing instants so segment math is
// deterministic.
type testClock struct {
	current time.Time
	step    time.Duration
}

func newTestClock(step time.Duration) *testClock {
	return &testClock{current: time.Unix(1700000000, 0), step: step}
}

func (c *testClock) now() time.Time {
	c.current = c.current.Add(c.step)
	return c.current
}

func newTestReconciler(t *testing.T, events *fakeEventSink, clock *testClock) *TurnReconciler {
	t.Helper()
	cleaner, err := scrub.NewCleaner("")
	if err != nil {
		t.Fatalf("cleaner: %v", err)
	}
	reconciler := NewTurnReconciler(cleaner, events, clock.now)
	reconciler.Reset(clock.current)
	return reconciler
}

func TestReconcilerAccumulatesFragmentsAcrossEvents(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	reconciler := newTestReconciler(t, events, newTestClock(10*time.Millisecond))

	reconciler.OnInputFragment("Hello ")
	reconciler.OnInputFragment("there")
	reconciler.OnOutputFragment("Who is this?")
	reconciler.OnTurnComplete()

	history := reconciler.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(history))
	}
	if history[0].Speaker != domain.SpeakerUser || history[0].Text != "Hello there" {
		t.Fatalf("unexpected user utterance: %+v", history[0])
	}
	if history[1].Speaker != domain.SpeakerAgent || history[1].Text != "Who is this?" {
		t.Fatalf("unexpected agent utterance: %+v", history[1])
	}
	if history[0].Seq >= history[1].Seq {
		t.Fatalf("utterance order not monotonic: %d vs %d", history[0].Seq, history[1].Seq)
	}
}

func TestReconcilerTurnSwitchForceFinalizesPendingAgent(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	reconciler := newTestReconciler(t, events, newTestClock(10*time.Millisecond))

	reconciler.OnOutputFragment("Let me think")
	reconciler.OnInputFragment("Actually, quick question")

	history := reconciler.History()
	if len(history) != 1 {
		t.Fatalf("expected the agent utterance to be force-finalized, got %d", len(history))
	}
	if history[0].Speaker != domain.SpeakerAgent || history[0].Text != "Let me think" {
		t.Fatalf("unexpected finalized utterance: %+v", history[0])
	}
}

func TestReconcilerInterruptDiscardsAgentFragment(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	reconciler := newTestReconciler(t, events, newTestClock(10*time.Millisecond))

	reconciler.OnOutputFragment("As I was about to sa")
	reconciler.OnInterrupted()
	reconciler.OnTurnComplete()

	if history := reconciler.History(); len(history) != 0 {
		t.Fatalf("interrupted fragment must be discarded, got %+v", history)
	}

	lines := events.snapshotTranscripts()
	last := lines[len(lines)-1]
	if last.speaker != domain.SpeakerAgent || last.text != "" {
		t.Fatalf("expected cleared live transcript after interrupt, got %+v", last)
	}
}

func TestReconcilerScrubsMarkupAndDropsEmptyUtterances(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	reconciler := newTestReconciler(t, events, newTestClock(10*time.Millisecond))

	reconciler.OnOutputFragment("[sighs] Fine, [pause] go ahead.")
	reconciler.OnTurnComplete()
	reconciler.OnOutputFragment("[static]")
	reconciler.OnTurnComplete()

	history := reconciler.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 utterance after scrubbing, got %d", len(history))
	}
	if history[0].Text != "Fine, go ahead." {
		t.Fatalf("unexpected scrubbed text: %q", history[0].Text)
	}
}

func TestReconcilerTracksSpeakerSegments(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	clock := newTestClock(100 * time.Millisecond)
	reconciler := newTestReconciler(t, events, clock)

	reconciler.OnInputFragment("Hi Susan, ")
	reconciler.OnInputFragment("got a minute?")
	reconciler.OnOutputFragment("Make it quick.")
	reconciler.OnTurnComplete()
	reconciler.OnInputFragment("Sure thing.")

	_, segments, durationMs := reconciler.Finalize()

	if len(segments) != 3 {
		t.Fatalf("expected 3 speaker segments, got %+v", segments)
	}
	want := []domain.Speaker{domain.SpeakerUser, domain.SpeakerAgent, domain.SpeakerUser}
	for i, speaker := range want {
		if segments[i].Speaker != speaker {
			t.Fatalf("segment %d speaker = %s, want %s", i, segments[i].Speaker, speaker)
		}
	}
	for i, segment := range segments {
		if segment.EndMs <= segment.StartMs {
			t.Fatalf("segment %d is not a positive interval: %+v", i, segment)
		}
		if i > 0 && segment.StartMs < segments[i-1].EndMs {
			t.Fatalf("segment %d overlaps previous: %+v", i, segments)
		}
	}
	if durationMs <= segments[len(segments)-1].StartMs {
		t.Fatalf("duration %d does not cover the last segment %+v", durationMs, segments)
	}
}

func TestReconcilerFinalizeFlushesPendingAndIsIdempotent(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	reconciler := newTestReconciler(t, events, newTestClock(10*time.Millisecond))

	reconciler.OnInputFragment("One last thing")

	firstHistory, firstSegments, _ := reconciler.Finalize()
	if len(firstHistory) != 1 || firstHistory[0].Text != "One last thing" {
		t.Fatalf("expected the pending fragment to be flushed, got %+v", firstHistory)
	}

	secondHistory, secondSegments, _ := reconciler.Finalize()
	if len(secondHistory) != len(firstHistory) || len(secondSegments) != len(firstSegments) {
		t.Fatalf("finalize must be idempotent")
	}
}

func TestReconcilerEmitsFinalizedUtterances(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	reconciler := newTestReconciler(t, events, newTestClock(10*time.Millisecond))

	reconciler.OnInputFragment("Hello")
	reconciler.OnOutputFragment("Hi")
	reconciler.OnTurnComplete()

	events.mu.Lock()
	finalized := append([]domain.Utterance(nil), events.utterances...)
	events.mu.Unlock()

	if len(finalized) != 2 {
		t.Fatalf("expected 2 finalized events, got %d", len(finalized))
	}
	if finalized[0].ID == finalized[1].ID {
		t.Fatalf("utterance IDs must be unique: %q", finalized[0].ID)
	}
}
