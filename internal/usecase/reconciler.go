package usecase

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"pitchdojo/internal/domain"
	"pitchdojo/internal/ports"
	"pitchdojo/internal/scrub"
)

type turnState int

const (
	turnIdle turnState = iota
	turnUserSpeaking
	turnAgentSpeaking
)

// TurnReconciler tracks whose turn is active, folds streaming transcript
// fragments into finalized utterances, and records the speaker timeline.
// It is reset at call start and force-finalized at teardown.
type TurnReconciler struct {
	cleaner *scrub.Cleaner
	events  ports.EventSink
	now     func() time.Time

	mu            sync.Mutex
	state         turnState
	userFragment  strings.Builder
	agentFragment strings.Builder
	history       []domain.Utterance
	seq           int

	startedAt      time.Time
	currentSpeaker domain.Speaker
	speakerSince   time.Time
	segments       []domain.SpeakerSegment
	finalized      bool
}

// NewTurnReconciler creates a reconciler; now may be nil for wall clock.
func NewTurnReconciler(cleaner *scrub.Cleaner, events ports.EventSink, now func() time.Time) *TurnReconciler {
	if now == nil {
		now = time.Now
	}
	return &TurnReconciler{cleaner: cleaner, events: events, now: now}
}

// Reset clears all per-call state and anchors the segment timeline.
func (r *TurnReconciler) Reset(startedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = turnIdle
	r.userFragment.Reset()
	r.agentFragment.Reset()
	r.history = nil
	r.seq = 0
	r.startedAt = startedAt
	r.currentSpeaker = ""
	r.speakerSince = time.Time{}
	r.segments = nil
	r.finalized = false
}

// OnInputFragment appends user transcript text. A fragment arriving while
// the agent is mid-turn force-finalizes the agent's pending utterance.
func (r *TurnReconciler) OnInputFragment(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trackSpeaker(domain.SpeakerUser)
	if r.state == turnAgentSpeaking {
		r.finalizeLocked(domain.SpeakerAgent)
	}
	r.state = turnUserSpeaking
	r.userFragment.WriteString(text)
	r.emitLive(domain.SpeakerUser, r.userFragment.String())
}

// OnOutputFragment appends agent transcript text, finalizing any pending
// user utterance on the turn switch.
func (r *TurnReconciler) OnOutputFragment(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trackSpeaker(domain.SpeakerAgent)
	if r.state != turnAgentSpeaking {
		r.finalizeLocked(domain.SpeakerUser)
		r.state = turnAgentSpeaking
	}
	r.agentFragment.WriteString(text)
	r.emitLive(domain.SpeakerAgent, r.agentFragment.String())
}

// OnTurnComplete finalizes the agent's pending utterance.
func (r *TurnReconciler) OnTurnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalizeLocked(domain.SpeakerAgent)
	r.state = turnIdle
}

// OnInterrupted abandons the agent's cut-off fragment: it is discarded,
// never added to history.
func (r *TurnReconciler) OnInterrupted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agentFragment.Reset()
	r.state = turnIdle
	r.emitLive(domain.SpeakerAgent, "")
}

// Finalize flushes any still-pending fragments, closes the open speaker
// segment, and returns the finished call data. Safe to call repeatedly;
// later calls return the same snapshot.
func (r *TurnReconciler) Finalize() ([]domain.Utterance, []domain.SpeakerSegment, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.finalized {
		r.finalizeLocked(domain.SpeakerUser)
		r.finalizeLocked(domain.SpeakerAgent)
		now := r.now()
		if r.currentSpeaker != "" {
			r.segments = append(r.segments, domain.SpeakerSegment{
				Speaker: r.currentSpeaker,
				StartMs: r.speakerSince.Sub(r.startedAt).Milliseconds(),
				EndMs:   now.Sub(r.startedAt).Milliseconds(),
			})
			r.currentSpeaker = ""
		}
		r.finalized = true
	}

	history := make([]domain.Utterance, len(r.history))
	copy(history, r.history)
	segments := make([]domain.SpeakerSegment, len(r.segments))
	copy(segments, r.segments)
	return history, segments, r.now().Sub(r.startedAt).Milliseconds()
}

// History returns a snapshot of the finalized utterances so far.
func (r *TurnReconciler) History() []domain.Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Utterance, len(r.history))
	copy(out, r.history)
	return out
}

func (r *TurnReconciler) finalizeLocked(speaker domain.Speaker) {
	fragment := &r.userFragment
	if speaker == domain.SpeakerAgent {
		fragment = &r.agentFragment
	}

	text := r.cleaner.Clean(fragment.String())
	fragment.Reset()
	if text == "" {
		return
	}

	r.seq++
	utterance := domain.Utterance{
		ID:        fmt.Sprintf("%s-%d", speaker, r.seq),
		Speaker:   speaker,
		Text:      text,
		Seq:       r.seq,
		CreatedAt: r.now(),
	}
	r.history = append(r.history, utterance)
	if r.events != nil {
		r.events.UtteranceFinalized(utterance)
	}
	r.emitLive(speaker, "")
}

// trackSpeaker closes the previous speaker's segment on a change of
// active speaker and opens the next one.
func (r *TurnReconciler) trackSpeaker(speaker domain.Speaker) {
	now := r.now()
	if r.currentSpeaker != "" && r.currentSpeaker != speaker {
		r.segments = append(r.segments, domain.SpeakerSegment{
			Speaker: r.currentSpeaker,
			StartMs: r.speakerSince.Sub(r.startedAt).Milliseconds(),
			EndMs:   now.Sub(r.startedAt).Milliseconds(),
		})
	}
	if r.currentSpeaker != speaker {
		r.currentSpeaker = speaker
		r.speakerSince = now
	}
}

func (r *TurnReconciler) emitLive(speaker domain.Speaker, raw string) {
	if r.events == nil {
		return
	}
	r.events.LiveTranscript(speaker, r.cleaner.Clean(raw))
}
