package domain

import "time"

// Speaker identifies which party produced audio or text.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// SessionState models the simulated-call lifecycle.
type SessionState string

const (
	SessionStateIdle               SessionState = "idle"
	SessionStateConnecting         SessionState = "connecting"
	SessionStateActive             SessionState = "active"
	SessionStateAwaitingFinal      SessionState = "awaiting_final"
	SessionStateGeneratingFeedback SessionState = "generating_feedback"
	SessionStateEnded              SessionState = "ended"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonCallRequested   SessionStateReason = "call_requested"
	SessionReasonCallConnected   SessionStateReason = "call_connected"
	SessionReasonTimeUp          SessionStateReason = "time_up"
	SessionReasonTimeWarning     SessionStateReason = "time_warning"
	SessionReasonFinalTurnDone   SessionStateReason = "final_turn_complete"
	SessionReasonGraceExpired    SessionStateReason = "grace_expired"
	SessionReasonEndedByUser     SessionStateReason = "ended_by_user"
	SessionReasonStreamClosed    SessionStateReason = "stream_closed"
	SessionReasonStreamFailed    SessionStateReason = "stream_failed"
	SessionReasonAnalyzing       SessionStateReason = "analyzing"
	SessionReasonFeedbackReady   SessionStateReason = "feedback_ready"
	SessionReasonFeedbackFailed  SessionStateReason = "feedback_failed"
	SessionReasonStageOverridden SessionStateReason = "stage_overridden"
)

// ErrorCode identifies user-surfaced backend errors.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodePermissionDenied  ErrorCode = "permission_denied"
	ErrorCodeDeviceUnavailable ErrorCode = "device_unavailable"
	ErrorCodeConnection        ErrorCode = "connection"
	ErrorCodeAccessDenied      ErrorCode = "access_denied"
	ErrorCodeFeedback          ErrorCode = "feedback"
)

// Persona is one of the selectable prospect characters.
type Persona string

const (
	PersonaSkeptical  Persona = "Skeptic Susan"
	PersonaEager      Persona = "Eager Eric"
	PersonaBusy       Persona = "Busy Brian"
	PersonaAnalytical Persona = "Analytical Anna"
)

// Difficulty controls how resistant the prospect behaves.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ObjectionType selects which objections the prospect may raise.
type ObjectionType string

const (
	ObjectionTiming      ObjectionType = "Timing"
	ObjectionBudget      ObjectionType = "Budget"
	ObjectionSolution    ObjectionType = "Already have a solution"
	ObjectionCredibility ObjectionType = "Credibility / Trust"
	ObjectionStall       ObjectionType = "Need more info / Stall"
)

// SalesStage is the 4-stage pipeline the call progresses through.
type SalesStage string

const (
	StageOpening   SalesStage = "opening"
	StageDiscovery SalesStage = "discovery"
	StageSolution  SalesStage = "solution"
	StageClosing   SalesStage = "closing"
)

// Stages lists the pipeline in order.
func Stages() []SalesStage {
	return []SalesStage{StageOpening, StageDiscovery, StageSolution, StageClosing}
}

// Sentiment is the prospect's emotional reaction to the last user input.
type Sentiment string

const (
	SentimentRed    Sentiment = "red"
	SentimentOrange Sentiment = "orange"
	SentimentGreen  Sentiment = "green"
)

// ChecklistItem is one goal on the current stage's battle card.
type ChecklistItem struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
}

// CoachState is the derived, UI-facing coaching snapshot.
type CoachState struct {
	Stage         SalesStage      `json:"stage"`
	Sentiment     Sentiment       `json:"sentiment"`
	InterestLevel float64         `json:"interestLevel"`
	Checklist     []ChecklistItem `json:"checklist"`
}

// Utterance is the finalized, cleaned text of one completed turn.
type Utterance struct {
	ID        string    `json:"id"`
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Seq       int       `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
}

// SpeakerSegment is a closed talk interval, relative to session start.
type SpeakerSegment struct {
	Speaker Speaker `json:"speaker"`
	StartMs int64   `json:"startMs"`
	EndMs   int64   `json:"endMs"`
}

// ToolKind identifies an instruction the remote agent may issue mid-call.
type ToolKind string

const (
	ToolInterestLevel ToolKind = "set_interest_level"
	ToolSentiment     ToolKind = "set_sentiment"
	ToolStageAdvance  ToolKind = "set_stage"
	ToolChecklistMark ToolKind = "set_checklist_item"
)

// ToolSignal is one inbound tool call, acknowledged exactly once by id.
type ToolSignal struct {
	ID   string
	Name string
	Args map[string]any
}

// Kind maps the wire name onto the known tool set. Unknown names stay
// unmapped and are acknowledged as no-ops.
func (s ToolSignal) Kind() (ToolKind, bool) {
	switch ToolKind(s.Name) {
	case ToolInterestLevel, ToolSentiment, ToolStageAdvance, ToolChecklistMark:
		return ToolKind(s.Name), true
	}
	return "", false
}

// StreamEventKind enumerates the closed set of inbound stream events.
type StreamEventKind string

const (
	StreamEventAudioChunk     StreamEventKind = "audio_chunk"
	StreamEventInputFragment  StreamEventKind = "input_fragment"
	StreamEventOutputFragment StreamEventKind = "output_fragment"
	StreamEventToolCallBatch  StreamEventKind = "tool_call_batch"
	StreamEventTurnComplete   StreamEventKind = "turn_complete"
	StreamEventInterrupted    StreamEventKind = "interrupted"
	StreamEventOpened         StreamEventKind = "opened"
	StreamEventClosed         StreamEventKind = "closed"
	StreamEventError          StreamEventKind = "error"
)

// StreamEvent is one inbound event from the remote agent stream,
// delivered in transport order.
type StreamEvent struct {
	Kind  StreamEventKind
	Audio []byte
	Text  string
	Tools []ToolSignal
	Err   error
}

// SessionOptions configures one simulated call.
type SessionOptions struct {
	Persona        Persona         `json:"persona"`
	Difficulty     Difficulty      `json:"difficulty"`
	Objections     []ObjectionType `json:"objections"`
	ProductContext string          `json:"productContext,omitempty"`
}

// Outcome is the feedback report's terminal call classification.
type Outcome string

const (
	OutcomeBooked       Outcome = "Booked"
	OutcomeTentative    Outcome = "Tentative Next Step"
	OutcomeStalled      Outcome = "Stalled"
	OutcomeDisqualified Outcome = "Disqualified"
)

// DimensionScores are the six 0-5 coaching dimensions.
type DimensionScores struct {
	DiscoveryDepth    float64 `json:"discovery_depth"`
	ObjectionHandling float64 `json:"objection_handling"`
	ClarityBrevity    float64 `json:"clarity_brevity"`
	NextStepSecured   float64 `json:"next_step_secured"`
	RapportTone       float64 `json:"rapport_tone"`
	TalkRatio         float64 `json:"talk_ratio"`
}

// FeedbackReport is the post-call coaching report.
type FeedbackReport struct {
	Type            string          `json:"type"`
	OverallScore    float64         `json:"overall_score"`
	Dimensions      DimensionScores `json:"dimensions"`
	Wins            []string        `json:"wins"`
	FixNext         []string        `json:"fix_next"`
	OneLinerRepair  []string        `json:"one_liner_repair"`
	NextCallMission string          `json:"next_call_mission"`
	Outcome         Outcome         `json:"outcome"`
	XPAwarded       int             `json:"xp_awarded"`
	Streak          int             `json:"streak"`
	Badges          []string        `json:"badges"`
}

// CallResult is returned once a call has ended and feedback is resolved.
type CallResult struct {
	History    []Utterance      `json:"history"`
	Segments   []SpeakerSegment `json:"segments"`
	DurationMs int64            `json:"durationMs"`
	Report     *FeedbackReport  `json:"report,omitempty"`
}

// Status summarizes the current runtime status.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Message string       `json:"message,omitempty"`
}
