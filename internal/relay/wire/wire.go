// Package wire defines the JSON frames spoken between the app and the
// relay server. The relay normalizes upstream server messages into typed
// event frames instead of forwarding raw payloads.
package wire

// Client-to-relay frame types.
const (
	ClientInit         = "init"
	ClientAudio        = "audio"
	ClientToolResponse = "tool_response"
	ClientClose        = "close"
)

// Relay-to-client frame types.
const (
	ServerSessionOpen      = "session_open"
	ServerAudio            = "audio"
	ServerInputTranscript  = "input_transcript"
	ServerOutputTranscript = "output_transcript"
	ServerToolCall         = "tool_call"
	ServerTurnComplete     = "turn_complete"
	ServerInterrupted      = "interrupted"
	ServerSessionWarning   = "session_warning"
	ServerSessionTimeout   = "session_timeout"
	ServerSessionClose     = "session_close"
	ServerError            = "error"
)

// ClientFrame is one message from the app to the relay.
type ClientFrame struct {
	Type string `json:"type"`
	// Audio carries base64 PCM16 when Type is "audio".
	Audio string        `json:"audio,omitempty"`
	Init  *InitConfig   `json:"init,omitempty"`
	Tool  *ToolResponse `json:"tool,omitempty"`
}

// InitConfig configures the upstream live session the relay opens on the
// client's behalf. The relay owns the API key; clients never see it.
type InitConfig struct {
	SystemInstruction string `json:"systemInstruction"`
	VoiceName         string `json:"voiceName"`
	InputSampleRate   int    `json:"inputSampleRate"`
}

// ToolResponse acknowledges one tool call back to the agent.
type ToolResponse struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Result map[string]any `json:"result"`
}

// ServerFrame is one message from the relay to the app.
type ServerFrame struct {
	Type string `json:"type"`
	// Audio carries base64 PCM16 when Type is "audio".
	Audio   string     `json:"audio,omitempty"`
	Text    string     `json:"text,omitempty"`
	Tools   []ToolCall `json:"tools,omitempty"`
	Message string     `json:"message,omitempty"`
}

// ToolCall is one inbound tool invocation from the agent.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}
