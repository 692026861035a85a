// Package relay hosts the websocket bridge between browser or desktop
// clients and the upstream live agent. The relay holds the API key, so
// clients connect without credentials and are subject to session rate
// limits.
package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"pitchdojo/internal/domain"
	"pitchdojo/internal/ports"
	"pitchdojo/internal/relay/wire"
)

// Config controls per-session limits on the relay.
type Config struct {
	SessionMaxDuration time.Duration
	WarningBefore      time.Duration
	PerIPPerHour       int
	DailyMax           int
}

// Server bridges relay websocket clients to upstream live sessions.
type Server struct {
	provider ports.AgentStreamProvider
	feedback ports.FeedbackGenerator
	limiter  *SessionLimiter
	logger   *slog.Logger
	cfg      Config
	upgrader websocket.Upgrader
}

func NewServer(provider ports.AgentStreamProvider, feedback ports.FeedbackGenerator, logger *slog.Logger, cfg Config) *Server {
	if cfg.SessionMaxDuration <= 0 {
		cfg.SessionMaxDuration = 10 * time.Minute
	}
	if cfg.WarningBefore <= 0 || cfg.WarningBefore >= cfg.SessionMaxDuration {
		cfg.WarningBefore = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		provider: provider,
		feedback: feedback,
		limiter:  NewSessionLimiter(cfg.PerIPPerHour, cfg.DailyMax),
		logger:   logger,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Router builds the HTTP surface: health, feedback generation, and the
// websocket bridge.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/api/feedback", s.handleFeedback)
	r.Get("/ws", s.handleWS)
	return r
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		History []domain.Utterance `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(body.History) == 0 {
		http.Error(w, "history is required", http.StatusBadRequest)
		return
	}

	report, err := s.feedback.Generate(r.Context(), body.History)
	if err != nil {
		s.logger.Error("feedback generation failed", "error", err)
		http.Error(w, "feedback generation failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	bridge := &clientBridge{
		server: s,
		conn:   conn,
		ip:     clientIP(r),
		logger: s.logger.With("client", clientIP(r)),
	}
	bridge.run(r.Context())
}

// clientBridge pairs one client connection with at most one upstream
// session.
type clientBridge struct {
	server *Server
	conn   *websocket.Conn
	ip     string
	logger *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	upstream ports.AgentStream
	timers   []*time.Timer
	closed   bool
}

func (b *clientBridge) run(ctx context.Context) {
	defer b.shutdown()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		_, payload, err := b.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame wire.ClientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			b.logger.Debug("dropping malformed client frame", "error", err)
			continue
		}

		switch frame.Type {
		case wire.ClientInit:
			if !b.handleInit(sessionCtx, frame.Init) {
				return
			}
		case wire.ClientAudio:
			b.handleAudio(frame.Audio)
		case wire.ClientToolResponse:
			b.handleToolResponse(frame.Tool)
		case wire.ClientClose:
			return
		default:
			b.logger.Debug("ignoring unknown client frame", "type", frame.Type)
		}
	}
}

func (b *clientBridge) handleInit(ctx context.Context, init *wire.InitConfig) bool {
	if init == nil {
		b.sendError("init frame missing config")
		return false
	}

	b.mu.Lock()
	already := b.upstream != nil
	b.mu.Unlock()
	if already {
		b.sendError("session already initialized")
		return false
	}

	if allowed, reason := b.server.limiter.AllowSession(b.ip); !allowed {
		b.logger.Info("session denied by rate limit", "reason", reason)
		b.sendError(reason)
		return false
	}

	stream, err := b.server.provider.Connect(ctx, ports.StreamConfig{
		SystemInstruction: init.SystemInstruction,
		VoiceName:         init.VoiceName,
		InputSampleRate:   init.InputSampleRate,
	})
	if err != nil {
		b.logger.Error("upstream connect failed", "error", err)
		b.sendError("failed to open live session")
		return false
	}

	b.mu.Lock()
	b.upstream = stream
	b.mu.Unlock()

	b.logger.Info("session started")
	go b.pumpUpstream(stream)
	return true
}

func (b *clientBridge) handleAudio(encoded string) {
	b.mu.Lock()
	stream := b.upstream
	b.mu.Unlock()
	if stream == nil {
		return
	}

	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(pcm) == 0 {
		return
	}
	if err := stream.SendAudio(pcm); err != nil {
		b.logger.Warn("failed to forward audio upstream", "error", err)
	}
}

func (b *clientBridge) handleToolResponse(tool *wire.ToolResponse) {
	b.mu.Lock()
	stream := b.upstream
	b.mu.Unlock()
	if stream == nil || tool == nil {
		return
	}
	if err := stream.SendToolResponse(tool.ID, tool.Name, tool.Result); err != nil {
		b.logger.Warn("failed to forward tool response", "error", err)
	}
}

// pumpUpstream translates upstream events into relay frames, in order.
func (b *clientBridge) pumpUpstream(stream ports.AgentStream) {
	for event := range stream.Events() {
		switch event.Kind {
		case domain.StreamEventOpened:
			b.send(wire.ServerFrame{Type: wire.ServerSessionOpen})
			b.armSessionTimers()
		case domain.StreamEventAudioChunk:
			b.send(wire.ServerFrame{
				Type:  wire.ServerAudio,
				Audio: base64.StdEncoding.EncodeToString(event.Audio),
			})
		case domain.StreamEventInputFragment:
			b.send(wire.ServerFrame{Type: wire.ServerInputTranscript, Text: event.Text})
		case domain.StreamEventOutputFragment:
			b.send(wire.ServerFrame{Type: wire.ServerOutputTranscript, Text: event.Text})
		case domain.StreamEventToolCallBatch:
			calls := make([]wire.ToolCall, 0, len(event.Tools))
			for _, tool := range event.Tools {
				calls = append(calls, wire.ToolCall{ID: tool.ID, Name: tool.Name, Args: tool.Args})
			}
			b.send(wire.ServerFrame{Type: wire.ServerToolCall, Tools: calls})
		case domain.StreamEventTurnComplete:
			b.send(wire.ServerFrame{Type: wire.ServerTurnComplete})
		case domain.StreamEventInterrupted:
			b.send(wire.ServerFrame{Type: wire.ServerInterrupted})
		case domain.StreamEventError:
			b.logger.Error("upstream session error", "error", event.Err)
			b.sendError("live session error")
			b.shutdown()
			return
		case domain.StreamEventClosed:
			b.send(wire.ServerFrame{Type: wire.ServerSessionClose})
			b.shutdown()
			return
		}
	}
}

// armSessionTimers enforces the relay-side session cap independently of
// whatever the client's own countdown does.
func (b *clientBridge) armSessionTimers() {
	warnAt := b.server.cfg.SessionMaxDuration - b.server.cfg.WarningBefore

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.timers = append(b.timers,
		time.AfterFunc(warnAt, func() {
			b.send(wire.ServerFrame{
				Type:    wire.ServerSessionWarning,
				Message: "Your session will end soon due to the relay time limit.",
			})
		}),
		time.AfterFunc(b.server.cfg.SessionMaxDuration, func() {
			b.logger.Info("session ended by relay time limit")
			b.send(wire.ServerFrame{
				Type:    wire.ServerSessionTimeout,
				Message: "Session ended due to the relay time limit. Start a new session to continue.",
			})
			b.shutdown()
		}),
	)
}

func (b *clientBridge) send(frame wire.ServerFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = b.conn.WriteMessage(websocket.TextMessage, payload)
}

func (b *clientBridge) sendError(message string) {
	b.send(wire.ServerFrame{Type: wire.ServerError, Message: message})
}

func (b *clientBridge) shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	upstream := b.upstream
	b.upstream = nil
	timers := b.timers
	b.timers = nil
	b.mu.Unlock()

	for _, timer := range timers {
		timer.Stop()
	}
	if upstream != nil {
		_ = upstream.Close()
	}
	_ = b.conn.Close()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
