// Package relayws connects to the hosted relay over websocket. The relay
// holds the API key and opens the upstream live session on our behalf.
package relayws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"pitchdojo/internal/domain"
	"pitchdojo/internal/ports"
	"pitchdojo/internal/relay/wire"
)

// Config controls the relay websocket connection.
type Config struct {
	RelayURL string
}

// Provider implements ports.AgentStreamProvider against a relay server.
type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) *Provider {
	if cfg.RelayURL == "" {
		cfg.RelayURL = "ws://localhost:3001/ws"
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) Connect(ctx context.Context, cfg ports.StreamConfig) (ports.AgentStream, error) {
	wsURL, err := normalizeRelayURL(p.cfg.RelayURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}

	session := &relaySession{
		conn:   conn,
		events: make(chan domain.StreamEvent, 64),
		frames: make(chan wire.ClientFrame, 32),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	init := wire.ClientFrame{
		Type: wire.ClientInit,
		Init: &wire.InitConfig{
			SystemInstruction: cfg.SystemInstruction,
			VoiceName:         cfg.VoiceName,
			InputSampleRate:   cfg.InputSampleRate,
		},
	}
	if err := session.enqueue(init); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("failed to send init frame: %w", err)
	}

	return session, nil
}

type relaySession struct {
	conn *websocket.Conn

	events chan domain.StreamEvent
	frames chan wire.ClientFrame
	done   chan struct{}
	stop   chan struct{}

	wg sync.WaitGroup

	closeOnce sync.Once
}

func (s *relaySession) SendAudio(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}
	return s.enqueue(wire.ClientFrame{
		Type:  wire.ClientAudio,
		Audio: base64.StdEncoding.EncodeToString(pcm),
	})
}

func (s *relaySession) SendToolResponse(id string, name string, result map[string]any) error {
	return s.enqueue(wire.ClientFrame{
		Type: wire.ClientToolResponse,
		Tool: &wire.ToolResponse{ID: id, Name: name, Result: result},
	})
}

func (s *relaySession) Events() <-chan domain.StreamEvent {
	return s.events
}

func (s *relaySession) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		_ = s.conn.Close()
	})
	return nil
}

// enqueue hands a frame to the write loop. The frames channel is never
// closed; shutdown is signalled on stop so a send racing Close cannot
// panic.
func (s *relaySession) enqueue(frame wire.ClientFrame) error {
	select {
	case <-s.stop:
		return errors.New("relay session is already closed")
	default:
	}

	select {
	case s.frames <- frame:
		return nil
	case <-s.stop:
		return errors.New("relay session is already closed")
	case <-s.done:
		return errors.New("relay session closed")
	}
}

func (s *relaySession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stop:
			closeFrame, _ := json.Marshal(wire.ClientFrame{Type: wire.ClientClose})
			_ = s.conn.WriteMessage(websocket.TextMessage, closeFrame)
			return
		case frame := <-s.frames:
			payload, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func (s *relaySession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if isExpectedClose(err) {
				s.emit(domain.StreamEvent{Kind: domain.StreamEventClosed})
			} else {
				s.emit(domain.StreamEvent{Kind: domain.StreamEventError, Err: fmt.Errorf("relay read failed: %w", err)})
			}
			return
		}

		var frame wire.ServerFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case wire.ServerSessionOpen:
			s.emit(domain.StreamEvent{Kind: domain.StreamEventOpened})
		case wire.ServerAudio:
			audio, err := base64.StdEncoding.DecodeString(frame.Audio)
			if err != nil || len(audio) == 0 {
				continue
			}
			s.emit(domain.StreamEvent{Kind: domain.StreamEventAudioChunk, Audio: audio})
		case wire.ServerInputTranscript:
			s.emit(domain.StreamEvent{Kind: domain.StreamEventInputFragment, Text: frame.Text})
		case wire.ServerOutputTranscript:
			s.emit(domain.StreamEvent{Kind: domain.StreamEventOutputFragment, Text: frame.Text})
		case wire.ServerToolCall:
			batch := make([]domain.ToolSignal, 0, len(frame.Tools))
			for _, call := range frame.Tools {
				batch = append(batch, domain.ToolSignal{ID: call.ID, Name: call.Name, Args: call.Args})
			}
			if len(batch) > 0 {
				s.emit(domain.StreamEvent{Kind: domain.StreamEventToolCallBatch, Tools: batch})
			}
		case wire.ServerTurnComplete:
			s.emit(domain.StreamEvent{Kind: domain.StreamEventTurnComplete})
		case wire.ServerInterrupted:
			s.emit(domain.StreamEvent{Kind: domain.StreamEventInterrupted})
		case wire.ServerSessionTimeout, wire.ServerSessionClose:
			s.emit(domain.StreamEvent{Kind: domain.StreamEventClosed})
			return
		case wire.ServerError:
			message := strings.TrimSpace(frame.Message)
			if message == "" {
				message = "relay returned an unknown error"
			}
			s.emit(domain.StreamEvent{Kind: domain.StreamEventError, Err: errors.New(message)})
			return
		}
		// session_warning and unknown frames are protocol noise for the
		// app, which runs its own countdown.
	}
}

// emit never blocks past Close; once the consumer has gone away the
// remaining events are discarded.
func (s *relaySession) emit(event domain.StreamEvent) {
	select {
	case s.events <- event:
	case <-s.stop:
	}
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) || strings.Contains(err.Error(), "use of closed network connection")
}

func normalizeRelayURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "https://") {
		raw = "wss://" + strings.TrimPrefix(raw, "https://")
	} else if strings.HasPrefix(raw, "http://") {
		raw = "ws://" + strings.TrimPrefix(raw, "http://")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid relay URL: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("invalid relay URL scheme %q", parsed.Scheme)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/ws"
	}
	return parsed.String(), nil
}

var _ ports.AgentStreamProvider = (*Provider)(nil)
