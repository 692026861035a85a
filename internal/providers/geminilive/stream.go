package geminilive

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"pitchdojo/internal/domain"
	"pitchdojo/internal/ports"
)

// liveStream adapts one SDK live session to the agent stream port. The
// read loop is the sole sender on the events channel, so channel order is
// exactly SDK delivery order.
type liveStream struct {
	session   *genai.Session
	events    chan domain.StreamEvent
	stop      chan struct{}
	inputRate int
	logger    *slog.Logger

	sendMu    sync.Mutex
	closeOnce sync.Once
	closed    bool
}

func (s *liveStream) SendAudio(pcm []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return errors.New("live session closed")
	}
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			Data:     pcm,
			MIMEType: fmt.Sprintf("audio/pcm;rate=%d", s.inputRate),
		},
	})
}

func (s *liveStream) SendToolResponse(id string, name string, result map[string]any) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return errors.New("live session closed")
	}
	return s.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: []*genai.FunctionResponse{{
			ID:       id,
			Name:     name,
			Response: result,
		}},
	})
}

func (s *liveStream) Events() <-chan domain.StreamEvent {
	return s.events
}

func (s *liveStream) Close() error {
	s.closeOnce.Do(func() {
		s.sendMu.Lock()
		s.closed = true
		s.sendMu.Unlock()
		close(s.stop)
		_ = s.session.Close()
	})
	return nil
}

func (s *liveStream) readLoop() {
	defer close(s.events)

	// The SDK resolves the connection before the first Receive, so the
	// session is usable as soon as Connect returns.
	s.emit(domain.StreamEvent{Kind: domain.StreamEventOpened})

	for {
		message, err := s.session.Receive()
		if err != nil {
			if isClosedError(err) {
				s.emit(domain.StreamEvent{Kind: domain.StreamEventClosed})
			} else {
				s.logger.Warn("live session receive failed", "error", err)
				s.emit(domain.StreamEvent{Kind: domain.StreamEventError, Err: err})
			}
			return
		}
		s.dispatch(message)
	}
}

// emit never blocks past Close; once the consumer has gone away the
// remaining events are discarded.
func (s *liveStream) emit(event domain.StreamEvent) {
	select {
	case s.events <- event:
	case <-s.stop:
	}
}

// dispatch fans one server message out into domain events. A single
// message may carry several kinds of payload; emission order within the
// message follows the order the UI needs them (audio, transcripts, then
// turn boundaries).
func (s *liveStream) dispatch(message *genai.LiveServerMessage) {
	if message == nil {
		return
	}

	if tc := message.ToolCall; tc != nil && len(tc.FunctionCalls) > 0 {
		batch := make([]domain.ToolSignal, 0, len(tc.FunctionCalls))
		for _, call := range tc.FunctionCalls {
			batch = append(batch, domain.ToolSignal{ID: call.ID, Name: call.Name, Args: call.Args})
		}
		s.emit(domain.StreamEvent{Kind: domain.StreamEventToolCallBatch, Tools: batch})
	}

	content := message.ServerContent
	if content == nil {
		return
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				s.emit(domain.StreamEvent{Kind: domain.StreamEventAudioChunk, Audio: part.InlineData.Data})
			}
		}
	}
	if content.InputTranscription != nil && content.InputTranscription.Text != "" {
		s.emit(domain.StreamEvent{Kind: domain.StreamEventInputFragment, Text: content.InputTranscription.Text})
	}
	if content.OutputTranscription != nil && content.OutputTranscription.Text != "" {
		s.emit(domain.StreamEvent{Kind: domain.StreamEventOutputFragment, Text: content.OutputTranscription.Text})
	}
	if content.Interrupted {
		s.emit(domain.StreamEvent{Kind: domain.StreamEventInterrupted})
	}
	if content.TurnComplete {
		s.emit(domain.StreamEvent{Kind: domain.StreamEventTurnComplete})
	}
}

func isClosedError(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "1000")
}

var _ ports.AgentStream = (*liveStream)(nil)
