package audio

import (
	"errors"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// ErrPlayerClosed is returned by Play after Close.
var ErrPlayerClosed = errors.New("audio player closed")

// ErrPlaybackBacklog is returned by Play when the cursor has run too far
// past real time; a stalled sink stops consuming while chunks keep
// arriving, and the backlog cap keeps memory flat until a flush.
var ErrPlaybackBacklog = errors.New("playback backlog exceeded")

// maxScheduleLead bounds how far past real time the cursor may run.
const maxScheduleLead = 30 * time.Second

type playbackChunk struct {
	gen  uint64
	data []byte
}

// Player schedules agent audio chunks for gap-free, in-order playback
// against a write sink. A next-start cursor tracks where queued audio
// ends so chunks are appended back to back and scheduled lead stays
// bounded. Flush bumps the generation, which invalidates every chunk
// queued before the barge-in, and tears down the sink so buffered audio
// stops too.
type Player struct {
	newSink    func() (io.WriteCloser, error)
	sampleRate int
	queue      chan playbackChunk
	done       chan struct{}

	mu        sync.Mutex
	sink      io.WriteCloser
	gen       uint64
	nextStart time.Time
	closed    bool

	closeOnce sync.Once
}

// NewPlayer builds a player over an arbitrary sink factory. The sink is
// opened lazily on the first chunk and reopened after a flush.
func NewPlayer(newSink func() (io.WriteCloser, error), sampleRate int) *Player {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	p := &Player{
		newSink:    newSink,
		sampleRate: sampleRate,
		queue:      make(chan playbackChunk, 64),
		done:       make(chan struct{}),
	}
	go p.run()
	return p
}

// NewFFPlayPlayer plays 16-bit mono PCM through an ffplay subprocess.
func NewFFPlayPlayer(command string, sampleRate int) *Player {
	if command == "" {
		command = "ffplay"
	}
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	return NewPlayer(func() (io.WriteCloser, error) {
		return startFFPlaySink(command, sampleRate)
	}, sampleRate)
}

// Play queues one PCM chunk for playback at the current cursor position.
func (p *Player) Play(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPlayerClosed
	}
	gen := p.gen
	now := time.Now()
	if p.nextStart.Before(now) {
		p.nextStart = now
	}
	if p.nextStart.Sub(now) > maxScheduleLead {
		p.mu.Unlock()
		return ErrPlaybackBacklog
	}
	p.nextStart = p.nextStart.Add(pcmDuration(len(pcm), p.sampleRate))
	p.mu.Unlock()

	data := make([]byte, len(pcm))
	copy(data, pcm)

	select {
	case p.queue <- playbackChunk{gen: gen, data: data}:
		return nil
	default:
		return errors.New("playback queue full")
	}
}

// Flush discards everything queued but not yet played and resets the
// cursor. Chunks arriving after the flush play immediately.
func (p *Player) Flush() {
	p.mu.Lock()
	p.gen++
	p.nextStart = time.Time{}
	sink := p.sink
	p.sink = nil
	p.mu.Unlock()

	if sink != nil {
		_ = sink.Close()
	}
}

// Close is idempotent; chunks queued but unplayed are dropped.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.gen++
		sink := p.sink
		p.sink = nil
		p.mu.Unlock()

		close(p.done)
		if sink != nil {
			_ = sink.Close()
		}
	})
	return nil
}

func (p *Player) run() {
	for {
		select {
		case <-p.done:
			return
		case chunk := <-p.queue:
			p.deliver(chunk)
		}
	}
}

func (p *Player) deliver(chunk playbackChunk) {
	p.mu.Lock()
	if p.closed || chunk.gen != p.gen {
		p.mu.Unlock()
		return
	}
	sink := p.sink
	if sink == nil {
		opened, err := p.newSink()
		if err != nil {
			p.mu.Unlock()
			return
		}
		p.sink = opened
		sink = opened
	}
	p.mu.Unlock()

	if _, err := sink.Write(chunk.data); err != nil {
		p.mu.Lock()
		if p.sink == sink {
			p.sink = nil
		}
		p.mu.Unlock()
		_ = sink.Close()
	}
}

func pcmDuration(byteLen, sampleRate int) time.Duration {
	samples := byteLen / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

type ffplaySink struct {
	stdin io.WriteCloser
	cmd   *exec.Cmd
	once  sync.Once
}

func startFFPlaySink(command string, sampleRate int) (io.WriteCloser, error) {
	cmd := exec.Command(command,
		"-nodisp",
		"-loglevel", "quiet",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-i", "pipe:0",
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &ffplaySink{stdin: stdin, cmd: cmd}, nil
}

func (s *ffplaySink) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

func (s *ffplaySink) Close() error {
	s.once.Do(func() {
		_ = s.stdin.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait()
	})
	return nil
}
