package audio

import (
	"math"
	"sync"
	"time"
)

// VolumeSink receives the periodic mic level.
type VolumeSink interface {
	VolumeLevel(level float64)
}

// Meter accumulates mic samples and emits a volume level on a fixed
// cadence, independent of the capture chunk rate. Emission stops with a
// final zero level when the meter is stopped.
type Meter struct {
	events   VolumeSink
	interval time.Duration

	mu         sync.Mutex
	sumSquares float64
	count      int

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMeter(events VolumeSink, interval time.Duration) *Meter {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	m := &Meter{events: events, interval: interval, stop: make(chan struct{})}
	go m.run()
	return m
}

// Observe feeds captured samples into the current window.
func (m *Meter) Observe(samples []float32) {
	m.mu.Lock()
	for _, sample := range samples {
		m.sumSquares += float64(sample) * float64(sample)
	}
	m.count += len(samples)
	m.mu.Unlock()
}

// Level computes and clears the current window. Exposed for tests.
func (m *Meter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == 0 {
		return 0
	}
	rms := math.Sqrt(m.sumSquares / float64(m.count))
	m.sumSquares = 0
	m.count = 0

	// Speech RMS rarely exceeds 0.25, so scale up before clamping to
	// keep the UI bar lively.
	level := rms * 4
	if level > 1 {
		level = 1
	}
	return level
}

func (m *Meter) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		if m.events != nil {
			m.events.VolumeLevel(0)
		}
	})
}

func (m *Meter) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if m.events != nil {
				m.events.VolumeLevel(m.Level())
			}
		}
	}
}
