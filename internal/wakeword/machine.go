package wakeword

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// State of the arming machine. The process always starts Armed; nothing is
// persisted across restarts.
type State int

const (
	StateArmed State = iota
	StateCapturing
	StateCoolingDown
	StateRearming
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateCapturing:
		return "capturing"
	case StateCoolingDown:
		return "cooling_down"
	case StateRearming:
		return "rearming"
	default:
		return "unknown"
	}
}

// Cues is the audible feedback played around a capture window.
type Cues interface {
	CaptureReady(ctx context.Context) error
	CaptureEnded(ctx context.Context) error
}

// Sink receives a finished clip. It must not block the audio thread for
// long; release is called when the utterance has been fully handled, which
// is what allows the machine to arm again.
type Sink func(clip []int16, release func())

// Config carries the machine's tuning. RearmThreshold sits strictly below
// TriggerThreshold so the user's own speech tail cannot retrigger capture.
type Config struct {
	Word             string
	TriggerThreshold float32
	RearmThreshold   float32
	RearmFrames      int
	SampleRate       int
	FrameSize        int
	RecordSeconds    float64
	CooldownSeconds  float64
	PreRollPause     time.Duration
}

// Machine consumes ~80 ms frames and walks Armed → Capturing →
// CoolingDown → Rearming → Armed. All fields except the in-flight flag are
// touched only by the single audio thread.
type Machine struct {
	cfg    Config
	det    Detector
	cues   Cues
	sink   Sink
	logger *slog.Logger
	sleep  func(time.Duration)

	state          State
	clip           []int16
	cooldownFrames int
	silenceRun     int
	inFlight       atomic.Bool
}

func NewMachine(cfg Config, det Detector, cues Cues, sink Sink, logger *slog.Logger) *Machine {
	return &Machine{
		cfg:    cfg,
		det:    det,
		cues:   cues,
		sink:   sink,
		logger: logger,
		sleep:  time.Sleep,
		state:  StateArmed,
	}
}

// State reports the current state; exposed for tests and logging.
func (m *Machine) State() State { return m.state }

// Step feeds one frame through the machine.
func (m *Machine) Step(ctx context.Context, frame []int16) {
	switch m.state {
	case StateArmed:
		m.stepArmed(ctx, frame)
	case StateCapturing:
		m.stepCapturing(ctx, frame)
	case StateCoolingDown:
		m.stepCoolingDown()
	case StateRearming:
		m.stepRearming(frame)
	}
}

func (m *Machine) stepArmed(ctx context.Context, frame []int16) {
	score, ok := m.score(frame)
	if !ok {
		return
	}
	if score < m.cfg.TriggerThreshold || m.inFlight.Load() {
		return
	}

	m.logger.Info("wake word detected", "word", m.cfg.Word, "score", score)
	m.inFlight.Store(true)

	if err := m.cues.CaptureReady(ctx); err != nil {
		m.logger.Warn("capture-ready cue failed", "error", err)
	}
	// Tiny pause so the cue does not clip the user's first syllable.
	m.sleep(m.cfg.PreRollPause)

	m.clip = make([]int16, 0, m.recordSamples())
	m.state = StateCapturing
}

func (m *Machine) stepCapturing(ctx context.Context, frame []int16) {
	m.clip = append(m.clip, frame...)
	if len(m.clip) < m.recordSamples() {
		return
	}

	if err := m.cues.CaptureEnded(ctx); err != nil {
		m.logger.Warn("capture-ended cue failed", "error", err)
	}

	clip := m.clip
	m.clip = nil
	// Transcription and resolution happen off the audio thread; the frame
	// loop keeps running while detection stays suspended until release.
	m.sink(clip, func() { m.inFlight.Store(false) })

	m.cooldownFrames = 0
	m.state = StateCoolingDown
	m.logger.Debug("capture complete", "samples", len(clip))
}

func (m *Machine) stepCoolingDown() {
	m.cooldownFrames++
	if m.cooldownFrames >= m.framesFor(m.cfg.CooldownSeconds) {
		m.silenceRun = 0
		m.state = StateRearming
	}
}

func (m *Machine) stepRearming(frame []int16) {
	score, ok := m.score(frame)
	if !ok {
		return
	}
	if score < m.cfg.RearmThreshold {
		m.silenceRun++
	} else {
		m.silenceRun = 0
	}
	if m.silenceRun >= m.cfg.RearmFrames && !m.inFlight.Load() {
		m.state = StateArmed
		m.logger.Debug("re-armed")
	}
}

func (m *Machine) score(frame []int16) (float32, bool) {
	scores, err := m.det.Score(frame)
	if err != nil {
		m.logger.Error("wake word scoring failed", "error", err)
		return 0, false
	}
	return scores[m.cfg.Word], true
}

func (m *Machine) recordSamples() int {
	return int(m.cfg.RecordSeconds * float64(m.cfg.SampleRate))
}

func (m *Machine) framesFor(seconds float64) int {
	frames := int(seconds * float64(m.cfg.SampleRate) / float64(m.cfg.FrameSize))
	if frames < 1 {
		frames = 1
	}
	return frames
}
