// Package endpoint implements the turn-taking policy: deciding, from the
// continuous voice-activity signal, the instant the human's utterance is
// complete and control may pass to the agent.
package endpoint

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/speech"
)

// Config tunes the endpointing policy. Longer delays reduce false
// interruptions at the cost of perceived latency.
type Config struct {
	// MinSilence is how long activity must stay inactive after an
	// utterance before end-of-turn is declared.
	MinSilence time.Duration `yaml:"min_silence" json:"min_silence"`

	// MaxSilence bounds worst-case latency: counting from the last solid
	// speech, end-of-turn is forced at this point even amid ambiguous
	// signal that keeps resetting the min-silence window.
	MaxSilence time.Duration `yaml:"max_silence" json:"max_silence"`

	// SpeechThreshold is the probability at or above which an active
	// frame counts as solid speech. Lower-probability active frames are
	// ambiguous: they re-arm the min-silence window but do not move the
	// forced bound. Typical: 0.5.
	SpeechThreshold float64 `yaml:"speech_threshold" json:"speech_threshold"`
}

// DefaultConfig returns the deployment defaults.
func DefaultConfig() Config {
	return Config{
		MinSilence:      500 * time.Millisecond,
		MaxSilence:      5 * time.Second,
		SpeechThreshold: 0.5,
	}
}

// Decision is one end-of-turn event.
type Decision struct {
	At      time.Time     `json:"at"`
	Forced  bool          `json:"forced"`
	Silence time.Duration `json:"silence"`
}

// Detector consumes the frame-level activity signal and emits exactly one
// end-of-turn decision per human utterance. It is purely observation-driven:
// decisions are made against the timestamps of observed activity, never
// against the wall clock, so the policy is deterministic for a given trace.
//
// Observe must be called from a single goroutine (the audio loop); the
// event channels may be consumed elsewhere.
type Detector struct {
	cfg    Config
	logger *zap.Logger

	mu          sync.Mutex
	inUtterance bool      // solid speech seen and end-of-turn not yet emitted
	lastSolid   time.Time // last solid-speech observation
	minWindow   time.Time // start of the current min-silence window

	endOfTurn     chan Decision
	speechStarted chan time.Time
}

// NewDetector creates a detector with the given policy.
func NewDetector(cfg Config, logger *zap.Logger) *Detector {
	if cfg.MinSilence <= 0 {
		cfg.MinSilence = DefaultConfig().MinSilence
	}
	if cfg.MaxSilence < cfg.MinSilence {
		cfg.MaxSilence = cfg.MinSilence
	}
	if cfg.SpeechThreshold <= 0 {
		cfg.SpeechThreshold = DefaultConfig().SpeechThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		cfg:           cfg,
		logger:        logger.With(zap.String("component", "endpoint")),
		endOfTurn:     make(chan Decision, 8),
		speechStarted: make(chan time.Time, 8),
	}
}

// EndOfTurn returns the channel of end-of-turn decisions.
func (d *Detector) EndOfTurn() <-chan Decision {
	return d.endOfTurn
}

// SpeechStarted returns the channel of utterance-onset events. The session
// uses it to cancel in-flight synthesis when interruptions are allowed.
func (d *Detector) SpeechStarted() <-chan time.Time {
	return d.speechStarted
}

// Observe feeds one activity observation into the policy.
func (d *Detector) Observe(a speech.Activity) {
	d.mu.Lock()
	defer d.mu.Unlock()

	solid := a.Speech && a.Probability >= d.cfg.SpeechThreshold

	if solid {
		if !d.inUtterance {
			d.inUtterance = true
			d.notifySpeechStarted(a.At)
		}
		d.lastSolid = a.At
		d.minWindow = time.Time{}
		return
	}

	if !d.inUtterance {
		// Idle silence before any utterance: nothing to end.
		return
	}

	if a.Speech {
		// Ambiguous blip: re-arm the min-silence window, keep the
		// forced bound anchored at the last solid speech.
		d.minWindow = a.At
	} else if d.minWindow.IsZero() {
		// Clean active→inactive transition: silence window opens.
		d.minWindow = a.At
	}

	sinceSolid := a.At.Sub(d.lastSolid)
	if sinceSolid >= d.cfg.MaxSilence {
		d.emit(Decision{At: a.At, Forced: true, Silence: sinceSolid})
		return
	}

	// The min-silence path only completes on genuinely inactive signal.
	if !a.Speech && a.At.Sub(d.minWindow) >= d.cfg.MinSilence {
		d.emit(Decision{At: a.At, Silence: a.At.Sub(d.minWindow)})
	}
}

// Reset clears all utterance state, e.g. when the audio stream restarts.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inUtterance = false
	d.lastSolid = time.Time{}
	d.minWindow = time.Time{}
}

// emit delivers a decision and disarms the detector until the next solid
// speech onset, guaranteeing one decision per utterance. Callers hold mu.
func (d *Detector) emit(dec Decision) {
	d.inUtterance = false
	d.minWindow = time.Time{}

	select {
	case d.endOfTurn <- dec:
	default:
		d.logger.Warn("end-of-turn decision dropped, consumer lagging",
			zap.Bool("forced", dec.Forced))
	}
	d.logger.Debug("end of turn",
		zap.Bool("forced", dec.Forced),
		zap.Duration("silence", dec.Silence),
	)
}

func (d *Detector) notifySpeechStarted(at time.Time) {
	select {
	case d.speechStarted <- at:
	default:
	}
}
