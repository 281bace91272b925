package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/voiceloop/llm"
	"github.com/BaSui01/voiceloop/types"
)

// =============================================================================
// Audio pipeline
// =============================================================================

// audioLoop pumps inbound frames through noise cancellation, voice activity
// detection, and the transcription stream. It returns an error when the
// transport's audio channel closes, which terminates the session.
func (s *Session) audioLoop(ctx context.Context) error {
	vadStream := s.providers.VAD.NewStream(s.opts.SampleRate)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame, ok := <-s.transport.AudioIn():
			if !ok {
				s.logger.Info("audio stream ended, participant disconnected")
				return types.NewError(types.ErrTransportConnection, "audio stream closed")
			}
			frame = s.providers.NC.Process(frame)
			s.detector.Observe(vadStream.Process(frame))
			if err := s.sttStream.Push(frame); err != nil {
				s.logger.Warn("transcription push failed", zap.Error(err))
			}
		}
	}
}

// transcriptLoop accumulates final transcripts; the turn loop takes the
// accumulated text when the endpointing policy declares end-of-turn.
func (s *Session) transcriptLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case tr, ok := <-s.sttStream.Results():
			if !ok {
				return
			}
			if tr.Final && tr.Text != "" {
				s.mu.Lock()
				s.pending = append(s.pending, tr.Text)
				s.mu.Unlock()
				s.logger.Debug("transcript received",
					zap.String("text", tr.Text),
					zap.Float64("confidence", tr.Confidence),
				)
			}
		}
	}
}

// takeTranscript returns the accumulated user utterance and clears it.
func (s *Session) takeTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := strings.TrimSpace(strings.Join(s.pending, " "))
	s.pending = nil
	return text
}

// interruptLoop cancels in-flight synthesis when the human starts speaking
// and interruptions are allowed for this session.
func (s *Session) interruptLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.detector.SpeechStarted():
			if !s.opts.AllowInterruptions {
				continue
			}
			if s.cancelSynthesis() {
				s.logger.Info("speech interrupted by participant")
				s.emit(types.MetricsEvent{Kind: types.MetricsInterruption})
			}
		}
	}
}

// =============================================================================
// Turn loop
// =============================================================================

func (s *Session) turnLoop(ctx context.Context) error {
	if s.opts.ProactiveOpen {
		s.openingReply(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case dec := <-s.detector.EndOfTurn():
			s.runTurn(ctx, dec.Forced)
		}
	}
}

// openingReply lets the agent speak first. The injected seed doubles as the
// opening instruction when present, otherwise the configured greeting is
// used.
func (s *Session) openingReply(ctx context.Context) {
	s.mu.Lock()
	instruction := s.seed
	s.mu.Unlock()
	if instruction == "" {
		instruction = s.opts.Greeting
	}

	resp, err := s.generate(ctx, llm.GenerateRequest{
		Messages:    s.Conversation(),
		Instruction: instruction,
	})
	if err != nil {
		s.logger.Warn("opening reply failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.conversation.AppendAssistant(resp.Text)
	s.mu.Unlock()
	s.speak(ctx, resp.Text)
}

// runTurn executes one human turn end to end. Failures are isolated to the
// turn: the session informs the participant and keeps listening.
func (s *Session) runTurn(ctx context.Context, forced bool) {
	transcript := s.takeTranscript()
	if transcript == "" {
		s.logger.Debug("end of turn with empty transcript, skipping",
			zap.Bool("forced", forced))
		return
	}

	s.mu.Lock()
	s.turn++
	turn := s.turn
	s.conversation.AppendUser(transcript)
	history := s.conversation.Messages()
	s.mu.Unlock()

	s.logger.Info("turn started",
		zap.Int("turn", turn),
		zap.Bool("forced_endpoint", forced),
		zap.Int("transcript_len", len(transcript)),
	)

	resp, err := s.generate(ctx, llm.GenerateRequest{Messages: history})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("turn failed", zap.Int("turn", turn), zap.Error(err))
		s.emit(types.MetricsEvent{Kind: types.MetricsTurnFailure, Err: err.Error()})
		// Tell the human instead of hanging silently, then keep listening.
		s.speak(ctx, s.opts.FallbackLine)
		return
	}

	s.mu.Lock()
	s.conversation.AppendAssistant(resp.Text)
	s.mu.Unlock()

	s.speak(ctx, resp.Text)
}

// generate invokes the language model with latency and usage accounting.
func (s *Session) generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	start := time.Now()
	resp, err := s.providers.LLM.Generate(ctx, req)
	elapsed := time.Since(start)

	ev := types.MetricsEvent{
		Kind:      types.MetricsLatency,
		Provider:  "llm",
		Operation: "generate",
		Duration:  elapsed,
	}
	if err != nil {
		ev.Err = err.Error()
		s.emit(ev)
		return nil, err
	}
	s.emit(ev)

	var prompt strings.Builder
	for _, m := range req.Messages {
		prompt.WriteString(m.Content)
		prompt.WriteByte('\n')
	}
	s.emit(types.MetricsEvent{
		Kind:             types.MetricsUsage,
		Provider:         "llm",
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		PromptText:       prompt.String(),
		CompletionText:   resp.Text,
	})
	return resp, nil
}

// =============================================================================
// Speech synthesis
// =============================================================================

// synthHandle identifies one in-flight synthesis so a finished synthesis
// only clears its own registration.
type synthHandle struct {
	cancel context.CancelFunc
}

// speak synthesizes and plays a reply without blocking the turn loop, so new
// voice activity keeps flowing while the agent talks and an interruption can
// cancel playback mid-stream.
func (s *Session) speak(ctx context.Context, text string) {
	if text == "" {
		return
	}

	synthCtx, cancel := context.WithCancel(ctx)
	h := &synthHandle{cancel: cancel}
	s.mu.Lock()
	if prev := s.activeSynth; prev != nil {
		prev.cancel()
	}
	s.activeSynth = h
	s.mu.Unlock()

	s.speakWG.Add(1)
	go func() {
		defer s.speakWG.Done()
		defer s.clearSynthesis(h)

		start := time.Now()
		chunks, err := s.providers.TTS.Synthesize(synthCtx, text)
		if err != nil {
			s.logger.Error("synthesis failed", zap.Error(err))
			s.emit(types.MetricsEvent{
				Kind: types.MetricsLatency, Provider: "tts",
				Operation: "synthesize", Duration: time.Since(start), Err: err.Error(),
			})
			return
		}

		err = s.transport.PlayAudio(synthCtx, chunks)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("audio playback failed", zap.Error(err))
		}
		s.emit(types.MetricsEvent{
			Kind: types.MetricsLatency, Provider: "tts",
			Operation: "synthesize", Duration: time.Since(start),
		})
	}()
}

// cancelSynthesis aborts in-flight synthesis, reporting whether there was
// one to cancel.
func (s *Session) cancelSynthesis() bool {
	s.mu.Lock()
	h := s.activeSynth
	s.activeSynth = nil
	s.mu.Unlock()
	if h == nil {
		return false
	}
	h.cancel()
	return true
}

// clearSynthesis drops a finished synthesis, leaving a newer one in place.
func (s *Session) clearSynthesis(h *synthHandle) {
	h.cancel()
	s.mu.Lock()
	if s.activeSynth == h {
		s.activeSynth = nil
	}
	s.mu.Unlock()
}

// =============================================================================
// Metrics fan-out
// =============================================================================

// emit delivers an event to every observer. Observer failures are isolated:
// a panic is recovered and logged, and the turn loop is never blocked on a
// collector.
func (s *Session) emit(ev types.MetricsEvent) {
	ev.SessionID = s.id
	ev.Timestamp = time.Now()
	s.mu.Lock()
	ev.Turn = s.turn
	observers := make([]types.MetricsObserver, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, obs := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("metrics observer panicked", zap.Any("panic", r))
				}
			}()
			obs.OnEvent(ev)
		}()
	}
}
