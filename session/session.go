// Package session implements the per-participant lifecycle state machine:
// connect, await participant, seed the conversation context, then run the
// turn loop that alternates human speech and generated replies.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/voiceloop/convo"
	"github.com/BaSui01/voiceloop/endpoint"
	"github.com/BaSui01/voiceloop/llm"
	"github.com/BaSui01/voiceloop/seedstore"
	"github.com/BaSui01/voiceloop/speech"
	"github.com/BaSui01/voiceloop/transport"
	"github.com/BaSui01/voiceloop/types"
)

// Options configures one session. Immutable after creation.
type Options struct {
	MinEndpointingDelay time.Duration
	MaxEndpointingDelay time.Duration
	AllowInterruptions  bool
	ProactiveOpen       bool
	SeedRole            types.Role
	Greeting            string
	FallbackLine        string
	MaxProviderRetries  int
	SampleRate          int
}

// DefaultOptions returns the deployment defaults.
func DefaultOptions() Options {
	return Options{
		MinEndpointingDelay: 500 * time.Millisecond,
		MaxEndpointingDelay: 5 * time.Second,
		AllowInterruptions:  true,
		ProactiveOpen:       true,
		SeedRole:            types.RoleAssistant,
		Greeting:            "Hey, how can I help you today?",
		FallbackLine:        "Sorry, I ran into a problem. Could you say that again?",
		MaxProviderRetries:  3,
		SampleRate:          16000,
	}
}

// Providers bundles the capability providers one session talks to. The
// session depends only on the interfaces; concrete providers are chosen at
// construction time.
type Providers struct {
	STT speech.STTProvider
	LLM llm.Provider
	TTS speech.TTSProvider
	VAD speech.VADProvider
	NC  speech.NoiseCanceller
}

// Session owns one conversation with one connected participant. The
// conversation context is created at session start, mutated only by the
// session's own task, and discarded when the session ends.
type Session struct {
	id        string
	opts      Options
	providers Providers
	transport transport.Transport
	store     seedstore.Store
	builder   *convo.Builder
	detector  *endpoint.Detector
	logger    *zap.Logger

	mu           sync.Mutex
	state        State
	conversation *convo.Context
	participant  transport.Participant
	turn         int
	observers    []types.MetricsObserver
	pending      []string // final transcripts accumulated for the current turn
	seed         string
	activeSynth  *synthHandle

	sttStream speech.STTStream
	speakWG   sync.WaitGroup
	closeOnce sync.Once
}

// New creates a session in the Created state. store may be nil, in which
// case the session starts unseeded.
func New(opts Options, providers Providers, tr transport.Transport, store seedstore.Store, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()

	llmProvider := providers.LLM
	if llmProvider != nil {
		policy := llm.DefaultRetryPolicy()
		policy.MaxRetries = opts.MaxProviderRetries
		llmProvider = llm.NewResilient(llmProvider, policy, logger)
		providers.LLM = llmProvider
	}
	if providers.NC == nil {
		providers.NC = speech.PassthroughNC{}
	}

	return &Session{
		id:        id,
		opts:      opts,
		providers: providers,
		transport: tr,
		store:     store,
		builder:   convo.NewBuilder(opts.SeedRole),
		detector: endpoint.NewDetector(endpoint.Config{
			MinSilence: opts.MinEndpointingDelay,
			MaxSilence: opts.MaxEndpointingDelay,
		}, logger),
		logger: logger.With(
			zap.String("component", "session"),
			zap.String("session_id", id),
		),
		state: StateCreated,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Subscribe registers a metrics observer. Observers must not block; a
// panicking observer is recovered and logged, never aborting the turn loop.
func (s *Session) Subscribe(obs types.MetricsObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Conversation returns a snapshot of the conversation history.
func (s *Session) Conversation() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversation == nil {
		return nil
	}
	return s.conversation.Messages()
}

// Participant returns the connected participant identity.
func (s *Session) Participant() transport.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

// =============================================================================
// Lifecycle
// =============================================================================

// Run drives the session from Created to Closed. It returns when the
// participant disconnects, an unrecoverable error occurs, or ctx ends.
// Turn-level provider failures never terminate the session; only transport
// loss or cancellation does.
func (s *Session) Run(ctx context.Context) error {
	defer s.Close()

	if err := s.connect(ctx); err != nil {
		return err
	}
	if err := s.awaitParticipant(ctx); err != nil {
		return err
	}
	if err := s.seedContext(ctx); err != nil {
		return err
	}

	if err := s.transition(StateActive); err != nil {
		return err
	}

	stream, err := s.providers.STT.StartStream(ctx, s.opts.SampleRate)
	if err != nil {
		return types.NewError(types.ErrProviderFatal, "failed to start transcription").
			WithProvider(s.providers.STT.Name()).WithCause(err)
	}
	s.mu.Lock()
	s.sttStream = stream
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.audioLoop(gctx) })
	g.Go(func() error { s.transcriptLoop(gctx); return nil })
	g.Go(func() error { s.interruptLoop(gctx); return nil })
	g.Go(func() error { return s.turnLoop(gctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	_ = s.transition(StateTerminating)
	return err
}

func (s *Session) connect(ctx context.Context) error {
	if err := s.transition(StateConnecting); err != nil {
		return err
	}
	if err := s.transport.Connect(ctx, transport.SubscribeAudioOnly); err != nil {
		s.logger.Error("transport connection failed", zap.Error(err))
		_ = s.transition(StateTerminating)
		return err
	}
	return s.transition(StateAwaitingParticipant)
}

func (s *Session) awaitParticipant(ctx context.Context) error {
	p, err := s.transport.AwaitParticipant(ctx)
	if err != nil {
		_ = s.transition(StateTerminating)
		return err
	}
	s.mu.Lock()
	s.participant = p
	s.mu.Unlock()
	s.logger.Info("starting voice assistant for participant",
		zap.String("identity", p.Identity))
	return nil
}

// seedContext consults the shared context store exactly once per session.
// Later administrative writes affect only the next session, never this one.
func (s *Session) seedContext(ctx context.Context) error {
	var seed string
	if s.store != nil {
		payload, ok, err := s.store.ReadAndConsume(ctx)
		switch {
		case err != nil:
			// An unreadable seed source is never fatal.
			s.logger.Warn("seed store unavailable, starting unseeded", zap.Error(err))
		case ok:
			seed = payload
			s.logger.Info("using injected context", zap.Int("payload_len", len(seed)))
		default:
			s.logger.Info("no injected context, starting unseeded")
		}
	}

	s.mu.Lock()
	s.conversation = s.builder.Build(seed)
	s.seed = seed
	s.mu.Unlock()

	return s.transition(StateContextSeeded)
}

// Close releases all per-session resources. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancelSynthesis()
		s.mu.Lock()
		stream := s.sttStream
		s.mu.Unlock()
		if stream != nil {
			_ = stream.Close()
		}
		_ = s.transport.Close()
		s.speakWG.Wait()

		s.mu.Lock()
		if s.state != StateClosed {
			s.state = StateTerminating
		}
		s.mu.Unlock()
		_ = s.transition(StateClosed)
		s.logger.Info("session closed", zap.Int("turns", s.turnCount()))
	})
}

func (s *Session) turnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}
