// Package session manages the lifecycle of one subscription to the social
// network: a push stream (term track, user stream) or a timer-driven reply
// poll. A session delivers raw events to its handler in network order and
// surfaces transport faults to its owner; reconnection policy lives with the
// owner, not here.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"streambridge/internal/constants"
	"streambridge/internal/logger"
	"streambridge/internal/social"
	"streambridge/pkg/metrics"
)

type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateStopping
	StateStopped
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

type Kind string

const (
	KindTrackTerms Kind = "track_terms"
	KindUserStream Kind = "user_stream"
	KindReplyPoll  Kind = "reply_poll"
)

// Spec configures one session. Immutable; changing terms means stopping the
// session and creating a new one.
type Spec struct {
	Kind         Kind
	Terms        []string
	PollInterval time.Duration
}

// Handler receives every delivered event, synchronously and in delivery
// order for this session. It must not panic; per-event failures are the
// handler's own business.
type Handler func(ctx context.Context, ev social.RawEvent)

// StreamSession is the state machine for one subscription:
// idle -> connecting -> active -> stopping -> stopped, with faulted reachable
// from connecting or active on transport failure. Faulted is terminal.
type StreamSession struct {
	spec    Spec
	client  social.Client
	handler Handler
	logger  logger.Logger

	state    atomic.Int32
	stopping atomic.Bool
	faults   chan error

	mu     sync.Mutex
	cancel context.CancelFunc
	stream social.Stream
	done   chan struct{}
}

func New(spec Spec, client social.Client, handler Handler, log logger.Logger) *StreamSession {
	return &StreamSession{
		spec:    spec,
		client:  client,
		handler: handler,
		logger:  log,
		faults:  make(chan error, 1),
	}
}

func NewTrackSession(client social.Client, terms []string, handler Handler, log logger.Logger) *StreamSession {
	return New(Spec{Kind: KindTrackTerms, Terms: terms}, client, handler, log)
}

func NewUserStreamSession(client social.Client, handler Handler, log logger.Logger) *StreamSession {
	return New(Spec{Kind: KindUserStream}, client, handler, log)
}

func NewReplyPollSession(client social.Client, interval time.Duration, handler Handler, log logger.Logger) *StreamSession {
	return New(Spec{Kind: KindReplyPoll, PollInterval: interval}, client, handler, log)
}

func (s *StreamSession) Kind() Kind {
	return s.spec.Kind
}

func (s *StreamSession) State() State {
	return State(s.state.Load())
}

// Faults delivers at most one transport fault for the session's lifetime.
func (s *StreamSession) Faults() <-chan error {
	return s.faults
}

// Start connects the subscription and begins delivering events. A session
// starts once; restart means a fresh session.
func (s *StreamSession) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateConnecting)) {
		return fmt.Errorf("session %s already started (state: %s)", s.spec.Kind, s.State())
	}

	sessCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	switch s.spec.Kind {
	case KindTrackTerms, KindUserStream:
		stream, err := s.open(sessCtx)
		if err != nil {
			if s.stopping.Load() || sessCtx.Err() != nil {
				s.state.Store(int32(StateStopped))
				close(s.done)
				return sessCtx.Err()
			}
			s.fault(fmt.Errorf("connect failed: %w", err))
			close(s.done)
			return err
		}
		s.mu.Lock()
		s.stream = stream
		s.mu.Unlock()
		s.state.Store(int32(StateActive))
		s.logger.Infow("Stream session active", "kind", s.spec.Kind)
		go s.readLoop(sessCtx)
	case KindReplyPoll:
		if s.spec.PollInterval <= 0 {
			s.state.Store(int32(StateFaulted))
			close(s.done)
			return fmt.Errorf("reply poll session needs a positive interval")
		}
		s.state.Store(int32(StateActive))
		s.logger.Infow("Reply poll session active", "interval", s.spec.PollInterval)
		go s.pollLoop(sessCtx)
	default:
		s.state.Store(int32(StateFaulted))
		close(s.done)
		return fmt.Errorf("unknown session kind: %s", s.spec.Kind)
	}

	return nil
}

// Stop tears the session down and releases the network resource. Idempotent;
// stopping an already-stopped session is a no-op. Never blocks longer than
// the session stop timeout.
func (s *StreamSession) Stop() error {
	if s.stopping.Swap(true) {
		return nil
	}

	switch s.State() {
	case StateIdle:
		s.state.Store(int32(StateStopped))
		return nil
	case StateStopped, StateFaulted:
		return nil
	}

	s.state.Store(int32(StateStopping))

	s.mu.Lock()
	cancel := s.cancel
	stream := s.stream
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			s.logger.Warnw("Stream close error", "kind", s.spec.Kind, "error", err)
		}
	}

	if done != nil {
		select {
		case <-done:
		case <-time.After(constants.SessionStopTimeout):
			s.logger.Warnw("Timed out waiting for session loop to exit", "kind", s.spec.Kind)
		}
	}

	s.state.Store(int32(StateStopped))
	s.logger.Infow("Stream session stopped", "kind", s.spec.Kind)
	return nil
}

func (s *StreamSession) open(ctx context.Context) (social.Stream, error) {
	if s.spec.Kind == KindUserStream {
		return s.client.OpenUserStream(ctx)
	}
	return s.client.OpenFilterStream(ctx, s.spec.Terms)
}

func (s *StreamSession) readLoop(ctx context.Context) {
	defer close(s.done)

	for {
		ev, err := s.stream.Recv(ctx)
		if err != nil {
			if s.stopping.Load() || ctx.Err() != nil {
				return
			}
			s.fault(fmt.Errorf("stream read failed: %w", err))
			return
		}
		metrics.SessionEventsTotal.WithLabelValues(string(s.spec.Kind)).Inc()
		s.handler(ctx, ev)
	}
}

func (s *StreamSession) pollLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.spec.PollInterval)
	defer ticker.Stop()

	// First fetch runs immediately; the interval spaces subsequent polls.
	for {
		if err := s.pollOnce(ctx); err != nil {
			if s.stopping.Load() || ctx.Err() != nil {
				return
			}
			s.fault(fmt.Errorf("reply poll failed: %w", err))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *StreamSession) pollOnce(ctx context.Context) error {
	start := time.Now()
	events, err := s.client.FetchReplies(ctx)
	metrics.ObserveReplyPollDuration(time.Since(start))
	if err != nil {
		return err
	}

	// Oldest first, so the watermark advances through the batch in order.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].PublishedAt < events[j].PublishedAt
	})

	for _, ev := range events {
		if ctx.Err() != nil {
			return nil
		}
		metrics.SessionEventsTotal.WithLabelValues(string(s.spec.Kind)).Inc()
		s.handler(ctx, ev)
	}
	return nil
}

func (s *StreamSession) fault(err error) {
	s.state.Store(int32(StateFaulted))

	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()
	if stream != nil {
		_ = stream.Close()
	}

	s.logger.Errorw("Stream session faulted", "kind", s.spec.Kind, "error", err)
	select {
	case s.faults <- err:
	default:
	}
}
