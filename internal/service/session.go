package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cbotel "github.com/Strob0t/codebridge/internal/adapter/otel"
	"github.com/Strob0t/codebridge/internal/config"
	"github.com/Strob0t/codebridge/internal/domain/bridge"
	"github.com/Strob0t/codebridge/internal/logger"
	"github.com/Strob0t/codebridge/internal/port/cache"
	"github.com/Strob0t/codebridge/internal/port/messagequeue"
	"github.com/Strob0t/codebridge/internal/resilience"
)

// Transport is one editor connection carrying whole JSON text frames.
// Read returns io.EOF once the peer closed the connection normally.
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, frame []byte) error
}

// SessionService runs editor sessions: one engine, one buffer and one
// worker per connection.
type SessionService struct {
	session   config.Session
	breaker   config.Breaker
	timeout   time.Duration
	backend   string
	newEngine EngineFactory

	cache    cache.Cache
	cacheTTL time.Duration
	mirror   messagequeue.Publisher

	metrics *cbotel.Metrics
	log     *slog.Logger
	active  atomic.Int64
}

// NewSessionService creates a session service for the configured backend.
func NewSessionService(cfg *config.Config, newEngine EngineFactory, metrics *cbotel.Metrics, log *slog.Logger) *SessionService {
	return &SessionService{
		session:   cfg.Session,
		breaker:   cfg.Breaker,
		timeout:   cfg.Engine.RequestTimeout,
		backend:   cfg.Engine.Backend,
		newEngine: newEngine,
		metrics:   metrics,
		log:       log,
	}
}

// SetCache enables the diagnostics result cache.
func (s *SessionService) SetCache(c cache.Cache, ttl time.Duration) {
	s.cache = c
	s.cacheTTL = ttl
}

// SetMirror enables publishing diagnostics and session events to a bus.
func (s *SessionService) SetMirror(p messagequeue.Publisher) {
	s.mirror = p
}

// Backend returns the engine backend sessions are created with.
func (s *SessionService) Backend() string { return s.backend }

// Active returns the number of sessions currently being served.
func (s *SessionService) Active() int64 { return s.active.Load() }

// Serve runs a session over t until the peer disconnects, ctx is canceled
// or the transport fails. A normal close returns nil.
func (s *SessionService) Serve(ctx context.Context, t Transport, remote string) error {
	id := uuid.NewString()
	ctx = logger.WithSessionID(ctx, id)
	log := s.log.With("session_id", id)

	ctx, span := cbotel.StartSessionSpan(ctx, id, s.backend)

	engine, err := s.newEngine(ctx)
	if err != nil {
		err = fmt.Errorf("start engine: %w", err)
		cbotel.EndSpan(span, err)
		return err
	}

	s.active.Add(1)
	s.metrics.SessionOpened(ctx)
	s.event(ctx, id, messagequeue.SessionOpened, remote)
	log.Info("session opened", "remote", remote, "backend", engine.Name())

	breaker := resilience.NewBreaker(s.breaker.MaxFailures, s.breaker.Timeout)
	breaker.OnStateChange(func(from, to resilience.State) {
		log.Warn("engine breaker state changed", "from", from.String(), "to", to.String())
	})

	sess := &session{
		transport: t,
		inboxSize: s.session.InboxSize,
		debounce:  s.session.DiagnosticsDebounce,
		writeWait: s.session.WriteTimeout,
		metrics:   s.metrics,
		log:       log,
	}
	guarded := &guardedEngine{
		engine:  engine,
		breaker: breaker,
		timeout: s.timeout,
		metrics: s.metrics,
		log:     log,
	}
	buf := &bridge.Buffer{}
	publisher := &diagnosticsPublisher{
		sessionID: id,
		backend:   s.backend,
		engine:    guarded,
		buf:       buf,
		send:      sess.send,
		cache:     s.cache,
		cacheTTL:  s.cacheTTL,
		mirror:    s.mirror,
		metrics:   s.metrics,
		log:       log,
	}
	sess.publisher = publisher
	sess.dispatcher = &dispatcher{
		buf:       buf,
		engine:    guarded,
		publisher: publisher,
		send:      sess.send,
		metrics:   s.metrics,
		log:       log,
	}

	err = sess.run(ctx)

	// The session context may already be canceled; shutdown gets its own.
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	guarded.close(closeCtx)
	cancel()

	s.active.Add(-1)
	s.metrics.SessionClosed(ctx)
	s.event(context.WithoutCancel(ctx), id, messagequeue.SessionClosed, remote)
	if err != nil {
		log.Warn("session ended with error", "error", err)
	} else {
		log.Info("session closed")
	}
	cbotel.EndSpan(span, err)
	return err
}

func (s *SessionService) event(ctx context.Context, id, event, remote string) {
	if s.mirror == nil {
		return
	}
	data, err := json.Marshal(messagequeue.SessionEventPayload{
		SessionID: id,
		Event:     event,
		Backend:   s.backend,
		Remote:    remote,
	})
	if err != nil {
		return
	}
	if err := s.mirror.Publish(ctx, messagequeue.SubjectSessions, data); err != nil {
		s.log.Warn("session event publish failed", "session_id", id, "event", event, "error", err)
	}
}

// session is the per-connection actor: a reader feeding a bounded inbox
// and a worker that owns the buffer, the engine and the debounce timer.
type session struct {
	transport  Transport
	inboxSize  int
	debounce   time.Duration
	writeWait  time.Duration
	dispatcher *dispatcher
	publisher  *diagnosticsPublisher
	metrics    *cbotel.Metrics
	log        *slog.Logger
}

func (s *session) run(ctx context.Context) error {
	size := s.inboxSize
	if size <= 0 {
		size = 1
	}
	inbox := make(chan bridge.Request, size)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(inbox)
		return s.read(gctx, inbox)
	})
	g.Go(func() error {
		return s.work(gctx, inbox)
	})
	return g.Wait()
}

func (s *session) read(ctx context.Context, inbox chan<- bridge.Request) error {
	for {
		frame, err := s.transport.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		req := bridge.Decode(frame)
		kind := string(req.Kind())
		if _, ok := req.(bridge.Unknown); ok {
			kind = "unknown"
		}
		s.metrics.MessageReceived(ctx, kind)

		select {
		case inbox <- req:
		case <-ctx.Done():
			return nil
		}
	}
}

// work processes requests strictly in received order. It drains the inbox
// after the reader stops so the in-flight request always completes.
func (s *session) work(ctx context.Context, inbox <-chan bridge.Request) error {
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	if s.debounce > 0 {
		s.dispatcher.schedule = func() {
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			timerC = timer.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timerC:
			timerC = nil
			if err := s.publisher.publish(ctx); err != nil {
				return err
			}
		case req, ok := <-inbox:
			if !ok {
				return nil
			}
			if err := s.handle(ctx, req); err != nil {
				return err
			}
		}
	}
}

func (s *session) handle(ctx context.Context, req bridge.Request) error {
	ctx, span := cbotel.StartRequestSpan(ctx, string(req.Kind()), req.Correlation())
	err := s.dispatcher.dispatch(ctx, req)
	cbotel.EndSpan(span, err)
	return err
}

// send encodes r and writes it as one text frame.
func (s *session) send(ctx context.Context, r bridge.Response) error {
	frame, err := bridge.Encode(r)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.Kind, err)
	}
	if s.writeWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeWait)
		defer cancel()
	}
	if err := s.transport.Write(ctx, frame); err != nil {
		return fmt.Errorf("write %s: %w", r.Kind, err)
	}
	return nil
}
