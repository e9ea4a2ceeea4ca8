package settlement

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff"
	"github.com/gammazero/deque"
	"github.com/google/uuid"

	"github.com/peertrade/tradecore/pkg/engine/model"
	"github.com/peertrade/tradecore/pkg/logging"
)

// InitiateFunc is the transport hook carrying the escrow initiation to the
// counterparty. A nil hook accepts every request, which is what the tests
// and the single-node daemon use.
type InitiateFunc func(ctx context.Context, req Request) error

type InProcessConfig struct {
	// MaxRetries bounds the backoff retry of a failing initiation hook.
	MaxRetries uint64
}

// InProcess is a reference coordinator running the settlement handshake in
// the local process. Sessions live in memory; completion results queue up
// and are delivered in order through Run, so the payer side observes
// completions on one serialized path.
type InProcess struct {
	mu       sync.Mutex
	cfg      InProcessConfig
	log      *logging.Logger
	exec     Executor
	onResult func(Result)
	initiate InitiateFunc

	sessions map[uuid.UUID]*Session
	byCorr   map[string][]uuid.UUID

	results deque.Deque[Result]
	wake    chan struct{}
}

func NewInProcess(cfg InProcessConfig, initiate InitiateFunc, log *logging.Logger) *InProcess {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &InProcess{
		cfg:      cfg,
		log:      log,
		initiate: initiate,
		sessions: make(map[uuid.UUID]*Session),
		byCorr:   make(map[string][]uuid.UUID),
		wake:     make(chan struct{}, 1),
	}
}

// BindExecutor registers the engine receiving the payee-side callbacks.
// Binding happens after construction so the engine can hold the coordinator.
func (c *InProcess) BindExecutor(exec Executor) {
	c.exec = exec
}

// OnResult registers the payer-side completion handler. Must be set before
// Run starts draining.
func (c *InProcess) OnResult(fn func(Result)) {
	c.onResult = fn
}

// Initiate registers a session and pushes the escrow request through the
// transport hook, retrying transient failures with exponential backoff.
func (c *InProcess) Initiate(ctx context.Context, req Request) (*Session, error) {
	if c.initiate != nil {
		bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.MaxRetries)
		err := backoff.Retry(func() error {
			return c.initiate(ctx, req)
		}, backoff.WithContext(bo, ctx))
		if err != nil {
			return nil, err
		}
	}

	s := &Session{
		ID:      uuid.New(),
		Request: req,
		State:   StateInitiated,
	}

	c.mu.Lock()
	c.sessions[s.ID] = s
	c.byCorr[req.Correlation] = append(c.byCorr[req.Correlation], s.ID)
	c.mu.Unlock()

	return s, nil
}

// Session returns a copy of the session with the given id.
func (c *InProcess) Session(id uuid.UUID) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *s, nil
}

// Confirm completes the oldest initiated session for the correlation: it
// runs the pre-commit gate, then finalize, and queues the payer-side result.
// A session is finalized at most once.
func (c *InProcess) Confirm(ctx context.Context, correlation string) error {
	s, err := c.takeInitiated(correlation)
	if err != nil {
		return err
	}

	payment := model.Payment{
		Counterparty:    s.Request.Payer,
		Amount:          s.Request.Amount,
		Currency:        s.Request.Currency,
		CorrelationText: s.Request.Correlation,
	}

	if err := c.exec.StartExecute(ctx, payment); err != nil {
		c.finish(s, StateFailed, err)
		return err
	}
	if err := c.exec.FinishExecute(ctx, payment); err != nil {
		c.finish(s, StateFailed, err)
		return err
	}
	c.finish(s, StateConfirmed, nil)
	return nil
}

// Fail aborts the oldest initiated session for the correlation without
// touching the executor.
func (c *InProcess) Fail(ctx context.Context, correlation string, cause error) error {
	s, err := c.takeInitiated(correlation)
	if err != nil {
		return err
	}
	c.finish(s, StateFailed, cause)
	return nil
}

func (c *InProcess) takeInitiated(correlation string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range c.byCorr[correlation] {
		s := c.sessions[id]
		if s != nil && s.State == StateInitiated {
			return s, nil
		}
	}
	if len(c.byCorr[correlation]) > 0 {
		return nil, ErrSessionFinalized
	}
	return nil, ErrSessionNotFound
}

func (c *InProcess) finish(s *Session, state SessionState, cause error) {
	c.mu.Lock()
	s.State = state
	c.results.PushBack(Result{Session: *s, Err: cause})
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run drains queued completion results to the registered handler until the
// context ends.
func (c *InProcess) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
			c.Drain()
		}
	}
}

// Drain delivers all queued results synchronously. Exposed so tests can
// step the coordinator without a goroutine.
func (c *InProcess) Drain() {
	for {
		c.mu.Lock()
		if c.results.Len() == 0 {
			c.mu.Unlock()
			return
		}
		res := c.results.PopFront()
		c.mu.Unlock()

		if c.onResult != nil {
			c.onResult(res)
		} else if c.log != nil {
			c.log.Info(context.Background(), "settlement result dropped, no handler registered")
		}
	}
}
