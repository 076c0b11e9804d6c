// Package session owns the per-profile state of the storefront: one cart, one proof store
// and one checkout workflow per browser profile.
package session

import (
	"context"
	"sync"
	"time"

	"hoja/internal/cart"
	"hoja/internal/checkout"
	"hoja/internal/payment"
	"hoja/internal/proof"
	"hoja/pkg/kv"
	"hoja/pkg/logger"
)

type Session struct {
	ProfileID string
	Cart      *cart.Cart
	Proofs    *proof.Store
	Checkout  *checkout.Workflow

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Options are the collaborators shared by every session.
type Options struct {
	Store           kv.Store
	ProofKeyPrefix  string
	Catalog         checkout.Catalog
	Executor        payment.Executor
	Issuer          checkout.Issuer
	PaymentTimeout  time.Duration
	IdleTTL         time.Duration
	JanitorInterval time.Duration
}

type Registry struct {
	opts     Options
	logger   logger.Logger
	now      func() time.Time
	mu       sync.Mutex
	sessions map[string]*Session
	stop     chan struct{}
	stopOnce sync.Once
}

func NewRegistry(opts Options, log logger.Logger) *Registry {
	return &Registry{
		opts:     opts,
		logger:   log,
		now:      time.Now,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
}

// ProofKey is the storage key holding a profile's proofs.
func (r *Registry) ProofKey(profileID string) string {
	return r.opts.ProofKeyPrefix + ":" + profileID
}

// Get returns the live session for profileID, starting one if needed. Starting a session
// loads the profile's saved proofs.
func (r *Registry) Get(ctx context.Context, profileID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if s, ok := r.sessions[profileID]; ok {
		s.touch(now)
		return s
	}

	c := cart.New()
	proofs := proof.Load(ctx, r.opts.Store, r.ProofKey(profileID), r.logger)
	s := &Session{
		ProfileID: profileID,
		Cart:      c,
		Proofs:    proofs,
		Checkout: checkout.NewWorkflow(
			c,
			proofs,
			r.opts.Catalog,
			r.opts.Executor,
			r.opts.Issuer,
			r.opts.PaymentTimeout,
			r.logger,
		),
		lastSeen: now,
	}
	r.sessions[profileID] = s

	r.logger.Debug("Session started", map[string]interface{}{
		"profile_id": profileID,
		"proofs":     proofs.Len(),
	})
	return s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Start runs the idle-session janitor until Stop or Close.
func (r *Registry) Start() {
	interval := r.opts.JanitorInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				r.EvictIdle(context.Background())
			case <-r.stop:
				ticker.Stop()
				return
			}
		}
	}()
	r.logger.Info("Session janitor started", map[string]interface{}{
		"interval": interval.String(),
		"idle_ttl": r.opts.IdleTTL.String(),
	})
}

func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// EvictIdle tears down sessions idle longer than the idle TTL. Sessions with a checkout in
// flight are kept. An evicted session is closed: handlers still holding it get
// errors.ErrSessionClosed instead of writing over the session Get starts next. It returns
// the number of sessions evicted.
func (r *Registry) EvictIdle(ctx context.Context) int {
	if r.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.opts.IdleTTL)

	// Stores are closed under r.mu so Get cannot load a profile before its old store's
	// final write.
	r.mu.Lock()
	evicted := 0
	for id, s := range r.sessions {
		if s.idleSince().After(cutoff) || !s.Checkout.CloseIfIdle() {
			continue
		}
		delete(r.sessions, id)
		if err := r.teardown(ctx, s); err != nil {
			r.logger.Error("Failed to flush proofs", map[string]interface{}{
				"profile_id": s.ProfileID,
				"error":      err.Error(),
			})
		}
		evicted++
	}
	r.mu.Unlock()

	if evicted > 0 {
		r.logger.Info("Evicted idle sessions", map[string]interface{}{"count": evicted})
	}
	return evicted
}

func (r *Registry) teardown(ctx context.Context, s *Session) error {
	s.Cart.Clear()
	return s.Proofs.Close(ctx)
}

// Close stops the janitor and flushes every live session.
func (r *Registry) Close(ctx context.Context) error {
	r.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	count := len(r.sessions)
	for id, s := range r.sessions {
		delete(r.sessions, id)
		if err := r.teardown(ctx, s); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	r.logger.Info("Sessions closed", map[string]interface{}{"count": count})
	return firstErr
}
