// Package checkout runs the pay action that turns a cart into a proof of purchase.
//
// A workflow moves idle -> processing -> (succeeded | failed) -> proof-generating -> idle.
// Only one attempt runs at a time; a second pay action while one is in flight is rejected.
package checkout

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hoja/internal/cart"
	"hoja/internal/payment"
	"hoja/internal/proof"
	"hoja/pkg/domain"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

var tracer = otel.Tracer("hoja/internal/checkout")

type CartStore interface {
	Snapshot() cart.Snapshot
	Clear()
}

type ProofStore interface {
	Add(ctx context.Context, p domain.Proof) error
}

type Catalog interface {
	Get(ctx context.Context, id string) (*domain.Restaurant, error)
}

// Issuer attaches the zero-knowledge attestation to a freshly built proof.
type Issuer interface {
	Issue(ctx context.Context, p domain.Proof) (*domain.Attestation, error)
}

// Event is one state transition, published to subscribers.
type Event struct {
	State   domain.CheckoutState `json:"state"`
	Reason  string               `json:"reason,omitempty"`
	ProofID string               `json:"proofId,omitempty"`
	Network string               `json:"network,omitempty"`
	At      time.Time            `json:"at"`
}

type Workflow struct {
	cart     CartStore
	proofs   ProofStore
	catalog  Catalog
	executor payment.Executor
	issuer   Issuer
	timeout  time.Duration
	logger   logger.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       domain.CheckoutState
	last        Event
	current     *attempt
	closed      bool
	subscribers map[int]chan Event
	nextSub     int
}

// attempt is one pay action from processing until Pay returns. Fields are guarded by Workflow.mu.
type attempt struct {
	cancel    context.CancelFunc
	cancelled bool
	confirmed bool
	settled   chan struct{} // closed once the executor has returned
}

func NewWorkflow(
	c CartStore,
	proofs ProofStore,
	catalog Catalog,
	executor payment.Executor,
	issuer Issuer,
	timeout time.Duration,
	log logger.Logger,
) *Workflow {
	return &Workflow{
		cart:        c,
		proofs:      proofs,
		catalog:     catalog,
		executor:    executor,
		issuer:      issuer,
		timeout:     timeout,
		logger:      log,
		now:         time.Now,
		state:       domain.CheckoutIdle,
		last:        Event{State: domain.CheckoutIdle},
		subscribers: make(map[int]chan Event),
	}
}

// Status returns the most recent transition.
func (w *Workflow) Status() Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Subscribe streams transitions until the returned func is called. Slow subscribers miss events.
func (w *Workflow) Subscribe() (<-chan Event, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSub
	w.nextSub++
	ch := make(chan Event, 16)
	w.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subscribers, id)
			close(ch)
		})
	}
}

// transitionLocked records and publishes a state change. Callers hold w.mu.
func (w *Workflow) transitionLocked(ev Event) {
	ev.At = w.now().UTC()
	w.state = ev.State
	w.last = ev

	for _, ch := range w.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}

	fields := map[string]interface{}{"state": ev.State.String()}
	if ev.Reason != "" {
		fields["reason"] = ev.Reason
	}
	if ev.ProofID != "" {
		fields["proof_id"] = ev.ProofID
	}
	w.logger.Debug("Checkout transition", fields)
}

func (w *Workflow) transition(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.transitionLocked(ev)
}

// Cancel aborts an attempt that is still waiting on the payment executor and waits until the
// executor gives up. A payment that confirms first wins: the proof is issued and
// ErrAlreadyPaid is returned. ctx bounds only the wait.
func (w *Workflow) Cancel(ctx context.Context) error {
	w.mu.Lock()
	a := w.current
	if a == nil {
		w.mu.Unlock()
		return errors.ErrNoCheckout
	}
	if a.confirmed {
		w.mu.Unlock()
		return errors.ErrAlreadyPaid
	}
	select {
	case <-a.settled:
		// failed on its own
		w.mu.Unlock()
		return errors.ErrNoCheckout
	default:
	}
	a.cancelled = true
	a.cancel()
	w.mu.Unlock()

	select {
	case <-a.settled:
	case <-ctx.Done():
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if a.confirmed {
		return errors.ErrAlreadyPaid
	}
	return nil
}

// CloseIfIdle retires the workflow unless an attempt is in flight. Pay on a retired
// workflow returns errors.ErrSessionClosed. It reports whether the workflow was retired.
func (w *Workflow) CloseIfIdle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.InFlight() {
		return false
	}
	w.closed = true
	return true
}

// Pay charges the current cart on the named network and, once the payment is confirmed,
// issues a proof, records it, and clears the cart. On failure the cart is left untouched.
func (w *Workflow) Pay(ctx context.Context, networkID string) (domain.Proof, error) {
	network, err := payment.LookupNetwork(networkID)
	if err != nil {
		return domain.Proof{}, err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return domain.Proof{}, errors.ErrSessionClosed
	}
	if w.state.InFlight() {
		w.mu.Unlock()
		return domain.Proof{}, errors.ErrCheckoutInFlight
	}

	snap := w.cart.Snapshot()
	if snap.Empty() {
		w.mu.Unlock()
		return domain.Proof{}, errors.ErrCartEmpty
	}
	restaurants := snap.RestaurantIDs()
	if len(restaurants) > 1 {
		w.mu.Unlock()
		return domain.Proof{}, errors.ErrMixedRestaurants
	}
	restaurantID := restaurants[0]

	// The attempt outlives the caller's request; only Cancel or the timeout end it early.
	detached, span := tracer.Start(context.WithoutCancel(ctx), "checkout.pay", trace.WithAttributes(
		attribute.String("hoja.restaurant_id", restaurantID),
		attribute.String("hoja.network", network.ID),
	))
	defer span.End()
	attemptCtx, cancel := context.WithCancel(detached)
	if w.timeout > 0 {
		var cancelTimeout context.CancelFunc
		attemptCtx, cancelTimeout = context.WithTimeout(attemptCtx, w.timeout)
		defer cancelTimeout()
	}
	a := &attempt{cancel: cancel, settled: make(chan struct{})}
	w.current = a
	w.transitionLocked(Event{State: domain.CheckoutProcessing, Network: network.ID})
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		if w.current == a {
			w.current = nil
		}
		w.mu.Unlock()
		cancel()
	}()

	w.logger.Info("Checkout started", map[string]interface{}{
		"restaurant_id": restaurantID,
		"network":       network.ID,
		"amount":        snap.TotalPrice.String(),
		"items":         snap.TotalItems,
	})

	result, err := w.executor.Execute(attemptCtx, payment.Request{
		RestaurantID: restaurantID,
		Amount:       snap.TotalPrice,
		Network:      network,
	})

	w.mu.Lock()
	a.confirmed = err == nil
	close(a.settled)
	if a.confirmed {
		w.transitionLocked(Event{State: domain.CheckoutSucceeded, Network: network.ID})
	}
	cancelled := a.cancelled
	w.mu.Unlock()

	if err != nil {
		reason := failureReason(attemptCtx, cancelled, err)
		w.logger.Warn("Checkout failed", map[string]interface{}{
			"restaurant_id": restaurantID,
			"network":       network.ID,
			"error":         reason.Error(),
		})
		w.transition(Event{State: domain.CheckoutFailed, Reason: reason.Error(), Network: network.ID})
		w.transition(Event{State: domain.CheckoutIdle, Reason: reason.Error(), Network: network.ID})
		span.RecordError(reason)
		span.SetStatus(codes.Error, reason.Error())
		return domain.Proof{}, reason
	}

	if cancelled {
		w.logger.Warn("Cancel arrived after payment was confirmed", map[string]interface{}{
			"restaurant_id": restaurantID,
			"tx_hash":       result.TransactionReference,
		})
	}
	w.transition(Event{State: domain.CheckoutProofGenerating, Network: network.ID})

	p := w.buildProof(detached, restaurantID, network, snap, result)

	issueCtx, cancelIssue := context.WithTimeout(detached, w.issueTimeout())
	att, err := w.issuer.Issue(issueCtx, p)
	cancelIssue()
	if err != nil {
		w.logger.Warn("Attestation not issued", map[string]interface{}{
			"proof_id": p.ID,
			"error":    err.Error(),
		})
	} else {
		p.Attestation = att
	}

	if err := w.proofs.Add(detached, p); err != nil {
		w.logger.Error("Failed to persist proof", map[string]interface{}{
			"proof_id": p.ID,
			"error":    err.Error(),
		})
	}
	w.cart.Clear()

	w.logger.Info("Proof issued", map[string]interface{}{
		"proof_id":      p.ID,
		"restaurant_id": p.RestaurantID,
		"tx_hash":       p.TransactionReference,
	})
	span.SetAttributes(attribute.String("hoja.proof_id", p.ID))
	w.transition(Event{State: domain.CheckoutIdle, ProofID: p.ID, Network: network.ID})
	return p, nil
}

func (w *Workflow) issueTimeout() time.Duration {
	if w.timeout > 0 {
		return w.timeout
	}
	return time.Minute
}

func failureReason(attemptCtx context.Context, cancelled bool, err error) error {
	switch {
	case cancelled:
		return errors.ErrCheckoutCancelled
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		return errors.ErrCheckoutTimeout
	default:
		return errors.Wrap(errors.ErrPaymentFailed, err.Error())
	}
}

func (w *Workflow) buildProof(ctx context.Context, restaurantID string, network domain.Network, snap cart.Snapshot, result domain.PaymentResult) domain.Proof {
	items := make([]domain.ProofLineItem, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		items = append(items, domain.ProofLineItem{
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.UnitPriceUSD,
		})
	}

	var name string
	if w.catalog != nil {
		if r, err := w.catalog.Get(ctx, restaurantID); err == nil {
			name = r.Name
		} else {
			w.logger.Warn("Restaurant lookup failed while issuing proof", map[string]interface{}{
				"restaurant_id": restaurantID,
				"error":         err.Error(),
			})
		}
	}

	issuedAt := result.ConfirmedAt
	if issuedAt.IsZero() {
		issuedAt = w.now().UTC()
	}

	return domain.Proof{
		ID:                   proof.NewID(),
		RestaurantID:         restaurantID,
		RestaurantName:       name,
		IssuedAt:             issuedAt,
		Amount:               snap.TotalPrice,
		Currency:             network.Currency,
		Network:              network.ID,
		TransactionReference: result.TransactionReference,
		LineItems:            items,
	}
}
