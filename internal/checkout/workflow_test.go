package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hoja/internal/cart"
	"hoja/internal/payment"
	"hoja/internal/proof"
	"hoja/pkg/domain"
	"hoja/pkg/errors"
	"hoja/pkg/kv"
	"hoja/pkg/logger"
)

// --- Mocks ---

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, req payment.Request) (domain.PaymentResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.PaymentResult), args.Error(1)
}

type MockIssuer struct {
	mock.Mock
}

func (m *MockIssuer) Issue(ctx context.Context, p domain.Proof) (*domain.Attestation, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attestation), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Get(ctx context.Context, id string) (*domain.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Restaurant), args.Error(1)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.ErrKeyNotFound }
func (failingKV) Set(context.Context, string, []byte) error   { return errors.New("disk full") }

// --- Helpers ---

type fixture struct {
	cart     *cart.Cart
	proofs   *proof.Store
	executor *MockExecutor
	issuer   *MockIssuer
	catalog  *MockCatalog
	workflow *Workflow
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		cart:     cart.New(),
		proofs:   proof.Load(context.Background(), kv.NewMemoryStore(), "hoja-proofs:test", logger.NewNop()),
		executor: new(MockExecutor),
		issuer:   new(MockIssuer),
		catalog:  new(MockCatalog),
	}
	f.catalog.On("Get", mock.Anything, "1").Return(&domain.Restaurant{ID: "1", Name: "Cool Bistro"}, nil).Maybe()
	f.workflow = NewWorkflow(f.cart, f.proofs, f.catalog, f.executor, f.issuer, timeout, logger.NewNop())
	return f
}

func (f *fixture) fillCart() {
	f.cart.Add(domain.CartLine{ItemID: "1", Name: "Pizza", UnitPriceUSD: decimal.RequireFromString("0.02"), Quantity: 2, RestaurantID: "1"})
	f.cart.Add(domain.CartLine{ItemID: "2", Name: "Pasta", UnitPriceUSD: decimal.RequireFromString("0.03"), Quantity: 1, RestaurantID: "1"})
}

func drain(ch <-chan Event) []domain.CheckoutState {
	var states []domain.CheckoutState
	for {
		select {
		case ev := <-ch:
			states = append(states, ev.State)
		default:
			return states
		}
	}
}

var attestation = &domain.Attestation{Proof: "zk_snark_abc", PublicSignals: []string{"1", "0x00"}}

// --- Tests ---

func TestPay_Success(t *testing.T) {
	f := newFixture(t, time.Second)
	f.fillCart()
	events, unsubscribe := f.workflow.Subscribe()
	defer unsubscribe()

	f.executor.On("Execute", mock.Anything, mock.MatchedBy(func(r payment.Request) bool {
		return r.RestaurantID == "1" && r.Amount.Equal(decimal.RequireFromString("0.07")) && r.Network.ID == "polygon"
	})).Return(domain.PaymentResult{TransactionReference: "0xfeed", ConfirmedAt: time.Now()}, nil)
	f.issuer.On("Issue", mock.Anything, mock.Anything).Return(attestation, nil)

	p, err := f.workflow.Pay(context.Background(), "polygon")
	require.NoError(t, err)

	assert.Contains(t, p.ID, "proof-")
	assert.Equal(t, "1", p.RestaurantID)
	assert.Equal(t, "Cool Bistro", p.RestaurantName)
	assert.Equal(t, "0xfeed", p.TransactionReference)
	assert.Equal(t, domain.MATIC, p.Currency)
	assert.Equal(t, "polygon", p.Network)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("0.07")))
	require.Len(t, p.LineItems, 2)
	assert.Equal(t, "Pizza", p.LineItems[0].Name)
	assert.Equal(t, 2, p.LineItems[0].Quantity)
	assert.False(t, p.Used)
	assert.Equal(t, attestation.Proof, p.Attestation.Proof)

	stored, ok := f.proofs.Get(p.ID)
	require.True(t, ok)
	assert.Equal(t, p.TransactionReference, stored.TransactionReference)

	assert.True(t, f.cart.Snapshot().Empty())
	assert.Equal(t, domain.CheckoutIdle, f.workflow.Status().State)
	assert.Equal(t, p.ID, f.workflow.Status().ProofID)

	assert.Equal(t, []domain.CheckoutState{
		domain.CheckoutProcessing,
		domain.CheckoutSucceeded,
		domain.CheckoutProofGenerating,
		domain.CheckoutIdle,
	}, drain(events))
}

func TestPay_FailureLeavesCartUntouched(t *testing.T) {
	f := newFixture(t, time.Second)
	f.fillCart()
	events, unsubscribe := f.workflow.Subscribe()
	defer unsubscribe()

	f.executor.On("Execute", mock.Anything, mock.Anything).Return(domain.PaymentResult{}, errors.New("user rejected"))

	_, err := f.workflow.Pay(context.Background(), "ethereum")
	assert.ErrorIs(t, err, errors.ErrPaymentFailed)

	snap := f.cart.Snapshot()
	assert.Equal(t, 3, snap.TotalItems)
	assert.Equal(t, 0, f.proofs.Len())
	assert.Equal(t, domain.CheckoutIdle, f.workflow.Status().State)
	assert.Equal(t, []domain.CheckoutState{
		domain.CheckoutProcessing,
		domain.CheckoutFailed,
		domain.CheckoutIdle,
	}, drain(events))
	f.issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything)
}

func TestPay_Preconditions(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t, time.Second)
		_, err := f.workflow.Pay(context.Background(), "ethereum")
		assert.ErrorIs(t, err, errors.ErrCartEmpty)
	})

	t.Run("unknown network", func(t *testing.T) {
		f := newFixture(t, time.Second)
		f.fillCart()
		_, err := f.workflow.Pay(context.Background(), "dogechain")
		assert.ErrorIs(t, err, errors.ErrUnknownNetwork)
	})

	t.Run("mixed restaurants", func(t *testing.T) {
		f := newFixture(t, time.Second)
		f.fillCart()
		f.cart.Add(domain.CartLine{ItemID: "9", Name: "Tacos", UnitPriceUSD: decimal.NewFromInt(1), Quantity: 1, RestaurantID: "2"})
		_, err := f.workflow.Pay(context.Background(), "ethereum")
		assert.ErrorIs(t, err, errors.ErrMixedRestaurants)
		f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})
}

func TestPay_SecondPayWhileInFlightIsRejected(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.fillCart()

	started := make(chan struct{})
	f.executor.On("Execute", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-args.Get(0).(context.Context).Done()
	}).Return(domain.PaymentResult{}, context.Canceled)

	done := make(chan error, 1)
	go func() {
		_, err := f.workflow.Pay(context.Background(), "ethereum")
		done <- err
	}()
	<-started

	_, err := f.workflow.Pay(context.Background(), "ethereum")
	assert.ErrorIs(t, err, errors.ErrCheckoutInFlight)
	assert.Equal(t, domain.CheckoutProcessing, f.workflow.Status().State)

	require.NoError(t, f.workflow.Cancel(context.Background()))
	assert.ErrorIs(t, <-done, errors.ErrCheckoutCancelled)
	assert.Equal(t, domain.CheckoutIdle, f.workflow.Status().State)
	assert.Equal(t, 3, f.cart.TotalItems())
	f.executor.AssertNumberOfCalls(t, "Execute", 1)
}

func TestPay_Timeout(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	f.fillCart()
	f.executor.On("Execute", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(domain.PaymentResult{}, context.DeadlineExceeded)

	_, err := f.workflow.Pay(context.Background(), "ethereum")
	assert.ErrorIs(t, err, errors.ErrCheckoutTimeout)
	assert.Equal(t, domain.CheckoutIdle, f.workflow.Status().State)
	assert.Equal(t, errors.ErrCheckoutTimeout.Error(), f.workflow.Status().Reason)
}

func TestPay_CallerCancellationDoesNotAbortPayment(t *testing.T) {
	f := newFixture(t, time.Second)
	f.fillCart()
	ctx, cancel := context.WithCancel(context.Background())

	f.executor.On("Execute", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return(domain.PaymentResult{TransactionReference: "0xfeed"}, nil)
	f.issuer.On("Issue", mock.Anything, mock.Anything).Return(attestation, nil)

	p, err := f.workflow.Pay(ctx, "ethereum")
	require.NoError(t, err)
	_, ok := f.proofs.Get(p.ID)
	assert.True(t, ok)
}

func TestPay_AttestationFailureStillIssuesProof(t *testing.T) {
	f := newFixture(t, time.Second)
	f.fillCart()
	f.executor.On("Execute", mock.Anything, mock.Anything).Return(domain.PaymentResult{TransactionReference: "0xfeed"}, nil)
	f.issuer.On("Issue", mock.Anything, mock.Anything).Return(nil, errors.New("prover offline"))

	p, err := f.workflow.Pay(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.Nil(t, p.Attestation)
	assert.False(t, p.IssuedAt.IsZero())
	assert.Equal(t, 1, f.proofs.Len())
}

func TestPay_StorageFailureStillClearsCart(t *testing.T) {
	f := newFixture(t, time.Second)
	f.proofs = proof.Load(context.Background(), failingKV{}, "hoja-proofs:test", logger.NewNop())
	f.workflow = NewWorkflow(f.cart, f.proofs, f.catalog, f.executor, f.issuer, time.Second, logger.NewNop())
	f.fillCart()
	f.executor.On("Execute", mock.Anything, mock.Anything).Return(domain.PaymentResult{TransactionReference: "0xfeed"}, nil)
	f.issuer.On("Issue", mock.Anything, mock.Anything).Return(attestation, nil)

	p, err := f.workflow.Pay(context.Background(), "ethereum")
	require.NoError(t, err)
	_, ok := f.proofs.Get(p.ID)
	assert.True(t, ok)
	assert.True(t, f.cart.Snapshot().Empty())
}

func TestCancel_WhenIdle(t *testing.T) {
	f := newFixture(t, time.Second)
	assert.ErrorIs(t, f.workflow.Cancel(context.Background()), errors.ErrNoCheckout)
}

func TestCancel_LosesToConfirmedPayment(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.fillCart()

	started := make(chan struct{})
	release := make(chan struct{})
	f.executor.On("Execute", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(domain.PaymentResult{TransactionReference: "0xfeed"}, nil)
	f.issuer.On("Issue", mock.Anything, mock.Anything).Return(attestation, nil)

	paid := make(chan error, 1)
	go func() {
		_, err := f.workflow.Pay(context.Background(), "ethereum")
		paid <- err
	}()
	<-started

	cancelled := make(chan error, 1)
	go func() { cancelled <- f.workflow.Cancel(context.Background()) }()

	select {
	case err := <-cancelled:
		t.Fatalf("cancel returned %v before the payment settled", err)
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	assert.ErrorIs(t, <-cancelled, errors.ErrAlreadyPaid)
	require.NoError(t, <-paid)
	assert.Equal(t, 1, f.proofs.Len())
	assert.True(t, f.cart.Snapshot().Empty())
}

func TestCancel_WhileIssuingProof(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.fillCart()

	issuing := make(chan struct{})
	release := make(chan struct{})
	f.executor.On("Execute", mock.Anything, mock.Anything).Return(domain.PaymentResult{TransactionReference: "0xfeed"}, nil)
	f.issuer.On("Issue", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(issuing)
		<-release
	}).Return(attestation, nil)

	paid := make(chan error, 1)
	go func() {
		_, err := f.workflow.Pay(context.Background(), "ethereum")
		paid <- err
	}()
	<-issuing

	assert.ErrorIs(t, f.workflow.Cancel(context.Background()), errors.ErrAlreadyPaid)
	close(release)
	require.NoError(t, <-paid)
	assert.ErrorIs(t, f.workflow.Cancel(context.Background()), errors.ErrNoCheckout)
}

func TestCancel_WaitIsBoundedByContext(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.fillCart()

	started := make(chan struct{})
	release := make(chan struct{})
	f.executor.On("Execute", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(domain.PaymentResult{}, errors.New("node unreachable"))

	paid := make(chan error, 1)
	go func() {
		_, err := f.workflow.Pay(context.Background(), "ethereum")
		paid <- err
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.workflow.Cancel(ctx), context.DeadlineExceeded)

	close(release)
	assert.ErrorIs(t, <-paid, errors.ErrCheckoutCancelled)
}

func TestCloseIfIdle(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.fillCart()

	started := make(chan struct{})
	f.executor.On("Execute", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-args.Get(0).(context.Context).Done()
	}).Return(domain.PaymentResult{}, context.Canceled)

	done := make(chan error, 1)
	go func() {
		_, err := f.workflow.Pay(context.Background(), "ethereum")
		done <- err
	}()
	<-started

	assert.False(t, f.workflow.CloseIfIdle())
	require.NoError(t, f.workflow.Cancel(context.Background()))
	<-done

	assert.True(t, f.workflow.CloseIfIdle())
	_, err := f.workflow.Pay(context.Background(), "ethereum")
	assert.ErrorIs(t, err, errors.ErrSessionClosed)
	f.executor.AssertNumberOfCalls(t, "Execute", 1)
}

func TestSubscribe_UnsubscribeClosesChannel(t *testing.T) {
	f := newFixture(t, time.Second)
	ch, unsubscribe := f.workflow.Subscribe()
	unsubscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
}
