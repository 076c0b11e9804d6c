// Package payment executes the on-chain payment behind a checkout.
package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"

	"hoja/pkg/domain"
	"hoja/pkg/logger"
)

// Request is one payment attempt for a cart snapshot.
type Request struct {
	RestaurantID string
	Amount       decimal.Decimal
	Network      domain.Network
}

// Executor performs a payment and reports exactly one outcome.
type Executor interface {
	Execute(ctx context.Context, req Request) (domain.PaymentResult, error)
}

// SimulatedExecutor stands in for a wallet: it waits, then confirms with a random reference.
type SimulatedExecutor struct {
	latency time.Duration
	logger  logger.Logger
	now     func() time.Time
}

func NewSimulatedExecutor(latency time.Duration, log logger.Logger) *SimulatedExecutor {
	return &SimulatedExecutor{latency: latency, logger: log, now: time.Now}
}

func (e *SimulatedExecutor) Execute(ctx context.Context, req Request) (domain.PaymentResult, error) {
	if e.latency > 0 {
		timer := time.NewTimer(e.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.PaymentResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	ref, err := randomReference()
	if err != nil {
		return domain.PaymentResult{}, err
	}

	e.logger.Debug("Simulated payment confirmed", map[string]interface{}{
		"restaurant_id": req.RestaurantID,
		"amount":        req.Amount.String(),
		"network":       req.Network.ID,
		"tx_hash":       ref,
	})

	return domain.PaymentResult{
		TransactionReference: ref,
		ConfirmedAt:          e.now().UTC(),
	}, nil
}

func randomReference() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}
