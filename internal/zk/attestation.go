// Package zk simulates the zero-knowledge attestation bound to each proof of purchase.
// In a real system this would use a proving library such as gnark or circom; here a
// "proof" is a tagged Keccak-256 digest of the public signals.
package zk

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"hoja/pkg/domain"
)

const proofPrefix = "zk_snark_"

// PublicSignals returns the signals that bind an attestation to one payment at one restaurant.
func PublicSignals(restaurantID, txRef string) []string {
	return []string{
		restaurantID,
		"0x" + hex.EncodeToString([]byte(txRef+restaurantID)),
	}
}

// GenerateMockProof creates a digest-backed proof string for the given inputs.
func GenerateMockProof(inputs string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(inputs))
	return proofPrefix + hex.EncodeToString(h.Sum(nil))
}

// Issuer produces attestations after a simulated proving delay.
type Issuer struct {
	latency time.Duration
}

func NewIssuer(latency time.Duration) *Issuer {
	return &Issuer{latency: latency}
}

// Issue attests to the payment recorded on p. It returns ctx.Err() if ctx ends while proving.
func (i *Issuer) Issue(ctx context.Context, p domain.Proof) (*domain.Attestation, error) {
	if i.latency > 0 {
		timer := time.NewTimer(i.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	signals := PublicSignals(p.RestaurantID, p.TransactionReference)
	return &domain.Attestation{
		Proof:         GenerateMockProof(strings.Join(signals, "|")),
		PublicSignals: signals,
	}, nil
}

type Verifier struct{}

func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify checks that att is well formed and was issued for p's payment.
func (v *Verifier) Verify(att *domain.Attestation, p domain.Proof) bool {
	if att == nil || !strings.HasPrefix(att.Proof, proofPrefix) {
		return false
	}

	want := PublicSignals(p.RestaurantID, p.TransactionReference)
	if len(att.PublicSignals) != len(want) {
		return false
	}
	for i := range want {
		if att.PublicSignals[i] != want[i] {
			return false
		}
	}
	return att.Proof == GenerateMockProof(strings.Join(want, "|"))
}
