// Package verification backs the identity-verification callback: it checks a disclosed
// credential on chain and remembers which addresses passed.
package verification

import (
	"context"

	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

// Groth16Proof is a proof as produced by the identity app.
type Groth16Proof struct {
	A []string   `json:"a"`
	B [][]string `json:"b"`
	C []string   `json:"c"`
}

// ContractCaller submits a proof to the on-chain verifier and waits for it to be mined.
type ContractCaller interface {
	VerifySelfProof(ctx context.Context, proof *Groth16Proof, publicSignals []string) (string, error)
}

// Verifier is the optional off-chain pre-check offered by the identity provider.
type Verifier interface {
	Verify(ctx context.Context, proof *Groth16Proof, publicSignals []string) error
}

type Service struct {
	contract        ContractCaller
	verifier        Verifier
	status          *StatusStore
	identifierIndex int
	logger          logger.Logger
}

// NewService builds the service. verifier may be nil.
func NewService(contract ContractCaller, verifier Verifier, status *StatusStore, identifierIndex int, log logger.Logger) *Service {
	return &Service{
		contract:        contract,
		verifier:        verifier,
		status:          status,
		identifierIndex: identifierIndex,
		logger:          log,
	}
}

// Verify checks the proof and records the outcome for the address it discloses. A rejected
// proof returns the address together with an error wrapping errors.ErrContractCallFailed
// or errors.ErrVerificationRejected.
func (s *Service) Verify(ctx context.Context, proof *Groth16Proof, publicSignals []string) (string, error) {
	if proof == nil || len(publicSignals) == 0 {
		return "", errors.ErrMissingProof
	}

	address, err := ExtractIdentifier(publicSignals, s.identifierIndex)
	if err != nil {
		return "", err
	}

	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, proof, publicSignals); err != nil {
			s.record(ctx, address, false)
			return address, errors.Wrap(errors.ErrVerificationRejected, err.Error())
		}
	}

	txHash, err := s.contract.VerifySelfProof(ctx, proof, publicSignals)
	if err != nil {
		s.logger.Warn("verifySelfProof call failed", map[string]interface{}{
			"address": address,
			"error":   err.Error(),
		})
		s.record(ctx, address, false)
		return address, errors.Wrap(errors.ErrContractCallFailed, err.Error())
	}

	if err := s.status.Set(ctx, address, true); err != nil {
		return address, errors.Wrap(err, "failed to record verification")
	}

	s.logger.Info("Verification succeeded", map[string]interface{}{
		"address": address,
		"tx_hash": txHash,
	})
	return address, nil
}

func (s *Service) record(ctx context.Context, address string, verified bool) {
	if err := s.status.Set(ctx, address, verified); err != nil {
		s.logger.Error("Failed to record verification", map[string]interface{}{
			"address": address,
			"error":   err.Error(),
		})
	}
}

func (s *Service) Status(ctx context.Context, address string) (bool, error) {
	return s.status.Verified(ctx, address)
}
