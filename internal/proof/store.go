// Package proof keeps the proof-of-purchase receipts issued to one browser profile.
//
// The whole collection is serialized as a JSON array under a single key and rewritten in
// full on every mutation. A proof is never deleted; its only mutation is the one-way
// used flag.
package proof

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"

	"hoja/pkg/domain"
	"hoja/pkg/errors"
	"hoja/pkg/kv"
	"hoja/pkg/logger"
)

// NewID returns a random 128-bit proof identifier.
func NewID() string {
	return "proof-" + uuid.NewString()
}

type Store struct {
	mu     sync.RWMutex
	closed bool
	proofs []domain.Proof
	kv     kv.Store
	key    string
	logger logger.Logger
}

// Load reads the store from durable storage. It never fails: a missing key yields an empty
// store and unreadable or malformed data is logged and replaced by an empty store.
func Load(ctx context.Context, backend kv.Store, key string, log logger.Logger) *Store {
	s := &Store{kv: backend, key: key, logger: log}

	data, err := backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, errors.ErrKeyNotFound) {
			log.Warn("Failed to read saved proofs, starting empty", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return s
	}

	var proofs []domain.Proof
	if err := json.Unmarshal(data, &proofs); err != nil {
		log.Warn("Failed to parse saved proofs, starting empty", map[string]interface{}{
			"key":   key,
			"error": errors.Wrap(errors.ErrStorageCorrupt, err.Error()).Error(),
		})
		return s
	}

	s.proofs = proofs
	log.Debug("Proofs loaded", map[string]interface{}{"key": key, "count": len(proofs)})
	return s
}

// Key is the storage key this store persists under.
func (s *Store) Key() string {
	return s.key
}

// persistLocked rewrites the full collection. Callers hold the write lock.
func (s *Store) persistLocked(ctx context.Context) error {
	proofs := s.proofs
	if proofs == nil {
		proofs = []domain.Proof{}
	}
	data, err := json.Marshal(proofs)
	if err != nil {
		return errors.Wrap(err, "failed to encode proofs")
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, err.Error())
	}
	return nil
}

// Add appends a fully formed proof and persists the store. The proof stays in memory even
// when the write fails; the returned error wraps errors.ErrStorageWrite in that case.
func (s *Store) Add(ctx context.Context, p domain.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSessionClosed
	}

	s.proofs = append(s.proofs, p.Clone())
	return s.persistLocked(ctx)
}

// MarkUsed flips the used flag of id. Marking an already used proof is a no-op.
func (s *Store) MarkUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSessionClosed
	}

	i := s.indexLocked(id)
	if i < 0 {
		return errors.ErrProofNotFound
	}
	if s.proofs[i].Used {
		return nil
	}
	s.proofs[i].Used = true
	return s.persistLocked(ctx)
}

func (s *Store) indexLocked(id string) int {
	for i := range s.proofs {
		if s.proofs[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the proof with that id.
func (s *Store) Get(id string) (domain.Proof, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Proof{}, false
	}
	return s.proofs[i].Clone(), true
}

// ByRestaurant returns used and unused proofs for the restaurant, in issue order.
func (s *Store) ByRestaurant(restaurantID string) []domain.Proof {
	return s.filter(func(p domain.Proof) bool { return p.RestaurantID == restaurantID })
}

// Unused returns the proofs for the restaurant that can still unlock a review.
func (s *Store) Unused(restaurantID string) []domain.Proof {
	return s.filter(func(p domain.Proof) bool { return p.RestaurantID == restaurantID && !p.Used })
}

// All returns every proof, newest first.
func (s *Store) All() []domain.Proof {
	out := s.filter(func(domain.Proof) bool { return true })
	sort.SliceStable(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.proofs)
}

func (s *Store) filter(keep func(domain.Proof) bool) []domain.Proof {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Proof, 0)
	for _, p := range s.proofs {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Check runs the review gate for id against restaurantID without changing anything.
func (s *Store) Check(id, restaurantID string) (domain.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Proof{}, errors.ErrInvalidProof
	}
	p := s.proofs[i]
	if err := Validate(p, restaurantID); err != nil {
		return p.Clone(), err
	}
	return p.Clone(), nil
}

// Validate applies the gate rules to a proof that was found: wrong restaurant first, then used.
func Validate(p domain.Proof, restaurantID string) error {
	if p.RestaurantID != restaurantID {
		return errors.ErrWrongRestaurant
	}
	if p.Used {
		return errors.ErrAlreadyUsed
	}
	return nil
}

// Redeem spends the proof to unlock accept as one unit. Under the write lock the proof is
// validated, marked used and persisted, then accept runs. If accept fails the flag is
// restored and persisted again, so no reader ever sees a proof spent on a rejected review.
func (s *Store) Redeem(ctx context.Context, id, restaurantID string, accept func(domain.Proof) error) (domain.Proof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.Proof{}, errors.ErrSessionClosed
	}

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Proof{}, errors.ErrInvalidProof
	}
	if err := Validate(s.proofs[i], restaurantID); err != nil {
		return s.proofs[i].Clone(), err
	}

	s.proofs[i].Used = true
	if err := s.persistLocked(ctx); err != nil {
		s.proofs[i].Used = false
		return s.proofs[i].Clone(), err
	}

	if err := accept(s.proofs[i].Clone()); err != nil {
		s.proofs[i].Used = false
		if perr := s.persistLocked(ctx); perr != nil {
			s.logger.Error("Failed to roll back proof redemption", map[string]interface{}{
				"proof_id": id,
				"error":    perr.Error(),
			})
		}
		return s.proofs[i].Clone(), err
	}

	s.logger.Info("Proof redeemed", map[string]interface{}{
		"proof_id":      id,
		"restaurant_id": restaurantID,
	})
	return s.proofs[i].Clone(), nil
}

// Close writes the collection one last time and rejects every later mutation with
// errors.ErrSessionClosed. Once it returns, a store loaded for the same key is the only
// writer of that key.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.persistLocked(ctx)
}
