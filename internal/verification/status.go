package verification

import (
	"context"
	"strings"

	"hoja/pkg/errors"
	"hoja/pkg/kv"
)

const statusKeyPrefix = "hoja-verified:"

// StatusStore records the outcome of the latest verification per address.
type StatusStore struct {
	kv kv.Store
}

func NewStatusStore(store kv.Store) *StatusStore {
	return &StatusStore{kv: store}
}

func statusKey(address string) string {
	return statusKeyPrefix + strings.ToLower(strings.TrimSpace(address))
}

func (s *StatusStore) Set(ctx context.Context, address string, verified bool) error {
	value := "false"
	if verified {
		value = "true"
	}
	return s.kv.Set(ctx, statusKey(address), []byte(value))
}

// Verified reports false for addresses that were never verified.
func (s *StatusStore) Verified(ctx context.Context, address string) (bool, error) {
	data, err := s.kv.Get(ctx, statusKey(address))
	if errors.Is(err, errors.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return string(data) == "true", nil
}
