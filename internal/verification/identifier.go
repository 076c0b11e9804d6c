package verification

import (
	"fmt"
	"math/big"
	"strings"

	"hoja/pkg/errors"
)

// ExtractIdentifier reads the user identifier from the disclosed public signals and renders
// it as a lowercase 20-byte hex address.
func ExtractIdentifier(publicSignals []string, index int) (string, error) {
	if index < 0 || index >= len(publicSignals) {
		return "", errors.Wrap(errors.ErrMissingIdentifier, fmt.Sprintf("no signal at index %d", index))
	}

	raw := strings.TrimSpace(publicSignals[index])
	n, ok := new(big.Int).SetString(raw, 0)
	if !ok || n.Sign() < 0 {
		return "", errors.Wrap(errors.ErrMissingIdentifier, fmt.Sprintf("signal %q is not a number", raw))
	}
	if n.BitLen() > 160 {
		return "", errors.Wrap(errors.ErrMissingIdentifier, "identifier exceeds 20 bytes")
	}

	return fmt.Sprintf("0x%040x", n), nil
}
