package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateCore ensures configuration required by the storefront is present.
func (c *Config) ValidateCore() error {
	var missing []string

	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.Session.Secret) == "" || c.Session.Secret == "change-this-secret" {
		missing = append(missing, "SESSION_SECRET")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if strings.TrimSpace(c.Storage.FileDir) == "" {
			missing = append(missing, "STORAGE_FILE_DIR")
		}
	case StorageRedis:
		if strings.TrimSpace(c.Redis.URL) == "" {
			missing = append(missing, "REDIS_URL")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.ProofKey) == "" {
		missing = append(missing, "STORAGE_PROOF_KEY")
	}

	switch c.Checkout.Executor {
	case ExecutorSimulated:
	case ExecutorWallet:
		if strings.TrimSpace(c.Wallet.RPCURL) == "" {
			missing = append(missing, "WALLET_RPC_URL")
		}
		if !common.IsHexAddress(c.Wallet.RecipientAddress) {
			missing = append(missing, "WALLET_RECIPIENT_ADDRESS")
		}
	default:
		return fmt.Errorf("unsupported CHECKOUT_EXECUTOR %q", c.Checkout.Executor)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// ValidateVerifier ensures configuration required by the verification callback is present.
func (c *Config) ValidateVerifier() error {
	var missing []string

	if strings.TrimSpace(c.Verifier.Port) == "" {
		missing = append(missing, "VERIFIER_PORT")
	}
	if strings.TrimSpace(c.Verifier.RelayerURL) == "" {
		missing = append(missing, "VERIFIER_RELAYER_URL")
	}
	if strings.TrimSpace(c.Verifier.ChainRPCURL) == "" {
		missing = append(missing, "VERIFIER_CHAIN_RPC_URL")
	}
	if !common.IsHexAddress(c.Verifier.ContractAddress) {
		missing = append(missing, "VERIFIER_CONTRACT_ADDRESS")
	}
	if c.Verifier.IdentifierIndex < 0 {
		missing = append(missing, "VERIFIER_IDENTIFIER_INDEX")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}
