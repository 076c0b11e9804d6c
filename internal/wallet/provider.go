// Package wallet is the boundary to the shopper's wallet: the account that pays, the chain it
// is connected to, and the transfers it signs.
package wallet

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"hoja/internal/chain"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

// Transfer is a plain value transfer between two accounts.
type Transfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

type Provider interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (int64, error)
	SendTransfer(ctx context.Context, t Transfer) (common.Hash, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// RPCProvider talks to a node that manages unlocked accounts (a dev node or a signer proxy).
type RPCProvider struct {
	client       *chain.Client
	pollInterval time.Duration
	logger       logger.Logger
}

func NewRPCProvider(client *chain.Client, pollInterval time.Duration, log logger.Logger) *RPCProvider {
	return &RPCProvider{client: client, pollInterval: pollInterval, logger: log}
}

func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := p.client.Call(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *RPCProvider) ChainID(ctx context.Context) (int64, error) {
	return p.client.ChainID(ctx)
}

type sendTxArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *hexutil.Big   `json:"value"`
}

func (p *RPCProvider) SendTransfer(ctx context.Context, t Transfer) (common.Hash, error) {
	var txHash common.Hash
	args := sendTxArgs{From: t.From, To: t.To, Value: (*hexutil.Big)(t.Value)}
	if err := p.client.Call(ctx, &txHash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}

	p.logger.Info("Transfer submitted", map[string]interface{}{
		"tx_hash": txHash.Hex(),
		"from":    t.From.Hex(),
		"to":      t.To.Hex(),
	})
	return txHash, nil
}

func (p *RPCProvider) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return p.client.WaitForReceipt(ctx, txHash, p.pollInterval)
}

// PrimaryAccount returns the first account the wallet exposes.
func PrimaryAccount(ctx context.Context, p Provider) (common.Address, error) {
	accounts, err := p.Accounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(accounts) == 0 {
		return common.Address{}, errors.ErrNoWalletAccount
	}
	return accounts[0], nil
}
