// Package chain is a thin Ethereum JSON-RPC client: every call goes through a circuit breaker,
// and sent transactions can be polled until their receipt is mined.
package chain

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hoja/pkg/config"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

type Client struct {
	rpc     *rpc.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  logger.Logger
}

func NewClient(endpoint string, breakerCfg config.BreakerConfig, log logger.Logger) (*Client, error) {
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	rc, err := rpc.DialOptions(context.Background(), endpoint, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial json-rpc endpoint")
	}

	return &Client{
		rpc: rc,
		breaker: NewBreaker[struct{}]("json-rpc "+endpoint, breakerCfg, log, func(err error) bool {
			// Errors answered by the node mean the node is up.
			var rpcErr rpc.Error
			return err == nil || errors.As(err, &rpcErr)
		}),
		logger: log,
	}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

// Call invokes method with args and decodes the result into out. out may be nil.
func (c *Client) Call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.rpc.CallContext(ctx, out, method, args...)
	})
	if err != nil {
		return errors.Wrap(err, method)
	}
	return nil
}

// ChainID returns the node's eth_chainId.
func (c *Client) ChainID(ctx context.Context) (int64, error) {
	var id hexutil.Big
	if err := c.Call(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return (*big.Int)(&id).Int64(), nil
}

// TransactionReceipt returns nil while the transaction is pending.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	if err := c.Call(ctx, &receipt, "eth_getTransactionReceipt", txHash); err != nil {
		return nil, err
	}
	return receipt, nil
}

// WaitForReceipt polls until the transaction is mined. A reverted transaction returns the
// receipt with errors.ErrTransactionReverted; an expired deadline returns errors.ErrReceiptTimeout.
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, txHash)
		switch {
		case err != nil && ctx.Err() == nil:
			c.logger.Warn("Receipt poll failed", map[string]interface{}{
				"tx_hash": txHash.Hex(),
				"error":   err.Error(),
			})
		case receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, errors.ErrTransactionReverted
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, errors.ErrReceiptTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
