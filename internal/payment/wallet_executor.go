package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"hoja/internal/chain"
	"hoja/internal/wallet"
	"hoja/pkg/domain"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

// WalletExecutor pays the restaurant's recipient address from the shopper's wallet and waits
// for the transfer to be mined.
type WalletExecutor struct {
	provider  wallet.Provider
	recipient common.Address
	chainID   int64
	logger    logger.Logger
}

func NewWalletExecutor(provider wallet.Provider, recipient string, chainID int64, log logger.Logger) *WalletExecutor {
	return &WalletExecutor{
		provider:  provider,
		recipient: common.HexToAddress(recipient),
		chainID:   chainID,
		logger:    log,
	}
}

func (e *WalletExecutor) Execute(ctx context.Context, req Request) (domain.PaymentResult, error) {
	from, err := wallet.PrimaryAccount(ctx, e.provider)
	if err != nil {
		return domain.PaymentResult{}, err
	}

	if e.chainID != 0 {
		id, err := e.provider.ChainID(ctx)
		if err != nil {
			return domain.PaymentResult{}, err
		}
		if id != e.chainID {
			return domain.PaymentResult{}, errors.Wrap(errors.ErrChainMismatch, fmt.Sprintf("want %d, got %d", e.chainID, id))
		}
	}

	txHash, err := e.provider.SendTransfer(ctx, wallet.Transfer{
		From:  from,
		To:    e.recipient,
		Value: chain.ToWei(req.Amount),
	})
	if err != nil {
		return domain.PaymentResult{}, err
	}

	receipt, err := e.provider.WaitForReceipt(ctx, txHash)
	if err != nil {
		e.logger.Warn("Payment not confirmed", map[string]interface{}{
			"tx_hash": txHash.Hex(),
			"error":   err.Error(),
		})
		return domain.PaymentResult{}, err
	}

	e.logger.Info("Payment confirmed", map[string]interface{}{
		"tx_hash":       receipt.TxHash.Hex(),
		"block":         receipt.BlockNumber.String(),
		"restaurant_id": req.RestaurantID,
		"network":       req.Network.ID,
	})

	return domain.PaymentResult{
		TransactionReference: txHash.Hex(),
		Payer:                from.Hex(),
		ConfirmedAt:          time.Now().UTC(),
	}, nil
}
