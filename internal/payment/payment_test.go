package payment

import (
	"context"
	"math/big"
	"regexp"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hoja/internal/wallet"
	"hoja/pkg/errors"
	"hoja/pkg/logger"
)

// --- Mocks ---

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]common.Address), args.Error(1)
}

func (m *MockProvider) ChainID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProvider) SendTransfer(ctx context.Context, t wallet.Transfer) (common.Hash, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(common.Hash), args.Error(1)
}

func (m *MockProvider) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Receipt), args.Error(1)
}

// --- Tests ---

func TestLookupNetwork(t *testing.T) {
	n, err := LookupNetwork("polygon")
	require.NoError(t, err)
	assert.Equal(t, "MATIC", string(n.Currency))
	assert.True(t, n.Fee.Equal(decimal.RequireFromString("0.01")))

	n, err = LookupNetwork("")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", n.ID)

	_, err = LookupNetwork("solana")
	assert.ErrorIs(t, err, errors.ErrUnknownNetwork)
}

func TestNetworks_ReturnsCopy(t *testing.T) {
	list := Networks()
	require.Len(t, list, 4)
	list[0].ID = "mutated"
	assert.Equal(t, "ethereum", Networks()[0].ID)
}

func TestSimulatedExecutor(t *testing.T) {
	e := NewSimulatedExecutor(0, logger.NewNop())
	n, _ := LookupNetwork("ethereum")

	res, err := e.Execute(context.Background(), Request{RestaurantID: "1", Amount: decimal.RequireFromString("0.07"), Network: n})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^0x[0-9a-f]{40}$`), res.TransactionReference)
	assert.False(t, res.ConfirmedAt.IsZero())
}

func TestSimulatedExecutor_Cancelled(t *testing.T) {
	e := NewSimulatedExecutor(time.Hour, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

const recipient = "0x0000000000000000000000000000000000000002"

var (
	payer  = common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	txHash = common.HexToHash("0xfeed")
)

func TestWalletExecutor_Success(t *testing.T) {
	p := new(MockProvider)
	p.On("Accounts", mock.Anything).Return([]common.Address{payer}, nil)
	p.On("ChainID", mock.Anything).Return(int64(44787), nil)
	p.On("SendTransfer", mock.Anything, mock.MatchedBy(func(tr wallet.Transfer) bool {
		want, _ := new(big.Int).SetString("70000000000000000", 10)
		return tr.From == payer && tr.To == common.HexToAddress(recipient) && tr.Value.Cmp(want) == 0
	})).Return(txHash, nil)
	p.On("WaitForReceipt", mock.Anything, txHash).Return(&types.Receipt{TxHash: txHash, Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(7)}, nil)

	e := NewWalletExecutor(p, recipient, 44787, logger.NewNop())
	res, err := e.Execute(context.Background(), Request{RestaurantID: "1", Amount: decimal.RequireFromString("0.07")})

	require.NoError(t, err)
	assert.Equal(t, txHash.Hex(), res.TransactionReference)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", res.Payer)
	p.AssertExpectations(t)
}

func TestWalletExecutor_Failures(t *testing.T) {
	t.Run("no account", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Accounts", mock.Anything).Return([]common.Address{}, nil)

		_, err := NewWalletExecutor(p, recipient, 0, logger.NewNop()).Execute(context.Background(), Request{})
		assert.ErrorIs(t, err, errors.ErrNoWalletAccount)
	})

	t.Run("wrong chain", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Accounts", mock.Anything).Return([]common.Address{payer}, nil)
		p.On("ChainID", mock.Anything).Return(int64(1), nil)

		_, err := NewWalletExecutor(p, recipient, 44787, logger.NewNop()).Execute(context.Background(), Request{})
		assert.ErrorIs(t, err, errors.ErrChainMismatch)
		p.AssertNotCalled(t, "SendTransfer", mock.Anything, mock.Anything)
	})

	t.Run("reverted", func(t *testing.T) {
		p := new(MockProvider)
		p.On("Accounts", mock.Anything).Return([]common.Address{payer}, nil)
		p.On("SendTransfer", mock.Anything, mock.Anything).Return(txHash, nil)
		p.On("WaitForReceipt", mock.Anything, txHash).Return(&types.Receipt{Status: types.ReceiptStatusFailed}, errors.ErrTransactionReverted)

		_, err := NewWalletExecutor(p, recipient, 0, logger.NewNop()).Execute(context.Background(), Request{Amount: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, errors.ErrTransactionReverted)
	})
}
