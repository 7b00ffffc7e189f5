package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/Bvvvp009/farcasterpaywall/pkg/contentid"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
)

type fakeBackend struct {
	tx       *types.Transaction
	pending  bool
	txErr    error
	receipt  *types.Receipt
	rcptErr  error
	callOut  []byte
	callErr  error
	lastCall ethereum.CallMsg
	block    uint64
	blockErr error
	sawDL    bool
}

func (f *fakeBackend) TransactionByHash(ctx context.Context, _ common.Hash) (*types.Transaction, bool, error) {
	_, f.sawDL = ctx.Deadline()
	return f.tx, f.pending, f.txErr
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return f.receipt, f.rcptErr
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.lastCall = msg
	return f.callOut, f.callErr
}

func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	return f.block, f.blockErr
}

var (
	settlement = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token      = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
)

func testClient(b backend) *Client {
	return newClient(b, nil, settlement, time.Second)
}

func TestTransactionAppliesDeadline(t *testing.T) {
	tx := types.NewTransaction(1, token, big.NewInt(0), 21000, big.NewInt(1), nil)
	b := &fakeBackend{tx: tx}

	got, err := testClient(b).Transaction(context.Background(), tx.Hash())
	require.NoError(t, err)
	require.True(t, b.sawDL)
	require.Equal(t, token, *got.To)
}

func TestTransactionPendingIsNotFound(t *testing.T) {
	tx := types.NewTransaction(1, token, big.NewInt(0), 21000, big.NewInt(1), nil)
	_, err := testClient(&fakeBackend{tx: tx, pending: true}).Transaction(context.Background(), tx.Hash())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeTransactionNotFound))
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want pkgerrors.Code
	}{
		{"not found", ethereum.NotFound, pkgerrors.CodeTransactionNotFound},
		{"deadline", context.DeadlineExceeded, pkgerrors.CodeNetworkTimeout},
		{"wrapped deadline", errors.Join(errors.New("post"), context.DeadlineExceeded), pkgerrors.CodeNetworkTimeout},
		{"caller cancelled", context.Canceled, pkgerrors.CodeNetworkTimeout},
		{"wrapped cancel", fmt.Errorf("post: %w", context.Canceled), pkgerrors.CodeNetworkTimeout},
		{"other", errors.New("connection refused"), pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := testClient(&fakeBackend{rcptErr: tc.err}).Receipt(context.Background(), common.Hash{})
			require.Equal(t, tc.want, pkgerrors.CodeOf(err))
		})
	}
}

func TestReceiptMapsStatus(t *testing.T) {
	b := &fakeBackend{receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(42), GasUsed: 50000}}
	got, err := testClient(b).Receipt(context.Background(), common.Hash{})
	require.NoError(t, err)
	require.False(t, got.Success)
	require.EqualValues(t, 42, got.BlockNumber)
	require.EqualValues(t, 50000, got.GasUsed)
}

func TestGetContentDecodesOutputs(t *testing.T) {
	creator := common.HexToAddress("0x1111111111111111111111111111111111111111")
	out, err := SettlementABI.Methods["getContent"].Outputs.Pack(
		creator, big.NewInt(100000), "bafyPointer", true, big.NewInt(1700000000),
	)
	require.NoError(t, err)

	b := &fakeBackend{callOut: out}
	id, err := contentid.Encode("article-1")
	require.NoError(t, err)

	rec, err := testClient(b).GetContent(context.Background(), id)
	require.NoError(t, err)
	require.True(t, rec.Exists())
	require.Equal(t, creator, rec.Creator)
	require.Equal(t, "100000", rec.Price.String())
	require.Equal(t, "bafyPointer", rec.StoragePointer)
	require.True(t, rec.IsActive)
	require.Equal(t, int64(1700000000), rec.CreatedAt.Unix())
	require.Equal(t, settlement, *b.lastCall.To)
	require.Equal(t, SettlementABI.Methods["getContent"].ID, b.lastCall.Data[:4])
}

func TestGetContentUnknownHasZeroCreator(t *testing.T) {
	out, err := SettlementABI.Methods["getContent"].Outputs.Pack(
		common.Address{}, big.NewInt(0), "", false, big.NewInt(0),
	)
	require.NoError(t, err)

	rec, err := testClient(&fakeBackend{callOut: out}).GetContent(context.Background(), contentid.Zero)
	require.NoError(t, err)
	require.False(t, rec.Exists())
	require.True(t, rec.CreatedAt.IsZero())
}

func TestCheckAccess(t *testing.T) {
	out, err := SettlementABI.Methods["checkAccess"].Outputs.Pack(true)
	require.NoError(t, err)

	ok, err := testClient(&fakeBackend{callOut: out}).CheckAccess(context.Background(), common.Address{1}, contentid.Zero)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = testClient(&fakeBackend{callErr: context.DeadlineExceeded}).CheckAccess(context.Background(), common.Address{1}, contentid.Zero)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNetworkTimeout))
}

func TestPing(t *testing.T) {
	require.NoError(t, testClient(&fakeBackend{block: 10}).Ping(context.Background()))
	err := testClient(&fakeBackend{blockErr: errors.New("down")}).Ping(context.Background())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}
