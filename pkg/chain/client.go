// Package chain is the read-only connector to the payment chain: it fetches
// transactions and receipts and performs settlement-contract view calls.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Bvvvp009/farcasterpaywall/pkg/config"
	"github.com/Bvvvp009/farcasterpaywall/pkg/contentid"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
)

const defaultTimeout = 10 * time.Second

type backend interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Transaction is the subset of a transaction the verifier needs.
type Transaction struct {
	Hash common.Hash
	To   *common.Address
}

// Receipt is the subset of a receipt the verifier needs.
type Receipt struct {
	Success     bool
	BlockNumber uint64
	GasUsed     uint64
	Logs        []*types.Log
}

// ContentRecord mirrors the settlement contract's content entry.
type ContentRecord struct {
	ID             contentid.ID
	Creator        common.Address
	Price          *big.Int
	StoragePointer string
	IsActive       bool
	CreatedAt      time.Time
}

// Exists reports whether the contract has a registration for the id.
func (c *ContentRecord) Exists() bool {
	return c != nil && c.Creator != (common.Address{})
}

// Client reads from a JSON-RPC endpoint. Every call is bounded by the
// configured timeout; a deadline surfaces as NETWORK_TIMEOUT and is never retried.
type Client struct {
	backend    backend
	raw        *ethclient.Client
	settlement common.Address
	timeout    time.Duration
}

// New dials the RPC endpoint.
func New(ctx context.Context, cfg config.ChainConfig, logg *logger.Logger) (*Client, error) {
	raw, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "settlement_contract", cfg.SettlementAddress().Hex()), "chain rpc client ready")
	}
	return newClient(raw, raw, cfg.SettlementAddress(), cfg.Timeout), nil
}

func newClient(b backend, raw *ethclient.Client, settlement common.Address, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{backend: b, raw: raw, settlement: settlement, timeout: timeout}
}

// Transaction fetches a transaction by hash. Pending transactions are
// reported as not found because they have no receipt yet.
func (c *Client) Transaction(ctx context.Context, hash common.Hash) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tx, pending, err := c.backend.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, classify(err, "fetch transaction")
	}
	if tx == nil || pending {
		return nil, pkgerrors.New(pkgerrors.CodeTransactionNotFound, "transaction not found").
			WithDetails(map[string]any{"tx_hash": hash.Hex(), "pending": pending})
	}
	return &Transaction{Hash: tx.Hash(), To: tx.To()}, nil
}

// Receipt fetches the receipt of a mined transaction.
func (c *Client) Receipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := c.backend.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, classify(err, "fetch receipt")
	}
	if receipt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeTransactionNotFound, "receipt not found").
			WithDetails(map[string]any{"tx_hash": hash.Hex()})
	}
	out := &Receipt{
		Success: receipt.Status == types.ReceiptStatusSuccessful,
		GasUsed: receipt.GasUsed,
		Logs:    receipt.Logs,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return out, nil
}

// GetContent calls getContent(bytes32). Unregistered ids come back with a
// zero creator; callers check Exists.
func (c *Client) GetContent(ctx context.Context, id contentid.ID) (*ContentRecord, error) {
	out, err := c.call(ctx, "getContent", id.Bytes32())
	if err != nil {
		return nil, err
	}
	if len(out) != 5 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "unexpected getContent output")
	}
	record := &ContentRecord{
		ID:             id,
		Creator:        *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		Price:          *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		StoragePointer: *abi.ConvertType(out[2], new(string)).(*string),
		IsActive:       *abi.ConvertType(out[3], new(bool)).(*bool),
	}
	createdAt := *abi.ConvertType(out[4], new(*big.Int)).(**big.Int)
	if createdAt != nil && createdAt.Sign() > 0 {
		record.CreatedAt = time.Unix(createdAt.Int64(), 0).UTC()
	}
	if record.Price == nil {
		record.Price = new(big.Int)
	}
	return record, nil
}

// CheckAccess calls checkAccess(address,bytes32).
func (c *Client) CheckAccess(ctx context.Context, identity common.Address, id contentid.ID) (bool, error) {
	out, err := c.call(ctx, "checkAccess", identity, id.Bytes32())
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "unexpected checkAccess output")
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// Ping checks the endpoint answers eth_blockNumber.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.backend.BlockNumber(ctx); err != nil {
		return classify(err, "block number")
	}
	return nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	if c.raw != nil {
		c.raw.Close()
	}
}

func (c *Client) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := SettlementABI.Pack(method, args...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pack "+method)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	to := c.settlement
	raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, classify(err, "call "+method)
	}
	out, err := SettlementABI.Unpack(method, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unpack "+method)
	}
	return out, nil
}

func classify(err error, op string) error {
	if errors.Is(err, ethereum.NotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeTransactionNotFound, err, op)
	}
	if IsTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNetworkTimeout, err, op)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

// IsTimeout reports whether err is a deadline, a cancellation or a network
// timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
