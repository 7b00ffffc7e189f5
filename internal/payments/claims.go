package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Bvvvp009/farcasterpaywall/pkg/db/models"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/kv"
)

const claimPrefix = "settled_tx"

// ClaimStore records which transactions have already paid for something.
// Content payments and subscription fees share one namespace, so a single
// transfer settles at most one purpose.
//
// Check and Claim are separate calls; two concurrent claims of the same hash
// can both pass Check.
type ClaimStore interface {
	// Check returns the existing claim, or nil when the hash is unspent.
	Check(ctx context.Context, txHash string) (*models.TxClaim, error)
	Claim(ctx context.Context, txHash, purpose string) error
	Release(ctx context.Context, txHash string) error
}

type claimStore struct {
	store kv.Store
	now   func() time.Time
}

// NewClaimStore returns a claim store over the shared key/value store.
func NewClaimStore(store kv.Store) ClaimStore {
	return &claimStore{store: store, now: time.Now}
}

func claimKey(txHash string) string {
	return kv.Key(claimPrefix, strings.ToLower(txHash))
}

func (c *claimStore) Check(ctx context.Context, txHash string) (*models.TxClaim, error) {
	var claim models.TxClaim
	err := kv.GetJSON(ctx, c.store, claimKey(txHash), &claim)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, err, "load transaction claim")
	}
	return &claim, nil
}

func (c *claimStore) Claim(ctx context.Context, txHash, purpose string) error {
	claim := models.TxClaim{
		TxHash:    strings.ToLower(txHash),
		Purpose:   purpose,
		ClaimedAt: c.now().UTC(),
	}
	if err := kv.PutJSON(ctx, c.store, claimKey(txHash), claim); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "persist transaction claim")
	}
	return nil
}

func (c *claimStore) Release(ctx context.Context, txHash string) error {
	if err := c.store.Delete(ctx, claimKey(txHash)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, err, "release transaction claim")
	}
	return nil
}

// ErrTransactionUsed builds the rejection for a hash already claimed by
// another purpose.
func ErrTransactionUsed(claim *models.TxClaim) error {
	return pkgerrors.New(pkgerrors.CodeTransactionUsed, "transaction already used for another purchase").
		WithDetails(map[string]any{"tx_hash": claim.TxHash})
}
