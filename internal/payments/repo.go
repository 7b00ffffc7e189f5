package payments

import (
	"context"
	"strings"

	"github.com/Bvvvp009/farcasterpaywall/pkg/db/models"
	"github.com/Bvvvp009/farcasterpaywall/pkg/kv"
)

const keyPrefix = "payment"

// Repository persists payment records keyed by (content id, case-folded payer).
type Repository interface {
	Put(ctx context.Context, record *models.PaymentRecord) error
	Get(ctx context.Context, contentID, payer string) (*models.PaymentRecord, error)
	ListByPayer(ctx context.Context, payer string) ([]models.PaymentRecord, error)
}

type repository struct {
	store kv.Store
}

// NewRepository returns a payment repository bound to the provided store.
func NewRepository(store kv.Store) Repository {
	return &repository{store: store}
}

func recordKey(contentID, payer string) string {
	return kv.Key(keyPrefix, strings.ToLower(contentID), strings.ToLower(payer))
}

func (r *repository) Put(ctx context.Context, record *models.PaymentRecord) error {
	return kv.PutJSON(ctx, r.store, recordKey(record.ContentID, record.Payer), record)
}

func (r *repository) Get(ctx context.Context, contentID, payer string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	if err := kv.GetJSON(ctx, r.store, recordKey(contentID, payer), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListByPayer(ctx context.Context, payer string) ([]models.PaymentRecord, error) {
	payer = strings.ToLower(payer)
	return kv.List(ctx, r.store, keyPrefix+":", func(rec models.PaymentRecord) bool {
		return rec.Payer == payer
	})
}
