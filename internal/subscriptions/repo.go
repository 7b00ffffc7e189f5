package subscriptions

import (
	"context"

	"github.com/Bvvvp009/farcasterpaywall/pkg/db/models"
	"github.com/Bvvvp009/farcasterpaywall/pkg/kv"
)

const (
	subscriptionPrefix = "subscription"
	offerPrefix        = "creator_offer"
)

// Repository persists subscriptions and creator offers. Addresses passed in
// are already case-folded.
type Repository interface {
	GetSubscription(ctx context.Context, creator, subscriber string) (*models.Subscription, error)
	PutSubscription(ctx context.Context, sub *models.Subscription) error
	ListByCreator(ctx context.Context, creator string) ([]models.Subscription, error)
	ListBySubscriber(ctx context.Context, subscriber string) ([]models.Subscription, error)
	GetOffer(ctx context.Context, creator string) (*models.CreatorOffer, error)
	PutOffer(ctx context.Context, offer *models.CreatorOffer) error
}

type repository struct {
	store kv.Store
}

// NewRepository returns a subscription repository bound to the provided store.
func NewRepository(store kv.Store) Repository {
	return &repository{store: store}
}

func subscriptionKey(creator, subscriber string) string {
	return kv.Key(subscriptionPrefix, creator, subscriber)
}

func (r *repository) GetSubscription(ctx context.Context, creator, subscriber string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := kv.GetJSON(ctx, r.store, subscriptionKey(creator, subscriber), &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) PutSubscription(ctx context.Context, sub *models.Subscription) error {
	return kv.PutJSON(ctx, r.store, subscriptionKey(sub.CreatorAddress, sub.SubscriberAddress), sub)
}

func (r *repository) ListByCreator(ctx context.Context, creator string) ([]models.Subscription, error) {
	return kv.List[models.Subscription](ctx, r.store, kv.Key(subscriptionPrefix, creator)+":", nil)
}

func (r *repository) ListBySubscriber(ctx context.Context, subscriber string) ([]models.Subscription, error) {
	return kv.List(ctx, r.store, subscriptionPrefix+":", func(sub models.Subscription) bool {
		return sub.SubscriberAddress == subscriber
	})
}

func (r *repository) GetOffer(ctx context.Context, creator string) (*models.CreatorOffer, error) {
	var offer models.CreatorOffer
	if err := kv.GetJSON(ctx, r.store, kv.Key(offerPrefix, creator), &offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) PutOffer(ctx context.Context, offer *models.CreatorOffer) error {
	return kv.PutJSON(ctx, r.store, kv.Key(offerPrefix, offer.CreatorAddress), offer)
}
