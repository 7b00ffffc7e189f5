package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bvvvp009/farcasterpaywall/api/controllers"
	"github.com/Bvvvp009/farcasterpaywall/api/middleware"
	"github.com/Bvvvp009/farcasterpaywall/internal/access"
	"github.com/Bvvvp009/farcasterpaywall/internal/metadata"
	"github.com/Bvvvp009/farcasterpaywall/internal/payments"
	"github.com/Bvvvp009/farcasterpaywall/internal/subscriptions"
	"github.com/Bvvvp009/farcasterpaywall/pkg/config"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
	"github.com/Bvvvp009/farcasterpaywall/pkg/redis"
)

// Services groups the domain services exposed over HTTP.
type Services struct {
	Payments      payments.Service
	Access        access.Service
	Metadata      metadata.Service
	Subscriptions subscriptions.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	storePinger controllers.Pinger,
	chainPinger controllers.Pinger,
	idempotencyStore redis.IdempotencyStore,
	gatherer prometheus.Gatherer,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessCheck{Name: "store", Pinger: storePinger},
			controllers.ReadinessCheck{Name: "chain", Pinger: chainPinger},
		))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		idempotent := r.With(middleware.Idempotency(idempotencyStore, logg))

		r.Post("/payments/verify", controllers.PaymentVerify(svc.Payments, logg))
		idempotent.Post("/payments/confirm", controllers.PaymentConfirm(svc.Payments, logg))
		r.Get("/payments/{contentId}/{payer}", controllers.PaymentGet(svc.Payments, logg))
		r.Get("/payers/{payer}/payments", controllers.PayerPayments(svc.Payments, logg))

		r.Get("/content/{contentId}/access", controllers.ContentAccess(svc.Access, logg))
		r.Get("/content/{contentId}/descriptor", controllers.ContentDescriptor(svc.Metadata, logg))

		idempotent.Post("/subscriptions", controllers.SubscriptionCreate(svc.Subscriptions, logg))
		idempotent.Post("/subscriptions/renew", controllers.SubscriptionRenew(svc.Subscriptions, logg))
		idempotent.Post("/subscriptions/cancel", controllers.SubscriptionCancel(svc.Subscriptions, logg))
		r.Get("/subscriptions/{creator}/{subscriber}", controllers.SubscriptionCheck(svc.Subscriptions, logg))
		r.Get("/subscribers/{subscriber}/subscriptions", controllers.SubscriberSubscriptions(svc.Subscriptions, logg))

		r.Get("/creators/{creator}/offer", controllers.CreatorOfferGet(svc.Subscriptions, logg))
		idempotent.Put("/creators/{creator}/offer", controllers.CreatorOfferPut(svc.Subscriptions, logg))
		r.Get("/creators/{creator}/subscriptions", controllers.CreatorSubscribers(svc.Subscriptions, logg))
	})

	return r
}
