package controllers

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/Bvvvp009/farcasterpaywall/api/responses"
	"github.com/Bvvvp009/farcasterpaywall/pkg/config"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
)

const envHeader = "X-Paywall-Env"

// Pinger is implemented by every backing dependency the service needs to serve traffic.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names one dependency probed by HealthReady.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every check concurrently and reports all that failed.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		failures := make([]error, len(checks))
		g, ctx := errgroup.WithContext(r.Context())
		for i, check := range checks {
			if check.Pinger == nil {
				continue
			}
			g.Go(func() error {
				if err := check.Pinger.Ping(ctx); err != nil {
					failures[i] = fmt.Errorf("%s: %w", check.Name, err)
				}
				return nil
			})
		}
		_ = g.Wait()

		var errs error
		var failed []string
		for i, err := range failures {
			if err != nil {
				errs = multierr.Append(errs, err)
				failed = append(failed, checks[i].Name)
			}
		}
		if errs != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "dependency not ready").
					WithDetails(map[string]any{"dependencies": failed}))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
