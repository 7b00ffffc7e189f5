package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/Bvvvp009/farcasterpaywall/api/responses"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
	pkgredis "github.com/Bvvvp009/farcasterpaywall/pkg/redis"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotentReplayedHeader  = "Idempotent-Replayed"
	maxIdempotencyKeyBytes    = 255
	maxIdempotentBodyBytes    = 1 << 20
	reservationTTL            = 2 * time.Minute
	offerIdempotencyTTL       = 24 * time.Hour
	settlementIdempotencyTTL  = 7 * 24 * time.Hour
	idempotencyStatePending   = "pending"
	idempotencyStateCompleted = "completed"
)

// idempotentRoute binds a write route to how long its outcome is remembered.
type idempotentRoute struct {
	method string
	path   string
	// suffix, when set, makes path a prefix and matches any segment in between.
	suffix string
	ttl    time.Duration
}

func (rt idempotentRoute) matches(method, path string) bool {
	if rt.method != method {
		return false
	}
	if rt.suffix == "" {
		return path == rt.path
	}
	return strings.HasPrefix(path, rt.path) && strings.HasSuffix(path, rt.suffix) && len(path) > len(rt.path)+len(rt.suffix)
}

var idempotentRoutes = []idempotentRoute{
	{method: http.MethodPost, path: "/api/v1/payments/confirm", ttl: settlementIdempotencyTTL},
	{method: http.MethodPost, path: "/api/v1/subscriptions", ttl: settlementIdempotencyTTL},
	{method: http.MethodPost, path: "/api/v1/subscriptions/renew", ttl: settlementIdempotencyTTL},
	{method: http.MethodPost, path: "/api/v1/subscriptions/cancel", ttl: offerIdempotencyTTL},
	{method: http.MethodPut, path: "/api/v1/creators/", suffix: "/offer", ttl: offerIdempotencyTTL},
}

func lookupIdempotentRoute(method, path string) (idempotentRoute, bool) {
	for _, rt := range idempotentRoutes {
		if rt.matches(method, path) {
			return rt, true
		}
	}
	return idempotentRoute{}, false
}

// storedOutcome is what lives under an idempotency key: a pending
// reservation while the handler runs, then the captured response.
type storedOutcome struct {
	State       string `json:"state"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// Idempotency deduplicates retried writes carrying an Idempotency-Key. The
// first request reserves the key; duplicates either replay the stored
// response or get a conflict while the first is still running. Server
// errors release the key so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	g := &idempotencyGuard{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(next, w, r)
		})
	}
}

func (g *idempotencyGuard) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	route, ok := lookupIdempotentRoute(r.Method, routePattern(r))
	clientKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if !ok || g.store == nil || clientKey == "" {
		next.ServeHTTP(w, r)
		return
	}
	ctx := r.Context()
	if len(clientKey) > maxIdempotencyKeyBytes {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIdempotentBodyBytes))
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	key := g.store.IdempotencyKey(r.Method+"|"+r.URL.Path, clientKey)

	reservation, _ := json.Marshal(storedOutcome{State: idempotencyStatePending, RequestHash: hash})
	reserved, err := g.store.SetNX(ctx, key, string(reservation), reservationTTL)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
		return
	}
	if !reserved {
		g.replay(w, r, key, hash)
		return
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)

	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		if err := g.store.Del(ctx, key); err != nil {
			g.logError(r, "release idempotency key", err)
		}
		return
	}

	payload, err := json.Marshal(storedOutcome{
		State:       idempotencyStateCompleted,
		RequestHash: hash,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err == nil {
		err = g.store.Put(ctx, key, string(payload), route.ttl)
	}
	if err != nil {
		g.logError(r, "persist idempotency outcome", err)
	}
}

func (g *idempotencyGuard) replay(w http.ResponseWriter, r *http.Request, key, hash string) {
	ctx := r.Context()
	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// Released between SetNX and Get; the first attempt failed and is retryable.
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key was just released, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency outcome"))
		return
	}

	var outcome storedOutcome
	if err := json.Unmarshal([]byte(raw), &outcome); err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency outcome"))
		return
	}
	switch {
	case outcome.RequestHash != hash:
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case outcome.State != idempotencyStateCompleted:
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
	default:
		if outcome.ContentType != "" {
			w.Header().Set("Content-Type", outcome.ContentType)
		}
		w.Header().Set(IdempotentReplayedHeader, "true")
		w.WriteHeader(outcome.Status)
		_, _ = w.Write(outcome.Body)
	}
}

func (g *idempotencyGuard) logError(r *http.Request, msg string, err error) {
	if g.logg != nil {
		g.logg.Error(r.Context(), msg, err)
	}
}

// routePattern prefers chi's matched pattern. Middleware on a sub-router only
// sees a partial "/*" pattern, so the raw path is used then.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.Contains(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
