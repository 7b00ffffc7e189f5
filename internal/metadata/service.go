// Package metadata fetches content descriptor documents from retrieval gateways.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/Bvvvp009/farcasterpaywall/pkg/chain"
	"github.com/Bvvvp009/farcasterpaywall/pkg/contentid"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
	"github.com/Bvvvp009/farcasterpaywall/pkg/metrics"
)

const (
	defaultAttemptTimeout       = 5 * time.Second
	descriptorReadLimit   int64 = 1 << 20
	pointerScheme               = "ipfs://"
)

// Descriptor is the off-chain document describing one content item.
type Descriptor struct {
	OriginalContentID         string      `json:"originalContentId" validate:"required"`
	Creator                   string      `json:"creator"`
	Price                     json.Number `json:"price,omitempty"`
	CreatedAt                 string      `json:"createdAt,omitempty"`
	ContentType               string      `json:"contentType,omitempty"`
	EncryptedPayload          string      `json:"encryptedPayload,omitempty"`
	EncryptionKeyMaterialHash string      `json:"encryptionKeyMaterialHash,omitempty"`
}

// ContentReader looks up the on-chain record holding the storage pointer.
type ContentReader interface {
	GetContent(ctx context.Context, id contentid.ID) (*chain.ContentRecord, error)
}

// Service resolves descriptors.
type Service interface {
	Resolve(ctx context.Context, storagePointer string) (*Descriptor, error)
	ResolveForContent(ctx context.Context, contentID string) (*Descriptor, error)
}

// Option configures optional resolver behavior.
type Option func(*service)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *service) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithAttemptTimeout overrides the per-gateway timeout.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(s *service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithContentReader enables ResolveForContent.
func WithContentReader(reader ContentReader) Option {
	return func(s *service) {
		s.content = reader
	}
}

// WithMetrics records gateway attempt outcomes.
func WithMetrics(m *metrics.PaywallMetrics) Option {
	return func(s *service) {
		s.metrics = m
	}
}

// WithLogger attaches a logger for per-attempt failures.
func WithLogger(logg *logger.Logger) Option {
	return func(s *service) {
		s.logg = logg
	}
}

type service struct {
	gateways   []string
	httpClient *http.Client
	timeout    time.Duration
	content    ContentReader
	metrics    *metrics.PaywallMetrics
	logg       *logger.Logger
	validate   *validator.Validate
}

// NewService builds a resolver over the ordered gateway list.
func NewService(gateways []string, opts ...Option) (Service, error) {
	cleaned := make([]string, 0, len(gateways))
	for _, gw := range gateways {
		gw = strings.TrimRight(strings.TrimSpace(gw), "/")
		if gw != "" {
			cleaned = append(cleaned, gw)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("at least one gateway is required")
	}

	s := &service{
		gateways:   cleaned,
		httpClient: &http.Client{},
		timeout:    defaultAttemptTimeout,
		validate:   validator.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Resolve tries each gateway in order and returns the first document that
// parses. A failed gateway is not retried.
func (s *service) Resolve(ctx context.Context, storagePointer string) (*Descriptor, error) {
	pointer, err := normalizePointer(storagePointer)
	if err != nil {
		return nil, err
	}

	var errs error
	for _, gw := range s.gateways {
		desc, err := s.fetch(ctx, gw+"/"+pointer)
		if err == nil {
			s.metrics.IncGatewayAttempt(metrics.GatewayOutcomeSuccess)
			return desc, nil
		}
		s.metrics.IncGatewayAttempt(metrics.GatewayOutcomeFailure)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", gw, err))
		if s.logg != nil {
			s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"gateway": gw, "error": err.Error()}), "gateway attempt failed")
		}
		if ctx.Err() != nil {
			break
		}
	}

	attempts := make([]string, 0, len(s.gateways))
	for _, e := range multierr.Errors(errs) {
		attempts = append(attempts, e.Error())
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayExhausted, errs, "descriptor not retrievable from any gateway").
		WithDetails(map[string]any{"pointer": pointer, "attempts": attempts})
}

func (s *service) ResolveForContent(ctx context.Context, contentID string) (*Descriptor, error) {
	if s.content == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "content reader not configured")
	}
	id, err := contentid.Parse(contentID)
	if err != nil {
		return nil, err
	}
	record, err := s.content.GetContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.Exists() || strings.TrimSpace(record.StoragePointer) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found").
			WithDetails(map[string]any{"content_id": id.Hex()})
	}
	return s.Resolve(ctx, record.StoragePointer)
}

func (s *service) fetch(ctx context.Context, url string) (*Descriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, descriptorReadLimit))
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var desc Descriptor
	if err := json.NewDecoder(io.LimitReader(resp.Body, descriptorReadLimit)).Decode(&desc); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	if err := s.validate.Struct(desc); err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}
	return &desc, nil
}

func normalizePointer(raw string) (string, error) {
	pointer := strings.TrimSpace(raw)
	pointer = strings.TrimPrefix(pointer, pointerScheme)
	pointer = strings.TrimPrefix(pointer, "/ipfs/")
	pointer = strings.TrimLeft(pointer, "/")
	if pointer == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "storage pointer is required")
	}
	if strings.Contains(pointer, "://") || strings.Contains(pointer, "..") || strings.ContainsAny(pointer, "?# ") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "storage pointer must be a content address")
	}
	return pointer, nil
}
