package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Bvvvp009/farcasterpaywall/internal/access"
	"github.com/Bvvvp009/farcasterpaywall/internal/metadata"
	"github.com/Bvvvp009/farcasterpaywall/pkg/enums"
	pkgerrors "github.com/Bvvvp009/farcasterpaywall/pkg/errors"
)

type stubAccessService struct {
	decision *access.Decision
	err      error
	got      [2]string
}

func (s *stubAccessService) Resolve(_ context.Context, contentID, identity string) (*access.Decision, error) {
	s.got = [2]string{contentID, identity}
	return s.decision, s.err
}

type stubMetadataService struct {
	desc *metadata.Descriptor
	err  error
	got  string
}

func (s *stubMetadataService) Resolve(_ context.Context, pointer string) (*metadata.Descriptor, error) {
	s.got = pointer
	return s.desc, s.err
}

func (s *stubMetadataService) ResolveForContent(_ context.Context, contentID string) (*metadata.Descriptor, error) {
	s.got = contentID
	return s.desc, s.err
}

func TestContentAccessGranted(t *testing.T) {
	svc := &stubAccessService{decision: &access.Decision{
		ContentID:      "0xabc",
		Identity:       payerAddr,
		Granted:        true,
		Reason:         enums.AccessReasonPaymentRecord,
		StoragePointer: "bafyArticle",
	}}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/content/article-1/access?identity="+payerAddr, nil, map[string]string{"contentId": "article-1"})
	ContentAccess(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.got != [2]string{"article-1", payerAddr} {
		t.Fatalf("unexpected resolve args %v", svc.got)
	}
	var envelope struct {
		Data access.Decision `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Granted || envelope.Data.Reason != enums.AccessReasonPaymentRecord {
		t.Fatalf("unexpected decision %+v", envelope.Data)
	}
}

func TestContentAccessRequiresIdentity(t *testing.T) {
	svc := &stubAccessService{}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/content/article-1/access", nil, map[string]string{"contentId": "article-1"})
	ContentAccess(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestContentAccessSurfacesErrors(t *testing.T) {
	cases := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeIdentifierTooLong, http.StatusBadRequest},
		{pkgerrors.CodeNotFound, http.StatusNotFound},
		{pkgerrors.CodeNetworkTimeout, http.StatusGatewayTimeout},
		{pkgerrors.CodeStore, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		svc := &stubAccessService{err: pkgerrors.New(tc.code, "failed")}
		rec := httptest.NewRecorder()
		req := newRequest(http.MethodGet, "/api/v1/content/x/access?identity="+payerAddr, nil, map[string]string{"contentId": "x"})
		ContentAccess(svc, nil).ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.code, tc.status, rec.Code)
		}
	}
}

func TestContentDescriptor(t *testing.T) {
	svc := &stubMetadataService{desc: &metadata.Descriptor{OriginalContentID: "article-1", ContentType: "article"}}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/content/article-1/descriptor", nil, map[string]string{"contentId": "article-1"})
	ContentDescriptor(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.got != "article-1" {
		t.Fatalf("expected lookup by content id, got %q", svc.got)
	}
}

func TestContentDescriptorGatewayExhausted(t *testing.T) {
	svc := &stubMetadataService{err: pkgerrors.New(pkgerrors.CodeGatewayExhausted, "descriptor not retrievable from any gateway")}
	rec := httptest.NewRecorder()
	req := newRequest(http.MethodGet, "/api/v1/content/article-1/descriptor", nil, map[string]string{"contentId": "article-1"})
	ContentDescriptor(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(pkgerrors.CodeGatewayExhausted) {
		t.Fatalf("unexpected code %s", code)
	}
}
