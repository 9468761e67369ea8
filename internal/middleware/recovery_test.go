package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/regdata/rdapgw/internal/observability"
	"github.com/regdata/rdapgw/internal/rdap"
	"github.com/regdata/rdapgw/internal/rdap/conformance"
)

func testProvider(t *testing.T) *conformance.Provider {
	t.Helper()
	conf, err := conformance.NewProvider(context.Background(), conformance.StaticSource{"rdap_level_0"})
	if err != nil {
		t.Fatalf("failed to build conformance provider: %v", err)
	}
	return conf
}

func TestRecovery_PassesThrough(t *testing.T) {
	handler := Recovery(observability.NopLogger(), testProvider(t))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/example.com", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRecovery_RecoversPanic(t *testing.T) {
	handler := Recovery(observability.NopLogger(), testProvider(t))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("downstream fault")
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/example.com", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != rdap.ContentTypeRDAP {
		t.Errorf("expected content type %q, got %q", rdap.ContentTypeRDAP, got)
	}

	var body rdap.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ErrorCode != http.StatusInternalServerError {
		t.Errorf("expected errorCode 500, got %d", body.ErrorCode)
	}
	if len(body.RDAPConformance) == 0 {
		t.Error("expected conformance list attached to error body")
	}
}

func TestRecovery_NilProvider(t *testing.T) {
	handler := Recovery(observability.NopLogger(), nil)(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("downstream fault")
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/example.com", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
