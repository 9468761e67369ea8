package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/regdata/rdapgw/internal/rdap"
	"github.com/regdata/rdapgw/internal/rdap/conformance"
)

func newTestProvider(t *testing.T) *conformance.Provider {
	t.Helper()
	conf, err := conformance.NewProvider(context.Background(), conformance.StaticSource{"rdap_level_0"})
	if err != nil {
		t.Fatalf("failed to build conformance provider: %v", err)
	}
	return conf
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) *rdap.ErrorResponse {
	t.Helper()
	var resp rdap.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return &resp
}

func TestPipeline_ForwardsValidRequest(t *testing.T) {
	ac := NewAdmissionController(1)
	p := NewPipeline(ac, newTestProvider(t))

	var gotPath string
	handler := p.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/example.com", nil)
	req.Header.Set("Accept", rdap.ContentTypeRDAP)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotPath != "/.well-known/rdap/domain/example.com" {
		t.Errorf("downstream saw path %q", gotPath)
	}
	if ac.Current() != 0 {
		t.Errorf("expected slot released, current = %d", ac.Current())
	}
}

func TestPipeline_ForwardsDecodedEntityPath(t *testing.T) {
	ac := NewAdmissionController(1)
	p := NewPipeline(ac, newTestProvider(t))

	var gotPath string
	handler := p.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))

	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/entity/foo%20bar", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotPath != "/.well-known/rdap/entity/foo bar" {
		t.Errorf("downstream saw path %q", gotPath)
	}
}

// Percent-encoded UTF-8 in the final segment must reach the downstream
// handler as the decoded key, byte for byte.
func TestPipeline_ForwardsNonASCIILookupKey(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"latin accent", "/.well-known/rdap/domain/caf%C3%A9.example", "/.well-known/rdap/domain/café.example"},
		{"cjk idn label", "/.well-known/rdap/domain/%E4%BE%8B%E3%81%88.jp", "/.well-known/rdap/domain/例え.jp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := NewAdmissionController(1)
			p := NewPipeline(ac, newTestProvider(t))

			var gotPath string
			handler := p.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
			}))

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if gotPath != tt.want {
				t.Errorf("downstream saw path %q, want %q", gotPath, tt.want)
			}
		})
	}
}

// With the servlet charset correction enabled, a path mangled by an
// ISO-8859-1 front layer is recovered before forwarding.
func TestPipeline_ServletCharsetCorrection(t *testing.T) {
	ac := NewAdmissionController(1)
	p := NewPipeline(ac, newTestProvider(t), WithServletCharsetCorrection())

	var gotPath string
	handler := p.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))

	// c3 a9 misread as ISO-8859-1 yields "Ã©"; the correction maps it
	// back to "é".
	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/caf%C3%83%C2%A9.example", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotPath != "/.well-known/rdap/domain/café.example" {
		t.Errorf("downstream saw path %q, want %q", gotPath, "/.well-known/rdap/domain/café.example")
	}
}

func TestPipeline_RejectsInvalidPath(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"empty path via root", "/"},
		{"trailing slash", "/.well-known/rdap/domain/example.com/"},
		{"doubled slash", "/.well-known/rdap/domain/a//b"},
		{"missing prefix", "/domain/example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := NewAdmissionController(1)
			p := NewPipeline(ac, newTestProvider(t))

			downstreamCalled := false
			handler := p.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				downstreamCalled = true
			}))

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if downstreamCalled {
				t.Error("downstream handler must not run for rejected requests")
			}
			if got := rec.Header().Get("Content-Type"); got != rdap.ContentTypeRDAP {
				t.Errorf("expected content type %q, got %q", rdap.ContentTypeRDAP, got)
			}

			resp := decodeErrorBody(t, rec)
			if resp.ErrorCode != http.StatusBadRequest {
				t.Errorf("expected errorCode 400, got %d", resp.ErrorCode)
			}
			if len(resp.RDAPConformance) == 0 {
				t.Error("expected conformance list attached to error body")
			}
			if ac.Current() != 0 {
				t.Errorf("rejected request must not consume a slot, current = %d", ac.Current())
			}
		})
	}
}

func TestPipeline_RejectsMediaTypeMismatch(t *testing.T) {
	ac := NewAdmissionController(1)
	p := NewPipeline(ac, newTestProvider(t))
	handler := p.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("downstream handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/example.com", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if ac.Current() != 0 {
		t.Errorf("expected no slot consumed, current = %d", ac.Current())
	}
}

func TestPipeline_OverloadResponse(t *testing.T) {
	ac := NewAdmissionController(0)
	p := NewPipeline(ac, newTestProvider(t))
	handler := p.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("downstream handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/example.com", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != rdap.StatusTooManyConnections {
		t.Fatalf("expected 509, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	resp := decodeErrorBody(t, rec)
	if resp.ErrorCode != rdap.StatusTooManyConnections {
		t.Errorf("expected errorCode 509, got %d", resp.ErrorCode)
	}
	if len(resp.RDAPConformance) == 0 {
		t.Error("expected conformance list attached to overload body")
	}
}

// Three simultaneous requests against max = 2: exactly two are
// processed, one is rejected with 509, and a fourth request is
// admitted normally once the in-flight pair completes.
func TestPipeline_ConcurrentOverload(t *testing.T) {
	ac := NewAdmissionController(2)
	p := NewPipeline(ac, newTestProvider(t))

	release := make(chan struct{})
	started := make(chan struct{}, 3)
	handler := p.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		started <- struct{}{}
		<-release
	}))

	results := make(chan int, 3)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/example.com", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			results <- rec.Code
		}()
	}

	// Two requests occupy both slots and block in the handler.
	waitFor(t, started)
	waitFor(t, started)

	// The third is rejected without queuing.
	select {
	case code := <-results:
		if code != rdap.StatusTooManyConnections {
			t.Fatalf("expected 509 for third request, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("third request was not rejected immediately")
	}

	close(release)
	wg.Wait()
	close(results)
	for code := range results {
		if code != http.StatusOK {
			t.Errorf("expected 200 for admitted request, got %d", code)
		}
	}

	// Capacity is fully restored.
	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/example.net", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected fourth request admitted, got %d", rec.Code)
	}
	if ac.Current() != 0 {
		t.Errorf("expected current 0, got %d", ac.Current())
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler to start")
	}
}

// A panicking downstream handler must still release its admission slot
// before the panic propagates to the outer recovery layer.
func TestPipeline_ReleasesOnPanic(t *testing.T) {
	ac := NewAdmissionController(1)
	p := NewPipeline(ac, newTestProvider(t))
	inner := p.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("downstream fault")
	}))

	var releasedBeforeRecover bool
	outer := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recover() != nil {
				releasedBeforeRecover = ac.Current() == 0
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		inner.ServeHTTP(w, r)
	})

	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/example.com", nil)
	rec := httptest.NewRecorder()
	outer.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !releasedBeforeRecover {
		t.Error("slot was not released before the panic reached the outer handler")
	}
	if !ac.TryAdmit() {
		t.Error("capacity not restored after panic")
	}
}

func TestPipeline_ReleasesOnCanceledContext(t *testing.T) {
	ac := NewAdmissionController(1)
	p := NewPipeline(ac, newTestProvider(t))
	handler := p.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/.well-known/rdap/domain/example.com", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	handler.ServeHTTP(rec, req)

	if ac.Current() != 0 {
		t.Errorf("expected slot released after cancellation, current = %d", ac.Current())
	}
}
