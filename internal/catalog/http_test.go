package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ChemBase/internal/catalog"
	"ChemBase/internal/generator"
)

type stubGenerator struct {
	info  generator.Info
	err   error
	calls []string
}

func (g *stubGenerator) Generate(_ context.Context, identifier string) (generator.Info, error) {
	g.calls = append(g.calls, identifier)
	return g.info, g.err
}

func newCatalogTS(t *testing.T, gen catalog.InfoGenerator, deps catalog.HTTPDeps) *httptest.Server {
	t.Helper()

	s := &catalog.Server{
		Store:     catalog.NewStore(catalog.NewMemSlot(), zap.NewNop(), nil),
		Generator: gen,
		Log:       zap.NewNop(),
	}

	deps.Log = zap.NewNop()
	deps.Service = "chembase"
	ts := httptest.NewServer(catalog.NewHandler(s, deps))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode: %v body=%s", err, string(raw))
	}
	return v
}

func TestHTTP_ProductLifecycle(t *testing.T) {
	ts := newCatalogTS(t, &stubGenerator{}, catalog.HTTPDeps{})

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/products", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status=%d", resp.StatusCode)
	}
	if got := decode[[]catalog.Product](t, raw); len(got) != 2 {
		t.Fatalf("seed len=%d", len(got))
	}

	resp, raw = doJSON(t, http.MethodPost, ts.URL+"/products", map[string]any{
		"name":      "Hydrogen Peroxide",
		"formula":   "H2O2",
		"casNumber": "7722-84-1",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", resp.StatusCode, string(raw))
	}
	created := decode[catalog.Product](t, raw)
	if created.ID == "" {
		t.Fatalf("empty id")
	}
	if created.ImageURL != "https://picsum.photos/seed/HydrogenPeroxide/400/300" {
		t.Fatalf("imageUrl=%s", created.ImageURL)
	}

	resp, raw = doJSON(t, http.MethodPut, ts.URL+"/products/"+created.ID, map[string]any{
		"id":          "ignored",
		"name":        "Peroxide",
		"formula":     "H2O2",
		"description": "Oxidizer.",
		"imageUrl":    "https://example.com/other.png",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status=%d body=%s", resp.StatusCode, string(raw))
	}
	updated := decode[catalog.Product](t, raw)
	if updated.ID != created.ID || updated.ImageURL != created.ImageURL || updated.CASNumber != "" {
		t.Fatalf("updated=%+v", updated)
	}

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/products/"+created.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status=%d", resp.StatusCode)
	}
	if got := decode[catalog.Product](t, raw); got != updated {
		t.Fatalf("get=%+v want %+v", got, updated)
	}

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/products?q=perox", nil, nil)
	if got := decode[[]catalog.Product](t, raw); resp.StatusCode != http.StatusOK || len(got) != 1 {
		t.Fatalf("search status=%d got=%+v", resp.StatusCode, got)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/products/"+created.ID, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status=%d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/products/"+created.ID, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("repeat delete status=%d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/products/"+created.ID, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted status=%d", resp.StatusCode)
	}
}

func TestHTTP_ProductJSONFieldNames(t *testing.T) {
	ts := newCatalogTS(t, &stubGenerator{}, catalog.HTTPDeps{})

	_, raw := doJSON(t, http.MethodGet, ts.URL+"/products/2", nil, nil)
	for _, k := range []string{`"id"`, `"name"`, `"formula"`, `"casNumber"`, `"description"`, `"safetyInfo"`, `"imageUrl"`} {
		if !strings.Contains(string(raw), k) {
			t.Fatalf("field %s missing in %s", k, string(raw))
		}
	}
}

func TestHTTP_CreateRequiresNameAndFormula(t *testing.T) {
	ts := newCatalogTS(t, &stubGenerator{}, catalog.HTTPDeps{})

	for _, body := range []map[string]any{
		{"name": "Water"},
		{"formula": "H2O"},
		{"name": "  ", "formula": "H2O"},
	} {
		resp, raw := doJSON(t, http.MethodPost, ts.URL+"/products", body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body=%v status=%d raw=%s", body, resp.StatusCode, string(raw))
		}
	}

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/products", map[string]any{"name": "Water", "formula": "H2O", "colour": "none"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field status=%d", resp.StatusCode)
	}
}

func TestHTTP_Generate(t *testing.T) {
	gen := &stubGenerator{info: generator.Info{Description: "d", SafetyInfo: "* s"}}
	ts := newCatalogTS(t, gen, catalog.HTTPDeps{})

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/generate", map[string]any{"name": "", "formula": "C2H5OH"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}
	if got := decode[generator.Info](t, raw); got != gen.info {
		t.Fatalf("info=%+v", got)
	}
	if len(gen.calls) != 1 || gen.calls[0] != "C2H5OH" {
		t.Fatalf("calls=%v", gen.calls)
	}

	doJSON(t, http.MethodPost, ts.URL+"/generate", map[string]any{"name": "Ethanol", "formula": "C2H5OH"}, nil)
	if gen.calls[1] != "Ethanol" {
		t.Fatalf("name should win over formula: %v", gen.calls)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/generate", map[string]any{"name": " "}, nil)
	if resp.StatusCode != http.StatusBadRequest || len(gen.calls) != 2 {
		t.Fatalf("empty identifier status=%d calls=%d", resp.StatusCode, len(gen.calls))
	}
}

func TestHTTP_GenerateByIdentifier(t *testing.T) {
	gen := &stubGenerator{info: generator.Info{Description: "d", SafetyInfo: "* s"}}
	ts := newCatalogTS(t, gen, catalog.HTTPDeps{})

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/generate", map[string]any{"identifier": " Ethanol "}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}
	if len(gen.calls) != 1 || gen.calls[0] != "Ethanol" {
		t.Fatalf("calls=%v", gen.calls)
	}

	doJSON(t, http.MethodPost, ts.URL+"/generate", map[string]any{"identifier": "C2H5OH", "name": "Ethanol"}, nil)
	if gen.calls[1] != "C2H5OH" {
		t.Fatalf("identifier should win over name: %v", gen.calls)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/generate", map[string]any{"identifier": ""}, nil)
	if resp.StatusCode != http.StatusBadRequest || len(gen.calls) != 2 {
		t.Fatalf("empty identifier status=%d calls=%d", resp.StatusCode, len(gen.calls))
	}
}

func TestHTTP_GenerateFailureHidesCause(t *testing.T) {
	gen := &stubGenerator{err: &generator.GenerationError{Err: errors.New("secret upstream detail")}}
	ts := newCatalogTS(t, gen, catalog.HTTPDeps{})

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/generate", map[string]any{"name": "Ethanol"}, nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if strings.Contains(string(raw), "secret") {
		t.Fatalf("cause leaked: %s", string(raw))
	}
	if !strings.Contains(string(raw), generator.FailedMessage) {
		t.Fatalf("body=%s", string(raw))
	}
}

func TestHTTP_MetricsRequireToken(t *testing.T) {
	ts := newCatalogTS(t, &stubGenerator{}, catalog.HTTPDeps{
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: true,
		MetricsToken:   "tok",
	})

	doJSON(t, http.MethodGet, ts.URL+"/products", nil, nil)

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/metrics", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("no token status=%d", resp.StatusCode)
	}

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/metrics", nil, map[string]string{"Authorization": "Bearer tok"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status=%d", resp.StatusCode)
	}
	if !strings.Contains(string(raw), "http_requests_total{") || !strings.Contains(string(raw), `service="chembase"`) {
		t.Fatalf("request metric missing: %s", string(raw))
	}
}

func TestHTTP_Health(t *testing.T) {
	ts := newCatalogTS(t, &stubGenerator{}, catalog.HTTPDeps{})

	for _, p := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, http.MethodGet, ts.URL+p, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status=%d", p, resp.StatusCode)
		}
	}
}
