package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking_parser/internal/pipeline"
	"booking_parser/internal/registry"
	"booking_parser/internal/storage"
	"booking_parser/internal/templates/generic"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]storage.Record
	order   []string
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]storage.Record)}
}

func (m *memStore) SaveOrder(_ context.Context, r storage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.records[r.ID] = r
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id string) (*storage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (m *memStore) ListOrders(_ context.Context, p storage.ListParams) ([]storage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.Record
	for _, id := range m.order {
		r := m.records[id]
		if p.Template != "" && r.Template != p.Template {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

const booking = `{
	"id": "doc-1",
	"filename": "booking.pdf",
	"lines": [
		"BOOKING CONFIRMATION",
		"ACME LOGISTICS LTD",
		"Rate: EUR 1,250.50",
		"LOADING: ACME FACTORY",
		"12 RUE DE PARIS",
		"75001 PARIS",
		"DELIVERY: BETA WAREHOUSE",
		"SS17 9FJ STANFORD LE HOPE",
		"10 PALLETS"
	]
}`

func newTestServer(cfg Config) (*Server, *memStore) {
	reg := registry.New()
	reg.RegisterCatchAll(generic.New())
	reg.Sort()

	store := newMemStore()
	proc := &pipeline.Processor{Registry: reg, Store: store}
	return NewServer(proc, cfg, nil), store
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(Config{AuthEnabled: true, APIKeys: []string{"secret"}})

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["templates"])
	assert.Equal(t, true, body["store"])
}

func TestAuth(t *testing.T) {
	s, _ := newTestServer(Config{AuthEnabled: true, APIKeys: []string{"secret"}})
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/templates", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/templates", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/templates", "", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/templates", "", map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractAndFetch(t *testing.T) {
	s, store := newTestServer(Config{})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/extract", booking, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		DocumentID string `json:"document_id"`
		Template   string `json:"template"`
		Stored     bool   `json:"stored"`
		Payload    struct {
			Customer struct {
				Name string `json:"name"`
			} `json:"customer"`
			Loading []struct {
				City string `json:"city"`
			} `json:"loading"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "doc-1", out.DocumentID)
	assert.Equal(t, "generic", out.Template)
	assert.True(t, out.Stored)
	assert.Len(t, store.records, 1)

	rec = do(t, h, http.MethodGet, "/api/v1/orders/doc-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got storage.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "doc-1", got.ID)
	assert.Equal(t, "generic", got.Template)

	rec = do(t, h, http.MethodGet, "/api/v1/orders?template=generic", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []storage.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(t, h, http.MethodGet, "/api/v1/orders?template=ziegler", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestExtractNoPersist(t *testing.T) {
	s, store := newTestServer(Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/v1/extract?persist=false", booking, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.records)
}

func TestExtractBadInput(t *testing.T) {
	s, _ := newTestServer(Config{})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/extract", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/extract", `{"id":"x","lines":[]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/extract", `{"id":"x","lines":["   ",""]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrderNotFound(t *testing.T) {
	s, _ := newTestServer(Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/orders/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrdersBadLimit(t *testing.T) {
	s, _ := newTestServer(Config{})

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/orders?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoStore(t *testing.T) {
	reg := registry.New()
	reg.RegisterCatchAll(generic.New())
	s := NewServer(&pipeline.Processor{Registry: reg}, Config{}, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClassify(t *testing.T) {
	s, _ := newTestServer(Config{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/v1/classify?trace=true", booking, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClassifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "generic", resp.Template)
	assert.Empty(t, resp.Matching)
	require.Len(t, resp.Traces, 1)
	assert.Equal(t, "generic", resp.Traces[0].TemplateName)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(Config{RateLimit: 0.001, Burst: 2})
	h := s.Handler()

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/api/v1/templates", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/v1/templates", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Health is never limited.
	rec = do(t, h, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
