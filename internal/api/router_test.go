package api_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/request-queue/internal/api"
	"github.com/notifyhub/request-queue/internal/domain"
	"github.com/notifyhub/request-queue/internal/metrics"
	"github.com/notifyhub/request-queue/internal/queue"
	"github.com/notifyhub/request-queue/internal/repository"
	"github.com/notifyhub/request-queue/internal/service"
)

func newServer(t *testing.T) (*httptest.Server, *queue.Queue) {
	t.Helper()
	srv, q, _ := newServerWithStore(t)
	return srv, q
}

func newServerWithStore(t *testing.T) (*httptest.Server, *queue.Queue, *repository.MockBlobRepository) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	q := queue.New(queue.WithHooks(m.QueueHooks()))
	store := repository.NewMockBlobRepository()
	svc := service.NewRequestService(q, store, nil, zap.NewNop())
	srv := httptest.NewServer(api.NewRouter(svc, reg, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, q, store
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeItem(t *testing.T, resp *http.Response) domain.Item {
	t.Helper()
	var item domain.Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	return item
}

func TestRouter_Health(t *testing.T) {
	srv, q, store := newServerWithStore(t)
	q.Enqueue(domain.NewItem(domain.TagIdentify, nil))

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get("X-Correlation-ID") == "" {
		t.Error("expected X-Correlation-ID on every response")
	}
	var h service.Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if h.Store != service.StoreOK || h.QueueSize != 1 || h.QueueCapacity != queue.MaxItems {
		t.Errorf("unexpected health %+v", h)
	}

	store.FailPings(errors.New("connection refused"))
	resp = do(t, http.MethodGet, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status with store down = %d, want 503", resp.StatusCode)
	}
}

func TestRouter_EnqueueAndList(t *testing.T) {
	srv, q := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/queue/items", `{"tag":"t_identify","payload":{"user":"u1"}}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("enqueue status = %d, want 202", resp.StatusCode)
	}
	if item := decodeItem(t, resp); item.Tag != domain.TagIdentify || item.ID == "" {
		t.Errorf("unexpected item %+v", item)
	}
	if q.Size() != 1 {
		t.Fatalf("queue size = %d, want 1", q.Size())
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/queue", "")
	var body struct {
		Size  int           `json:"size"`
		Items []domain.Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if body.Size != 1 || len(body.Items) != 1 || body.Items[0].Tag != domain.TagIdentify {
		t.Errorf("unexpected list %+v", body)
	}
}

func TestRouter_EnqueueRejectsBadInput(t *testing.T) {
	srv, _ := newServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed JSON", `{"tag":`, http.StatusBadRequest},
		{"missing tag", `{"payload":{}}`, http.StatusUnprocessableEntity},
		{"registration tag", `{"tag":"t_register_open"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, srv.URL+"/api/v1/queue/items", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRouter_ItemsByIndex(t *testing.T) {
	srv, q := newServer(t)
	q.Enqueue(domain.NewItem(domain.TagIdentify, nil))
	q.Enqueue(domain.NewItem(domain.TagLogout, nil))

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/queue/items/1", `{"tag":"t_get_rewards"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("insert status = %d, want 202", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/queue/items/1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
	if item := decodeItem(t, resp); item.Tag != domain.TagGetRewards {
		t.Errorf("item[1] tag = %q, want %q", item.Tag, domain.TagGetRewards)
	}

	resp = do(t, http.MethodDelete, srv.URL+"/api/v1/queue/items/0", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", resp.StatusCode)
	}
	if item := decodeItem(t, resp); item.Tag != domain.TagIdentify {
		t.Errorf("removed tag = %q, want %q", item.Tag, domain.TagIdentify)
	}
	if q.Size() != 2 {
		t.Errorf("size = %d, want 2", q.Size())
	}
}

func TestRouter_IndexErrors(t *testing.T) {
	srv, _ := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"non-integer index", http.MethodGet, "/api/v1/queue/items/abc", "", http.StatusBadRequest},
		{"get past end", http.MethodGet, "/api/v1/queue/items/0", "", http.StatusNotFound},
		{"delete past end", http.MethodDelete, "/api/v1/queue/items/3", "", http.StatusNotFound},
		{"insert past end", http.MethodPost, "/api/v1/queue/items/2", `{"tag":"t_logout"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRouter_Register(t *testing.T) {
	srv, q := newServer(t)
	q.Enqueue(domain.NewItem(domain.TagIdentify, nil))
	q.Enqueue(domain.NewItem(domain.TagRegisterInstall, nil))

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/queue/register", `{"tag":"t_register_open","position_hint":0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d, want 200", resp.StatusCode)
	}
	// The queued install registration wins over the requested default tag.
	if item := decodeItem(t, resp); item.Tag != domain.TagRegisterInstall {
		t.Errorf("registration tag = %q, want %q", item.Tag, domain.TagRegisterInstall)
	}
	if head, _ := q.Peek(); head.Tag != domain.TagRegisterInstall {
		t.Errorf("head tag = %q, want %q", head.Tag, domain.TagRegisterInstall)
	}

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/queue/register", `{"tag":"t_identify"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("ordinary tag status = %d, want 422", resp.StatusCode)
	}
}

func TestRouter_Metrics(t *testing.T) {
	srv, q := newServer(t)
	q.Enqueue(domain.NewItem(domain.TagIdentify, nil))

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/metrics", "")
	var body struct {
		Queue service.Stats `json:"queue"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if body.Queue.Size != 1 || body.Queue.Capacity != queue.MaxItems {
		t.Errorf("unexpected stats %+v", body.Queue)
	}

	resp = do(t, http.MethodGet, srv.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scrape status = %d, want 200", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}
	if !strings.Contains(string(raw), "request_queue_depth 1") {
		t.Errorf("scrape output missing queue depth:\n%s", raw)
	}
}
