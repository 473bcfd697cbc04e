package jobs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestHealthWithoutInspector(t *testing.T) {
	router := newTestRouter(NewHandler(nil, nil, nil))

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		Queue   string `json:"queue"`
		Pending int    `json:"pending"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body.Queue != QueueDefault || body.Pending != 0 {
		t.Fatalf("unexpected health body: %+v", body)
	}
}

func TestQueueStatsWithoutInspector(t *testing.T) {
	router := newTestRouter(NewHandler(nil, nil, nil))

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/jobs/queues/default", nil))

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without inspector, got %d", res.Code)
	}
}

func TestEnqueueEndpointsRequireClient(t *testing.T) {
	router := newTestRouter(NewHandler(nil, nil, nil))

	for _, path := range []string{"/jobs/warmup", "/jobs/sweep"} {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, path, nil))
		if res.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503 without client, got %d", path, res.Code)
		}
	}
}

func TestEnqueueRejectsMalformedPayload(t *testing.T) {
	router := newTestRouter(NewHandler(nil, nil, nil))

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/jobs/warmup", strings.NewReader("{not json"))
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", res.Code)
	}
}
