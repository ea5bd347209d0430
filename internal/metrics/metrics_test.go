package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMiddlewareCountsRoutes(t *testing.T) {
	m := NewHTTP()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/posts/{postID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts/7", nil))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	want := `http_requests_total{code="404",method="GET",route="/posts/{postID}"} 2`
	if !strings.Contains(string(body), want) {
		t.Fatalf("expected %q in metrics output:\n%s", want, body)
	}
	if !strings.Contains(string(body), "http_request_duration_seconds_bucket") {
		t.Error("expected latency histogram in metrics output")
	}
}
