package modelserver

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/metrics"
	"github.com/kailas-cloud/facedex/internal/version"
)

func TestMain(m *testing.M) {
	metrics.RegisterFaceMetrics()
	os.Exit(m.Run())
}

// fakeSidecar serves the three model endpoints and validates the multipart payloads.
func fakeSidecar(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("missing image part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		if hdr.Header.Get("Content-Type") != "image/png" {
			t.Errorf("unexpected image content type %q", hdr.Header.Get("Content-Type"))
		}
		if _, err := png.Decode(f); err != nil {
			t.Errorf("image part is not a PNG: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/detect":
			_, _ = w.Write([]byte(`{"faces":[{"left":10,"top":20,"right":110,"bottom":140,"score":0.98}]}`))
		case "/v1/landmarks":
			var region regionPayload
			if err := json.Unmarshal([]byte(r.FormValue("region")), &region); err != nil {
				t.Errorf("bad region field: %v", err)
			}
			if region.Left != 10 || region.Bottom != 140 {
				t.Errorf("unexpected region %+v", region)
			}
			_, _ = w.Write([]byte(`{"points":[[30,40],[90,40],[60,100]]}`))
		case "/v1/descriptor":
			var points [][2]int
			if err := json.Unmarshal([]byte(r.FormValue("landmarks")), &points); err != nil {
				t.Errorf("bad landmarks field: %v", err)
			}
			if len(points) != 3 {
				t.Errorf("expected 3 landmarks, got %d", len(points))
			}
			desc := make([]float64, domain.EmbeddingDim)
			for i := range desc {
				desc[i] = float64(i) / 1000
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"descriptor": desc})
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestClient(url string, failures uint32) *Client {
	return New(&Config{
		BaseURL:            url + "/",
		Timeout:            time.Second,
		BreakerFailures:    failures,
		BreakerOpenTimeout: time.Minute,
		Logger:             zap.NewNop(),
	})
}

func TestClient_Pipeline(t *testing.T) {
	srv := fakeSidecar(t)
	defer srv.Close()

	c := newTestClient(srv.URL, 5)
	ctx := context.Background()

	img := image.NewRGBA(image.Rect(0, 0, 160, 160))
	img.Set(5, 5, color.White)

	gray := image.NewGray(img.Bounds())
	regions, err := c.Detect(ctx, gray)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if regions[0].Rect != image.Rect(10, 20, 110, 140) || regions[0].Score != 0.98 {
		t.Errorf("unexpected region %+v", regions[0])
	}

	lm, err := c.Landmarks(ctx, img, regions[0])
	if err != nil {
		t.Fatalf("Landmarks failed: %v", err)
	}
	if len(lm) != 3 || lm[1] != image.Pt(90, 40) {
		t.Errorf("unexpected landmarks %v", lm)
	}

	emb, err := c.Descriptor(ctx, img, lm)
	if err != nil {
		t.Fatalf("Descriptor failed: %v", err)
	}
	if err := emb.Validate(); err != nil {
		t.Errorf("descriptor invalid: %v", err)
	}
	if emb[5] != 0.005 {
		t.Errorf("emb[5] = %v, want 0.005", emb[5])
	}
}

func TestClient_DetectNoFaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"faces":[]}`))
	}))
	defer srv.Close()

	regions, err := newTestClient(srv.URL, 5).Detect(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("expected no regions, got %d", len(regions))
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"image too small"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 5).Detect(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	if !errors.Is(err, domain.ErrModelBackend) {
		t.Fatalf("expected ErrModelBackend, got %v", err)
	}

	want := "detect: face model backend error: status 422: image too small"
	if err.Error() != want {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), want)
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 5).Detect(context.Background(), image.NewGray(image.Rect(0, 0, 4, 4)))
	if !errors.Is(err, domain.ErrModelBackend) {
		t.Errorf("expected ErrModelBackend, got %v", err)
	}
}

func TestClient_EmptyLandmarks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"points":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 5).Landmarks(context.Background(),
		image.NewRGBA(image.Rect(0, 0, 4, 4)), domain.FaceRegion{Rect: image.Rect(0, 0, 2, 2)})
	if !errors.Is(err, domain.ErrModelBackend) {
		t.Errorf("expected ErrModelBackend, got %v", err)
	}
}

func TestClient_BreakerOpensAndFailsFast(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	gray := image.NewGray(image.Rect(0, 0, 4, 4))

	for range 3 {
		if _, err := c.Detect(context.Background(), gray); err == nil {
			t.Fatal("expected error from failing backend")
		}
	}

	_, err := c.Detect(context.Background(), gray)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if !errors.Is(err, domain.ErrModelBackend) {
		t.Errorf("open breaker error must wrap ErrModelBackend, got %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("expected 3 backend hits, got %d", got)
	}
}

func TestClient_CanceledCallsDoNotTrip(t *testing.T) {
	srv := fakeSidecar(t)
	defer srv.Close()

	c := newTestClient(srv.URL, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	for range 3 {
		if _, err := c.Detect(ctx, gray); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}

	if _, err := c.Detect(context.Background(), gray); err != nil {
		t.Errorf("breaker must stay closed after cancellations: %v", err)
	}
}

func TestClient_HealthCheck(t *testing.T) {
	srv := fakeSidecar(t)
	defer srv.Close()

	if err := newTestClient(srv.URL, 5).HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	if err := newTestClient(down.URL, 5).HealthCheck(context.Background()); !errors.Is(err, domain.ErrModelBackend) {
		t.Errorf("expected ErrModelBackend, got %v", err)
	}
}

func TestClient_PropagatesRequestID(t *testing.T) {
	var gotID, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"faces":[]}`))
	}))
	defer srv.Close()

	c := New(&Config{BaseURL: srv.URL, Logger: zap.NewNop()})
	ctx := context.WithValue(context.Background(), chiMiddleware.RequestIDKey, "req-42")

	if _, err := c.Detect(ctx, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", gotID)
	}
	if !strings.HasPrefix(gotUA, version.Name+"/") {
		t.Errorf("unexpected User-Agent %q", gotUA)
	}
}
