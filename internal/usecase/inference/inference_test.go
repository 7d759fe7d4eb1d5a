package inference

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/facedex/internal/domain"
	"github.com/kailas-cloud/facedex/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- mocks ---

type mockModel struct {
	detectFn func(ctx context.Context) ([]domain.FaceRegion, error)
	lmErr    error
	descErr  error
	healthy  error
}

func (m *mockModel) Detect(ctx context.Context, _ *image.Gray) ([]domain.FaceRegion, error) {
	if m.detectFn != nil {
		return m.detectFn(ctx)
	}
	return []domain.FaceRegion{{Rect: image.Rect(0, 0, 10, 10)}}, nil
}

func (m *mockModel) Landmarks(_ context.Context, _ image.Image, _ domain.FaceRegion) (domain.Landmarks, error) {
	if m.lmErr != nil {
		return nil, m.lmErr
	}
	return domain.Landmarks{image.Pt(1, 1), image.Pt(2, 2)}, nil
}

func (m *mockModel) Descriptor(_ context.Context, _ image.Image, _ domain.Landmarks) (domain.Embedding, error) {
	if m.descErr != nil {
		return nil, m.descErr
	}
	return make(domain.Embedding, domain.EmbeddingDim), nil
}

func (m *mockModel) HealthCheck(context.Context) error { return m.healthy }

// --- BoundedModel ---

func TestBoundedModel_NeverExceedsLimit(t *testing.T) {
	const limit = 2

	var current, peak atomic.Int32
	inner := &mockModel{detectFn: func(context.Context) ([]domain.FaceRegion, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return nil, nil
	}}

	b := NewBoundedModel(inner, limit)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Detect(context.Background(), nil); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > limit {
		t.Errorf("peak concurrency %d exceeds limit %d", got, limit)
	}
	if got := peak.Load(); got == 0 {
		t.Error("inner model was never called")
	}
}

func TestBoundedModel_WaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	inner := &mockModel{detectFn: func(context.Context) ([]domain.FaceRegion, error) {
		close(started)
		<-release
		return nil, nil
	}}
	b := NewBoundedModel(inner, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = b.Detect(context.Background(), nil)
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Landmarks(ctx, nil, domain.FaceRegion{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while waiting for slot, got %v", err)
	}

	close(release)
	<-done
}

func TestBoundedModel_ZeroLimitSerializes(t *testing.T) {
	b := NewBoundedModel(&mockModel{}, 0)
	if _, err := b.Descriptor(context.Background(), nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.sem.TryAcquire(1) {
		t.Fatal("slot not released")
	}
	if b.sem.TryAcquire(1) {
		t.Error("expected a single slot for non-positive limit")
	}
	b.sem.Release(1)
}

func TestBoundedModel_HealthCheck(t *testing.T) {
	down := errors.New("down")
	if err := NewBoundedModel(&mockModel{healthy: down}, 1).HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("expected inner health error, got %v", err)
	}
}

// --- InstrumentedModel ---

func TestInstrumentedModel_PassesThrough(t *testing.T) {
	m := NewInstrumentedModel(&mockModel{}, zap.NewNop())
	ctx := context.Background()

	regions, err := m.Detect(ctx, nil)
	if err != nil || len(regions) != 1 {
		t.Fatalf("Detect = %v, %v", regions, err)
	}
	lm, err := m.Landmarks(ctx, nil, regions[0])
	if err != nil || len(lm) != 2 {
		t.Fatalf("Landmarks = %v, %v", lm, err)
	}
	emb, err := m.Descriptor(ctx, nil, lm)
	if err != nil || len(emb) != domain.EmbeddingDim {
		t.Fatalf("Descriptor len = %d, err = %v", len(emb), err)
	}
}

func TestInstrumentedModel_LogsFailuresToRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.ContextWithLogger(context.Background(), zap.New(core))

	boom := errors.New("landmark model crashed")
	m := NewInstrumentedModel(&mockModel{lmErr: boom}, zap.NewNop())

	if _, err := m.Landmarks(ctx, nil, domain.FaceRegion{}); !errors.Is(err, boom) {
		t.Fatalf("expected inner error, got %v", err)
	}

	entries := logs.FilterMessage("Face model stage failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 failure log, got %d", len(entries))
	}
	if stage := entries[0].ContextMap()["stage"]; stage != stageLandmarks {
		t.Errorf("stage = %v, want %s", stage, stageLandmarks)
	}
}

func TestInstrumentedModel_DebugOnSuccess(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := NewInstrumentedModel(&mockModel{}, zap.New(core))

	if _, err := m.Detect(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterMessage("Face model stage completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 completion log, got %d", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Errorf("expected debug level, got %v", entries[0].Level)
	}
	if faces := entries[0].ContextMap()["faces"]; faces != int64(1) {
		t.Errorf("faces = %v, want 1", faces)
	}
}
