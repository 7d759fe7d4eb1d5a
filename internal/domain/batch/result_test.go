package batch

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/facedex/internal/domain"
)

func TestNewOK(t *testing.T) {
	emb := make(domain.Embedding, domain.EmbeddingDim)
	r := NewOK("user-1", emb)
	if r.ID() != "user-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusOK {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if len(r.Embedding()) != domain.EmbeddingDim {
		t.Errorf("Embedding() len = %d", len(r.Embedding()))
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("something failed")
	r := NewError("user-2", err)
	if r.ID() != "user-2" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
	if r.Embedding() != nil {
		t.Error("failed result must not carry an embedding")
	}
}

func TestNewSkipped(t *testing.T) {
	r := NewSkipped("user-3", domain.ErrNoImageInput)
	if r.Status() != StatusSkipped {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusSkipped)
	}
	if !errors.Is(r.Err(), domain.ErrNoImageInput) {
		t.Errorf("Err() = %v", r.Err())
	}
}

func TestNewReport(t *testing.T) {
	rep := NewReport([]Result{
		NewOK("a", nil),
		NewError("b", errors.New("x")),
		NewSkipped("c", nil),
		NewOK("d", nil),
		NewError("e", errors.New("y")),
	})

	if rep.Total != 5 || rep.Successful != 2 || rep.Failed != 2 || rep.Skipped != 1 || rep.Processed != 4 {
		t.Errorf("unexpected counters: %+v", rep)
	}
	if rep.Processed+rep.Skipped != rep.Total {
		t.Error("processed + skipped must equal total")
	}

	empty := NewReport(nil)
	if empty.Total != 0 || empty.Processed != 0 {
		t.Errorf("unexpected counters for empty report: %+v", empty)
	}
}
