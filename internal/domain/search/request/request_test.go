package request

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/facedex/internal/domain"
)

func vec(v float64) domain.Embedding {
	e := make(domain.Embedding, domain.EmbeddingDim)
	for i := range e {
		e[i] = v
	}
	return e
}

func TestNew_Defaults(t *testing.T) {
	r, err := New(vec(0.1), nil, 0, DefaultThreshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TopN() != DefaultTopN {
		t.Errorf("TopN() = %d, want %d", r.TopN(), DefaultTopN)
	}
	if r.Threshold() != DefaultThreshold {
		t.Errorf("Threshold() = %f", r.Threshold())
	}
	if len(r.Query()) != domain.EmbeddingDim {
		t.Errorf("Query() len = %d", len(r.Query()))
	}
	if len(r.Pool()) != 0 {
		t.Errorf("Pool() len = %d", len(r.Pool()))
	}
}

func TestNew_ClampsParameters(t *testing.T) {
	tests := []struct {
		name          string
		topN          int
		threshold     float64
		wantTopN      int
		wantThreshold float64
	}{
		{"negative topN", -5, 0.5, DefaultTopN, 0.5},
		{"huge topN", 5000, 0.5, MaxTopN, 0.5},
		{"threshold above 1", 5, 1.5, 5, 1.0},
		{"threshold below 0", 5, -1, 5, 0.0},
		{"boundaries", 1000, 1.0, 1000, 1.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := New(vec(0), nil, tc.topN, tc.threshold)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.TopN() != tc.wantTopN {
				t.Errorf("TopN() = %d, want %d", r.TopN(), tc.wantTopN)
			}
			if r.Threshold() != tc.wantThreshold {
				t.Errorf("Threshold() = %f, want %f", r.Threshold(), tc.wantThreshold)
			}
		})
	}
}

func TestNew_InvalidQuery(t *testing.T) {
	for _, q := range []domain.Embedding{nil, vec(0)[:127], append(vec(0), 1)} {
		_, err := New(q, nil, 10, 0.6)
		if !errors.Is(err, domain.ErrInvalidQueryEmbedding) {
			t.Errorf("len %d: expected ErrInvalidQueryEmbedding, got %v", len(q), err)
		}
	}
}

func TestNew_CopiesQuery(t *testing.T) {
	q := vec(0.3)
	r, err := New(q, nil, 10, 0.6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q[0] = 42
	if r.Query()[0] != 0.3 {
		t.Error("request must not alias the caller's query slice")
	}
}

func TestCandidate_Valid(t *testing.T) {
	tests := []struct {
		name string
		c    Candidate
		want bool
	}{
		{"ok", Candidate{ID: "u1", Embedding: vec(0.1)}, true},
		{"empty id", Candidate{Embedding: vec(0.1)}, false},
		{"no embedding", Candidate{ID: "u1"}, false},
		{"short embedding", Candidate{ID: "u1", Embedding: vec(0.1)[:64]}, false},
	}
	for _, tc := range tests {
		if got := tc.c.Valid(); got != tc.want {
			t.Errorf("%s: Valid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseTopN(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{"absent", nil, 10},
		{"zero", float64(0), 10},
		{"negative", float64(-5), 10},
		{"string abc", "abc", 10},
		{"huge", float64(5000), 1000},
		{"valid", float64(25), 25},
		{"fraction truncated", 7.9, 7},
		{"numeric string", " 15 ", 15},
		{"fractional string", "5.5", 10},
		{"string huge", "99999999999999999999", 10},
		{"json number", json.Number("42"), 42},
		{"json number fraction", json.Number("3.2"), 3},
		{"int", 3, 3},
		{"true counts as one", true, 1},
		{"false counts as zero", false, 10},
		{"nan", math.NaN(), 10},
		{"inf", math.Inf(1), 10},
		{"huge float", 1e30, 1000},
		{"object", map[string]any{}, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseTopN(tc.raw); got != tc.want {
				t.Errorf("ParseTopN(%v) = %d, want %d", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		def  float64
		want float64
	}{
		{"absent", nil, 0.6, 0.6},
		{"configured default", nil, 0.45, 0.45},
		{"above one", 1.5, 0.6, 1.0},
		{"below zero", float64(-1), 0.6, 0.0},
		{"valid", 0.5, 0.6, 0.5},
		{"numeric string", "0.7", 0.6, 0.7},
		{"garbage string", "high", 0.6, 0.6},
		{"json number", json.Number("0.25"), 0.6, 0.25},
		{"nan string", "NaN", 0.6, 1.0},
		{"lowercase nan string", "nan", 0.6, 1.0},
		{"inf", math.Inf(1), 0.6, 1.0},
		{"false counts as zero", false, 0.6, 0.0},
		{"true counts as one", true, 0.6, 1.0},
		{"default out of range", nil, 2, 1.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseThreshold(tc.raw, tc.def); got != tc.want {
				t.Errorf("ParseThreshold(%v, %v) = %v, want %v", tc.raw, tc.def, got, tc.want)
			}
		})
	}
}
