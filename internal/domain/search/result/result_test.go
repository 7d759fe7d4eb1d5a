package result

import "testing"

func TestNew(t *testing.T) {
	m := New("user-1", 0.87)

	if m.ID() != "user-1" {
		t.Errorf("ID() = %q", m.ID())
	}
	if m.Similarity() != 0.87 {
		t.Errorf("Similarity() = %f", m.Similarity())
	}
}
