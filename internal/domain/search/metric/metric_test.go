package metric

import "testing"

func TestIsValid(t *testing.T) {
	for _, m := range []Metric{SquaredL2, Cosine} {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}
	for _, m := range []Metric{"", "l2", "COSINE", "dot"} {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestBetter(t *testing.T) {
	tests := []struct {
		m    Metric
		a, b float64
		want bool
	}{
		{SquaredL2, 0, 1.5, true},
		{SquaredL2, 2, 1.5, false},
		{SquaredL2, 1, 1, false},
		{Cosine, 0.9, 0.1, true},
		{Cosine, -0.2, 0.1, false},
		{Cosine, 0.5, 0.5, false},
	}
	for _, tc := range tests {
		if got := tc.m.Better(tc.a, tc.b); got != tc.want {
			t.Errorf("%s.Better(%v, %v) = %v, want %v", tc.m, tc.a, tc.b, got, tc.want)
		}
	}
}
