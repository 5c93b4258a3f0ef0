package index

import "math"

// SquaredL2 returns the squared Euclidean distance. Callers guarantee equal lengths.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Dot returns the inner product of a and b.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// CosineWithNorms returns the cosine similarity given the squared norms of a and b.
// A zero-magnitude operand scores 0 so that it still ranks.
func CosineWithNorms(a, b []float32, na2, nb2 float64) float64 {
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	dot := Dot(a, b)
	// Identical vectors: avoid sqrt rounding so the best match scores exactly 1.
	if dot == na2 && dot == nb2 {
		return 1
	}
	s := dot / math.Sqrt(na2*nb2)
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// Cosine returns the cosine similarity of a and b.
func Cosine(a, b []float32) float64 {
	return CosineWithNorms(a, b, Dot(a, a), Dot(b, b))
}
