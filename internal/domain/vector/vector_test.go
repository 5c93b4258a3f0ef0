package vector

import (
	"math"
	"testing"
)

func TestEncode_LittleEndianLayout(t *testing.T) {
	b := Encode([]float32{1})
	// 1.0 = 0x3F800000
	want := []byte{0x00, 0x00, 0x80, 0x3F}
	if len(b) != 4 {
		t.Fatalf("len = %d, want 4", len(b))
	}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, b[i], want[i])
		}
	}
}

func TestDecode_PreservesSpecialValues(t *testing.T) {
	in := []float32{0, -0.5, float32(math.Inf(1)), 3.25}
	out, err := Decode(Encode(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestDecode_InvalidLength(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for 3-byte input")
	}
}

func TestDecode_Empty(t *testing.T) {
	out, err := Decode(nil)
	if err != nil || len(out) != 0 {
		t.Fatalf("Decode(nil) = %v, %v", out, err)
	}
}
