package nucleation

import (
	"errors"
	"testing"
)

func TestBitsFor(t *testing.T) {
	cases := []struct {
		paletteLen int
		want       int
	}{
		{0, 2},
		{1, 2},
		{2, 2},
		{4, 2},
		{5, 3},
		{16, 4},
		{17, 5},
		{256, 8},
	}
	for _, c := range cases {
		if got := BitsFor(c.paletteLen); got != c.want {
			t.Errorf("BitsFor(%d) = %d, want %d", c.paletteLen, got, c.want)
		}
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 2, 3, 1, 0, 2, 3, 3, 3, 0, 1, 2}
	for bits := 2; bits <= 32; bits++ {
		mask := uint32(1)<<bits - 1
		if bits == 32 {
			mask = 0xFFFFFFFF
		}
		vals := make([]uint32, len(values))
		for i, v := range values {
			vals[i] = v & mask
		}
		for _, straddle := range []bool{true, false} {
			packed, err := PackIndices(vals, bits, straddle)
			if err != nil {
				t.Fatalf("pack bits=%d straddle=%v: %v", bits, straddle, err)
			}
			got, err := UnpackIndices(packed, bits, len(vals), straddle)
			if err != nil {
				t.Fatalf("unpack bits=%d straddle=%v: %v", bits, straddle, err)
			}
			for i := range vals {
				if got[i] != vals[i] {
					t.Fatalf("bits=%d straddle=%v: value %d = %d, want %d", bits, straddle, i, got[i], vals[i])
				}
			}
		}
	}
}

func TestPackStraddleCrossesWords(t *testing.T) {
	// 22 three-bit values need 66 bits; straddling packs them into 2
	// longs, non-straddling needs only 21 per long but wastes the top bit.
	vals := make([]uint32, 22)
	for i := range vals {
		vals[i] = uint32(i % 8)
	}
	straddled, err := PackIndices(vals, 3, true)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(straddled) != 2 {
		t.Fatalf("straddled word count = %d, want 2", len(straddled))
	}
	loose, err := PackIndices(vals, 3, false)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(loose) != 2 {
		t.Fatalf("non-straddled word count = %d, want 2", len(loose))
	}
}

func TestUnpackUnderflow(t *testing.T) {
	_, err := UnpackIndices([]int64{0}, 4, 100, true)
	if !errors.Is(err, ErrBitPackUnderflow) {
		t.Fatalf("err = %v, want ErrBitPackUnderflow", err)
	}
}

func TestPackBitsTooWide(t *testing.T) {
	_, err := PackIndices([]uint32{1}, 33, true)
	if !errors.Is(err, ErrBitsTooWide) {
		t.Fatalf("err = %v, want ErrBitsTooWide", err)
	}
}
