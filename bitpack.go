package nucleation

import (
	"fmt"
	"math/bits"
)

// BitsFor returns the palette index width for a palette of the given
// size: max(2, ceil(log2(n))). Litematica and Sponge both clamp to a
// minimum of two bits.
func BitsFor(paletteLen int) int {
	if paletteLen <= 1 {
		return 2
	}
	return max(2, bits.Len(uint(paletteLen-1)))
}

// PackIndices packs palette indices into a stream of int64 words,
// least-significant-bit first. With straddle set, an index may cross a
// word boundary (the Litematica layout); without it, indices that would
// not fit whole in the remaining bits of a word start at the next word
// (the Sponge v3 / Minecraft 1.16+ layout).
func PackIndices(indices []uint32, bitsPerEntry int, straddle bool) ([]int64, error) {
	if bitsPerEntry > 32 {
		return nil, fmt.Errorf("%w: %d", ErrBitsTooWide, bitsPerEntry)
	}
	if bitsPerEntry < 1 {
		return nil, fmt.Errorf("%w: %d", ErrBitsTooWide, bitsPerEntry)
	}
	mask := uint64(1)<<bitsPerEntry - 1

	if straddle {
		words := make([]int64, (len(indices)*bitsPerEntry+63)/64)
		for i, idx := range indices {
			bitIndex := i * bitsPerEntry
			word := bitIndex / 64
			offset := bitIndex % 64
			v := uint64(idx) & mask
			words[word] |= int64(v << offset)
			if offset+bitsPerEntry > 64 {
				words[word+1] |= int64(v >> (64 - offset))
			}
		}
		return words, nil
	}

	perWord := 64 / bitsPerEntry
	words := make([]int64, (len(indices)+perWord-1)/perWord)
	for i, idx := range indices {
		word := i / perWord
		offset := (i % perWord) * bitsPerEntry
		words[word] |= int64((uint64(idx) & mask) << offset)
	}
	return words, nil
}

// UnpackIndices reverses PackIndices, reading count indices of the given
// width from the long stream.
func UnpackIndices(longs []int64, bitsPerEntry int, count int, straddle bool) ([]uint32, error) {
	if bitsPerEntry > 32 || bitsPerEntry < 1 {
		return nil, fmt.Errorf("%w: %d", ErrBitsTooWide, bitsPerEntry)
	}
	mask := uint64(1)<<bitsPerEntry - 1
	out := make([]uint32, count)

	if straddle {
		if need := (count*bitsPerEntry + 63) / 64; len(longs) < need {
			return nil, fmt.Errorf("%w: have %d longs, need %d", ErrBitPackUnderflow, len(longs), need)
		}
		for i := 0; i < count; i++ {
			bitIndex := i * bitsPerEntry
			word := bitIndex / 64
			offset := bitIndex % 64
			v := uint64(longs[word]) >> offset
			if offset+bitsPerEntry > 64 {
				v |= uint64(longs[word+1]) << (64 - offset)
			}
			out[i] = uint32(v & mask)
		}
		return out, nil
	}

	perWord := 64 / bitsPerEntry
	if need := (count + perWord - 1) / perWord; len(longs) < need {
		return nil, fmt.Errorf("%w: have %d longs, need %d", ErrBitPackUnderflow, len(longs), need)
	}
	for i := 0; i < count; i++ {
		word := i / perWord
		offset := (i % perWord) * bitsPerEntry
		out[i] = uint32((uint64(longs[word]) >> offset) & mask)
	}
	return out, nil
}
