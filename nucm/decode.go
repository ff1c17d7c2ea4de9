package nucm

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/flate"
)

// Decode reads a NUCM file of version 1 or 2. Every chunk's Atlas field
// is populated regardless of whether the file stored a shared atlas in
// the header or per-chunk copies, so callers never branch on the layout.
func Decode(data []byte) (*Cache, error) {
	rd := newReader(bytes.NewReader(data))

	head, err := rd.ReadN(4)
	if err != nil {
		return nil, err
	}
	if string(head) != magic {
		return nil, fmt.Errorf("%w: % X", ErrMagic, head)
	}
	version, err := rd.ReadUInt32()
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}

	switch version {
	case 1:
		return decodeV1(rd)
	case 2:
		return decodeV2(rd)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

// decodeV1 reads the legacy layout: a 12-byte header with no flags, and
// every chunk embedding its own atlas.
func decodeV1(rd *reader) (*Cache, error) {
	count, err := rd.ReadUInt32()
	if err != nil {
		return nil, fmt.Errorf("read chunk count: %w", err)
	}
	cache := &Cache{Chunks: make([]MeshChunk, 0, count)}
	for i := uint32(0); i < count; i++ {
		chunk, err := readChunk(rd, 1, nil)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		cache.Chunks = append(cache.Chunks, chunk)
	}
	return cache, nil
}

// decodeV2 reads the current layout: flags, chunk count, an optional
// shared atlas, then the chunks.
func decodeV2(rd *reader) (*Cache, error) {
	flags, err := rd.ReadUInt32()
	if err != nil {
		return nil, fmt.Errorf("read flags: %w", err)
	}
	count, err := rd.ReadUInt32()
	if err != nil {
		return nil, fmt.Errorf("read chunk count: %w", err)
	}

	cache := &Cache{Chunks: make([]MeshChunk, 0, count)}
	if flags&flagHasSharedAtlas != 0 {
		atlas, err := readAtlas(rd)
		if err != nil {
			return nil, fmt.Errorf("shared atlas: %w", err)
		}
		cache.SharedAtlas = atlas
	}
	for i := uint32(0); i < count; i++ {
		chunk, err := readChunk(rd, 2, cache.SharedAtlas)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		cache.Chunks = append(cache.Chunks, chunk)
	}
	return cache, nil
}

func readChunk(rd *reader, version uint32, shared *TextureAtlas) (MeshChunk, error) {
	var chunk MeshChunk
	for i := 0; i < 3; i++ {
		v, err := rd.ReadFloat32()
		if err != nil {
			return chunk, fmt.Errorf("read bounds min: %w", err)
		}
		chunk.Bounds.Min[i] = v
	}
	for i := 0; i < 3; i++ {
		v, err := rd.ReadFloat32()
		if err != nil {
			return chunk, fmt.Errorf("read bounds max: %w", err)
		}
		chunk.Bounds.Max[i] = v
	}

	hasCoord, err := rd.ReadUInt8()
	if err != nil {
		return chunk, fmt.Errorf("read coord flag: %w", err)
	}
	if hasCoord == 1 {
		var coord [3]int32
		for i := 0; i < 3; i++ {
			if coord[i], err = rd.ReadInt32(); err != nil {
				return chunk, fmt.Errorf("read chunk coord: %w", err)
			}
		}
		chunk.ChunkCoord = &coord
	}

	if chunk.LOD, err = rd.ReadUInt8(); err != nil {
		return chunk, fmt.Errorf("read lod: %w", err)
	}

	if version == 1 {
		// V1 chunks always embed their atlas.
		if chunk.Atlas, err = readAtlas(rd); err != nil {
			return chunk, fmt.Errorf("atlas: %w", err)
		}
	} else {
		mode, err := rd.ReadUInt8()
		if err != nil {
			return chunk, fmt.Errorf("read atlas mode: %w", err)
		}
		switch mode {
		case 0:
			if shared == nil {
				return chunk, fmt.Errorf("%w: chunk references shared atlas but none was stored", ErrSizeMismatch)
			}
			chunk.Atlas = shared
		default:
			if chunk.Atlas, err = readAtlas(rd); err != nil {
				return chunk, fmt.Errorf("atlas: %w", err)
			}
		}
	}

	animCount, err := rd.ReadUInt32()
	if err != nil {
		return chunk, fmt.Errorf("read animated texture count: %w", err)
	}
	chunk.AnimatedTextures = make([]AnimatedTexture, 0, animCount)
	for i := uint32(0); i < animCount; i++ {
		anim, err := readAnimatedTexture(rd)
		if err != nil {
			return chunk, fmt.Errorf("animated texture %d: %w", i, err)
		}
		chunk.AnimatedTextures = append(chunk.AnimatedTextures, anim)
	}

	if chunk.Opaque, err = readLayer(rd); err != nil {
		return chunk, fmt.Errorf("opaque layer: %w", err)
	}
	if chunk.Cutout, err = readLayer(rd); err != nil {
		return chunk, fmt.Errorf("cutout layer: %w", err)
	}
	if chunk.Transparent, err = readLayer(rd); err != nil {
		return chunk, fmt.Errorf("transparent layer: %w", err)
	}
	return chunk, nil
}

// readCompressedField reads a raw_len/compressed_len prefixed deflate
// field and inflates it, verifying the declared raw length.
func readCompressedField(rd *reader) ([]byte, error) {
	rawLen, err := rd.ReadUInt32()
	if err != nil {
		return nil, err
	}
	compressedLen, err := rd.ReadUInt32()
	if err != nil {
		return nil, err
	}
	compressed, err := rd.ReadN(int(compressedLen))
	if err != nil {
		return nil, err
	}
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()
	raw, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if len(raw) != int(rawLen) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrSizeMismatch, rawLen, len(raw))
	}
	return raw, nil
}

func readLayer(rd *reader) (MeshLayer, error) {
	var layer MeshLayer
	vertexCount, err := rd.ReadUInt32()
	if err != nil {
		return layer, err
	}
	indexCount, err := rd.ReadUInt32()
	if err != nil {
		return layer, err
	}

	if vertexCount == 0 {
		if _, err := readCompressedField(rd); err != nil {
			return layer, err
		}
		return layer, nil
	}
	n := int(vertexCount)

	// Positions: AABB prefix, then delta-encoded u16 components.
	var posMin, posMax [3]float32
	for i := 0; i < 3; i++ {
		if posMin[i], err = rd.ReadFloat32(); err != nil {
			return layer, err
		}
	}
	for i := 0; i < 3; i++ {
		if posMax[i], err = rd.ReadFloat32(); err != nil {
			return layer, err
		}
	}
	posRaw, err := readCompressedField(rd)
	if err != nil {
		return layer, fmt.Errorf("positions: %w", err)
	}
	if len(posRaw) != n*6 {
		return layer, fmt.Errorf("positions: %w: expected %d, got %d", ErrSizeMismatch, n*6, len(posRaw))
	}
	layer.Positions = make([][3]float32, n)
	var prev [3]uint16
	for v := 0; v < n; v++ {
		for i := 0; i < 3; i++ {
			off := v*6 + i*2
			delta := uint16(posRaw[off]) | uint16(posRaw[off+1])<<8
			q := prev[i] + delta
			prev[i] = q
			layer.Positions[v][i] = dequantize(q, posMin[i], posMax[i])
		}
	}

	// Normals: i8 components, renormalized to unit length.
	normRaw, err := readCompressedField(rd)
	if err != nil {
		return layer, fmt.Errorf("normals: %w", err)
	}
	if len(normRaw) != n*3 {
		return layer, fmt.Errorf("normals: %w: expected %d, got %d", ErrSizeMismatch, n*3, len(normRaw))
	}
	layer.Normals = make([][3]float32, n)
	for v := 0; v < n; v++ {
		var norm [3]float32
		for i := 0; i < 3; i++ {
			norm[i] = float32(int8(normRaw[v*3+i])) / 127
		}
		length := float32(math.Sqrt(float64(norm[0]*norm[0] + norm[1]*norm[1] + norm[2]*norm[2])))
		if length > 0 {
			for i := 0; i < 3; i++ {
				norm[i] /= length
			}
		}
		layer.Normals[v] = norm
	}

	// UVs: AABB prefix, then plain u16 components.
	var uvMin, uvMax [2]float32
	for i := 0; i < 2; i++ {
		if uvMin[i], err = rd.ReadFloat32(); err != nil {
			return layer, err
		}
	}
	for i := 0; i < 2; i++ {
		if uvMax[i], err = rd.ReadFloat32(); err != nil {
			return layer, err
		}
	}
	uvRaw, err := readCompressedField(rd)
	if err != nil {
		return layer, fmt.Errorf("uvs: %w", err)
	}
	if len(uvRaw) != n*4 {
		return layer, fmt.Errorf("uvs: %w: expected %d, got %d", ErrSizeMismatch, n*4, len(uvRaw))
	}
	layer.UVs = make([][2]float32, n)
	for v := 0; v < n; v++ {
		for i := 0; i < 2; i++ {
			off := v*4 + i*2
			q := uint16(uvRaw[off]) | uint16(uvRaw[off+1])<<8
			layer.UVs[v][i] = dequantize(q, uvMin[i], uvMax[i])
		}
	}

	// Colors: u8 components.
	colRaw, err := readCompressedField(rd)
	if err != nil {
		return layer, fmt.Errorf("colors: %w", err)
	}
	if len(colRaw) != n*4 {
		return layer, fmt.Errorf("colors: %w: expected %d, got %d", ErrSizeMismatch, n*4, len(colRaw))
	}
	layer.Colors = make([][4]float32, n)
	for v := 0; v < n; v++ {
		for i := 0; i < 4; i++ {
			layer.Colors[v][i] = float32(colRaw[v*4+i]) / 255
		}
	}

	// Indices: delta-encoded u32.
	idxRaw, err := readCompressedField(rd)
	if err != nil {
		return layer, fmt.Errorf("indices: %w", err)
	}
	if len(idxRaw) != int(indexCount)*4 {
		return layer, fmt.Errorf("indices: %w: expected %d, got %d", ErrSizeMismatch, int(indexCount)*4, len(idxRaw))
	}
	layer.Indices = make([]uint32, indexCount)
	prevIdx := uint32(0)
	for v := 0; v < int(indexCount); v++ {
		off := v * 4
		delta := uint32(idxRaw[off]) | uint32(idxRaw[off+1])<<8 |
			uint32(idxRaw[off+2])<<16 | uint32(idxRaw[off+3])<<24
		prevIdx += delta
		layer.Indices[v] = prevIdx
	}
	return layer, nil
}

// dequantize maps q in [0, 65535] back onto [min, max].
func dequantize(q uint16, min, max float32) float32 {
	r := max - min
	if r <= 0 {
		return min
	}
	return min + float32(q)/65535*r
}

func readAtlas(rd *reader) (*TextureAtlas, error) {
	atlas := &TextureAtlas{Regions: make(map[string]AtlasRegion)}
	var err error
	if atlas.Width, err = rd.ReadUInt32(); err != nil {
		return nil, err
	}
	if atlas.Height, err = rd.ReadUInt32(); err != nil {
		return nil, err
	}
	if atlas.Pixels, err = readCompressedField(rd); err != nil {
		return nil, fmt.Errorf("pixels: %w", err)
	}

	regionCount, err := rd.ReadUInt32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < regionCount; i++ {
		nameLen, err := rd.ReadUInt32()
		if err != nil {
			return nil, err
		}
		name, err := rd.ReadN(int(nameLen))
		if err != nil {
			return nil, err
		}
		var region AtlasRegion
		if region.UMin, err = rd.ReadFloat32(); err != nil {
			return nil, err
		}
		if region.VMin, err = rd.ReadFloat32(); err != nil {
			return nil, err
		}
		if region.UMax, err = rd.ReadFloat32(); err != nil {
			return nil, err
		}
		if region.VMax, err = rd.ReadFloat32(); err != nil {
			return nil, err
		}
		atlas.Regions[string(name)] = region
	}
	return atlas, nil
}

func readAnimatedTexture(rd *reader) (AnimatedTexture, error) {
	var anim AnimatedTexture
	spriteLen, err := rd.ReadUInt32()
	if err != nil {
		return anim, err
	}
	if anim.SpriteSheetPNG, err = rd.ReadN(int(spriteLen)); err != nil {
		return anim, err
	}
	if anim.FrameCount, err = rd.ReadUInt32(); err != nil {
		return anim, err
	}
	if anim.FrameTime, err = rd.ReadUInt32(); err != nil {
		return anim, err
	}
	if anim.Interpolate, err = rd.ReadBool(); err != nil {
		return anim, err
	}
	hasFrames, err := rd.ReadUInt8()
	if err != nil {
		return anim, err
	}
	if hasFrames == 1 {
		count, err := rd.ReadUInt32()
		if err != nil {
			return anim, err
		}
		anim.Frames = make([]uint32, count)
		for i := range anim.Frames {
			if anim.Frames[i], err = rd.ReadUInt32(); err != nil {
				return anim, err
			}
		}
	}
	if anim.FrameWidth, err = rd.ReadUInt32(); err != nil {
		return anim, err
	}
	if anim.FrameHeight, err = rd.ReadUInt32(); err != nil {
		return anim, err
	}
	if anim.AtlasX, err = rd.ReadUInt32(); err != nil {
		return anim, err
	}
	if anim.AtlasY, err = rd.ReadUInt32(); err != nil {
		return anim, err
	}
	return anim, nil
}
