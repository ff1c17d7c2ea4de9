package nucm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/flate"
	"golang.org/x/sync/errgroup"
)

// Encode serializes chunks in the v2 layout. When there are two or more
// chunks and every one carries an identical atlas (by content hash) the
// atlas is promoted into the header once and chunks reference it, which
// is what makes v2 files strictly smaller than per-chunk copies. A single
// chunk always embeds its own atlas.
func Encode(chunks []MeshChunk) ([]byte, error) {
	shared := detectSharedAtlas(chunks)
	return encodeWith(chunks, shared)
}

// EncodeShared serializes chunks with the given atlas stored once in the
// header; per-chunk atlases are not written.
func EncodeShared(chunks []MeshChunk, atlas *TextureAtlas) ([]byte, error) {
	if atlas == nil {
		return encodeWith(chunks, nil)
	}
	return encodeWith(chunks, atlas)
}

// detectSharedAtlas returns the common atlas when there are at least two
// chunks and all carry content-identical atlases, or nil.
func detectSharedAtlas(chunks []MeshChunk) *TextureAtlas {
	if len(chunks) < 2 {
		return nil
	}
	var digest uint64
	for i := range chunks {
		if chunks[i].Atlas == nil {
			return nil
		}
		d := atlasDigest(chunks[i].Atlas)
		if i == 0 {
			digest = d
		} else if d != digest {
			return nil
		}
	}
	return chunks[0].Atlas
}

// atlasDigest hashes an atlas's full content: dimensions, pixels and
// sorted regions.
func atlasDigest(a *TextureAtlas) uint64 {
	h := xxhash.New()
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:], a.Width)
	binary.LittleEndian.PutUint32(hdr[4:], a.Height)
	_, _ = h.Write(hdr[:])
	_, _ = h.Write(a.Pixels)
	names := make([]string, 0, len(a.Regions))
	for name := range a.Regions {
		names = append(names, name)
	}
	sort.Strings(names)
	var f [16]byte
	for _, name := range names {
		region := a.Regions[name]
		_, _ = h.WriteString(name)
		binary.LittleEndian.PutUint32(f[0:], math.Float32bits(region.UMin))
		binary.LittleEndian.PutUint32(f[4:], math.Float32bits(region.VMin))
		binary.LittleEndian.PutUint32(f[8:], math.Float32bits(region.UMax))
		binary.LittleEndian.PutUint32(f[12:], math.Float32bits(region.VMax))
		_, _ = h.Write(f[:])
	}
	return h.Sum64()
}

func encodeWith(chunks []MeshChunk, shared *TextureAtlas) ([]byte, error) {
	buf := newBuffer()
	buf.WriteRaw([]byte(magic))
	buf.WriteUInt32(formatVersion)

	var flags uint32
	if shared != nil {
		flags |= flagHasSharedAtlas
	}
	buf.WriteUInt32(flags)
	buf.WriteUInt32(uint32(len(chunks)))

	if shared != nil {
		if err := writeAtlas(buf, shared); err != nil {
			return nil, err
		}
	}
	for i := range chunks {
		if err := writeChunk(buf, &chunks[i], shared != nil); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func writeChunk(buf *buffer, chunk *MeshChunk, usesSharedAtlas bool) error {
	for _, v := range chunk.Bounds.Min {
		buf.WriteFloat32(v)
	}
	for _, v := range chunk.Bounds.Max {
		buf.WriteFloat32(v)
	}

	if chunk.ChunkCoord != nil {
		buf.WriteUInt8(1)
		for _, v := range chunk.ChunkCoord {
			buf.WriteInt32(v)
		}
	} else {
		buf.WriteUInt8(0)
	}

	buf.WriteUInt8(chunk.LOD)

	// Atlas mode: 0 references the shared header atlas, 1 embeds.
	if usesSharedAtlas {
		buf.WriteUInt8(0)
	} else {
		buf.WriteUInt8(1)
		atlas := chunk.Atlas
		if atlas == nil {
			atlas = &TextureAtlas{}
		}
		if err := writeAtlas(buf, atlas); err != nil {
			return err
		}
	}

	buf.WriteUInt32(uint32(len(chunk.AnimatedTextures)))
	for i := range chunk.AnimatedTextures {
		writeAnimatedTexture(buf, &chunk.AnimatedTextures[i])
	}

	if err := writeLayer(buf, &chunk.Opaque); err != nil {
		return fmt.Errorf("opaque layer: %w", err)
	}
	if err := writeLayer(buf, &chunk.Cutout); err != nil {
		return fmt.Errorf("cutout layer: %w", err)
	}
	if err := writeLayer(buf, &chunk.Transparent); err != nil {
		return fmt.Errorf("transparent layer: %w", err)
	}
	return nil
}

// deflateFast compresses data as a raw RFC 1951 stream at the fast
// level.
func deflateFast(data []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := flate.NewWriter(&out, flate.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("create deflate writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close deflate stream: %w", err)
	}
	return out.Bytes(), nil
}

// writeCompressedField writes raw_len, compressed_len and the deflated
// payload of data.
func writeCompressedField(buf *buffer, data []byte) error {
	compressed, err := deflateFast(data)
	if err != nil {
		return err
	}
	buf.WriteUInt32(uint32(len(data)))
	buf.WriteUInt32(uint32(len(compressed)))
	buf.WriteRaw(compressed)
	return nil
}

// writeLayer emits one render layer: a header, then the quantized and
// delta-encoded vertex streams, each as a deflated field. The five field
// payloads compress concurrently; the output bytes are identical to the
// serial encoding because the writes stay ordered.
func writeLayer(buf *buffer, layer *MeshLayer) error {
	vertexCount := layer.VertexCount()
	buf.WriteUInt32(uint32(vertexCount))
	buf.WriteUInt32(uint32(len(layer.Indices)))

	if vertexCount == 0 {
		// Empty layer: a single empty compressed field for indices.
		return writeCompressedField(buf, nil)
	}

	posMin, posMax := positionBounds(layer.Positions)
	uvMin, uvMax := uvBounds(layer.UVs)

	raw := [5][]byte{
		quantizePositions(layer.Positions, posMin, posMax),
		quantizeNormals(layer.Normals),
		quantizeUVs(layer.UVs, uvMin, uvMax),
		quantizeColors(layer.Colors),
		deltaIndices(layer.Indices),
	}
	var compressed [5][]byte
	var g errgroup.Group
	for i := range raw {
		g.Go(func() error {
			out, err := deflateFast(raw[i])
			if err != nil {
				return err
			}
			compressed[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	writeField := func(i int) {
		buf.WriteUInt32(uint32(len(raw[i])))
		buf.WriteUInt32(uint32(len(compressed[i])))
		buf.WriteRaw(compressed[i])
	}

	// Positions, prefixed with their AABB so the loader can dequantize.
	for _, v := range posMin {
		buf.WriteFloat32(v)
	}
	for _, v := range posMax {
		buf.WriteFloat32(v)
	}
	writeField(0)
	// Normals.
	writeField(1)
	// UVs, prefixed with their AABB.
	for _, v := range uvMin {
		buf.WriteFloat32(v)
	}
	for _, v := range uvMax {
		buf.WriteFloat32(v)
	}
	writeField(2)
	// Colors.
	writeField(3)
	// Indices.
	writeField(4)
	return nil
}

func positionBounds(positions [][3]float32) (min, max [3]float32) {
	min = [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max = [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, p := range positions {
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	return min, max
}

func uvBounds(uvs [][2]float32) (min, max [2]float32) {
	min = [2]float32{math.MaxFloat32, math.MaxFloat32}
	max = [2]float32{-math.MaxFloat32, -math.MaxFloat32}
	for _, uv := range uvs {
		for i := 0; i < 2; i++ {
			if uv[i] < min[i] {
				min[i] = uv[i]
			}
			if uv[i] > max[i] {
				max[i] = uv[i]
			}
		}
	}
	return min, max
}

// quantize maps v in [min, max] onto [0, 65535].
func quantize(v, min, max float32) uint16 {
	r := max - min
	if r <= 0 {
		return 0
	}
	q := math.Round(float64(v-min) / float64(r) * 65535)
	if q < 0 {
		q = 0
	}
	if q > 65535 {
		q = 65535
	}
	return uint16(q)
}

// quantizePositions quantizes each component to u16 relative to the
// layer AABB and delta-encodes per component with wrapping subtraction.
// Consecutive similar positions produce small deltas that deflate
// compresses dramatically better.
func quantizePositions(positions [][3]float32, min, max [3]float32) []byte {
	out := make([]byte, 0, len(positions)*6)
	var prev [3]uint16
	for _, p := range positions {
		for i := 0; i < 3; i++ {
			q := quantize(p[i], min[i], max[i])
			delta := q - prev[i]
			out = append(out, byte(delta), byte(delta>>8))
			prev[i] = q
		}
	}
	return out
}

// quantizeNormals packs each component into an i8. Axis-aligned normals
// round-trip exactly.
func quantizeNormals(normals [][3]float32) []byte {
	out := make([]byte, 0, len(normals)*3)
	for _, n := range normals {
		for i := 0; i < 3; i++ {
			c := n[i]
			if c < -1 {
				c = -1
			}
			if c > 1 {
				c = 1
			}
			out = append(out, byte(int8(math.Round(float64(c)*127))))
		}
	}
	return out
}

// quantizeUVs quantizes each component to u16 relative to the UV AABB,
// with no delta step.
func quantizeUVs(uvs [][2]float32, min, max [2]float32) []byte {
	out := make([]byte, 0, len(uvs)*4)
	for _, uv := range uvs {
		for i := 0; i < 2; i++ {
			q := quantize(uv[i], min[i], max[i])
			out = append(out, byte(q), byte(q>>8))
		}
	}
	return out
}

// quantizeColors packs each component into a u8.
func quantizeColors(colors [][4]float32) []byte {
	out := make([]byte, 0, len(colors)*4)
	for _, c := range colors {
		for i := 0; i < 4; i++ {
			v := c[i]
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			out = append(out, byte(math.Round(float64(v)*255)))
		}
	}
	return out
}

// deltaIndices delta-encodes triangle indices with wrapping u32
// subtraction. Quad meshes produce patterns like 0,1,2,2,3,0,4,5,6,...
// whose deltas repeat and compress well.
func deltaIndices(indices []uint32) []byte {
	out := make([]byte, 0, len(indices)*4)
	prev := uint32(0)
	for _, idx := range indices {
		delta := idx - prev
		out = append(out,
			byte(delta), byte(delta>>8), byte(delta>>16), byte(delta>>24))
		prev = idx
	}
	return out
}

func writeAtlas(buf *buffer, atlas *TextureAtlas) error {
	buf.WriteUInt32(atlas.Width)
	buf.WriteUInt32(atlas.Height)
	if err := writeCompressedField(buf, atlas.Pixels); err != nil {
		return fmt.Errorf("atlas pixels: %w", err)
	}

	names := make([]string, 0, len(atlas.Regions))
	for name := range atlas.Regions {
		names = append(names, name)
	}
	sort.Strings(names)
	buf.WriteUInt32(uint32(len(names)))
	for _, name := range names {
		region := atlas.Regions[name]
		buf.WriteUInt32(uint32(len(name)))
		buf.WriteRaw([]byte(name))
		buf.WriteFloat32(region.UMin)
		buf.WriteFloat32(region.VMin)
		buf.WriteFloat32(region.UMax)
		buf.WriteFloat32(region.VMax)
	}
	return nil
}

func writeAnimatedTexture(buf *buffer, anim *AnimatedTexture) {
	buf.WriteUInt32(uint32(len(anim.SpriteSheetPNG)))
	buf.WriteRaw(anim.SpriteSheetPNG)

	buf.WriteUInt32(anim.FrameCount)
	buf.WriteUInt32(anim.FrameTime)
	buf.WriteBool(anim.Interpolate)

	if anim.Frames != nil {
		buf.WriteUInt8(1)
		buf.WriteUInt32(uint32(len(anim.Frames)))
		for _, f := range anim.Frames {
			buf.WriteUInt32(f)
		}
	} else {
		buf.WriteUInt8(0)
	}

	buf.WriteUInt32(anim.FrameWidth)
	buf.WriteUInt32(anim.FrameHeight)
	buf.WriteUInt32(anim.AtlasX)
	buf.WriteUInt32(anim.AtlasY)
}
