package nucm

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func makeTestLayer(vertexCount int) MeshLayer {
	layer := MeshLayer{
		Positions: make([][3]float32, vertexCount),
		Normals:   make([][3]float32, vertexCount),
		UVs:       make([][2]float32, vertexCount),
		Colors:    make([][4]float32, vertexCount),
	}
	for i := 0; i < vertexCount; i++ {
		f := float32(i)
		layer.Positions[i] = [3]float32{f, f * 2, f * 3}
		layer.Normals[i] = [3]float32{0, 1, 0}
		layer.UVs[i] = [2]float32{f / 16, f / 16}
		layer.Colors[i] = [4]float32{1, 1, 1, 1}
	}
	for i := 0; i+2 < vertexCount; i += 3 {
		layer.Indices = append(layer.Indices, uint32(i), uint32(i+1), uint32(i+2))
	}
	return layer
}

func makeTestAtlas() *TextureAtlas {
	return &TextureAtlas{
		Width:  2,
		Height: 2,
		Pixels: []byte{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255, 255, 255, 255, 255},
		Regions: map[string]AtlasRegion{
			"minecraft:stone": {UMin: 0, VMin: 0, UMax: 0.5, VMax: 0.5},
		},
	}
}

func makeTestChunk() MeshChunk {
	coord := [3]int32{1, 2, 3}
	return MeshChunk{
		Opaque:     makeTestLayer(12),
		Cutout:     makeTestLayer(3),
		Atlas:      makeTestAtlas(),
		Bounds:     BoundingBox{Min: [3]float32{0, 0, 0}, Max: [3]float32{16, 16, 16}},
		ChunkCoord: &coord,
		LOD:        1,
	}
}

func assertLayerClose(t *testing.T, got, want *MeshLayer, posTolerance float32) {
	t.Helper()
	if got.VertexCount() != want.VertexCount() {
		t.Fatalf("vertex count = %d, want %d", got.VertexCount(), want.VertexCount())
	}
	for i := range want.Positions {
		for c := 0; c < 3; c++ {
			diff := got.Positions[i][c] - want.Positions[i][c]
			if diff < -posTolerance || diff > posTolerance {
				t.Fatalf("position %d[%d] = %v, want %v", i, c, got.Positions[i][c], want.Positions[i][c])
			}
		}
		if got.Normals[i] != want.Normals[i] {
			t.Fatalf("axis-aligned normal %d = %v, want exact %v", i, got.Normals[i], want.Normals[i])
		}
	}
	if len(got.Indices) != len(want.Indices) {
		t.Fatalf("index count = %d, want %d", len(got.Indices), len(want.Indices))
	}
	for i := range want.Indices {
		if got.Indices[i] != want.Indices[i] {
			t.Fatalf("index %d = %d, want %d (topology must be exact)", i, got.Indices[i], want.Indices[i])
		}
	}
}

func TestRoundTripSingleChunk(t *testing.T) {
	chunk := makeTestChunk()
	data, err := Encode([]MeshChunk{chunk})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cache, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(cache.Chunks) != 1 {
		t.Fatalf("chunk count = %d", len(cache.Chunks))
	}
	got := cache.Chunks[0]
	if got.LOD != 1 || got.ChunkCoord == nil || *got.ChunkCoord != [3]int32{1, 2, 3} {
		t.Fatalf("chunk metadata = lod %d coord %v", got.LOD, got.ChunkCoord)
	}
	// Position error is bounded by range/65535 per component.
	tolerance := float32(33.0 / 65535.0)
	assertLayerClose(t, &got.Opaque, &chunk.Opaque, tolerance)
	assertLayerClose(t, &got.Cutout, &chunk.Cutout, tolerance)
	if got.Atlas == nil || got.Atlas.Width != 2 {
		t.Fatalf("atlas = %+v", got.Atlas)
	}
	if got.Atlas.Regions["minecraft:stone"].UMax != 0.5 {
		t.Fatalf("atlas region = %+v", got.Atlas.Regions)
	}
}

func TestRoundTripMultipleChunks(t *testing.T) {
	chunks := []MeshChunk{makeTestChunk(), makeTestChunk(), makeTestChunk()}
	data, err := Encode(chunks)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cache, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(cache.Chunks) != 3 {
		t.Fatalf("chunk count = %d", len(cache.Chunks))
	}
}

func TestRoundTripNoChunkCoord(t *testing.T) {
	chunk := makeTestChunk()
	chunk.ChunkCoord = nil
	data, err := Encode([]MeshChunk{chunk})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cache, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cache.Chunks[0].ChunkCoord != nil {
		t.Fatalf("coord = %v, want nil", cache.Chunks[0].ChunkCoord)
	}
}

func TestRoundTripEmptyLayerAndEmptyVec(t *testing.T) {
	chunk := makeTestChunk()
	chunk.Opaque = MeshLayer{}
	chunk.Cutout = MeshLayer{}
	chunk.Transparent = MeshLayer{}
	data, err := Encode([]MeshChunk{chunk})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cache, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cache.Chunks[0].Opaque.VertexCount() != 0 {
		t.Fatal("empty layer came back non-empty")
	}

	data, err = Encode(nil)
	if err != nil {
		t.Fatalf("Encode empty: %v", err)
	}
	cache, err = Decode(data)
	if err != nil {
		t.Fatalf("Decode empty: %v", err)
	}
	if len(cache.Chunks) != 0 {
		t.Fatalf("chunk count = %d, want 0", len(cache.Chunks))
	}
}

func TestNormalQuantization(t *testing.T) {
	chunk := makeTestChunk()
	// Non-axis-aligned normals come back within 1/127 before
	// renormalization; axis-aligned ones are exact.
	n := float32(1.0 / math.Sqrt2)
	chunk.Opaque.Normals[0] = [3]float32{n, n, 0}
	data, err := Encode([]MeshChunk{chunk})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	cache, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := cache.Chunks[0].Opaque.Normals[0]
	length := math.Sqrt(float64(got[0]*got[0] + got[1]*got[1] + got[2]*got[2]))
	if length < 0.999 || length > 1.001 {
		t.Fatalf("decoded normal not unit length: %v (%v)", got, length)
	}
	if got[2] != 0 {
		t.Fatalf("z component = %v, want 0", got[2])
	}
	if cache.Chunks[0].Opaque.Normals[1] != ([3]float32{0, 1, 0}) {
		t.Fatalf("axis-aligned normal inexact: %v", cache.Chunks[0].Opaque.Normals[1])
	}
}

func TestSharedAtlasPromotion(t *testing.T) {
	// Four chunks with content-identical atlases promote the atlas into
	// the header; the file is strictly smaller than per-chunk copies.
	chunks := []MeshChunk{makeTestChunk(), makeTestChunk(), makeTestChunk(), makeTestChunk()}
	shared, err := Encode(chunks)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	perChunk := 0
	{
		// Force per-chunk atlases by making one differ, then measure.
		distinct := []MeshChunk{makeTestChunk(), makeTestChunk(), makeTestChunk(), makeTestChunk()}
		distinct[3].Atlas = makeTestAtlas()
		distinct[3].Atlas.Regions["minecraft:dirt"] = AtlasRegion{UMax: 1, VMax: 1}
		data, err := Encode(distinct)
		if err != nil {
			t.Fatalf("Encode distinct: %v", err)
		}
		perChunk = len(data)
	}
	if len(shared) >= perChunk {
		t.Fatalf("shared atlas file (%d bytes) not smaller than per-chunk file (%d bytes)", len(shared), perChunk)
	}

	flags := binary.LittleEndian.Uint32(shared[8:12])
	if flags&flagHasSharedAtlas == 0 {
		t.Fatal("shared atlas flag not set")
	}

	cache, err := Decode(shared)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cache.SharedAtlas == nil {
		t.Fatal("SharedAtlas not populated")
	}
	for i := range cache.Chunks {
		if cache.Chunks[i].Atlas != cache.SharedAtlas {
			t.Fatalf("chunk %d atlas does not reference the shared atlas", i)
		}
	}
}

func TestV1FilesStillLoad(t *testing.T) {
	// Construct a v1 file by hand: 12-byte header, then one chunk that
	// always embeds its atlas and has no atlas-mode byte.
	buf := newBuffer()
	buf.WriteRaw([]byte(magic))
	buf.WriteUInt32(1) // version
	buf.WriteUInt32(1) // chunk count

	// Chunk: bounds, no coord, lod 0.
	for i := 0; i < 6; i++ {
		buf.WriteFloat32(0)
	}
	buf.WriteUInt8(0) // no chunk coord
	buf.WriteUInt8(0) // lod
	if err := writeAtlas(buf, makeTestAtlas()); err != nil {
		t.Fatalf("writeAtlas: %v", err)
	}
	buf.WriteUInt32(0) // no animated textures
	for i := 0; i < 3; i++ {
		// Empty layers.
		buf.WriteUInt32(0)
		buf.WriteUInt32(0)
		if err := writeCompressedField(buf, nil); err != nil {
			t.Fatalf("writeCompressedField: %v", err)
		}
	}

	cache, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode v1: %v", err)
	}
	if cache.SharedAtlas != nil {
		t.Fatal("v1 files never carry a shared atlas")
	}
	if len(cache.Chunks) != 1 || cache.Chunks[0].Atlas == nil {
		t.Fatalf("v1 chunk atlas not populated: %+v", cache.Chunks)
	}
	if cache.Chunks[0].Atlas.Width != 2 {
		t.Fatalf("v1 atlas width = %d", cache.Chunks[0].Atlas.Width)
	}
}

func TestInvalidMagicRejected(t *testing.T) {
	data, err := Encode([]MeshChunk{makeTestChunk()})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data[0] = 'X'
	if _, err := Decode(data); !errors.Is(err, ErrMagic) {
		t.Fatalf("err = %v, want ErrMagic", err)
	}
}

func TestUnsupportedVersionRejected(t *testing.T) {
	data, err := Encode([]MeshChunk{makeTestChunk()})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	binary.LittleEndian.PutUint32(data[4:8], 99)
	if _, err := Decode(data); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}
}

func TestTruncatedRejected(t *testing.T) {
	data, err := Encode([]MeshChunk{makeTestChunk()})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(data[:len(data)/2]); err == nil {
		t.Fatal("truncated input accepted")
	}
}

func TestHeaderLayout(t *testing.T) {
	data, err := Encode([]MeshChunk{makeTestChunk()})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(data[0:4]) != "NUCM" {
		t.Fatalf("magic = %q", data[0:4])
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != 2 {
		t.Fatalf("version = %d", v)
	}
	if c := binary.LittleEndian.Uint32(data[12:16]); c != 1 {
		t.Fatalf("chunk count = %d", c)
	}
}
