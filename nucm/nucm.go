// Package nucm implements the NUCM mesh cache codec: a quantized,
// delta-encoded, DEFLATE-compressed binary container for chunked mesh
// data with an optional shared texture atlas. Both the current v2 layout
// and legacy v1 files (12-byte header, per-chunk atlases) are read.
package nucm

import "errors"

const (
	// magic is the four-byte file identifier "NUCM".
	magic = "NUCM"

	// formatVersion is the container version written on encode.
	formatVersion = 2

	// flagHasSharedAtlas marks a v2 file carrying a single atlas in the
	// header that chunks reference instead of embedding their own.
	flagHasSharedAtlas = 1 << 0
)

// Sentinel errors returned by the codec.
var (
	// ErrMagic is returned when the NUCM magic bytes are absent.
	ErrMagic = errors.New("nucm: bad magic")
	// ErrUnsupportedVersion is returned for versions other than 1 and 2.
	ErrUnsupportedVersion = errors.New("nucm: unsupported version")
	// ErrTruncated is returned when the input ends before a field.
	ErrTruncated = errors.New("nucm: truncated input")
	// ErrSizeMismatch is returned when a decompressed field length does
	// not match its declared raw length.
	ErrSizeMismatch = errors.New("nucm: field size mismatch")
)

// BoundingBox is an axis-aligned box in mesh space.
type BoundingBox struct {
	Min [3]float32
	Max [3]float32
}

// AtlasRegion is a named UV rectangle within a texture atlas.
type AtlasRegion struct {
	UMin float32
	VMin float32
	UMax float32
	VMax float32
}

// TextureAtlas is an RGBA8 pixel sheet plus named UV regions.
type TextureAtlas struct {
	Width   uint32
	Height  uint32
	Pixels  []byte
	Regions map[string]AtlasRegion
}

// AnimatedTexture describes one animated sprite inside an atlas.
type AnimatedTexture struct {
	SpriteSheetPNG []byte
	FrameCount     uint32
	FrameTime      uint32
	Interpolate    bool
	// Frames is an explicit frame order, or nil for sequential playback.
	Frames      []uint32
	FrameWidth  uint32
	FrameHeight uint32
	AtlasX      uint32
	AtlasY      uint32
}

// MeshLayer holds one render layer's vertex streams and triangle
// indices. All vertex slices share the same length.
type MeshLayer struct {
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Colors    [][4]float32
	Indices   []uint32
}

// VertexCount returns the number of vertices in the layer.
func (l *MeshLayer) VertexCount() int {
	return len(l.Positions)
}

// MeshChunk is one chunk's mesh output: three render layers, a texture
// atlas, animated textures and spatial metadata.
type MeshChunk struct {
	Opaque      MeshLayer
	Cutout      MeshLayer
	Transparent MeshLayer

	// Atlas is always populated after decode, whether the chunk embeds
	// its own atlas or references the file's shared one.
	Atlas            *TextureAtlas
	AnimatedTextures []AnimatedTexture

	Bounds BoundingBox
	// ChunkCoord is the chunk grid coordinate, or nil for unanchored
	// meshes.
	ChunkCoord *[3]int32
	LOD        uint8
}

// Cache is the decoded form of a NUCM file.
type Cache struct {
	Chunks []MeshChunk
	// SharedAtlas is the header atlas of a v2 file with the shared-atlas
	// flag, or nil. When set, every chunk's Atlas field refers to it.
	SharedAtlas *TextureAtlas
}
