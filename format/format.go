// Package format implements the wire codecs for the three schematic
// container formats: Litematica (.litematic), Sponge Schematic (.schem,
// versions 1-3) and Bedrock McStructure (.mcstructure). All three decode
// into and encode from the universal model in the root package.
package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/sandertv/gophertunnel/minecraft/nbt"

	nucleation "github.com/Schem-at/Nucleation"
)

// Format identifies a schematic container format.
type Format int

const (
	FormatUnknown Format = iota
	FormatLitematic
	FormatSpongeV1
	FormatSpongeV2
	FormatSpongeV3
	FormatMcStructure
)

// String returns the conventional name of the format.
func (f Format) String() string {
	switch f {
	case FormatLitematic:
		return "litematic"
	case FormatSpongeV1:
		return "sponge-v1"
	case FormatSpongeV2:
		return "sponge-v2"
	case FormatSpongeV3:
		return "sponge-v3"
	case FormatMcStructure:
		return "mcstructure"
	}
	return "unknown"
}

// Sentinel errors shared by the codecs.
var (
	// ErrTruncated is returned when fewer bytes are available than a
	// header demanded.
	ErrTruncated = errors.New("truncated input")
	// ErrMagic is returned when required gzip framing is missing.
	ErrMagic = errors.New("bad magic")
	// ErrUnknownVersion is returned for unrecognized format versions.
	ErrUnknownVersion = errors.New("unknown format version")
	// ErrMissingField is returned when a required NBT field is absent.
	ErrMissingField = errors.New("missing field")
	// ErrBadShape is returned when payload sizes disagree with the
	// declared dimensions, or a palette index is out of range.
	ErrBadShape = errors.New("bad shape")
)

// CompressionLevel selects the gzip level used when writing Java-edition
// formats.
type CompressionLevel int

const (
	// CompressionLevelDefault balances speed and size.
	CompressionLevelDefault CompressionLevel = iota
	// CompressionLevelFast favors speed.
	CompressionLevelFast
	// CompressionLevelBest favors size.
	CompressionLevelBest
)

func (c CompressionLevel) gzipLevel() int {
	switch c {
	case CompressionLevelFast:
		return gzip.BestSpeed
	case CompressionLevelBest:
		return gzip.BestCompression
	default:
		return 3
	}
}

// WriteOptions configures Write. The zero value selects Sponge v2 with
// default compression.
type WriteOptions struct {
	Format      Format
	Compression CompressionLevel
}

// isGzip reports whether the data starts with the gzip magic bytes.
func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// gunzip decompresses gzip-framed data, failing with ErrMagic when the
// framing is absent.
func gunzip(data []byte) ([]byte, error) {
	if !isGzip(data) {
		return nil, fmt.Errorf("%w: gzip framing required", ErrMagic)
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()
	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return out, nil
}

// gzipCompress wraps data in gzip framing at the given level.
func gzipCompress(data []byte, level CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, level.gzipLevel())
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("write gzip stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeRoot decodes a binary NBT root compound with the given encoding.
func decodeRoot(data []byte, encoding nbt.Encoding) (map[string]any, error) {
	var root map[string]any
	if err := nbt.NewDecoderWithEncoding(bytes.NewReader(data), encoding).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode nbt: %w", err)
	}
	return root, nil
}

// encodeRoot encodes a root compound with the given encoding.
func encodeRoot(root map[string]any, encoding nbt.Encoding) ([]byte, error) {
	var buf bytes.Buffer
	if err := nbt.NewEncoderWithEncoding(&buf, encoding).Encode(root); err != nil {
		return nil, fmt.Errorf("encode nbt: %w", err)
	}
	return buf.Bytes(), nil
}

// Detect sniffs the container format of raw bytes: gzip framing plus
// root fields for the Java formats, little-endian root fields for
// McStructure. The fallback order is Litematica, then Sponge, then
// McStructure.
func Detect(data []byte) Format {
	if isGzip(data) {
		raw, err := gunzip(data)
		if err != nil {
			return FormatUnknown
		}
		root, err := decodeRoot(raw, nbt.BigEndian)
		if err != nil {
			return FormatUnknown
		}
		if _, hasRegions := root["Regions"]; hasRegions {
			if _, hasMeta := root["Metadata"]; hasMeta {
				return FormatLitematic
			}
		}
		return spongeVersionOf(root)
	}
	root, err := decodeRoot(data, nbt.LittleEndian)
	if err != nil {
		return FormatUnknown
	}
	if _, ok := root["format_version"]; ok {
		if _, ok := root["structure"]; ok {
			return FormatMcStructure
		}
	}
	return FormatUnknown
}

// spongeVersionOf maps a decoded Sponge root compound to its format.
func spongeVersionOf(root map[string]any) Format {
	body := root
	if nested, ok := root["Schematic"].(map[string]any); ok {
		body = nested
	}
	v, ok := asInt(body["Version"])
	if !ok {
		return FormatUnknown
	}
	switch v {
	case 1:
		return FormatSpongeV1
	case 2:
		return FormatSpongeV2
	case 3:
		return FormatSpongeV3
	}
	return FormatUnknown
}

// Read auto-detects the format of data and decodes it.
func Read(data []byte) (*nucleation.Schematic, error) {
	switch f := Detect(data); f {
	case FormatLitematic:
		return FromLitematic(data)
	case FormatSpongeV1, FormatSpongeV2, FormatSpongeV3:
		return FromSponge(data)
	case FormatMcStructure:
		return FromMcStructure(data)
	default:
		return nil, fmt.Errorf("%w: unrecognized container", ErrMagic)
	}
}

// Write encodes a schematic in the format selected by opts.
func Write(s *nucleation.Schematic, opts WriteOptions) ([]byte, error) {
	switch opts.Format {
	case FormatLitematic:
		return ToLitematic(s, opts.Compression)
	case FormatSpongeV1:
		return ToSponge(s, 1, opts.Compression)
	case FormatSpongeV2, FormatUnknown:
		return ToSponge(s, 2, opts.Compression)
	case FormatSpongeV3:
		return ToSponge(s, 3, opts.Compression)
	case FormatMcStructure:
		return ToMcStructure(s)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, opts.Format)
	}
}
