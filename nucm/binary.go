package nucm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// buffer is a helper for writing binary data with convenient typed
// methods. All integers are little-endian.
type buffer struct {
	bytes.Buffer
}

// newBuffer creates a new buffer.
func newBuffer() *buffer {
	return &buffer{}
}

// WriteUInt8 writes a single byte.
func (b *buffer) WriteUInt8(v uint8) {
	_ = b.WriteByte(v)
}

// WriteUInt32 writes a uint32 in little-endian format.
func (b *buffer) WriteUInt32(v uint32) {
	_ = binary.Write(b, binary.LittleEndian, v)
}

// WriteInt32 writes an int32 in little-endian format.
func (b *buffer) WriteInt32(v int32) {
	_ = binary.Write(b, binary.LittleEndian, v)
}

// WriteFloat32 writes a float32 in little-endian IEEE 754 format.
func (b *buffer) WriteFloat32(v float32) {
	b.WriteUInt32(math.Float32bits(v))
}

// WriteUInt16 writes a uint16 in little-endian format.
func (b *buffer) WriteUInt16(v uint16) {
	_ = binary.Write(b, binary.LittleEndian, v)
}

// WriteBool writes a boolean as a byte (0 or 1).
func (b *buffer) WriteBool(v bool) {
	if v {
		_ = b.WriteByte(1)
	} else {
		_ = b.WriteByte(0)
	}
}

// WriteRaw writes a byte slice with no length prefix.
func (b *buffer) WriteRaw(data []byte) {
	_, _ = b.Write(data)
}

// reader is a helper for reading binary data with convenient typed
// methods.
type reader struct {
	r io.Reader
}

// newReader creates a new reader wrapping the given io.Reader.
func newReader(r io.Reader) *reader {
	return &reader{r: r}
}

// ReadUInt8 reads a single byte.
func (r *reader) ReadUInt8() (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return buf[0], nil
}

// ReadUInt32 reads a uint32 in little-endian format.
func (r *reader) ReadUInt32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadInt32 reads an int32 in little-endian format.
func (r *reader) ReadInt32() (int32, error) {
	v, err := r.ReadUInt32()
	return int32(v), err
}

// ReadFloat32 reads a float32 in little-endian IEEE 754 format.
func (r *reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUInt32()
	return math.Float32frombits(v), err
}

// ReadBool reads a boolean (0 or 1).
func (r *reader) ReadBool() (bool, error) {
	b, err := r.ReadUInt8()
	return b != 0, err
}

// ReadN reads exactly n bytes.
func (r *reader) ReadN(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrTruncated, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return buf, nil
}
