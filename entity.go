package nucleation

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Entity is a mobile entity (mob, item, armor stand) with a
// floating-point position. Data preserves every NBT field that is not
// lifted into a typed attribute, so mod-produced entities survive a
// round trip.
type Entity struct {
	ID       string
	Position mgl64.Vec3
	Data     map[string]any
}

// NewEntity creates an entity with the given identifier and position.
func NewEntity(id string, pos mgl64.Vec3) Entity {
	return Entity{ID: id, Position: pos, Data: make(map[string]any)}
}

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	return Entity{ID: e.ID, Position: e.Position, Data: deepCopyCompound(e.Data)}
}

// UUID extracts the entity's stable UUID from its NBT data. Modern Java
// entities store it as an int-array of four big-endian words under
// "UUID"; older ones split it into UUIDMost/UUIDLeast longs. The zero
// UUID is returned when neither is present.
func (e Entity) UUID() uuid.UUID {
	var u uuid.UUID
	if arr, ok := e.Data["UUID"].([]int32); ok && len(arr) == 4 {
		for i, word := range arr {
			u[i*4] = byte(uint32(word) >> 24)
			u[i*4+1] = byte(uint32(word) >> 16)
			u[i*4+2] = byte(uint32(word) >> 8)
			u[i*4+3] = byte(uint32(word))
		}
		return u
	}
	most, okMost := e.Data["UUIDMost"].(int64)
	least, okLeast := e.Data["UUIDLeast"].(int64)
	if okMost && okLeast {
		for i := 0; i < 8; i++ {
			u[i] = byte(uint64(most) >> (56 - 8*i))
			u[8+i] = byte(uint64(least) >> (56 - 8*i))
		}
	}
	return u
}

// SetUUID writes the UUID into the entity NBT in the modern int-array form.
func (e *Entity) SetUUID(u uuid.UUID) {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	arr := make([]int32, 4)
	for i := range arr {
		arr[i] = int32(uint32(u[i*4])<<24 | uint32(u[i*4+1])<<16 | uint32(u[i*4+2])<<8 | uint32(u[i*4+3]))
	}
	e.Data["UUID"] = arr
}

// BlockEntity is auxiliary NBT attached to a block cell (chest, sign,
// spawner). Position is region-local.
type BlockEntity struct {
	ID       string
	Position cube.Pos
	Data     map[string]any
}

// NewBlockEntity creates a block entity at the given local position.
func NewBlockEntity(id string, pos cube.Pos) BlockEntity {
	return BlockEntity{ID: id, Position: pos, Data: make(map[string]any)}
}

// Clone returns a deep copy of the block entity.
func (b BlockEntity) Clone() BlockEntity {
	return BlockEntity{ID: b.ID, Position: b.Position, Data: deepCopyCompound(b.Data)}
}

// deepCopyCompound recursively copies an NBT compound tree.
func deepCopyCompound(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyCompound(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	case []int32:
		return append([]int32(nil), t...)
	case []int64:
		return append([]int64(nil), t...)
	case []float32:
		return append([]float32(nil), t...)
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}
