package format

import (
	"fmt"
	"sort"

	"github.com/df-mc/dragonfly/server/block/cube"

	nucleation "github.com/Schem-at/Nucleation"
)

// cubePos aliases the block position type used across the model.
type cubePos = cube.Pos

// Helpers for navigating decoded NBT trees (map[string]any form). Every
// getter fails with ErrMissingField naming the absent field so codec
// errors identify the exact spot in the file.

// asInt widens any NBT integer tag to int.
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case byte:
		return int(t), true
	case int8:
		return int(t), true
	case int16:
		return int(t), true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case int:
		return t, true
	}
	return 0, false
}

// asFloat widens any NBT numeric tag to float64.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

func getCompound(m map[string]any, key string) (map[string]any, error) {
	if c, ok := m[key].(map[string]any); ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingField, key)
}

// getList returns a list field as []any, tolerating the concrete slice
// types the NBT decoder may produce for homogeneous lists.
func getList(m map[string]any, key string) ([]any, error) {
	switch t := m[key].(type) {
	case []any:
		return t, nil
	case []map[string]any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = v
		}
		return out, nil
	case []int32:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = v
		}
		return out, nil
	case []float32:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = v
		}
		return out, nil
	case []float64:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingField, key)
}

func getString(m map[string]any, key string) (string, error) {
	if s, ok := m[key].(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: %s", ErrMissingField, key)
}

func getInt(m map[string]any, key string) (int, error) {
	if v, ok := asInt(m[key]); ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
}

// intOr returns an integer field or a default when it is absent.
func intOr(m map[string]any, key string, def int) int {
	if v, ok := asInt(m[key]); ok {
		return v
	}
	return def
}

// stringOr returns a string field or a default when it is absent.
func stringOr(m map[string]any, key, def string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return def
}

// longOr returns a long field or a default when it is absent.
func longOr(m map[string]any, key string, def int64) int64 {
	if v, ok := m[key].(int64); ok {
		return v
	}
	if v, ok := asInt(m[key]); ok {
		return int64(v)
	}
	return def
}

// getLongArray returns a TAG_LongArray field.
func getLongArray(m map[string]any, key string) ([]int64, error) {
	if a, ok := m[key].([]int64); ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingField, key)
}

// getByteArray returns a TAG_ByteArray field.
func getByteArray(m map[string]any, key string) ([]byte, error) {
	if a, ok := m[key].([]byte); ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingField, key)
}

// getXYZ reads a compound of the form {x, y, z}.
func getXYZ(m map[string]any, key string) ([3]int, error) {
	c, err := getCompound(m, key)
	if err != nil {
		return [3]int{}, err
	}
	var out [3]int
	for i, axis := range []string{"x", "y", "z"} {
		v, ok := asInt(c[axis])
		if !ok {
			return [3]int{}, fmt.Errorf("%w: %s.%s", ErrMissingField, key, axis)
		}
		out[i] = v
	}
	return out, nil
}

// getIntTriple reads a three-element integer list or int-array field.
func getIntTriple(m map[string]any, key string) ([3]int, error) {
	var out [3]int
	if a, ok := m[key].([]int32); ok {
		if len(a) != 3 {
			return out, fmt.Errorf("%w: %s has %d elements", ErrBadShape, key, len(a))
		}
		for i, v := range a {
			out[i] = int(v)
		}
		return out, nil
	}
	list, err := getList(m, key)
	if err != nil {
		return out, err
	}
	if len(list) != 3 {
		return out, fmt.Errorf("%w: %s has %d elements", ErrBadShape, key, len(list))
	}
	for i, v := range list {
		n, ok := asInt(v)
		if !ok {
			return out, fmt.Errorf("%w: %s[%d]", ErrMissingField, key, i)
		}
		out[i] = n
	}
	return out, nil
}

// getFloatTriple reads a three-element float list field.
func getFloatTriple(m map[string]any, key string) ([3]float64, error) {
	var out [3]float64
	list, err := getList(m, key)
	if err != nil {
		return out, err
	}
	if len(list) != 3 {
		return out, fmt.Errorf("%w: %s has %d elements", ErrBadShape, key, len(list))
	}
	for i, v := range list {
		f, ok := asFloat(v)
		if !ok {
			return out, fmt.Errorf("%w: %s[%d]", ErrMissingField, key, i)
		}
		out[i] = f
	}
	return out, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// sortedBlockEntities returns block entities sorted by position (y,
// then z, then x) so emitted lists are deterministic.
func sortedBlockEntities(m map[cubePos]nucleation.BlockEntity) []nucleation.BlockEntity {
	out := make([]nucleation.BlockEntity, 0, len(m))
	for _, be := range m {
		out = append(out, be)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Position, out[j].Position
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		if a[2] != b[2] {
			return a[2] < b[2]
		}
		return a[0] < b[0]
	})
	return out
}

// compoundList converts a decoded list field into compounds, skipping
// entries of any other type.
func compoundList(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if c, ok := v.(map[string]any); ok {
			out = append(out, c)
		}
	}
	return out
}
