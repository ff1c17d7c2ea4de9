package nucleation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	mcnbt "github.com/Tnze/go-mc/nbt"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// BlockState is a namespaced block identifier plus its discrete property map,
// e.g. minecraft:oak_stairs[facing=north,half=bottom].
type BlockState struct {
	Name       string
	Properties map[string]string
}

// NewBlockState creates a block state with no properties.
func NewBlockState(name string) BlockState {
	return BlockState{Name: name}
}

// Air is the designated empty block for Java-edition formats.
var Air = NewBlockState("minecraft:air")

// WithProperty returns a copy of the state with the given property set.
func (b BlockState) WithProperty(key, value string) BlockState {
	props := make(map[string]string, len(b.Properties)+1)
	for k, v := range b.Properties {
		props[k] = v
	}
	props[key] = value
	return BlockState{Name: b.Name, Properties: props}
}

// WithProperties returns a copy of the state with the given property map.
func (b BlockState) WithProperties(props map[string]string) BlockState {
	return BlockState{Name: b.Name, Properties: props}
}

// Property returns the value of a property and whether it is present.
func (b BlockState) Property(key string) (string, bool) {
	v, ok := b.Properties[key]
	return v, ok
}

// SetProperty sets a property in place.
func (b *BlockState) SetProperty(key, value string) {
	if b.Properties == nil {
		b.Properties = make(map[string]string, 1)
	}
	b.Properties[key] = value
}

// RemoveProperty deletes a property in place.
func (b *BlockState) RemoveProperty(key string) {
	delete(b.Properties, key)
}

// Clone returns a deep copy of the state.
func (b BlockState) Clone() BlockState {
	if len(b.Properties) == 0 {
		return BlockState{Name: b.Name}
	}
	props := make(map[string]string, len(b.Properties))
	for k, v := range b.Properties {
		props[k] = v
	}
	return BlockState{Name: b.Name, Properties: props}
}

// Equal reports whether two states have the same name and the same
// property map, element-wise.
func (b BlockState) Equal(other BlockState) bool {
	if b.Name != other.Name || len(b.Properties) != len(other.Properties) {
		return false
	}
	for k, v := range b.Properties {
		if ov, ok := other.Properties[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// IsAir reports whether the state is one of the air variants.
func (b BlockState) IsAir() bool {
	switch b.Name {
	case "", "minecraft:air", "minecraft:void_air", "minecraft:cave_air":
		return true
	}
	return false
}

// sortedPropertyKeys returns the property keys in lexicographic order.
func (b BlockState) sortedPropertyKeys() []string {
	keys := make([]string, 0, len(b.Properties))
	for k := range b.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Key returns the canonical string form of the state, with properties
// sorted by key. Two states are equal iff their keys are equal, so the
// key is used wherever a state is hashed or emitted as a palette key.
func (b BlockState) Key() string {
	if len(b.Properties) == 0 {
		return b.Name
	}
	var sb strings.Builder
	sb.WriteString(b.Name)
	sb.WriteByte('[')
	for i, k := range b.sortedPropertyKeys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b.Properties[k])
	}
	sb.WriteByte(']')
	return sb.String()
}

// String returns the canonical string form of the state.
func (b BlockState) String() string {
	return b.Key()
}

var blockNamePattern = regexp.MustCompile(`^[a-z0-9_.-]+:[a-z0-9_/.-]+$`)

// parseError builds a BlockStateParse error carrying the reason and the
// byte offset at which parsing failed.
func parseError(reason string, offset int) error {
	return fmt.Errorf("%w: %s at offset %d", ErrBlockStateParse, reason, offset)
}

// ParseBlockState parses the string form ns:name[k=v,...]{nbt}. The
// bracket and brace sections are optional; property order inside the
// brackets is not significant. The returned map holds the decoded NBT
// suffix (block entity data), or nil when absent.
func ParseBlockState(s string) (BlockState, map[string]any, error) {
	nameEnd := len(s)
	if i := strings.IndexAny(s, "[{"); i >= 0 {
		nameEnd = i
	}
	name := strings.TrimSpace(s[:nameEnd])
	if !blockNamePattern.MatchString(name) {
		return BlockState{}, nil, parseError(fmt.Sprintf("invalid block name %q", name), 0)
	}
	state := BlockState{Name: name}

	rest := s[nameEnd:]
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return BlockState{}, nil, parseError("unterminated property list", nameEnd)
		}
		body := rest[1:end]
		if strings.TrimSpace(body) != "" {
			state.Properties = make(map[string]string)
			for _, pair := range strings.Split(body, ",") {
				kv := strings.SplitN(pair, "=", 2)
				if len(kv) != 2 {
					return BlockState{}, nil, parseError(fmt.Sprintf("property %q missing '='", strings.TrimSpace(pair)), nameEnd)
				}
				key := strings.TrimSpace(kv[0])
				value := strings.TrimSpace(kv[1])
				if key == "" || !isPropertyToken(value) {
					return BlockState{}, nil, parseError(fmt.Sprintf("bad property %q=%q", key, value), nameEnd)
				}
				state.Properties[key] = value
			}
		}
		rest = rest[end+1:]
	}

	if rest == "" {
		return state, nil, nil
	}
	if !strings.HasPrefix(rest, "{") {
		return BlockState{}, nil, parseError(fmt.Sprintf("unexpected trailing %q", rest), len(s)-len(rest))
	}
	blockEntity, err := parseNBTSuffix(rest)
	if err != nil {
		return BlockState{}, nil, parseError(err.Error(), len(s)-len(rest))
	}
	return state, blockEntity, nil
}

// isPropertyToken reports whether s is a valid unquoted property value.
func isPropertyToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// parseNBTSuffix decodes the {...} block-entity suffix. JSON is tried
// first; anything that is not valid JSON goes through the SNBT parser.
func parseNBTSuffix(s string) (map[string]any, error) {
	var viaJSON map[string]any
	if err := json.Unmarshal([]byte(s), &viaJSON); err == nil {
		return viaJSON, nil
	}
	raw, err := mcnbt.Marshal(mcnbt.StringifiedMessage(s))
	if err != nil {
		return nil, fmt.Errorf("invalid SNBT: %v", err)
	}
	var out map[string]any
	if err := nbt.UnmarshalEncoding(raw, &out, nbt.BigEndian); err != nil {
		return nil, fmt.Errorf("decode SNBT compound: %v", err)
	}
	return out, nil
}

// FormatBlockState emits the canonical string form of a state plus an
// optional block-entity compound as a JSON suffix.
func FormatBlockState(state BlockState, blockEntity map[string]any) string {
	if len(blockEntity) == 0 {
		return state.Key()
	}
	var buf bytes.Buffer
	buf.WriteString(state.Key())
	if data, err := json.Marshal(blockEntity); err == nil {
		buf.Write(data)
	}
	return buf.String()
}
