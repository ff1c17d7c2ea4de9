package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/worldupgrader/blockupgrader"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
	log "github.com/sirupsen/logrus"

	nucleation "github.com/Schem-at/Nucleation"
)

// mcStructureFormatVersion is the format_version written on emit.
const mcStructureFormatVersion = 1

// bedrockBlockVersion is the Bedrock block state version stamped on
// palette entries written on emit: 1.21.60.0 packed as four bytes.
const bedrockBlockVersion int32 = (1 << 24) | (21 << 16) | (60 << 8)

// IsMcStructure reports whether data looks like a .mcstructure file.
func IsMcStructure(data []byte) bool {
	return Detect(data) == FormatMcStructure
}

// FromMcStructure decodes a Bedrock .mcstructure file into a universal
// schematic. Bedrock block names are translated to Java equivalents
// where a mapping is known; anything else passes through verbatim.
func FromMcStructure(data []byte) (*nucleation.Schematic, error) {
	root, err := decodeRoot(data, nbt.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("mcstructure: %w", err)
	}
	if v := intOr(root, "format_version", 0); v != mcStructureFormatVersion {
		return nil, fmt.Errorf("mcstructure: %w: format_version %d", ErrUnknownVersion, v)
	}
	size, err := getIntTriple(root, "size")
	if err != nil {
		return nil, fmt.Errorf("mcstructure: %w", err)
	}
	origin, err := getIntTriple(root, "structure_world_origin")
	if err != nil {
		return nil, fmt.Errorf("mcstructure: %w", err)
	}
	if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
		return nil, fmt.Errorf("mcstructure: %w: size %v", ErrBadShape, size)
	}
	structure, err := getCompound(root, "structure")
	if err != nil {
		return nil, fmt.Errorf("mcstructure: %w", err)
	}

	layersList, err := getList(structure, "block_indices")
	if err != nil {
		return nil, fmt.Errorf("mcstructure: %w", err)
	}
	if len(layersList) < 1 {
		return nil, fmt.Errorf("mcstructure: %w: block_indices empty", ErrBadShape)
	}
	count := size[0] * size[1] * size[2]
	primary, err := intLayer(layersList[0], count)
	if err != nil {
		return nil, fmt.Errorf("mcstructure: block_indices[0]: %w", err)
	}
	var secondary []int
	if len(layersList) > 1 {
		if secondary, err = intLayer(layersList[1], count); err != nil {
			return nil, fmt.Errorf("mcstructure: block_indices[1]: %w", err)
		}
	}

	paletteRoot, err := getCompound(structure, "palette")
	if err != nil {
		return nil, fmt.Errorf("mcstructure: %w", err)
	}
	defaultPalette, err := getCompound(paletteRoot, "default")
	if err != nil {
		return nil, fmt.Errorf("mcstructure: palette: %w", err)
	}
	paletteList, err := getList(defaultPalette, "block_palette")
	if err != nil {
		return nil, fmt.Errorf("mcstructure: palette.default: %w", err)
	}
	filePalette := make([]nucleation.BlockState, 0, len(paletteList))
	for i, entry := range compoundList(paletteList) {
		state, err := javaStateFromBedrock(entry)
		if err != nil {
			return nil, fmt.Errorf("mcstructure: block_palette[%d]: %w", i, err)
		}
		filePalette = append(filePalette, state)
	}

	s := nucleation.NewSchematic("")
	region := nucleation.NewRegion(nucleation.MainRegion,
		cube.Pos{origin[0], origin[1], origin[2]},
		cube.Pos{size[0], size[1], size[2]})
	palette, remap := airFirstPalette(filePalette)
	region.SetPalette(palette)

	// The wire order is x-major (x*H*L + y*L + z); the model stores
	// y-major. -1 marks an empty cell.
	w, h, l := size[0], size[1], size[2]
	region.SecondaryBlockLayer = nil
	if secondary != nil {
		region.SecondaryBlockLayer = make([]int32, count)
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			for z := 0; z < l; z++ {
				wire := (x*h+y)*l + z
				mem := (y*l+z)*w + x
				idx := primary[wire]
				switch {
				case idx == -1:
					region.Blocks[mem] = 0
				case idx >= 0 && idx < len(remap):
					region.Blocks[mem] = remap[idx]
				default:
					return nil, fmt.Errorf("mcstructure: %w: palette index %d out of range (palette %d)", ErrBadShape, idx, len(remap))
				}
				if secondary != nil {
					// Secondary layer entries are remapped into the
					// region palette alongside the primary layer.
					sv := secondary[wire]
					if sv >= 0 && sv < len(remap) {
						region.SecondaryBlockLayer[mem] = int32(remap[sv])
					} else {
						region.SecondaryBlockLayer[mem] = -1
					}
				}
			}
		}
	}

	if posData, err := getCompound(defaultPalette, "block_position_data"); err == nil {
		for key, v := range posData {
			entry, ok := v.(map[string]any)
			if !ok {
				continue
			}
			wire, err := strconv.Atoi(key)
			if err != nil || wire < 0 || wire >= count {
				return nil, fmt.Errorf("mcstructure: %w: block_position_data key %q", ErrBadShape, key)
			}
			beData, ok := entry["block_entity_data"].(map[string]any)
			if !ok {
				continue
			}
			x := wire / (h * l)
			y := wire / l % h
			z := wire % l
			be := nucleation.NewBlockEntity(stringOr(beData, "id", ""), cube.Pos{x, y, z})
			for k, fv := range beData {
				if k != "id" {
					be.Data[k] = fv
				}
			}
			region.SetBlockEntity(be)
		}
	}

	if list, err := getList(structure, "entities"); err == nil {
		for _, c := range compoundList(list) {
			e := nucleation.NewEntity(stringOr(c, "identifier", ""), mgl64.Vec3{})
			if pos, err := getFloatTriple(c, "Pos"); err == nil {
				// Entity positions are world-absolute on the wire.
				e.Position = mgl64.Vec3{
					pos[0] - float64(origin[0]),
					pos[1] - float64(origin[1]),
					pos[2] - float64(origin[2]),
				}
			}
			for k, v := range c {
				switch k {
				case "Pos", "identifier":
				default:
					e.Data[k] = v
				}
			}
			region.AddEntity(e)
		}
	}

	s.Regions[region.Name] = region
	return s, nil
}

// intLayer converts one block_indices layer into ints.
func intLayer(v any, count int) ([]int, error) {
	var out []int
	switch t := v.(type) {
	case []int32:
		out = make([]int, len(t))
		for i, n := range t {
			out[i] = int(n)
		}
	case []any:
		out = make([]int, len(t))
		for i, e := range t {
			n, ok := asInt(e)
			if !ok {
				return nil, fmt.Errorf("%w: element %d", ErrBadShape, i)
			}
			out[i] = n
		}
	default:
		return nil, fmt.Errorf("%w: not an int list", ErrBadShape)
	}
	if len(out) != count {
		return nil, fmt.Errorf("%w: %d entries, want %d", ErrBadShape, len(out), count)
	}
	return out, nil
}

// javaStateFromBedrock upgrades a versioned Bedrock palette entry and
// translates it into Java naming.
func javaStateFromBedrock(entry map[string]any) (nucleation.BlockState, error) {
	name, err := getString(entry, "name")
	if err != nil {
		return nucleation.BlockState{}, err
	}
	states, _ := entry["states"].(map[string]any)
	version := int32(intOr(entry, "version", 0))

	upgraded := blockupgrader.Upgrade(blockupgrader.BlockState{
		Name:       name,
		Properties: states,
		Version:    version,
	})

	javaName, known := bedrockToJavaNames[upgraded.Name]
	if !known {
		javaName = upgraded.Name
		if !strings.HasPrefix(javaName, "minecraft:") {
			log.WithField("block", javaName).Warn("mcstructure: unknown block passed through verbatim")
		}
	}
	state := nucleation.NewBlockState(javaName)
	for k, v := range upgraded.Properties {
		state.SetProperty(k, bedrockPropertyString(v))
	}
	return state, nil
}

// bedrockPropertyString renders a Bedrock state value as a Java-style
// property value string.
func bedrockPropertyString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case byte:
		if t != 0 {
			return "true"
		}
		return "false"
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	if n, ok := asInt(v); ok {
		return strconv.Itoa(n)
	}
	return fmt.Sprint(v)
}

// bedrockPropertyValue reverses bedrockPropertyString into a typed
// Bedrock state value.
func bedrockPropertyValue(s string) any {
	switch s {
	case "true":
		return byte(1)
	case "false":
		return byte(0)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return int32(n)
	}
	return s
}

// ToMcStructure encodes a schematic as a .mcstructure file. Multi-region
// schematics are flattened first; Java block names are translated back
// to Bedrock naming where a mapping is known.
func ToMcStructure(s *nucleation.Schematic) ([]byte, error) {
	var rc *nucleation.Region
	if len(s.Regions) == 1 {
		// A lone region keeps its secondary Bedrock layer; flattening is
		// only needed for multi-region schematics.
		for _, r := range s.Regions {
			rc = r.Clone()
		}
	} else {
		var err error
		if rc, err = flattenRegions(s); err != nil {
			return nil, fmt.Errorf("mcstructure: %w", err)
		}
	}
	rc.DropOrphanBlockEntities()
	rc.CompactPalette()

	w, h, l := rc.Dimensions()
	min := rc.Min()
	count := w * h * l

	blockPalette := make([]map[string]any, len(rc.Palette))
	for i, state := range rc.Palette {
		name, known := javaToBedrockNames[state.Name]
		if !known {
			name = state.Name
		}
		states := make(map[string]any, len(state.Properties))
		for k, v := range state.Properties {
			states[k] = bedrockPropertyValue(v)
		}
		blockPalette[i] = map[string]any{
			"name":    name,
			"states":  states,
			"version": bedrockBlockVersion,
		}
	}

	primary := make([]any, count)
	secondary := make([]any, count)
	positionData := make(map[string]any)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			for z := 0; z < l; z++ {
				wire := (x*h+y)*l + z
				mem := (y*l+z)*w + x
				primary[wire] = int32(rc.Blocks[mem])
				if rc.SecondaryBlockLayer != nil {
					secondary[wire] = rc.SecondaryBlockLayer[mem]
				} else {
					secondary[wire] = int32(-1)
				}
			}
		}
	}
	for _, be := range sortedBlockEntities(rc.BlockEntities) {
		wire := (be.Position[0]*h+be.Position[1])*l + be.Position[2]
		data := make(map[string]any, len(be.Data)+1)
		for k, v := range be.Data {
			data[k] = v
		}
		if be.ID != "" {
			data["id"] = be.ID
		}
		positionData[strconv.Itoa(wire)] = map[string]any{"block_entity_data": data}
	}

	entities := make([]any, 0, len(rc.Entities))
	for _, e := range rc.Entities {
		entry := make(map[string]any, len(e.Data)+2)
		for k, v := range e.Data {
			entry[k] = v
		}
		if e.ID != "" {
			entry["identifier"] = e.ID
		}
		entry["Pos"] = []float32{
			float32(e.Position[0] + float64(min[0])),
			float32(e.Position[1] + float64(min[1])),
			float32(e.Position[2] + float64(min[2])),
		}
		entities = append(entities, entry)
	}

	root := map[string]any{
		"format_version": int32(mcStructureFormatVersion),
		"size":           []any{int32(w), int32(h), int32(l)},
		"structure_world_origin": []any{
			int32(min[0]), int32(min[1]), int32(min[2]),
		},
		"structure": map[string]any{
			"block_indices": []any{primary, secondary},
			"entities":      entities,
			"palette": map[string]any{
				"default": map[string]any{
					"block_palette":       blockPalette,
					"block_position_data": positionData,
				},
			},
		},
	}
	return encodeRoot(root, nbt.LittleEndian)
}
