package format

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sandertv/gophertunnel/minecraft/nbt"

	nucleation "github.com/Schem-at/Nucleation"
)

// IsSponge reports whether data looks like a Sponge schematic.
func IsSponge(data []byte) bool {
	switch Detect(data) {
	case FormatSpongeV1, FormatSpongeV2, FormatSpongeV3:
		return true
	}
	return false
}

// FromSponge decodes a .schem file of any supported version into a
// universal schematic. The version is read from the Version field; v3
// bodies nested under a root "Schematic" compound are unwrapped.
func FromSponge(data []byte) (*nucleation.Schematic, error) {
	raw, err := gunzip(data)
	if err != nil {
		return nil, fmt.Errorf("sponge: %w", err)
	}
	root, err := decodeRoot(raw, nbt.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("sponge: %w", err)
	}
	body := root
	if nested, ok := root["Schematic"].(map[string]any); ok {
		body = nested
	}
	version, err := getInt(body, "Version")
	if err != nil {
		return nil, fmt.Errorf("sponge: %w", err)
	}
	if version < 1 || version > 3 {
		return nil, fmt.Errorf("sponge: %w: %d", ErrUnknownVersion, version)
	}

	width, err := getInt(body, "Width")
	if err != nil {
		return nil, fmt.Errorf("sponge: %w", err)
	}
	height, err := getInt(body, "Height")
	if err != nil {
		return nil, fmt.Errorf("sponge: %w", err)
	}
	length, err := getInt(body, "Length")
	if err != nil {
		return nil, fmt.Errorf("sponge: %w", err)
	}
	// Shorts carry unsigned semantics on the wire.
	width, height, length = width&0xFFFF, height&0xFFFF, length&0xFFFF
	if width == 0 || height == 0 || length == 0 {
		return nil, fmt.Errorf("sponge: %w: zero dimension %dx%dx%d", ErrBadShape, width, height, length)
	}

	var offset [3]int
	if off, err := getIntTriple(body, "Offset"); err == nil {
		offset = off
	}

	var paletteC map[string]any
	var blockEntityList []any
	var rawData any
	switch version {
	case 3:
		blocks, err := getCompound(body, "Blocks")
		if err != nil {
			return nil, fmt.Errorf("sponge: %w", err)
		}
		if paletteC, err = getCompound(blocks, "Palette"); err != nil {
			return nil, fmt.Errorf("sponge: Blocks: %w", err)
		}
		rawData = blocks["Data"]
		if list, err := getList(blocks, "BlockEntities"); err == nil {
			blockEntityList = list
		}
	default:
		if paletteC, err = getCompound(body, "Palette"); err != nil {
			return nil, fmt.Errorf("sponge: %w", err)
		}
		rawData = body["BlockData"]
		key := "BlockEntities"
		if version == 1 {
			key = "TileEntities"
		}
		if list, err := getList(body, key); err == nil {
			blockEntityList = list
		}
	}

	filePalette, err := spongePalette(paletteC)
	if err != nil {
		return nil, fmt.Errorf("sponge: %w", err)
	}

	count := width * height * length
	indices, err := spongeIndices(rawData, len(filePalette), count, version)
	if err != nil {
		return nil, fmt.Errorf("sponge: %w", err)
	}

	s := nucleation.NewSchematic("")
	s.Metadata.WEVersion = int32(version)
	s.Metadata.MCVersion = int32(intOr(body, "DataVersion", 0))
	if meta, err := getCompound(body, "Metadata"); err == nil {
		s.Metadata.Name = stringOr(meta, "Name", "")
		s.Metadata.Author = stringOr(meta, "Author", "")
	}

	region := nucleation.NewRegion(nucleation.MainRegion,
		cube.Pos{offset[0], offset[1], offset[2]},
		cube.Pos{width, height, length})
	palette, remap := airFirstPalette(filePalette)
	region.SetPalette(palette)
	for i, idx := range indices {
		if int(idx) >= len(remap) {
			return nil, fmt.Errorf("sponge: %w: palette index %d out of range (palette %d)", ErrBadShape, idx, len(remap))
		}
		indices[i] = remap[idx]
	}
	region.Blocks = indices

	for _, c := range compoundList(blockEntityList) {
		be, err := spongeBlockEntity(c, version)
		if err != nil {
			return nil, fmt.Errorf("sponge: block entity: %w", err)
		}
		region.SetBlockEntity(be)
	}

	if list, err := getList(body, "Entities"); err == nil {
		for _, c := range compoundList(list) {
			s.AddEntity(spongeEntity(c, version))
		}
	}

	s.Regions[region.Name] = region
	return s, nil
}

// spongePalette inverts the name->index Palette compound into an
// index-ordered slice of parsed block states.
func spongePalette(c map[string]any) ([]nucleation.BlockState, error) {
	palette := make([]nucleation.BlockState, len(c))
	for key, v := range c {
		idx, ok := asInt(v)
		if !ok || idx < 0 || idx >= len(palette) {
			return nil, fmt.Errorf("%w: palette index for %q", ErrBadShape, key)
		}
		state, _, err := nucleation.ParseBlockState(key)
		if err != nil {
			return nil, fmt.Errorf("palette entry %q: %w", key, err)
		}
		palette[idx] = state
	}
	return palette, nil
}

// airFirstPalette rebuilds a file palette with the empty block pinned at
// entry 0 and returns the file-index remap.
func airFirstPalette(file []nucleation.BlockState) ([]nucleation.BlockState, []uint32) {
	palette := []nucleation.BlockState{nucleation.Air}
	remap := make([]uint32, len(file))
	for i, state := range file {
		if state.IsAir() && len(state.Properties) == 0 {
			remap[i] = 0
			continue
		}
		remap[i] = uint32(len(palette))
		palette = append(palette, state)
	}
	return palette, remap
}

// spongeIndices decodes the block payload: VarInt bytes for v1/v2, a
// non-straddling packed long array for v3.
func spongeIndices(raw any, paletteLen, count, version int) ([]uint32, error) {
	switch data := raw.(type) {
	case []byte:
		indices, err := readVarints(data, count)
		if err != nil {
			return nil, err
		}
		return indices, nil
	case []int64:
		if version != 3 {
			return nil, fmt.Errorf("%w: packed longs in v%d payload", ErrBadShape, version)
		}
		bits := nucleation.BitsFor(paletteLen)
		indices, err := nucleation.UnpackIndices(data, bits, count, false)
		if err != nil {
			return nil, fmt.Errorf("%w: Data: %v", ErrBadShape, err)
		}
		return indices, nil
	}
	return nil, fmt.Errorf("%w: BlockData", ErrMissingField)
}

// readVarints decodes count unsigned LEB128 values, failing when the
// payload is short or a value overflows 32 bits.
func readVarints(data []byte, count int) ([]uint32, error) {
	out := make([]uint32, count)
	pos := 0
	for i := 0; i < count; i++ {
		var v uint32
		shift := 0
		for {
			if pos >= len(data) {
				return nil, fmt.Errorf("%w: varint stream ends at value %d of %d", ErrTruncated, i, count)
			}
			b := data[pos]
			pos++
			v |= uint32(b&0x7F) << shift
			if b&0x80 == 0 {
				break
			}
			shift += 7
			if shift >= 32 {
				return nil, fmt.Errorf("%w: varint too wide at value %d", ErrBadShape, i)
			}
		}
		out[i] = v
	}
	if pos != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after varint stream", ErrBadShape, len(data)-pos)
	}
	return out, nil
}

// writeVarints encodes values as unsigned LEB128.
func writeVarints(values []uint32) []byte {
	out := make([]byte, 0, len(values))
	for _, v := range values {
		for v >= 0x80 {
			out = append(out, byte(v)|0x80)
			v >>= 7
		}
		out = append(out, byte(v))
	}
	return out
}

// spongeBlockEntity lifts a BlockEntities entry. V3 nests extra fields
// under Data; earlier versions keep them flat.
func spongeBlockEntity(c map[string]any, version int) (nucleation.BlockEntity, error) {
	pos, err := getIntTriple(c, "Pos")
	if err != nil {
		return nucleation.BlockEntity{}, err
	}
	be := nucleation.NewBlockEntity(stringOr(c, "Id", ""), cube.Pos{pos[0], pos[1], pos[2]})
	if version == 3 {
		if data, ok := c["Data"].(map[string]any); ok {
			for k, v := range data {
				be.Data[k] = v
			}
		}
		return be, nil
	}
	for k, v := range c {
		switch k {
		case "Pos", "Id":
		default:
			be.Data[k] = v
		}
	}
	return be, nil
}

// spongeEntity lifts an Entities entry; positions are absolute world
// coordinates.
func spongeEntity(c map[string]any, version int) nucleation.Entity {
	e := nucleation.NewEntity(stringOr(c, "Id", ""), mgl64.Vec3{})
	if pos, err := getFloatTriple(c, "Pos"); err == nil {
		e.Position = mgl64.Vec3{pos[0], pos[1], pos[2]}
	}
	if version == 3 {
		if data, ok := c["Data"].(map[string]any); ok {
			for k, v := range data {
				e.Data[k] = v
			}
		}
		return e
	}
	for k, v := range c {
		switch k {
		case "Pos", "Id":
		default:
			e.Data[k] = v
		}
	}
	return e
}

// ToSponge encodes a schematic as a .schem file of the given version.
// Multi-region schematics are flattened into a single grid covering the
// schematic bounding box, as the format holds one region only.
func ToSponge(s *nucleation.Schematic, version int, level CompressionLevel) ([]byte, error) {
	if version < 1 || version > 3 {
		return nil, fmt.Errorf("sponge: %w: %d", ErrUnknownVersion, version)
	}
	rc, err := flattenRegions(s)
	if err != nil {
		return nil, fmt.Errorf("sponge: %w", err)
	}
	rc.DropOrphanBlockEntities()
	rc.CompactPalette()

	w, h, l := rc.Dimensions()
	if w > 0xFFFF || h > 0xFFFF || l > 0xFFFF {
		return nil, fmt.Errorf("sponge: %w: dimensions %dx%dx%d exceed unsigned short", ErrBadShape, w, h, l)
	}
	min := rc.Min()

	paletteC := make(map[string]any, len(rc.Palette))
	for i, state := range rc.Palette {
		paletteC[state.Key()] = int32(i)
	}

	blockEntities := make([]map[string]any, 0, len(rc.BlockEntities))
	for _, be := range sortedBlockEntities(rc.BlockEntities) {
		entry := map[string]any{
			"Pos": []int32{int32(be.Position[0]), int32(be.Position[1]), int32(be.Position[2])},
			"Id":  be.ID,
		}
		if version == 3 {
			entry["Data"] = be.Data
		} else {
			for k, v := range be.Data {
				entry[k] = v
			}
		}
		blockEntities = append(blockEntities, entry)
	}

	entities := make([]map[string]any, 0, len(s.Entities)+len(rc.Entities))
	appendEntity := func(e nucleation.Entity, world mgl64.Vec3) {
		entry := map[string]any{
			"Pos": []float64{world[0], world[1], world[2]},
			"Id":  e.ID,
		}
		if version == 3 {
			entry["Data"] = e.Data
		} else {
			for k, v := range e.Data {
				entry[k] = v
			}
		}
		entities = append(entities, entry)
	}
	for _, e := range rc.Entities {
		appendEntity(e, e.Position.Add(mgl64.Vec3{float64(min[0]), float64(min[1]), float64(min[2])}))
	}
	for _, e := range s.Entities {
		appendEntity(e, e.Position)
	}

	dataVersion := s.Metadata.MCVersion
	if dataVersion == 0 {
		dataVersion = defaultDataVersion
	}

	body := map[string]any{
		"Version":     int32(version),
		"DataVersion": dataVersion,
		"Width":       int16(w),
		"Height":      int16(h),
		"Length":      int16(l),
		"Offset":      []int32{int32(min[0]), int32(min[1]), int32(min[2])},
	}
	if s.Metadata.Name != "" || s.Metadata.Author != "" {
		meta := map[string]any{}
		if s.Metadata.Name != "" {
			meta["Name"] = s.Metadata.Name
		}
		if s.Metadata.Author != "" {
			meta["Author"] = s.Metadata.Author
		}
		body["Metadata"] = meta
	}
	if len(entities) > 0 {
		body["Entities"] = entities
	}

	if version == 3 {
		bits := nucleation.BitsFor(len(rc.Palette))
		longs, err := nucleation.PackIndices(rc.Blocks, bits, false)
		if err != nil {
			return nil, fmt.Errorf("sponge: %w", err)
		}
		body["Blocks"] = map[string]any{
			"Palette":       paletteC,
			"Data":          longs,
			"BlockEntities": blockEntities,
		}
	} else {
		body["Palette"] = paletteC
		body["PaletteMax"] = int32(len(rc.Palette))
		body["BlockData"] = writeVarints(rc.Blocks)
		key := "BlockEntities"
		if version == 1 {
			key = "TileEntities"
		}
		body[key] = blockEntities
	}

	root := body
	if version == 3 {
		root = map[string]any{"Schematic": body}
	}
	raw, err := encodeRoot(root, nbt.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("sponge: %w", err)
	}
	return gzipCompress(raw, level)
}

// flattenRegions merges every region of a schematic into one grid
// covering the schematic bounding box.
func flattenRegions(s *nucleation.Schematic) (*nucleation.Region, error) {
	min, max, ok := s.BoundingBox()
	if !ok {
		return nil, fmt.Errorf("%w: schematic has no regions", ErrBadShape)
	}
	out := nucleation.NewRegion(nucleation.MainRegion, min,
		cube.Pos{max[0] - min[0] + 1, max[1] - min[1] + 1, max[2] - min[2] + 1})
	for _, name := range s.RegionNames() {
		out.Merge(s.Regions[name])
	}
	return out, nil
}
