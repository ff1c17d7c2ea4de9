package format

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/sandertv/gophertunnel/minecraft/nbt"

	nucleation "github.com/Schem-at/Nucleation"
)

// litematicVersion is the Litematica format version written on emit.
const litematicVersion = 6

// litematicSubVersion is the Litematica sub-version written on emit.
const litematicSubVersion = 1

// defaultDataVersion is written when a schematic carries no Minecraft
// data version of its own.
const defaultDataVersion = 3700

// definitionsKey is the metadata field carrying definition regions as a
// JSON string, preserved across Litematica round trips.
const definitionsKey = "NucleationDefinitions"

// litematicRegionKeys are the region fields the codec consumes; anything
// else is preserved verbatim in the region's ExtraNBT.
var litematicRegionKeys = map[string]bool{
	"Position": true, "Size": true, "BlockStatePalette": true,
	"BlockStates": true, "TileEntities": true, "Entities": true,
	"PendingBlockTicks": true, "PendingFluidTicks": true,
}

// IsLitematic reports whether data looks like a Litematica file.
func IsLitematic(data []byte) bool {
	return Detect(data) == FormatLitematic
}

// FromLitematic decodes a .litematic file into a universal schematic.
func FromLitematic(data []byte) (*nucleation.Schematic, error) {
	raw, err := gunzip(data)
	if err != nil {
		return nil, fmt.Errorf("litematic: %w", err)
	}
	root, err := decodeRoot(raw, nbt.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("litematic: %w", err)
	}

	s := nucleation.NewSchematic("")
	s.Metadata.LMVersion = int32(intOr(root, "Version", 0))
	s.Metadata.MCVersion = int32(intOr(root, "MinecraftDataVersion", 0))

	if meta, err := getCompound(root, "Metadata"); err == nil {
		s.Metadata.Name = stringOr(meta, "Name", "")
		s.Metadata.Author = stringOr(meta, "Author", "")
		s.Metadata.Description = stringOr(meta, "Description", "")
		s.Metadata.Created = longOr(meta, "TimeCreated", 0)
		s.Metadata.Modified = longOr(meta, "TimeModified", 0)
		if defs, ok := meta[definitionsKey].(string); ok {
			if err := json.Unmarshal([]byte(defs), &s.DefinitionRegions); err != nil {
				return nil, fmt.Errorf("litematic: decode %s: %w", definitionsKey, err)
			}
		}
	}

	regions, err := getCompound(root, "Regions")
	if err != nil {
		return nil, fmt.Errorf("litematic: %w", err)
	}
	for name, v := range regions {
		regionC, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("litematic: region %q: %w: not a compound", name, ErrBadShape)
		}
		region, err := litematicRegion(name, regionC)
		if err != nil {
			return nil, fmt.Errorf("litematic: region %q: %w", name, err)
		}
		s.Regions[name] = region
	}
	return s, nil
}

// litematicRegion decodes one entry of the Regions compound.
func litematicRegion(name string, c map[string]any) (*nucleation.Region, error) {
	pos, err := getXYZ(c, "Position")
	if err != nil {
		return nil, err
	}
	size, err := getXYZ(c, "Size")
	if err != nil {
		return nil, err
	}
	for _, v := range size {
		if v == 0 {
			return nil, fmt.Errorf("%w: zero size component", ErrBadShape)
		}
	}

	paletteList, err := getList(c, "BlockStatePalette")
	if err != nil {
		return nil, err
	}
	palette, remap, err := regionPalette(compoundList(paletteList))
	if err != nil {
		return nil, err
	}

	longs, err := getLongArray(c, "BlockStates")
	if err != nil {
		return nil, err
	}
	count := abs(size[0]) * abs(size[1]) * abs(size[2])
	bits := nucleation.BitsFor(len(remap))
	indices, err := nucleation.UnpackIndices(longs, bits, count, true)
	if err != nil {
		return nil, fmt.Errorf("%w: BlockStates: %v", ErrBadShape, err)
	}

	region := nucleation.NewRegion(name, cube.Pos{pos[0], pos[1], pos[2]}, cube.Pos{size[0], size[1], size[2]})
	region.SetPalette(palette)
	for i, idx := range indices {
		if int(idx) >= len(remap) {
			return nil, fmt.Errorf("%w: palette index %d out of range (palette %d)", ErrBadShape, idx, len(remap))
		}
		indices[i] = remap[idx]
	}
	region.Blocks = indices

	if list, err := getList(c, "TileEntities"); err == nil {
		for _, te := range compoundList(list) {
			be := blockEntityFromNBT(te)
			region.SetBlockEntity(be)
		}
	}
	if list, err := getList(c, "Entities"); err == nil {
		for _, ec := range compoundList(list) {
			region.AddEntity(entityFromNBT(ec))
		}
	}
	if list, err := getList(c, "PendingBlockTicks"); err == nil {
		region.PendingBlockTicks = list
	}
	if list, err := getList(c, "PendingFluidTicks"); err == nil {
		region.PendingFluidTicks = list
	}
	for key, v := range c {
		if !litematicRegionKeys[key] {
			if region.ExtraNBT == nil {
				region.ExtraNBT = make(map[string]any)
			}
			region.ExtraNBT[key] = v
		}
	}
	return region, nil
}

// regionPalette converts a BlockStatePalette list into a palette with
// the empty block pinned at entry 0, plus a file-index remap.
func regionPalette(entries []map[string]any) ([]nucleation.BlockState, []uint32, error) {
	states := make([]nucleation.BlockState, 0, len(entries))
	for i, entry := range entries {
		name, err := getString(entry, "Name")
		if err != nil {
			return nil, nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		state := nucleation.NewBlockState(name)
		if props, ok := entry["Properties"].(map[string]any); ok {
			for k, v := range props {
				if sv, ok := v.(string); ok {
					state.SetProperty(k, sv)
				}
			}
		}
		states = append(states, state)
	}

	palette := []nucleation.BlockState{nucleation.Air}
	remap := make([]uint32, len(states))
	for i, state := range states {
		if state.IsAir() && len(state.Properties) == 0 {
			remap[i] = 0
			continue
		}
		remap[i] = uint32(len(palette))
		palette = append(palette, state)
	}
	if len(states) == 0 {
		remap = []uint32{0}
	}
	return palette, remap, nil
}

// blockEntityFromNBT lifts a TileEntities entry into a BlockEntity,
// keeping every field that is not position or id.
func blockEntityFromNBT(c map[string]any) nucleation.BlockEntity {
	be := nucleation.NewBlockEntity(stringOr(c, "id", ""), cube.Pos{
		intOr(c, "x", 0), intOr(c, "y", 0), intOr(c, "z", 0),
	})
	for k, v := range c {
		switch k {
		case "x", "y", "z", "id", "Pos":
		default:
			be.Data[k] = v
		}
	}
	return be
}

// entityFromNBT lifts an Entities entry into an Entity.
func entityFromNBT(c map[string]any) nucleation.Entity {
	e := nucleation.NewEntity(stringOr(c, "id", ""), mgl64.Vec3{})
	if pos, err := getFloatTriple(c, "Pos"); err == nil {
		e.Position = mgl64.Vec3{pos[0], pos[1], pos[2]}
	}
	for k, v := range c {
		switch k {
		case "id", "Pos":
		default:
			e.Data[k] = v
		}
	}
	return e
}

// ToLitematic encodes a schematic as a .litematic file.
func ToLitematic(s *nucleation.Schematic, level CompressionLevel) ([]byte, error) {
	created := s.Metadata.Created
	if created == 0 {
		created = time.Now().UnixMilli()
	}
	modified := s.Metadata.Modified
	if modified == 0 {
		modified = created
	}

	var enclosing [3]int
	if min, max, ok := s.BoundingBox(); ok {
		for i := range enclosing {
			enclosing[i] = max[i] - min[i] + 1
		}
	}

	meta := map[string]any{
		"Name":         s.Metadata.Name,
		"Author":       s.Metadata.Author,
		"Description":  s.Metadata.Description,
		"TimeCreated":  created,
		"TimeModified": modified,
		"EnclosingSize": map[string]any{
			"x": int32(enclosing[0]), "y": int32(enclosing[1]), "z": int32(enclosing[2]),
		},
		"TotalVolume": int32(s.TotalVolume()),
		"TotalBlocks": int32(s.TotalBlocks()),
		"RegionCount": int32(len(s.Regions)),
		"Software":    "Nucleation",
	}
	if len(s.DefinitionRegions) > 0 {
		defs, err := json.Marshal(s.DefinitionRegions)
		if err != nil {
			return nil, fmt.Errorf("litematic: encode %s: %w", definitionsKey, err)
		}
		meta[definitionsKey] = string(defs)
	}

	dataVersion := s.Metadata.MCVersion
	if dataVersion == 0 {
		dataVersion = defaultDataVersion
	}

	regions := make(map[string]any, len(s.Regions))
	for name, r := range s.Regions {
		regionC, err := litematicRegionNBT(r)
		if err != nil {
			return nil, fmt.Errorf("litematic: region %q: %w", name, err)
		}
		regions[name] = regionC
	}

	root := map[string]any{
		"Version":              int32(litematicVersion),
		"SubVersion":           int32(litematicSubVersion),
		"MinecraftDataVersion": dataVersion,
		"Metadata":             meta,
		"Regions":              regions,
	}
	raw, err := encodeRoot(root, nbt.BigEndian)
	if err != nil {
		return nil, fmt.Errorf("litematic: %w", err)
	}
	return gzipCompress(raw, level)
}

// litematicRegionNBT encodes one region, compacting its palette and
// dropping orphaned block entities on a working copy.
func litematicRegionNBT(r *nucleation.Region) (map[string]any, error) {
	rc := r.Clone()
	rc.DropOrphanBlockEntities()
	rc.CompactPalette()

	paletteNBT := make([]map[string]any, len(rc.Palette))
	for i, state := range rc.Palette {
		entry := map[string]any{"Name": state.Name}
		if len(state.Properties) > 0 {
			props := make(map[string]any, len(state.Properties))
			for k, v := range state.Properties {
				props[k] = v
			}
			entry["Properties"] = props
		}
		paletteNBT[i] = entry
	}

	bits := nucleation.BitsFor(len(rc.Palette))
	longs, err := nucleation.PackIndices(rc.Blocks, bits, true)
	if err != nil {
		return nil, err
	}

	tileEntities := make([]map[string]any, 0, len(rc.BlockEntities))
	for _, be := range sortedBlockEntities(rc.BlockEntities) {
		tileEntities = append(tileEntities, blockEntityToNBT(be))
	}
	entities := make([]map[string]any, 0, len(rc.Entities))
	for _, e := range rc.Entities {
		entities = append(entities, entityToNBT(e))
	}

	regionC := map[string]any{
		"Position": map[string]any{
			"x": int32(rc.Position[0]), "y": int32(rc.Position[1]), "z": int32(rc.Position[2]),
		},
		"Size": map[string]any{
			"x": int32(rc.Size[0]), "y": int32(rc.Size[1]), "z": int32(rc.Size[2]),
		},
		"BlockStatePalette": paletteNBT,
		"BlockStates":       longs,
		"TileEntities":      tileEntities,
		"Entities":          entities,
		"PendingBlockTicks": pendingList(rc.PendingBlockTicks),
		"PendingFluidTicks": pendingList(rc.PendingFluidTicks),
	}
	for k, v := range rc.ExtraNBT {
		regionC[k] = v
	}
	return regionC, nil
}

func pendingList(list []any) []any {
	if list == nil {
		return []any{}
	}
	return list
}

// blockEntityToNBT flattens a BlockEntity back into the TileEntities
// entry shape with local x, y, z coordinates.
func blockEntityToNBT(be nucleation.BlockEntity) map[string]any {
	out := make(map[string]any, len(be.Data)+4)
	for k, v := range be.Data {
		out[k] = v
	}
	if be.ID != "" {
		out["id"] = be.ID
	}
	out["x"] = int32(be.Position[0])
	out["y"] = int32(be.Position[1])
	out["z"] = int32(be.Position[2])
	return out
}

// entityToNBT flattens an Entity back into the Entities entry shape.
func entityToNBT(e nucleation.Entity) map[string]any {
	out := make(map[string]any, len(e.Data)+2)
	for k, v := range e.Data {
		out[k] = v
	}
	if e.ID != "" {
		out["id"] = e.ID
	}
	out["Pos"] = []float64{e.Position[0], e.Position[1], e.Position[2]}
	return out
}
