package nucleation

import (
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
)

// Region is a palette-compressed block grid with a world-space origin
// and signed dimensions. Negative size components invert the axis
// direction, matching the Litematica on-disk layout; indexing always
// happens over the normalized min corner and absolute dimensions.
type Region struct {
	Name string
	// Position is the world-space origin corner that the signed Size
	// extends from. It equals the min corner, where local (0,0,0) lies,
	// when every Size component is positive.
	Position cube.Pos
	// Size holds signed dimensions. The absolute component product is the
	// cell count.
	Size cube.Pos

	// Palette holds the unique block states used by the grid. Entry 0 is
	// always the region's empty block.
	Palette []BlockState
	// Blocks holds palette indices in y-major, then z, then x order.
	Blocks []uint32

	// BlockEntities is keyed by region-local coordinates relative to the
	// min corner.
	BlockEntities map[cube.Pos]BlockEntity
	// Entities holds mobile entities at region-local positions.
	Entities []Entity

	// PendingBlockTicks and PendingFluidTicks are preserved verbatim for
	// Litematica round trips.
	PendingBlockTicks []any
	PendingFluidTicks []any
	// SecondaryBlockLayer preserves the second Bedrock block_indices
	// layer (waterlogging and similar extras) in the region's y-major
	// cell order, -1 meaning no block. nil when absent. The mapping to
	// Java waterlogged properties is left to higher layers.
	SecondaryBlockLayer []int32
	// ExtraNBT preserves unknown region-level NBT fields.
	ExtraNBT map[string]any

	paletteIndex map[string]uint32
}

// NewRegion creates a region whose grid is filled with the empty block.
// Zero size components are clamped to 1.
func NewRegion(name string, position, size cube.Pos) *Region {
	for i, v := range size {
		if v == 0 {
			size[i] = 1
		}
	}
	r := &Region{
		Name:          name,
		Position:      position,
		Size:          size,
		Palette:       []BlockState{Air},
		BlockEntities: make(map[cube.Pos]BlockEntity),
		paletteIndex:  map[string]uint32{Air.Key(): 0},
	}
	w, h, l := r.Dimensions()
	r.Blocks = make([]uint32, w*h*l)
	return r
}

// Dimensions returns the absolute width, height and length of the grid.
func (r *Region) Dimensions() (w, h, l int) {
	return abs(r.Size[0]), abs(r.Size[1]), abs(r.Size[2])
}

// Volume returns the cell count of the grid.
func (r *Region) Volume() int {
	w, h, l := r.Dimensions()
	return w * h * l
}

// Min returns the world-space min corner of the region's bounding box.
func (r *Region) Min() cube.Pos {
	var m cube.Pos
	for i := range m {
		if r.Size[i] >= 0 {
			m[i] = r.Position[i]
		} else {
			m[i] = r.Position[i] + r.Size[i] + 1
		}
	}
	return m
}

// Max returns the world-space max corner of the region's bounding box,
// inclusive.
func (r *Region) Max() cube.Pos {
	var m cube.Pos
	for i := range m {
		if r.Size[i] >= 0 {
			m[i] = r.Position[i] + r.Size[i] - 1
		} else {
			m[i] = r.Position[i]
		}
	}
	return m
}

// Contains reports whether the world-space position lies inside the grid.
func (r *Region) Contains(pos cube.Pos) bool {
	mn, mx := r.Min(), r.Max()
	for i := range pos {
		if pos[i] < mn[i] || pos[i] > mx[i] {
			return false
		}
	}
	return true
}

// indexOf converts local coordinates into the flat y-major index.
func (r *Region) indexOf(x, y, z int) int {
	w, _, l := r.Dimensions()
	return (y*l+z)*w + x
}

// localOf translates a world position into local grid coordinates.
func (r *Region) localOf(pos cube.Pos) (x, y, z int, ok bool) {
	if !r.Contains(pos) {
		return 0, 0, 0, false
	}
	mn := r.Min()
	return pos[0] - mn[0], pos[1] - mn[1], pos[2] - mn[2], true
}

// PaletteIndex interns a block state and returns its palette index. The
// palette only grows; codecs compact it on emit.
func (r *Region) PaletteIndex(state BlockState) uint32 {
	key := state.Key()
	if r.paletteIndex == nil {
		r.rebuildPaletteIndex()
	}
	if idx, ok := r.paletteIndex[key]; ok {
		return idx
	}
	idx := uint32(len(r.Palette))
	r.Palette = append(r.Palette, state.Clone())
	r.paletteIndex[key] = idx
	return idx
}

// PaletteIndexOf returns the palette index of a state without interning,
// and whether it is present.
func (r *Region) PaletteIndexOf(state BlockState) (uint32, bool) {
	if r.paletteIndex == nil {
		r.rebuildPaletteIndex()
	}
	idx, ok := r.paletteIndex[state.Key()]
	return idx, ok
}

// SetPalette replaces the palette wholesale and rebuilds the intern
// index. Codecs use it when reconstructing a region from the wire.
func (r *Region) SetPalette(palette []BlockState) {
	r.Palette = palette
	r.rebuildPaletteIndex()
}

func (r *Region) rebuildPaletteIndex() {
	r.paletteIndex = make(map[string]uint32, len(r.Palette))
	for i, state := range r.Palette {
		r.paletteIndex[state.Key()] = uint32(i)
	}
}

// SetBlock writes a block at a world position. It returns false when the
// position is out of bounds; the region is never grown implicitly.
func (r *Region) SetBlock(pos cube.Pos, state BlockState) bool {
	x, y, z, ok := r.localOf(pos)
	if !ok {
		return false
	}
	idx := r.indexOf(x, y, z)
	if state.IsAir() && r.Blocks[idx] == 0 {
		return true
	}
	r.Blocks[idx] = r.PaletteIndex(state)
	return true
}

// Block returns the block at a world position. The second return is
// false when the position is out of bounds or the cell holds the empty
// block.
func (r *Region) Block(pos cube.Pos) (BlockState, bool) {
	x, y, z, ok := r.localOf(pos)
	if !ok {
		return BlockState{}, false
	}
	idx := r.Blocks[r.indexOf(x, y, z)]
	if idx == 0 {
		return BlockState{}, false
	}
	return r.Palette[idx], true
}

// BlockIndex returns the raw palette index at a world position.
func (r *Region) BlockIndex(pos cube.Pos) (uint32, bool) {
	x, y, z, ok := r.localOf(pos)
	if !ok {
		return 0, false
	}
	return r.Blocks[r.indexOf(x, y, z)], true
}

// FillCuboid fills the intersection of [min, max] (world-space,
// inclusive) with the given state. The state is interned once and rows
// are written contiguously, which is far faster than per-cell SetBlock.
func (r *Region) FillCuboid(min, max cube.Pos, state BlockState) {
	rmn, rmx := r.Min(), r.Max()
	for i := range min {
		if min[i] < rmn[i] {
			min[i] = rmn[i]
		}
		if max[i] > rmx[i] {
			max[i] = rmx[i]
		}
		if min[i] > max[i] {
			return
		}
	}
	idx := r.PaletteIndex(state)
	x0, x1 := min[0]-rmn[0], max[0]-rmn[0]
	for y := min[1] - rmn[1]; y <= max[1]-rmn[1]; y++ {
		for z := min[2] - rmn[2]; z <= max[2]-rmn[2]; z++ {
			row := r.Blocks[r.indexOf(x0, y, z) : r.indexOf(x1, y, z)+1]
			for i := range row {
				row[i] = idx
			}
		}
	}
}

// FillSphere fills all cells within radius of center (world-space) with
// the given state.
func (r *Region) FillSphere(center cube.Pos, radius float64, state BlockState) {
	idx := r.PaletteIndex(state)
	mn, mx := r.Min(), r.Max()
	r2 := radius * radius
	for y := mn[1]; y <= mx[1]; y++ {
		for z := mn[2]; z <= mx[2]; z++ {
			for x := mn[0]; x <= mx[0]; x++ {
				dx, dy, dz := float64(x-center[0]), float64(y-center[1]), float64(z-center[2])
				if dx*dx+dy*dy+dz*dz <= r2 {
					r.Blocks[r.indexOf(x-mn[0], y-mn[1], z-mn[2])] = idx
				}
			}
		}
	}
}

// ForEachBlock calls fn for every non-empty cell with its world
// position, in y-major iteration order.
func (r *Region) ForEachBlock(fn func(pos cube.Pos, state BlockState)) {
	w, h, l := r.Dimensions()
	mn := r.Min()
	i := 0
	for y := 0; y < h; y++ {
		for z := 0; z < l; z++ {
			for x := 0; x < w; x++ {
				if idx := r.Blocks[i]; idx != 0 {
					fn(cube.Pos{mn[0] + x, mn[1] + y, mn[2] + z}, r.Palette[idx])
				}
				i++
			}
		}
	}
}

// CompactPalette rebuilds the palette keeping only used entries, with
// the empty block pinned at index 0, and rewrites the grid. The returned
// slice maps old palette indices to new ones.
func (r *Region) CompactPalette() []uint32 {
	used := make([]bool, len(r.Palette))
	used[0] = true
	for _, idx := range r.Blocks {
		used[idx] = true
	}
	for _, idx := range r.SecondaryBlockLayer {
		if idx >= 0 && int(idx) < len(used) {
			used[idx] = true
		}
	}
	remap := make([]uint32, len(r.Palette))
	newPalette := make([]BlockState, 0, len(r.Palette))
	for i, state := range r.Palette {
		if !used[i] {
			continue
		}
		remap[i] = uint32(len(newPalette))
		newPalette = append(newPalette, state)
	}
	for i, idx := range r.Blocks {
		r.Blocks[i] = remap[idx]
	}
	for i, idx := range r.SecondaryBlockLayer {
		if idx >= 0 && int(idx) < len(remap) {
			r.SecondaryBlockLayer[i] = int32(remap[idx])
		}
	}
	r.Palette = newPalette
	r.rebuildPaletteIndex()
	return remap
}

// CountNonAir returns the number of cells not holding an air variant.
func (r *Region) CountNonAir() int {
	air := make([]bool, len(r.Palette))
	for i, state := range r.Palette {
		air[i] = state.IsAir()
	}
	n := 0
	for _, idx := range r.Blocks {
		if !air[idx] {
			n++
		}
	}
	return n
}

// CountBlockTypes returns cell counts keyed by canonical block-state key.
func (r *Region) CountBlockTypes() map[string]int {
	perIndex := make([]int, len(r.Palette))
	for _, idx := range r.Blocks {
		perIndex[idx]++
	}
	out := make(map[string]int)
	for i, n := range perIndex {
		if n > 0 {
			out[r.Palette[i].Key()] += n
		}
	}
	return out
}

// TightBounds returns the world-space bounding box of all non-empty
// cells. ok is false when the region holds nothing but the empty block.
func (r *Region) TightBounds() (min, max cube.Pos, ok bool) {
	w, h, l := r.Dimensions()
	mn := r.Min()
	min = cube.Pos{math.MaxInt32, math.MaxInt32, math.MaxInt32}
	max = cube.Pos{math.MinInt32, math.MinInt32, math.MinInt32}
	i := 0
	for y := 0; y < h; y++ {
		for z := 0; z < l; z++ {
			for x := 0; x < w; x++ {
				if r.Blocks[i] != 0 {
					p := cube.Pos{mn[0] + x, mn[1] + y, mn[2] + z}
					for a := range p {
						if p[a] < min[a] {
							min[a] = p[a]
						}
						if p[a] > max[a] {
							max[a] = p[a]
						}
					}
					ok = true
				}
				i++
			}
		}
	}
	return min, max, ok
}

// SetBlockEntity attaches a block entity at its region-local position,
// replacing any existing one. It returns false when the position lies
// outside the grid.
func (r *Region) SetBlockEntity(be BlockEntity) bool {
	w, h, l := r.Dimensions()
	p := be.Position
	if p[0] < 0 || p[0] >= w || p[1] < 0 || p[1] >= h || p[2] < 0 || p[2] >= l {
		return false
	}
	if r.BlockEntities == nil {
		r.BlockEntities = make(map[cube.Pos]BlockEntity)
	}
	r.BlockEntities[p] = be
	return true
}

// BlockEntityAt returns the block entity at a region-local position.
func (r *Region) BlockEntityAt(pos cube.Pos) (BlockEntity, bool) {
	be, ok := r.BlockEntities[pos]
	return be, ok
}

// RemoveBlockEntity deletes and returns the block entity at a
// region-local position.
func (r *Region) RemoveBlockEntity(pos cube.Pos) (BlockEntity, bool) {
	be, ok := r.BlockEntities[pos]
	if ok {
		delete(r.BlockEntities, pos)
	}
	return be, ok
}

// DropOrphanBlockEntities removes block entities whose cell holds the
// empty block. Codecs call this on emit so stale attachments never hit
// the wire.
func (r *Region) DropOrphanBlockEntities() {
	for pos := range r.BlockEntities {
		if r.Blocks[r.indexOf(pos[0], pos[1], pos[2])] == 0 {
			delete(r.BlockEntities, pos)
		}
	}
}

// AddEntity appends a mobile entity.
func (r *Region) AddEntity(e Entity) {
	r.Entities = append(r.Entities, e)
}

// RemoveEntity removes and returns the entity at the given slice index.
func (r *Region) RemoveEntity(i int) (Entity, bool) {
	if i < 0 || i >= len(r.Entities) {
		return Entity{}, false
	}
	e := r.Entities[i]
	r.Entities = append(r.Entities[:i], r.Entities[i+1:]...)
	return e, true
}

// ExpandToFit grows the region so that the world position lies inside
// it, keeping existing content in place.
func (r *Region) ExpandToFit(pos cube.Pos) {
	mn, mx := r.Min(), r.Max()
	grow := false
	for i := range pos {
		if pos[i] < mn[i] {
			mn[i] = pos[i]
			grow = true
		}
		if pos[i] > mx[i] {
			mx[i] = pos[i]
			grow = true
		}
	}
	if grow {
		r.EnsureBounds(mn, mx)
	}
}

// EnsureBounds grows the region so its bounding box covers at least
// [min, max]. Shrinking never happens; content and block entities are
// shifted to the new layout.
func (r *Region) EnsureBounds(min, max cube.Pos) {
	mn, mx := r.Min(), r.Max()
	for i := range min {
		if mn[i] < min[i] {
			min[i] = mn[i]
		}
		if mx[i] > max[i] {
			max[i] = mx[i]
		}
	}
	if min == mn && max == mx {
		return
	}
	newSize := cube.Pos{max[0] - min[0] + 1, max[1] - min[1] + 1, max[2] - min[2] + 1}
	w, h, l := r.Dimensions()
	newBlocks := make([]uint32, newSize[0]*newSize[1]*newSize[2])
	shift := cube.Pos{mn[0] - min[0], mn[1] - min[1], mn[2] - min[2]}
	for y := 0; y < h; y++ {
		for z := 0; z < l; z++ {
			srcStart := r.indexOf(0, y, z)
			dstStart := ((y+shift[1])*newSize[2]+z+shift[2])*newSize[0] + shift[0]
			copy(newBlocks[dstStart:dstStart+w], r.Blocks[srcStart:srcStart+w])
		}
	}
	newBlockEntities := make(map[cube.Pos]BlockEntity, len(r.BlockEntities))
	for pos, be := range r.BlockEntities {
		np := cube.Pos{pos[0] + shift[0], pos[1] + shift[1], pos[2] + shift[2]}
		be.Position = np
		newBlockEntities[np] = be
	}
	for i := range r.Entities {
		r.Entities[i].Position = r.Entities[i].Position.Add(mglVec3(shift))
	}
	r.Position = min
	r.Size = newSize
	r.Blocks = newBlocks
	r.BlockEntities = newBlockEntities
}

// Merge copies every non-empty cell, block entity and entity of other
// into r, growing r as needed.
func (r *Region) Merge(other *Region) {
	omn, omx := other.Min(), other.Max()
	r.EnsureBounds(omn, omx)
	w, h, l := other.Dimensions()
	for y := 0; y < h; y++ {
		for z := 0; z < l; z++ {
			for x := 0; x < w; x++ {
				idx := other.Blocks[other.indexOf(x, y, z)]
				if idx == 0 {
					continue
				}
				r.SetBlock(cube.Pos{omn[0] + x, omn[1] + y, omn[2] + z}, other.Palette[idx])
			}
		}
	}
	rmn := r.Min()
	for pos, be := range other.BlockEntities {
		world := cube.Pos{omn[0] + pos[0], omn[1] + pos[1], omn[2] + pos[2]}
		be = be.Clone()
		be.Position = cube.Pos{world[0] - rmn[0], world[1] - rmn[1], world[2] - rmn[2]}
		r.SetBlockEntity(be)
	}
	for _, e := range other.Entities {
		e = e.Clone()
		e.Position = e.Position.Add(mglVec3(omn)).Sub(mglVec3(rmn))
		r.AddEntity(e)
	}
}

// Clone returns a deep copy of the region, safe for read-only fan-out.
func (r *Region) Clone() *Region {
	out := &Region{
		Name:     r.Name,
		Position: r.Position,
		Size:     r.Size,
		Palette:  make([]BlockState, len(r.Palette)),
		Blocks:   append([]uint32(nil), r.Blocks...),
	}
	for i, state := range r.Palette {
		out.Palette[i] = state.Clone()
	}
	out.BlockEntities = make(map[cube.Pos]BlockEntity, len(r.BlockEntities))
	for pos, be := range r.BlockEntities {
		out.BlockEntities[pos] = be.Clone()
	}
	out.Entities = make([]Entity, len(r.Entities))
	for i, e := range r.Entities {
		out.Entities[i] = e.Clone()
	}
	out.PendingBlockTicks = append([]any(nil), r.PendingBlockTicks...)
	out.PendingFluidTicks = append([]any(nil), r.PendingFluidTicks...)
	if r.SecondaryBlockLayer != nil {
		out.SecondaryBlockLayer = append([]int32(nil), r.SecondaryBlockLayer...)
	}
	out.ExtraNBT = deepCopyCompound(r.ExtraNBT)
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
