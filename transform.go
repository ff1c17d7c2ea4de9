package nucleation

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid transform of the octahedral group expressible on
// a block grid. The twelve values below cover every flip and quarter
// rotation; arbitrary compositions reduce to sequences of these.
type Transform int

const (
	FlipX Transform = iota
	FlipY
	FlipZ
	RotX90
	RotX180
	RotX270
	RotY90
	RotY180
	RotY270
	RotZ90
	RotZ180
	RotZ270
)

// primitives decomposes a transform into single flips and 90 degree
// steps. Grid and state rewrites are only implemented for primitives.
func (t Transform) primitives() []Transform {
	switch t {
	case RotX180:
		return []Transform{RotX90, RotX90}
	case RotX270:
		return []Transform{RotX90, RotX90, RotX90}
	case RotY180:
		return []Transform{RotY90, RotY90}
	case RotY270:
		return []Transform{RotY90, RotY90, RotY90}
	case RotZ180:
		return []Transform{RotZ90, RotZ90}
	case RotZ270:
		return []Transform{RotZ90, RotZ90, RotZ90}
	default:
		return []Transform{t}
	}
}

// rotationSteps converts a degree count into the number of 90 degree
// steps, or 0 for unsupported angles.
func rotationSteps(degrees int) int {
	if degrees%90 != 0 {
		return 0
	}
	return ((degrees % 360) + 360) % 360 / 90
}

// transformPalette rewrites every palette entry under a primitive.
func (r *Region) transformPalette(t Transform) {
	for i, state := range r.Palette {
		r.Palette[i] = TransformBlockState(state, t)
	}
	r.rebuildPaletteIndex()
}

// normalize rewrites Position and Size so that Position is the min
// corner and all size components are positive. Grid content is
// unaffected; rotations anchor on the normalized form.
func (r *Region) normalize() {
	r.Position = r.Min()
	w, h, l := r.Dimensions()
	r.Size = cube.Pos{w, h, l}
}

// FlipX mirrors the region across the YZ plane through its own box.
func (r *Region) FlipX() { r.flipAxis(0) }

// FlipY mirrors the region across the XZ plane through its own box.
func (r *Region) FlipY() { r.flipAxis(1) }

// FlipZ mirrors the region across the XY plane through its own box.
func (r *Region) FlipZ() { r.flipAxis(2) }

func (r *Region) flipAxis(axis int) {
	w, h, l := r.Dimensions()
	dims := [3]int{w, h, l}
	blocks := make([]uint32, len(r.Blocks))
	for y := 0; y < h; y++ {
		for z := 0; z < l; z++ {
			for x := 0; x < w; x++ {
				p := [3]int{x, y, z}
				p[axis] = dims[axis] - 1 - p[axis]
				blocks[r.indexOf(p[0], p[1], p[2])] = r.Blocks[r.indexOf(x, y, z)]
			}
		}
	}
	r.Blocks = blocks

	var t Transform
	switch axis {
	case 0:
		t = FlipX
	case 1:
		t = FlipY
	default:
		t = FlipZ
	}
	r.transformPalette(t)

	blockEntities := make(map[cube.Pos]BlockEntity, len(r.BlockEntities))
	for pos, be := range r.BlockEntities {
		np := pos
		np[axis] = dims[axis] - 1 - pos[axis]
		be.Position = np
		blockEntities[np] = be
	}
	r.BlockEntities = blockEntities

	for i := range r.Entities {
		p := r.Entities[i].Position
		p[axis] = float64(dims[axis]-1) - p[axis]
		r.Entities[i].Position = p
	}
}

// RotateY rotates the region clockwise (viewed from above) around the Y
// axis by 90, 180 or 270 degrees, anchored at its min corner.
func (r *Region) RotateY(degrees int) {
	for i := 0; i < rotationSteps(degrees); i++ {
		r.rotate90(RotY90)
	}
}

// RotateX rotates the region around the X axis by 90, 180 or 270 degrees.
func (r *Region) RotateX(degrees int) {
	for i := 0; i < rotationSteps(degrees); i++ {
		r.rotate90(RotX90)
	}
}

// RotateZ rotates the region around the Z axis by 90, 180 or 270 degrees.
func (r *Region) RotateZ(degrees int) {
	for i := 0; i < rotationSteps(degrees); i++ {
		r.rotate90(RotZ90)
	}
}

// rotate90 applies one quarter rotation. Local coordinate maps, with
// (W, H, L) the old dimensions:
//
//	RotY90: (x,y,z) -> (L-1-z, y, x), new dims (L, H, W)
//	RotX90: (x,y,z) -> (x, z, H-1-y), new dims (W, L, H)
//	RotZ90: (x,y,z) -> (y, W-1-x, z), new dims (H, W, L)
func (r *Region) rotate90(t Transform) {
	r.normalize()
	w, h, l := r.Dimensions()

	mapLocal := func(x, y, z int) (int, int, int) {
		switch t {
		case RotY90:
			return l - 1 - z, y, x
		case RotX90:
			return x, z, h - 1 - y
		default: // RotZ90
			return y, w - 1 - x, z
		}
	}
	var newSize cube.Pos
	switch t {
	case RotY90:
		newSize = cube.Pos{l, h, w}
	case RotX90:
		newSize = cube.Pos{w, l, h}
	default:
		newSize = cube.Pos{h, w, l}
	}

	old := r.Blocks
	r.Size = newSize
	r.Blocks = make([]uint32, len(old))
	i := 0
	for y := 0; y < h; y++ {
		for z := 0; z < l; z++ {
			for x := 0; x < w; x++ {
				nx, ny, nz := mapLocal(x, y, z)
				r.Blocks[r.indexOf(nx, ny, nz)] = old[i]
				i++
			}
		}
	}

	r.transformPalette(t)

	blockEntities := make(map[cube.Pos]BlockEntity, len(r.BlockEntities))
	for pos, be := range r.BlockEntities {
		nx, ny, nz := mapLocal(pos[0], pos[1], pos[2])
		np := cube.Pos{nx, ny, nz}
		be.Position = np
		blockEntities[np] = be
	}
	r.BlockEntities = blockEntities

	for i := range r.Entities {
		p := r.Entities[i].Position
		var np mgl64.Vec3
		switch t {
		case RotY90:
			np = mgl64.Vec3{float64(l-1) - p[2], p[1], p[0]}
		case RotX90:
			np = mgl64.Vec3{p[0], p[2], float64(h-1) - p[1]}
		default:
			np = mgl64.Vec3{p[1], float64(w-1) - p[0], p[2]}
		}
		r.Entities[i].Position = np
	}
}

// Apply runs a transform on the region. Transforms never fail; the
// result is always a valid region.
func (r *Region) Apply(t Transform) {
	for _, prim := range t.primitives() {
		switch prim {
		case FlipX:
			r.FlipX()
		case FlipY:
			r.FlipY()
		case FlipZ:
			r.FlipZ()
		default:
			r.rotate90(prim)
		}
	}
}

// Apply runs a transform on the whole schematic: every region is
// transformed and repositioned within the schematic bounding box, and
// world-space entities follow.
func (s *Schematic) Apply(t Transform) {
	for _, prim := range t.primitives() {
		s.applyPrimitive(prim)
	}
}

// FlipX mirrors the whole schematic across the YZ plane.
func (s *Schematic) FlipX() { s.applyPrimitive(FlipX) }

// FlipY mirrors the whole schematic across the XZ plane.
func (s *Schematic) FlipY() { s.applyPrimitive(FlipY) }

// FlipZ mirrors the whole schematic across the XY plane.
func (s *Schematic) FlipZ() { s.applyPrimitive(FlipZ) }

// RotateY rotates the whole schematic clockwise around the Y axis.
func (s *Schematic) RotateY(degrees int) {
	for i := 0; i < rotationSteps(degrees); i++ {
		s.applyPrimitive(RotY90)
	}
}

func (s *Schematic) applyPrimitive(t Transform) {
	bmin, bmax, ok := s.BoundingBox()
	if !ok {
		return
	}
	for _, r := range s.Regions {
		rmin, rmax := r.Min(), r.Max()
		r.normalize()
		r.Apply(t)
		r.Position = regionAnchor(t, bmin, bmax, rmin, rmax)
	}
	for i := range s.Entities {
		s.Entities[i].Position = transformPoint(t, bmin, bmax, s.Entities[i].Position)
	}
}

// regionAnchor computes the new min corner of a region box under a
// primitive applied about the schematic bounding box [bmin, bmax].
func regionAnchor(t Transform, bmin, bmax, rmin, rmax cube.Pos) cube.Pos {
	switch t {
	case FlipX:
		return cube.Pos{bmin[0] + bmax[0] - rmax[0], rmin[1], rmin[2]}
	case FlipY:
		return cube.Pos{rmin[0], bmin[1] + bmax[1] - rmax[1], rmin[2]}
	case FlipZ:
		return cube.Pos{rmin[0], rmin[1], bmin[2] + bmax[2] - rmax[2]}
	case RotY90:
		depth := bmax[2] - bmin[2] + 1
		return cube.Pos{bmin[0] + depth - 1 - (rmax[2] - bmin[2]), rmin[1], bmin[2] + rmin[0] - bmin[0]}
	case RotX90:
		height := bmax[1] - bmin[1] + 1
		return cube.Pos{rmin[0], bmin[1] + rmin[2] - bmin[2], bmin[2] + height - 1 - (rmax[1] - bmin[1])}
	case RotZ90:
		width := bmax[0] - bmin[0] + 1
		return cube.Pos{bmin[0] + rmin[1] - bmin[1], bmin[1] + width - 1 - (rmax[0] - bmin[0]), rmin[2]}
	}
	return rmin
}

// transformPoint maps a world-space floating point position under a
// primitive applied about the schematic bounding box.
func transformPoint(t Transform, bmin, bmax cube.Pos, p mgl64.Vec3) mgl64.Vec3 {
	switch t {
	case FlipX:
		return mgl64.Vec3{float64(bmin[0]+bmax[0]) - p[0], p[1], p[2]}
	case FlipY:
		return mgl64.Vec3{p[0], float64(bmin[1]+bmax[1]) - p[1], p[2]}
	case FlipZ:
		return mgl64.Vec3{p[0], p[1], float64(bmin[2]+bmax[2]) - p[2]}
	case RotY90:
		depth := float64(bmax[2] - bmin[2])
		return mgl64.Vec3{float64(bmin[0]) + depth - (p[2] - float64(bmin[2])), p[1], float64(bmin[2]) + p[0] - float64(bmin[0])}
	case RotX90:
		height := float64(bmax[1] - bmin[1])
		return mgl64.Vec3{p[0], float64(bmin[1]) + p[2] - float64(bmin[2]), float64(bmin[2]) + height - (p[1] - float64(bmin[1]))}
	case RotZ90:
		width := float64(bmax[0] - bmin[0])
		return mgl64.Vec3{float64(bmin[0]) + p[1] - float64(bmin[1]), float64(bmin[1]) + width - (p[0] - float64(bmin[0])), p[2]}
	}
	return p
}
