package nucleation

import (
	"sort"

	"github.com/df-mc/dragonfly/server/block/cube"
)

// Box is an axis-aligned box of block positions, both corners inclusive.
type Box struct {
	Min cube.Pos `json:"min"`
	Max cube.Pos `json:"max"`
}

// NewBox returns the box spanning the two corners in any order.
func NewBox(a, b cube.Pos) Box {
	var box Box
	for i := range a {
		if a[i] <= b[i] {
			box.Min[i], box.Max[i] = a[i], b[i]
		} else {
			box.Min[i], box.Max[i] = b[i], a[i]
		}
	}
	return box
}

// Volume returns the number of positions inside the box.
func (b Box) Volume() int {
	v := 1
	for i := range b.Min {
		v *= b.Max[i] - b.Min[i] + 1
	}
	return v
}

// Contains reports whether the position lies inside the box.
func (b Box) Contains(p cube.Pos) bool {
	for i := range p {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Intersect returns the overlap of two boxes.
func (b Box) Intersect(o Box) (Box, bool) {
	var out Box
	for i := range b.Min {
		out.Min[i] = max(b.Min[i], o.Min[i])
		out.Max[i] = min(b.Max[i], o.Max[i])
		if out.Min[i] > out.Max[i] {
			return Box{}, false
		}
	}
	return out, true
}

// touches reports whether two boxes overlap or share at least one full
// cell face.
func (b Box) touches(o Box) bool {
	adjacentAxes := 0
	for i := range b.Min {
		if b.Min[i] > o.Max[i]+1 || o.Min[i] > b.Max[i]+1 {
			return false
		}
		if b.Min[i] == o.Max[i]+1 || o.Min[i] == b.Max[i]+1 {
			adjacentAxes++
		}
	}
	return adjacentAxes <= 1
}

// mergeWith returns the exact union when the two boxes share a full face
// (or overlap while agreeing on two axes), making their union a box.
func (b Box) mergeWith(o Box) (Box, bool) {
	sameAxes := 0
	joinAxis := -1
	for i := range b.Min {
		if b.Min[i] == o.Min[i] && b.Max[i] == o.Max[i] {
			sameAxes++
		} else {
			joinAxis = i
		}
	}
	if sameAxes == 3 {
		return b, true
	}
	if sameAxes != 2 {
		return Box{}, false
	}
	if b.Min[joinAxis] > o.Max[joinAxis]+1 || o.Min[joinAxis] > b.Max[joinAxis]+1 {
		return Box{}, false
	}
	out := b
	out.Min[joinAxis] = min(b.Min[joinAxis], o.Min[joinAxis])
	out.Max[joinAxis] = max(b.Max[joinAxis], o.Max[joinAxis])
	return out, true
}

// subtract returns the parts of b not covered by o, as up to six
// residual boxes produced by slab slicing along y, then z, then x.
func (b Box) subtract(o Box) []Box {
	overlap, ok := b.Intersect(o)
	if !ok {
		return []Box{b}
	}
	var out []Box
	rest := b
	// Bottom and top slabs.
	if rest.Min[1] < overlap.Min[1] {
		out = append(out, Box{rest.Min, cube.Pos{rest.Max[0], overlap.Min[1] - 1, rest.Max[2]}})
	}
	if rest.Max[1] > overlap.Max[1] {
		out = append(out, Box{cube.Pos{rest.Min[0], overlap.Max[1] + 1, rest.Min[2]}, rest.Max})
	}
	rest.Min[1], rest.Max[1] = overlap.Min[1], overlap.Max[1]
	// North and south slabs of the remaining middle band.
	if rest.Min[2] < overlap.Min[2] {
		out = append(out, Box{rest.Min, cube.Pos{rest.Max[0], rest.Max[1], overlap.Min[2] - 1}})
	}
	if rest.Max[2] > overlap.Max[2] {
		out = append(out, Box{cube.Pos{rest.Min[0], rest.Min[1], overlap.Max[2] + 1}, rest.Max})
	}
	rest.Min[2], rest.Max[2] = overlap.Min[2], overlap.Max[2]
	// West and east remnants.
	if rest.Min[0] < overlap.Min[0] {
		out = append(out, Box{rest.Min, cube.Pos{overlap.Min[0] - 1, rest.Max[1], rest.Max[2]}})
	}
	if rest.Max[0] > overlap.Max[0] {
		out = append(out, Box{cube.Pos{overlap.Max[0] + 1, rest.Min[1], rest.Min[2]}, rest.Max})
	}
	return out
}

// DefinitionRegion is a named logical volume built from a union of
// boxes, used for selections and circuit I/O. Boxes may overlap until
// Simplify runs; membership and volume are always computed over
// distinct positions.
type DefinitionRegion struct {
	Name     string            `json:"name"`
	Boxes    []Box             `json:"boxes"`
	Metadata map[string]string `json:"metadata,omitempty"`
	// Color is a 0xRRGGBBAA display color.
	Color uint32 `json:"color,omitempty"`
	// BlockFilters optionally restricts the region to the named blocks.
	BlockFilters []string `json:"block_filters,omitempty"`

	points map[cube.Pos]struct{}
}

// NewDefinitionRegion creates an empty definition region.
func NewDefinitionRegion(name string) *DefinitionRegion {
	return &DefinitionRegion{Name: name, Metadata: make(map[string]string)}
}

// DefinitionRegionFromBounds creates a region holding a single box.
func DefinitionRegionFromBounds(name string, a, b cube.Pos) *DefinitionRegion {
	d := NewDefinitionRegion(name)
	d.AddBounds(a, b)
	return d
}

// DefinitionRegionFromPoints creates a region holding the given points.
func DefinitionRegionFromPoints(name string, points []cube.Pos) *DefinitionRegion {
	d := NewDefinitionRegion(name)
	for _, p := range points {
		d.AddPoint(p)
	}
	return d
}

// invalidate drops the lazily-built point cache after a mutation.
func (d *DefinitionRegion) invalidate() {
	d.points = nil
}

// pointSet returns the cached set of distinct positions, rebuilding it
// when stale.
func (d *DefinitionRegion) pointSet() map[cube.Pos]struct{} {
	if d.points != nil {
		return d.points
	}
	pts := make(map[cube.Pos]struct{})
	for _, box := range d.Boxes {
		for y := box.Min[1]; y <= box.Max[1]; y++ {
			for z := box.Min[2]; z <= box.Max[2]; z++ {
				for x := box.Min[0]; x <= box.Max[0]; x++ {
					pts[cube.Pos{x, y, z}] = struct{}{}
				}
			}
		}
	}
	d.points = pts
	return pts
}

// AddBounds adds the box spanning the two corners.
func (d *DefinitionRegion) AddBounds(a, b cube.Pos) {
	d.Boxes = append(d.Boxes, NewBox(a, b))
	d.invalidate()
}

// AddPoint adds a single position.
func (d *DefinitionRegion) AddPoint(p cube.Pos) {
	d.Boxes = append(d.Boxes, Box{p, p})
	d.invalidate()
}

// Merge adds every box of other into d.
func (d *DefinitionRegion) Merge(other *DefinitionRegion) {
	d.Boxes = append(d.Boxes, other.Boxes...)
	d.invalidate()
}

// Contains reports membership of a position.
func (d *DefinitionRegion) Contains(p cube.Pos) bool {
	_, ok := d.pointSet()[p]
	return ok
}

// Volume returns the number of distinct positions in the region.
func (d *DefinitionRegion) Volume() int {
	return len(d.pointSet())
}

// Positions returns all distinct positions in deterministic order.
func (d *DefinitionRegion) Positions() []cube.Pos {
	pts := d.pointSet()
	out := make([]cube.Pos, 0, len(pts))
	for p := range pts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
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

// Simplify rewrites the box list so boxes are pairwise non-overlapping,
// then greedily merges boxes sharing a full face. The covered position
// set is unchanged; Simplify is idempotent.
func (d *DefinitionRegion) Simplify() {
	// Overlap elimination: each box keeps only the parts not covered by
	// boxes accepted before it.
	var disjoint []Box
	for _, box := range d.Boxes {
		pending := []Box{box}
		for _, accepted := range disjoint {
			var next []Box
			for _, p := range pending {
				next = append(next, p.subtract(accepted)...)
			}
			pending = next
			if len(pending) == 0 {
				break
			}
		}
		disjoint = append(disjoint, pending...)
	}

	// Greedy pairwise face merge to fixpoint.
	merged := true
	for merged {
		merged = false
		for i := 0; i < len(disjoint) && !merged; i++ {
			for j := i + 1; j < len(disjoint); j++ {
				if union, ok := disjoint[i].mergeWith(disjoint[j]); ok {
					disjoint[i] = union
					disjoint = append(disjoint[:j], disjoint[j+1:]...)
					merged = true
					break
				}
			}
		}
	}
	d.Boxes = disjoint
	d.invalidate()
}

// Union returns a new region covering every position of d or other.
func (d *DefinitionRegion) Union(other *DefinitionRegion) *DefinitionRegion {
	out := NewDefinitionRegion(d.Name)
	out.Boxes = append(append([]Box(nil), d.Boxes...), other.Boxes...)
	out.Simplify()
	return out
}

// Intersect returns a new region covering positions in both d and other.
func (d *DefinitionRegion) Intersect(other *DefinitionRegion) *DefinitionRegion {
	out := NewDefinitionRegion(d.Name)
	for _, a := range d.Boxes {
		for _, b := range other.Boxes {
			if overlap, ok := a.Intersect(b); ok {
				out.Boxes = append(out.Boxes, overlap)
			}
		}
	}
	out.Simplify()
	return out
}

// Subtract returns a new region covering positions in d but not other.
func (d *DefinitionRegion) Subtract(other *DefinitionRegion) *DefinitionRegion {
	out := NewDefinitionRegion(d.Name)
	for _, a := range d.Boxes {
		pending := []Box{a}
		for _, b := range other.Boxes {
			var next []Box
			for _, p := range pending {
				next = append(next, p.subtract(b)...)
			}
			pending = next
			if len(pending) == 0 {
				break
			}
		}
		out.Boxes = append(out.Boxes, pending...)
	}
	out.Simplify()
	return out
}

// ConnectedComponents returns the number of face-connected components of
// the box union, using union-find over boxes that overlap or share a
// face.
func (d *DefinitionRegion) ConnectedComponents() int {
	n := len(d.Boxes)
	if n == 0 {
		return 0
	}
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d.Boxes[i].touches(d.Boxes[j]) {
				parent[find(i)] = find(j)
			}
		}
	}
	roots := make(map[int]struct{})
	for i := 0; i < n; i++ {
		roots[find(i)] = struct{}{}
	}
	return len(roots)
}

// IsContiguous reports whether the union forms a single face-connected
// component.
func (d *DefinitionRegion) IsContiguous() bool {
	return d.ConnectedComponents() == 1
}

// FilterByBlock returns a new region keeping only positions whose block
// in the schematic matches one of the given names.
func (d *DefinitionRegion) FilterByBlock(s *Schematic, names ...string) *DefinitionRegion {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	out := NewDefinitionRegion(d.Name)
	out.Metadata = copyStringMap(d.Metadata)
	out.Color = d.Color
	for _, p := range d.Positions() {
		if state, ok := s.Block(p); ok && wanted[state.Name] {
			out.AddPoint(p)
		}
	}
	out.Simplify()
	return out
}

// FilterByProperties returns a new region keeping only positions whose
// block carries all the given property values.
func (d *DefinitionRegion) FilterByProperties(s *Schematic, props map[string]string) *DefinitionRegion {
	out := NewDefinitionRegion(d.Name)
	out.Metadata = copyStringMap(d.Metadata)
	out.Color = d.Color
	for _, p := range d.Positions() {
		state, ok := s.Block(p)
		if !ok {
			continue
		}
		matches := true
		for k, v := range props {
			if pv, present := state.Properties[k]; !present || pv != v {
				matches = false
				break
			}
		}
		if matches {
			out.AddPoint(p)
		}
	}
	out.Simplify()
	return out
}

// Clone returns a deep copy of the definition region.
func (d *DefinitionRegion) Clone() *DefinitionRegion {
	out := &DefinitionRegion{
		Name:         d.Name,
		Boxes:        append([]Box(nil), d.Boxes...),
		Metadata:     copyStringMap(d.Metadata),
		Color:        d.Color,
		BlockFilters: append([]string(nil), d.BlockFilters...),
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
