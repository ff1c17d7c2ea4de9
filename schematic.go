package nucleation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

// MainRegion is the name of the distinguished region used when a
// schematic holds only one.
const MainRegion = "Main"

// Metadata holds schematic-level descriptive fields. Timestamps are
// milliseconds since the Unix epoch.
type Metadata struct {
	Name        string
	Author      string
	Description string
	Created     int64
	Modified    int64
	// MCVersion is the Minecraft data version; LMVersion and WEVersion
	// the Litematica and WorldEdit format versions the schematic was
	// loaded from, when known.
	MCVersion int32
	LMVersion int32
	WEVersion int32
}

// Schematic is the universal in-memory model: named palette-compressed
// regions plus global metadata, definition regions and world-space
// entities. It is not safe for concurrent mutation; clone a snapshot
// for read-only fan-out.
type Schematic struct {
	Metadata          Metadata
	Regions           map[string]*Region
	DefinitionRegions map[string]*DefinitionRegion
	// Entities holds mobile entities stored outside any region, at
	// world-space positions.
	Entities []Entity
}

// NewSchematic creates an empty schematic with the given name.
func NewSchematic(name string) *Schematic {
	return &Schematic{
		Metadata:          Metadata{Name: name},
		Regions:           make(map[string]*Region),
		DefinitionRegions: make(map[string]*DefinitionRegion),
	}
}

// CreateRegion creates and registers a region. An existing region of the
// same name is replaced.
func (s *Schematic) CreateRegion(name string, position, size cube.Pos) *Region {
	r := NewRegion(name, position, size)
	s.Regions[name] = r
	return r
}

// Region returns the named region, or nil.
func (s *Schematic) Region(name string) *Region {
	return s.Regions[name]
}

// RemoveRegion deletes the named region and reports whether it existed.
func (s *Schematic) RemoveRegion(name string) bool {
	if _, ok := s.Regions[name]; !ok {
		return false
	}
	delete(s.Regions, name)
	return true
}

// RegionNames returns the region names in sorted order.
func (s *Schematic) RegionNames() []string {
	names := make([]string, 0, len(s.Regions))
	for name := range s.Regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// mainRegion returns the distinguished region for whole-schematic block
// edits, creating a 1x1x1 Main region at the origin when none exists.
func (s *Schematic) mainRegion() *Region {
	if r, ok := s.Regions[MainRegion]; ok {
		return r
	}
	if len(s.Regions) == 1 {
		for _, r := range s.Regions {
			return r
		}
	}
	return s.CreateRegion(MainRegion, cube.Pos{}, cube.Pos{1, 1, 1})
}

// SetBlock writes a block at a world position, growing the main region
// to fit. Regions other than the target are left untouched.
func (s *Schematic) SetBlock(pos cube.Pos, state BlockState) {
	for _, r := range s.Regions {
		if r.Contains(pos) {
			r.SetBlock(pos, state)
			return
		}
	}
	r := s.mainRegion()
	r.ExpandToFit(pos)
	r.SetBlock(pos, state)
}

// Block returns the block at a world position, scanning all regions.
func (s *Schematic) Block(pos cube.Pos) (BlockState, bool) {
	for _, r := range s.Regions {
		if state, ok := r.Block(pos); ok {
			return state, ok
		}
	}
	return BlockState{}, false
}

// FillCuboid fills [min, max] with the state, growing the main region to
// cover the whole box.
func (s *Schematic) FillCuboid(min, max cube.Pos, state BlockState) {
	r := s.mainRegion()
	r.EnsureBounds(min, max)
	r.FillCuboid(min, max, state)
}

// FillSphere fills all cells within radius of center with the state.
func (s *Schematic) FillSphere(center cube.Pos, radius float64, state BlockState) {
	rad := int(radius)
	min := cube.Pos{center[0] - rad, center[1] - rad, center[2] - rad}
	max := cube.Pos{center[0] + rad, center[1] + rad, center[2] + rad}
	r := s.mainRegion()
	r.EnsureBounds(min, max)
	r.FillSphere(center, radius, state)
}

// CopyRegion deep-copies the named region under a new name and
// registers the copy.
func (s *Schematic) CopyRegion(from, to string) (*Region, bool) {
	src, ok := s.Regions[from]
	if !ok {
		return nil, false
	}
	dst := src.Clone()
	dst.Name = to
	s.Regions[to] = dst
	return dst, true
}

// BoundingBox returns the tight union of all region bounding boxes. ok
// is false for a schematic without regions.
func (s *Schematic) BoundingBox() (min, max cube.Pos, ok bool) {
	for _, r := range s.Regions {
		rmn, rmx := r.Min(), r.Max()
		if !ok {
			min, max, ok = rmn, rmx, true
			continue
		}
		for i := range min {
			if rmn[i] < min[i] {
				min[i] = rmn[i]
			}
			if rmx[i] > max[i] {
				max[i] = rmx[i]
			}
		}
	}
	return min, max, ok
}

// TotalVolume returns the cell count across all regions.
func (s *Schematic) TotalVolume() int {
	total := 0
	for _, r := range s.Regions {
		total += r.Volume()
	}
	return total
}

// TotalBlocks returns the non-air cell count across all regions.
func (s *Schematic) TotalBlocks() int {
	total := 0
	for _, r := range s.Regions {
		total += r.CountNonAir()
	}
	return total
}

// AddEntity appends a world-space entity.
func (s *Schematic) AddEntity(e Entity) {
	s.Entities = append(s.Entities, e)
}

// Clone returns a deep copy of the schematic, safe to read from other
// goroutines while the original keeps being mutated.
func (s *Schematic) Clone() *Schematic {
	out := NewSchematic(s.Metadata.Name)
	out.Metadata = s.Metadata
	for name, r := range s.Regions {
		out.Regions[name] = r.Clone()
	}
	for name, d := range s.DefinitionRegions {
		out.DefinitionRegions[name] = d.Clone()
	}
	out.Entities = make([]Entity, len(s.Entities))
	for i, e := range s.Entities {
		out.Entities[i] = e.Clone()
	}
	return out
}

// DebugInfo returns a one-region-per-line summary of the schematic.
func (s *Schematic) DebugInfo() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Schematic %q: %d region(s), %d block(s), %d entit(ies), %d definition region(s)\n",
		s.Metadata.Name, len(s.Regions), s.TotalBlocks(), len(s.Entities), len(s.DefinitionRegions))
	for _, name := range s.RegionNames() {
		r := s.Regions[name]
		w, h, l := r.Dimensions()
		fmt.Fprintf(&sb, "  region %q: origin %v size %dx%dx%d, palette %d, block entities %d, entities %d\n",
			name, r.Position, w, h, l, len(r.Palette), len(r.BlockEntities), len(r.Entities))
	}
	return sb.String()
}

// Print renders an ASCII layout of the schematic, one y-layer at a time,
// using the first letter of each block name and '.' for empty cells.
func (s *Schematic) Print() string {
	min, max, ok := s.BoundingBox()
	if !ok {
		return "(empty schematic)\n"
	}
	var sb strings.Builder
	for y := min[1]; y <= max[1]; y++ {
		fmt.Fprintf(&sb, "y=%d\n", y)
		for z := min[2]; z <= max[2]; z++ {
			for x := min[0]; x <= max[0]; x++ {
				state, found := s.Block(cube.Pos{x, y, z})
				if !found {
					sb.WriteByte('.')
					continue
				}
				name := state.Name
				if i := strings.IndexByte(name, ':'); i >= 0 {
					name = name[i+1:]
				}
				if name == "" {
					sb.WriteByte('?')
				} else {
					sb.WriteByte(name[0])
				}
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// schematicJSON is the shape of the JSON dump.
type schematicJSON struct {
	Name        string                       `json:"name"`
	Author      string                       `json:"author,omitempty"`
	Description string                       `json:"description,omitempty"`
	Regions     map[string]regionJSON        `json:"regions"`
	Definitions map[string]*DefinitionRegion `json:"definition_regions,omitempty"`
	Entities    int                          `json:"entity_count"`
}

type regionJSON struct {
	Position [3]int         `json:"position"`
	Size     [3]int         `json:"size"`
	Palette  []string       `json:"palette"`
	Blocks   map[string]int `json:"block_counts"`
}

// JSON dumps a structural summary of the schematic as JSON.
func (s *Schematic) JSON() ([]byte, error) {
	dump := schematicJSON{
		Name:        s.Metadata.Name,
		Author:      s.Metadata.Author,
		Description: s.Metadata.Description,
		Regions:     make(map[string]regionJSON, len(s.Regions)),
		Definitions: s.DefinitionRegions,
		Entities:    len(s.Entities),
	}
	for name, r := range s.Regions {
		palette := make([]string, len(r.Palette))
		for i, state := range r.Palette {
			palette[i] = state.Key()
		}
		dump.Regions[name] = regionJSON{
			Position: [3]int{r.Position[0], r.Position[1], r.Position[2]},
			Size:     [3]int{r.Size[0], r.Size[1], r.Size[2]},
			Palette:  palette,
			Blocks:   r.CountBlockTypes(),
		}
	}
	return json.MarshalIndent(dump, "", "  ")
}

// mglVec3 widens an integer block position to a float vector.
func mglVec3(p cube.Pos) mgl64.Vec3 {
	return mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
}
