package nucleation

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
)

func TestDefinitionRegionVolume(t *testing.T) {
	d := NewDefinitionRegion("io")
	d.AddBounds(cube.Pos{0, 0, 0}, cube.Pos{1, 1, 1})
	if v := d.Volume(); v != 8 {
		t.Fatalf("Volume = %d, want 8", v)
	}
	// Overlapping boxes count distinct positions only.
	d.AddBounds(cube.Pos{1, 1, 1}, cube.Pos{2, 2, 2})
	if v := d.Volume(); v != 15 {
		t.Fatalf("Volume with overlap = %d, want 15", v)
	}
}

func TestDefinitionRegionContains(t *testing.T) {
	d := DefinitionRegionFromBounds("sel", cube.Pos{0, 0, 0}, cube.Pos{2, 0, 2})
	if !d.Contains(cube.Pos{1, 0, 1}) {
		t.Fatal("inside point reported absent")
	}
	if d.Contains(cube.Pos{1, 1, 1}) {
		t.Fatal("outside point reported present")
	}
	d.AddPoint(cube.Pos{1, 1, 1})
	if !d.Contains(cube.Pos{1, 1, 1}) {
		t.Fatal("cache not invalidated after AddPoint")
	}
}

func TestSimplifyMergesFaces(t *testing.T) {
	d := NewDefinitionRegion("merge")
	d.AddBounds(cube.Pos{0, 0, 0}, cube.Pos{1, 1, 1})
	d.AddBounds(cube.Pos{2, 0, 0}, cube.Pos{3, 1, 1})
	d.Simplify()
	if len(d.Boxes) != 1 {
		t.Fatalf("boxes after simplify = %d, want 1", len(d.Boxes))
	}
	if d.Volume() != 16 {
		t.Fatalf("volume after simplify = %d, want 16", d.Volume())
	}
}

func TestSimplifyIdempotent(t *testing.T) {
	d := NewDefinitionRegion("idem")
	d.AddBounds(cube.Pos{0, 0, 0}, cube.Pos{3, 0, 3})
	d.AddBounds(cube.Pos{2, 0, 2}, cube.Pos{5, 0, 5})
	d.AddPoint(cube.Pos{9, 9, 9})

	d.Simplify()
	volume := d.Volume()
	boxes := len(d.Boxes)
	d.Simplify()
	if d.Volume() != volume || len(d.Boxes) != boxes {
		t.Fatalf("simplify not idempotent: %d/%d vs %d/%d", volume, boxes, d.Volume(), len(d.Boxes))
	}

	// After simplify, boxes are pairwise non-overlapping.
	for i := 0; i < len(d.Boxes); i++ {
		for j := i + 1; j < len(d.Boxes); j++ {
			if _, ok := d.Boxes[i].Intersect(d.Boxes[j]); ok {
				t.Fatalf("boxes %d and %d overlap after simplify", i, j)
			}
		}
	}
}

func TestSetAlgebraVolumes(t *testing.T) {
	a := DefinitionRegionFromBounds("a", cube.Pos{0, 0, 0}, cube.Pos{3, 3, 3})
	b := DefinitionRegionFromBounds("b", cube.Pos{2, 2, 2}, cube.Pos{5, 5, 5})

	union := a.Union(b)
	inter := a.Intersect(b)
	if union.Volume() != a.Volume()+b.Volume()-inter.Volume() {
		t.Fatalf("inclusion-exclusion violated: %d != %d + %d - %d",
			union.Volume(), a.Volume(), b.Volume(), inter.Volume())
	}
	if inter.Volume() != 8 {
		t.Fatalf("intersection volume = %d, want 8", inter.Volume())
	}

	diff := a.Subtract(b)
	if diff.Volume() != a.Volume()-inter.Volume() {
		t.Fatalf("subtract volume = %d, want %d", diff.Volume(), a.Volume()-inter.Volume())
	}
	for _, p := range diff.Positions() {
		if b.Contains(p) {
			t.Fatalf("subtract left point %v inside b", p)
		}
	}
}

func TestConnectedComponents(t *testing.T) {
	d := NewDefinitionRegion("cc")
	d.AddBounds(cube.Pos{0, 0, 0}, cube.Pos{1, 1, 1})
	d.AddBounds(cube.Pos{2, 0, 0}, cube.Pos{3, 1, 1}) // shares the x=1|2 face
	if !d.IsContiguous() {
		t.Fatal("face-adjacent boxes reported disconnected")
	}
	d.AddBounds(cube.Pos{10, 0, 0}, cube.Pos{11, 1, 1})
	if d.ConnectedComponents() != 2 {
		t.Fatalf("components = %d, want 2", d.ConnectedComponents())
	}
	if d.IsContiguous() {
		t.Fatal("disconnected region reported contiguous")
	}
}

func TestDiagonalBoxesNotConnected(t *testing.T) {
	d := NewDefinitionRegion("diag")
	d.AddBounds(cube.Pos{0, 0, 0}, cube.Pos{0, 0, 0})
	d.AddBounds(cube.Pos{1, 1, 0}, cube.Pos{1, 1, 0}) // edge contact only
	if d.ConnectedComponents() != 2 {
		t.Fatalf("edge-touching boxes counted as connected: %d", d.ConnectedComponents())
	}
}

func TestFilterByBlock(t *testing.T) {
	s := NewSchematic("filter")
	s.CreateRegion(MainRegion, cube.Pos{}, cube.Pos{4, 1, 1})
	s.SetBlock(cube.Pos{0, 0, 0}, NewBlockState("minecraft:stone"))
	s.SetBlock(cube.Pos{1, 0, 0}, NewBlockState("minecraft:dirt"))
	s.SetBlock(cube.Pos{2, 0, 0}, NewBlockState("minecraft:stone"))

	d := DefinitionRegionFromBounds("all", cube.Pos{0, 0, 0}, cube.Pos{3, 0, 0})
	stones := d.FilterByBlock(s, "minecraft:stone")
	if stones.Volume() != 2 {
		t.Fatalf("filtered volume = %d, want 2", stones.Volume())
	}
	if !stones.Contains(cube.Pos{0, 0, 0}) || !stones.Contains(cube.Pos{2, 0, 0}) {
		t.Fatal("filtered region misses stone positions")
	}
}

func TestFilterByProperties(t *testing.T) {
	s := NewSchematic("props")
	s.CreateRegion(MainRegion, cube.Pos{}, cube.Pos{2, 1, 1})
	s.SetBlock(cube.Pos{0, 0, 0}, NewBlockState("minecraft:oak_stairs").WithProperty("facing", "north"))
	s.SetBlock(cube.Pos{1, 0, 0}, NewBlockState("minecraft:oak_stairs").WithProperty("facing", "east"))

	d := DefinitionRegionFromBounds("all", cube.Pos{0, 0, 0}, cube.Pos{1, 0, 0})
	north := d.FilterByProperties(s, map[string]string{"facing": "north"})
	if north.Volume() != 1 || !north.Contains(cube.Pos{0, 0, 0}) {
		t.Fatalf("property filter wrong: volume %d", north.Volume())
	}
}
