package nucleation

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
)

func stair(facing string) BlockState {
	return BlockState{Name: "minecraft:oak_stairs", Properties: map[string]string{
		"facing": facing, "half": "bottom", "shape": "straight",
	}}
}

func TestTransformStairRotateY(t *testing.T) {
	got := TransformBlockState(stair("north"), RotY90)
	if v, _ := got.Property("facing"); v != "east" {
		t.Fatalf("facing after RotY90 = %q, want east", v)
	}
	if v, _ := got.Property("half"); v != "bottom" {
		t.Fatalf("half changed: %q", v)
	}
	if v, _ := got.Property("shape"); v != "straight" {
		t.Fatalf("shape changed: %q", v)
	}

	full := stair("north")
	for i := 0; i < 4; i++ {
		full = TransformBlockState(full, RotY90)
	}
	if !full.Equal(stair("north")) {
		t.Fatalf("four quarter turns changed the state: %v", full)
	}
}

func TestTransformFacingCycle(t *testing.T) {
	cycle := map[string]string{"north": "east", "east": "south", "south": "west", "west": "north"}
	for from, want := range cycle {
		got := TransformBlockState(stair(from), RotY90)
		if v, _ := got.Property("facing"); v != want {
			t.Errorf("facing %s -> %s, want %s", from, v, want)
		}
	}
}

func TestTransformFlipXFacing(t *testing.T) {
	// X-flip swaps east and west and preserves north.
	got := TransformBlockState(stair("north"), FlipX)
	if v, _ := got.Property("facing"); v != "north" {
		t.Fatalf("north not preserved under FlipX: %q", v)
	}
	got = TransformBlockState(stair("east"), FlipX)
	if v, _ := got.Property("facing"); v != "west" {
		t.Fatalf("east under FlipX = %q, want west", v)
	}
	// Mirroring swaps stair handedness.
	inner := BlockState{Name: "minecraft:oak_stairs", Properties: map[string]string{
		"facing": "north", "half": "bottom", "shape": "inner_left",
	}}
	got = TransformBlockState(inner, FlipX)
	if v, _ := got.Property("shape"); v != "inner_right" {
		t.Fatalf("shape under FlipX = %q, want inner_right", v)
	}
}

func TestTransformSignRotation(t *testing.T) {
	sign := NewBlockState("minecraft:oak_sign").WithProperty("rotation", "4")
	got := TransformBlockState(sign, RotY90)
	if v, _ := got.Property("rotation"); v != "8" {
		t.Fatalf("rotation after RotY90 = %q, want 8", v)
	}
	got = TransformBlockState(NewBlockState("minecraft:oak_sign").WithProperty("rotation", "14"), RotY90)
	if v, _ := got.Property("rotation"); v != "2" {
		t.Fatalf("rotation wraps: got %q, want 2", v)
	}
}

func TestTransformAxis(t *testing.T) {
	logState := NewBlockState("minecraft:oak_log").WithProperty("axis", "x")
	if v, _ := TransformBlockState(logState, RotY90).Property("axis"); v != "z" {
		t.Fatalf("axis x under RotY90 = %q, want z", v)
	}
	if v, _ := TransformBlockState(logState, FlipX).Property("axis"); v != "x" {
		t.Fatalf("axis x under FlipX = %q, want x", v)
	}
	y := NewBlockState("minecraft:oak_log").WithProperty("axis", "y")
	if v, _ := TransformBlockState(y, RotX90).Property("axis"); v != "z" {
		t.Fatalf("axis y under RotX90 = %q, want z", v)
	}
}

func TestTransformConnectionKeys(t *testing.T) {
	fence := BlockState{Name: "minecraft:oak_fence", Properties: map[string]string{
		"north": "true", "south": "false", "east": "false", "west": "false",
	}}
	got := TransformBlockState(fence, RotY90)
	if v, _ := got.Property("east"); v != "true" {
		t.Fatalf("north flag did not rotate to east: %v", got.Properties)
	}
	if v, _ := got.Property("north"); v != "false" {
		t.Fatalf("north flag kept: %v", got.Properties)
	}
}

func TestTransformRailShapes(t *testing.T) {
	rail := NewBlockState("minecraft:rail").WithProperty("shape", "north_south")
	if v, _ := TransformBlockState(rail, RotY90).Property("shape"); v != "east_west" {
		t.Fatalf("north_south under RotY90 = %q", v)
	}
	asc := NewBlockState("minecraft:powered_rail").WithProperty("shape", "ascending_north")
	if v, _ := TransformBlockState(asc, RotY90).Property("shape"); v != "ascending_east" {
		t.Fatalf("ascending_north under RotY90 = %q", v)
	}
	curve := NewBlockState("minecraft:rail").WithProperty("shape", "south_east")
	if v, _ := TransformBlockState(curve, RotY90).Property("shape"); v != "south_west" {
		t.Fatalf("south_east under RotY90 = %q", v)
	}
}

func TestTransformDoorAndChest(t *testing.T) {
	door := BlockState{Name: "minecraft:oak_door", Properties: map[string]string{
		"facing": "north", "half": "lower", "hinge": "left",
	}}
	got := TransformBlockState(door, FlipZ)
	if v, _ := got.Property("hinge"); v != "right" {
		t.Fatalf("hinge under FlipZ = %q", v)
	}
	if v, _ := got.Property("facing"); v != "south" {
		t.Fatalf("facing under FlipZ = %q", v)
	}

	chest := BlockState{Name: "minecraft:chest", Properties: map[string]string{
		"facing": "north", "type": "left",
	}}
	if v, _ := TransformBlockState(chest, FlipX).Property("type"); v != "right" {
		t.Fatalf("chest type under FlipX = %q", v)
	}
	if v, _ := TransformBlockState(chest, RotY90).Property("type"); v != "left" {
		t.Fatalf("chest type under RotY90 = %q", v)
	}
}

func TestTransformHalfFlipY(t *testing.T) {
	slab := NewBlockState("minecraft:stone_slab").WithProperty("half", "top")
	if v, _ := TransformBlockState(slab, FlipY).Property("half"); v != "bottom" {
		t.Fatalf("half under FlipY = %q", v)
	}
}

func TestTransformUnknownPreserved(t *testing.T) {
	odd := NewBlockState("modded:widget").WithProperty("frobnication", "active")
	got := TransformBlockState(odd, RotY90)
	if v, _ := got.Property("frobnication"); v != "active" {
		t.Fatalf("unknown property changed: %q", v)
	}
}

func TestRegionRotateYStair(t *testing.T) {
	// A 3x3 region with a stair at the center: after a quarter turn the
	// stair stays centered and faces east.
	r := NewRegion("rot", cube.Pos{}, cube.Pos{3, 1, 3})
	r.SetBlock(cube.Pos{1, 0, 1}, stair("north"))
	marker := NewBlockState("minecraft:stone")
	r.SetBlock(cube.Pos{1, 0, 0}, marker) // north edge

	r.RotateY(90)
	got, ok := r.Block(cube.Pos{1, 0, 1})
	if !ok {
		t.Fatal("stair missing after rotation")
	}
	if v, _ := got.Property("facing"); v != "east" {
		t.Fatalf("stair facing = %q, want east", v)
	}
	// The north-edge marker moves to the east edge under a clockwise turn.
	if _, ok := r.Block(cube.Pos{2, 0, 1}); !ok {
		t.Fatal("marker not at east edge after rotation")
	}
}

func TestRegionFlipRoundTrip(t *testing.T) {
	r := NewRegion("flip", cube.Pos{}, cube.Pos{4, 3, 5})
	r.SetBlock(cube.Pos{0, 1, 2}, stair("west"))
	r.SetBlock(cube.Pos{3, 2, 4}, NewBlockState("minecraft:dirt"))
	want := r.Clone()

	r.FlipX()
	r.FlipX()
	if !regionsEquivalent(r, want) {
		t.Fatal("flip_x twice changed the region")
	}
}

func TestRegionRotateYFullCircle(t *testing.T) {
	r := NewRegion("circle", cube.Pos{}, cube.Pos{4, 2, 3})
	r.SetBlock(cube.Pos{0, 0, 0}, stair("north"))
	r.SetBlock(cube.Pos{3, 1, 2}, NewBlockState("minecraft:dirt"))
	want := r.Clone()

	for i := 0; i < 4; i++ {
		r.RotateY(90)
	}
	if !regionsEquivalent(r, want) {
		t.Fatal("four quarter turns changed the region")
	}
}

func TestFlipCommutes(t *testing.T) {
	build := func() *Region {
		r := NewRegion("c", cube.Pos{}, cube.Pos{3, 3, 3})
		r.SetBlock(cube.Pos{0, 0, 0}, stair("north"))
		r.SetBlock(cube.Pos{2, 1, 0}, NewBlockState("minecraft:dirt"))
		return r
	}
	a := build()
	a.FlipX()
	a.FlipY()
	b := build()
	b.FlipY()
	b.FlipX()
	if !regionsEquivalent(a, b) {
		t.Fatal("flip_x . flip_y != flip_y . flip_x")
	}
}

// regionsEquivalent compares two regions cell by cell, ignoring palette
// ordering.
func regionsEquivalent(a, b *Region) bool {
	aw, ah, al := a.Dimensions()
	bw, bh, bl := b.Dimensions()
	if aw != bw || ah != bh || al != bl {
		return false
	}
	amn, amx := a.Min(), a.Max()
	bmn := b.Min()
	for y := amn[1]; y <= amx[1]; y++ {
		for z := amn[2]; z <= amx[2]; z++ {
			for x := amn[0]; x <= amx[0]; x++ {
				pa := cube.Pos{x, y, z}
				pb := cube.Pos{x - amn[0] + bmn[0], y - amn[1] + bmn[1], z - amn[2] + bmn[2]}
				sa, oka := a.Block(pa)
				sb, okb := b.Block(pb)
				if oka != okb {
					return false
				}
				if oka && !sa.Equal(sb) {
					return false
				}
			}
		}
	}
	return true
}
