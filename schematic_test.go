package nucleation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
)

func TestSchematicSetGetBlock(t *testing.T) {
	s := NewSchematic("test")
	stone := NewBlockState("minecraft:stone")
	s.SetBlock(cube.Pos{5, 5, 5}, stone)

	got, ok := s.Block(cube.Pos{5, 5, 5})
	if !ok || got.Name != "minecraft:stone" {
		t.Fatalf("Block = %v, %v", got, ok)
	}
	if _, ok := s.Regions[MainRegion]; !ok {
		t.Fatal("Main region not created")
	}
	// Growing writes keep earlier content.
	s.SetBlock(cube.Pos{-3, 0, 9}, stone)
	if _, ok := s.Block(cube.Pos{5, 5, 5}); !ok {
		t.Fatal("existing block lost after growth")
	}
	if _, ok := s.Block(cube.Pos{-3, 0, 9}); !ok {
		t.Fatal("new block missing after growth")
	}
}

func TestSchematicBoundingBox(t *testing.T) {
	s := NewSchematic("bbox")
	s.CreateRegion("a", cube.Pos{0, 0, 0}, cube.Pos{2, 2, 2})
	s.CreateRegion("b", cube.Pos{10, 0, 0}, cube.Pos{2, 2, 2})
	min, max, ok := s.BoundingBox()
	if !ok {
		t.Fatal("no bounding box")
	}
	if min != (cube.Pos{0, 0, 0}) || max != (cube.Pos{11, 1, 1}) {
		t.Fatalf("bbox = %v..%v", min, max)
	}
}

func TestSchematicCopyRegion(t *testing.T) {
	s := NewSchematic("copy")
	r := s.CreateRegion("a", cube.Pos{}, cube.Pos{2, 2, 2})
	r.SetBlock(cube.Pos{0, 0, 0}, NewBlockState("minecraft:stone"))

	dup, ok := s.CopyRegion("a", "b")
	if !ok || dup == nil {
		t.Fatal("CopyRegion failed")
	}
	// The copy is deep: editing it leaves the source alone.
	dup.SetBlock(cube.Pos{1, 1, 1}, NewBlockState("minecraft:dirt"))
	if _, ok := s.Regions["a"].Block(cube.Pos{1, 1, 1}); ok {
		t.Fatal("copy shares storage with source")
	}
}

func TestSchematicTotals(t *testing.T) {
	s := NewSchematic("totals")
	s.CreateRegion(MainRegion, cube.Pos{}, cube.Pos{4, 1, 1})
	s.SetBlock(cube.Pos{0, 0, 0}, NewBlockState("minecraft:stone"))
	s.SetBlock(cube.Pos{1, 0, 0}, NewBlockState("minecraft:stone"))
	if s.TotalVolume() != 4 {
		t.Fatalf("TotalVolume = %d, want 4", s.TotalVolume())
	}
	if s.TotalBlocks() != 2 {
		t.Fatalf("TotalBlocks = %d, want 2", s.TotalBlocks())
	}
}

func TestSchematicDebugOutput(t *testing.T) {
	s := NewSchematic("debug")
	s.CreateRegion(MainRegion, cube.Pos{}, cube.Pos{2, 1, 2})
	s.SetBlock(cube.Pos{0, 0, 0}, NewBlockState("minecraft:stone"))

	info := s.DebugInfo()
	if !strings.Contains(info, "debug") || !strings.Contains(info, MainRegion) {
		t.Fatalf("DebugInfo missing fields: %q", info)
	}

	ascii := s.Print()
	if !strings.Contains(ascii, "s") || !strings.Contains(ascii, ".") {
		t.Fatalf("Print missing cells: %q", ascii)
	}

	data, err := s.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var dump map[string]any
	if err := json.Unmarshal(data, &dump); err != nil {
		t.Fatalf("JSON output not valid JSON: %v", err)
	}
	if dump["name"] != "debug" {
		t.Fatalf("JSON name = %v", dump["name"])
	}
}

func TestSchematicClone(t *testing.T) {
	s := NewSchematic("clone")
	s.SetBlock(cube.Pos{0, 0, 0}, NewBlockState("minecraft:stone"))
	snap := s.Clone()
	s.SetBlock(cube.Pos{0, 0, 0}, NewBlockState("minecraft:dirt"))

	got, ok := snap.Block(cube.Pos{0, 0, 0})
	if !ok || got.Name != "minecraft:stone" {
		t.Fatalf("snapshot mutated: %v, %v", got, ok)
	}
}

func TestSchematicApplyRotate(t *testing.T) {
	s := NewSchematic("apply")
	s.CreateRegion(MainRegion, cube.Pos{}, cube.Pos{3, 1, 3})
	s.SetBlock(cube.Pos{1, 0, 1}, NewBlockState("minecraft:oak_stairs").WithProperty("facing", "north"))

	s.RotateY(90)
	got, ok := s.Block(cube.Pos{1, 0, 1})
	if !ok {
		t.Fatal("center block missing after schematic rotation")
	}
	if v, _ := got.Property("facing"); v != "east" {
		t.Fatalf("facing = %q, want east", v)
	}
}

func TestSchematicFillCuboid(t *testing.T) {
	s := NewSchematic("fill")
	s.FillCuboid(cube.Pos{0, 0, 0}, cube.Pos{15, 0, 15}, NewBlockState("minecraft:stone"))
	if s.TotalBlocks() != 256 {
		t.Fatalf("TotalBlocks = %d, want 256", s.TotalBlocks())
	}
}
