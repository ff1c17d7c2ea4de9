package format

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"

	nucleation "github.com/Schem-at/Nucleation"
)

func TestMcStructureRoundTrip(t *testing.T) {
	s := nucleation.NewSchematic("bedrock")
	s.CreateRegion(nucleation.MainRegion, cube.Pos{100, 4, -20}, cube.Pos{4, 3, 4})
	s.SetBlock(cube.Pos{100, 4, -20}, nucleation.NewBlockState("minecraft:stone"))
	s.SetBlock(cube.Pos{103, 6, -17}, nucleation.NewBlockState("minecraft:grass_block"))
	region := s.Region(nucleation.MainRegion)
	be := nucleation.NewBlockEntity("Chest", cube.Pos{0, 0, 0})
	be.Data["CustomName"] = "loot"
	region.SetBlockEntity(be)

	data, err := ToMcStructure(s)
	if err != nil {
		t.Fatalf("ToMcStructure: %v", err)
	}
	if Detect(data) != FormatMcStructure {
		t.Fatalf("Detect = %v, want mcstructure", Detect(data))
	}

	back, err := FromMcStructure(data)
	if err != nil {
		t.Fatalf("FromMcStructure: %v", err)
	}
	if got, ok := back.Block(cube.Pos{100, 4, -20}); !ok || got.Name != "minecraft:stone" {
		t.Fatalf("stone = %v, %v", got, ok)
	}
	// Name translation is applied on both directions: grass_block goes
	// out as the Bedrock spelling and comes back as the Java one.
	if got, ok := back.Block(cube.Pos{103, 6, -17}); !ok || got.Name != "minecraft:grass_block" {
		t.Fatalf("grass_block = %v, %v", got, ok)
	}

	rback := back.Region(nucleation.MainRegion)
	if rback.Position != (cube.Pos{100, 4, -20}) {
		t.Fatalf("origin = %v", rback.Position)
	}
	gotBE, ok := rback.BlockEntityAt(cube.Pos{0, 0, 0})
	if !ok {
		t.Fatal("block entity missing")
	}
	if gotBE.Data["CustomName"] != "loot" {
		t.Fatalf("block entity data = %v", gotBE.Data)
	}
}

func TestMcStructureSecondaryLayerPreserved(t *testing.T) {
	s := nucleation.NewSchematic("water")
	s.CreateRegion(nucleation.MainRegion, cube.Pos{}, cube.Pos{2, 1, 1})
	s.SetBlock(cube.Pos{0, 0, 0}, nucleation.NewBlockState("minecraft:stone"))
	region := s.Region(nucleation.MainRegion)
	// Mark cell 0 as waterlogged via the secondary layer; the mapping to
	// Java waterlogged properties is intentionally not guessed.
	water := region.PaletteIndex(nucleation.NewBlockState("minecraft:water"))
	region.SecondaryBlockLayer = []int32{int32(water), -1}

	data, err := ToMcStructure(s)
	if err != nil {
		t.Fatalf("ToMcStructure: %v", err)
	}
	back, err := FromMcStructure(data)
	if err != nil {
		t.Fatalf("FromMcStructure: %v", err)
	}
	layer := back.Region(nucleation.MainRegion).SecondaryBlockLayer
	if layer == nil {
		t.Fatal("secondary layer dropped")
	}
	if layer[0] == -1 || layer[1] != -1 {
		t.Fatalf("secondary layer = %v", layer)
	}
}

func TestMcStructureEntities(t *testing.T) {
	s := nucleation.NewSchematic("mobs")
	s.CreateRegion(nucleation.MainRegion, cube.Pos{10, 0, 10}, cube.Pos{3, 3, 3})
	s.SetBlock(cube.Pos{10, 0, 10}, nucleation.NewBlockState("minecraft:stone"))
	region := s.Region(nucleation.MainRegion)
	region.AddEntity(nucleation.NewEntity("minecraft:pig", [3]float64{1.5, 0, 1.5}))

	data, err := ToMcStructure(s)
	if err != nil {
		t.Fatalf("ToMcStructure: %v", err)
	}
	back, err := FromMcStructure(data)
	if err != nil {
		t.Fatalf("FromMcStructure: %v", err)
	}
	entities := back.Region(nucleation.MainRegion).Entities
	if len(entities) != 1 || entities[0].ID != "minecraft:pig" {
		t.Fatalf("entities = %v", entities)
	}
	p := entities[0].Position
	if p[0] < 1.4 || p[0] > 1.6 || p[2] < 1.4 || p[2] > 1.6 {
		t.Fatalf("entity local position = %v", p)
	}
}

func TestMcStructureNotGzipped(t *testing.T) {
	s := nucleation.NewSchematic("plain")
	s.CreateRegion(nucleation.MainRegion, cube.Pos{}, cube.Pos{1, 1, 1})
	data, err := ToMcStructure(s)
	if err != nil {
		t.Fatalf("ToMcStructure: %v", err)
	}
	if isGzip(data) {
		t.Fatal("mcstructure output must not be gzip framed")
	}
}

func TestReadAutoDetectsAllFormats(t *testing.T) {
	src := buildSignSchematic()
	for _, opts := range []WriteOptions{
		{Format: FormatLitematic},
		{Format: FormatSpongeV2},
		{Format: FormatSpongeV3},
		{Format: FormatMcStructure},
	} {
		data, err := Write(src, opts)
		if err != nil {
			t.Fatalf("Write %v: %v", opts.Format, err)
		}
		back, err := Read(data)
		if err != nil {
			t.Fatalf("Read %v: %v", opts.Format, err)
		}
		if _, ok := back.Block(cube.Pos{2, 1, 2}); !ok {
			t.Fatalf("%v: sign cell empty after auto round trip", opts.Format)
		}
	}
}
