package format

// Static translation between Bedrock and Java block identifiers for the
// names that diverge between editions. Names absent from the tables are
// identical in both editions or unknown; they pass through verbatim.
var bedrockToJavaNames = map[string]string{
	"minecraft:grass":                 "minecraft:grass_block",
	"minecraft:concretePowder":        "minecraft:white_concrete_powder",
	"minecraft:stonecutter_block":     "minecraft:stonecutter",
	"minecraft:trip_wire":             "minecraft:tripwire",
	"minecraft:web":                   "minecraft:cobweb",
	"minecraft:deadbush":              "minecraft:dead_bush",
	"minecraft:tallgrass":             "minecraft:tall_grass",
	"minecraft:waterlily":             "minecraft:lily_pad",
	"minecraft:snow_layer":            "minecraft:snow",
	"minecraft:snow":                  "minecraft:snow_block",
	"minecraft:magma":                 "minecraft:magma_block",
	"minecraft:slime":                 "minecraft:slime_block",
	"minecraft:melon_block":           "minecraft:melon",
	"minecraft:noteblock":             "minecraft:note_block",
	"minecraft:wooden_button":         "minecraft:oak_button",
	"minecraft:wooden_door":           "minecraft:oak_door",
	"minecraft:wooden_pressure_plate": "minecraft:oak_pressure_plate",
	"minecraft:fence":                 "minecraft:oak_fence",
	"minecraft:trapdoor":              "minecraft:oak_trapdoor",
	"minecraft:standing_sign":         "minecraft:oak_sign",
	"minecraft:wall_sign":             "minecraft:oak_wall_sign",
	"minecraft:grass_path":            "minecraft:dirt_path",
	"minecraft:invisiblebedrock":      "minecraft:barrier",
	"minecraft:unlit_redstone_torch":  "minecraft:redstone_torch",
	"minecraft:powered_repeater":      "minecraft:repeater",
	"minecraft:unpowered_repeater":    "minecraft:repeater",
	"minecraft:powered_comparator":    "minecraft:comparator",
	"minecraft:unpowered_comparator":  "minecraft:comparator",
	"minecraft:golden_rail":           "minecraft:powered_rail",
	"minecraft:stone_slab":            "minecraft:smooth_stone_slab",
	"minecraft:mob_spawner":           "minecraft:spawner",
	"minecraft:flowing_water":         "minecraft:water",
	"minecraft:flowing_lava":          "minecraft:lava",
	"minecraft:carpet":                "minecraft:white_carpet",
	"minecraft:wool":                  "minecraft:white_wool",
	"minecraft:concrete":              "minecraft:white_concrete",
	"minecraft:stained_glass":         "minecraft:white_stained_glass",
	"minecraft:stained_glass_pane":    "minecraft:white_stained_glass_pane",
	"minecraft:stained_hardened_clay": "minecraft:white_terracotta",
	"minecraft:hardened_clay":         "minecraft:terracotta",
	"minecraft:brick_block":           "minecraft:bricks",
	"minecraft:quartz_ore":            "minecraft:nether_quartz_ore",
	"minecraft:reeds":                 "minecraft:sugar_cane",
}

// javaToBedrockNames is the explicit reverse table. Where several
// Bedrock names collapse onto one Java name (repeater, comparator,
// redstone torch) the unpowered spelling is canonical.
var javaToBedrockNames = map[string]string{
	"minecraft:grass_block":              "minecraft:grass",
	"minecraft:white_concrete_powder":    "minecraft:concretePowder",
	"minecraft:stonecutter":              "minecraft:stonecutter_block",
	"minecraft:tripwire":                 "minecraft:trip_wire",
	"minecraft:cobweb":                   "minecraft:web",
	"minecraft:dead_bush":                "minecraft:deadbush",
	"minecraft:tall_grass":               "minecraft:tallgrass",
	"minecraft:lily_pad":                 "minecraft:waterlily",
	"minecraft:snow":                     "minecraft:snow_layer",
	"minecraft:snow_block":               "minecraft:snow",
	"minecraft:magma_block":              "minecraft:magma",
	"minecraft:slime_block":              "minecraft:slime",
	"minecraft:melon":                    "minecraft:melon_block",
	"minecraft:note_block":               "minecraft:noteblock",
	"minecraft:oak_button":               "minecraft:wooden_button",
	"minecraft:oak_door":                 "minecraft:wooden_door",
	"minecraft:oak_pressure_plate":       "minecraft:wooden_pressure_plate",
	"minecraft:oak_fence":                "minecraft:fence",
	"minecraft:oak_trapdoor":             "minecraft:trapdoor",
	"minecraft:oak_sign":                 "minecraft:standing_sign",
	"minecraft:oak_wall_sign":            "minecraft:wall_sign",
	"minecraft:dirt_path":                "minecraft:grass_path",
	"minecraft:barrier":                  "minecraft:invisiblebedrock",
	"minecraft:repeater":                 "minecraft:unpowered_repeater",
	"minecraft:comparator":               "minecraft:unpowered_comparator",
	"minecraft:powered_rail":             "minecraft:golden_rail",
	"minecraft:smooth_stone_slab":        "minecraft:stone_slab",
	"minecraft:spawner":                  "minecraft:mob_spawner",
	"minecraft:white_carpet":             "minecraft:carpet",
	"minecraft:white_wool":               "minecraft:wool",
	"minecraft:white_concrete":           "minecraft:concrete",
	"minecraft:white_stained_glass":      "minecraft:stained_glass",
	"minecraft:white_stained_glass_pane": "minecraft:stained_glass_pane",
	"minecraft:white_terracotta":         "minecraft:stained_hardened_clay",
	"minecraft:terracotta":               "minecraft:hardened_clay",
	"minecraft:bricks":                   "minecraft:brick_block",
	"minecraft:nether_quartz_ore":        "minecraft:quartz_ore",
	"minecraft:sugar_cane":               "minecraft:reeds",
}
