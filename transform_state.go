package nucleation

import (
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Property rewriting is what keeps stairs, doors, signs and rails
// semantically intact under grid transforms. Every rewrite below is
// defined for the six primitive transforms; 180 and 270 degree variants
// are applied as repeated 90 degree steps.

// direction vectors in Minecraft's coordinate convention: +X east,
// +Y up, +Z south.
var dirVecs = map[string][3]int{
	"north": {0, 0, -1},
	"south": {0, 0, 1},
	"east":  {1, 0, 0},
	"west":  {-1, 0, 0},
	"up":    {0, 1, 0},
	"down":  {0, -1, 0},
}

func vecDir(v [3]int) (string, bool) {
	for name, dv := range dirVecs {
		if dv == v {
			return name, true
		}
	}
	return "", false
}

// applyVec applies a primitive transform to an integer direction vector.
// RotY90 is clockwise viewed from above (north becomes east), matching
// vanilla structure rotation; RotX90 and RotZ90 follow the grid maps in
// rotate90 (transform.go).
func (t Transform) applyVec(v [3]int) [3]int {
	switch t {
	case FlipX:
		return [3]int{-v[0], v[1], v[2]}
	case FlipY:
		return [3]int{v[0], -v[1], v[2]}
	case FlipZ:
		return [3]int{v[0], v[1], -v[2]}
	case RotY90:
		return [3]int{-v[2], v[1], v[0]}
	case RotX90:
		return [3]int{v[0], v[2], -v[1]}
	case RotZ90:
		return [3]int{v[1], -v[0], v[2]}
	}
	return v
}

// mapDirection rewrites a cardinal or vertical direction word.
func (t Transform) mapDirection(dir string) string {
	v, ok := dirVecs[dir]
	if !ok {
		return dir
	}
	out, ok := vecDir(t.applyVec(v))
	if !ok {
		return dir
	}
	return out
}

// mapAxis rewrites an axis word (logs, pillars, portals).
func (t Transform) mapAxis(axis string) string {
	var v [3]int
	switch axis {
	case "x":
		v = [3]int{1, 0, 0}
	case "y":
		v = [3]int{0, 1, 0}
	case "z":
		v = [3]int{0, 0, 1}
	default:
		return axis
	}
	v = t.applyVec(v)
	switch {
	case v[0] != 0:
		return "x"
	case v[1] != 0:
		return "y"
	default:
		return "z"
	}
}

// mapRotation16 rewrites the 0-15 sign rotation (22.5 degree steps,
// 0 = south, increasing clockwise viewed from above).
func (t Transform) mapRotation16(value string) string {
	r, err := strconv.Atoi(value)
	if err != nil || r < 0 || r > 15 {
		return value
	}
	switch t {
	case RotY90:
		r = (r + 4) % 16
	case FlipX:
		r = (16 - r) % 16
	case FlipZ:
		r = (24 - r) % 16
	}
	return strconv.Itoa(r)
}

// vertical inversion swaps top/bottom halves. Only FlipY among the
// primitives inverts the vertical sense of a half-block.
func (t Transform) invertsVertical() bool {
	return t == FlipY
}

// mirrorsHorizontal reports whether the transform mirrors handedness in
// the horizontal plane, which swaps left/right hinges, stair shapes and
// double-chest sides.
func (t Transform) mirrorsHorizontal() bool {
	return t == FlipX || t == FlipZ
}

var halfSwap = map[string]string{
	"top": "bottom", "bottom": "top",
	"upper": "lower", "lower": "upper",
}

var leftRightSwap = map[string]string{
	"left": "right", "right": "left",
	"inner_left": "inner_right", "inner_right": "inner_left",
	"outer_left": "outer_right", "outer_right": "outer_left",
}

// mapRailShape rewrites rail shapes (north_south, ascending_east,
// south_east, ...) by rewriting each embedded direction word.
func (t Transform) mapRailShape(value string) (string, bool) {
	if strings.HasPrefix(value, "ascending_") {
		d := t.mapDirection(strings.TrimPrefix(value, "ascending_"))
		switch d {
		case "north", "south", "east", "west":
			return "ascending_" + d, true
		}
		return value, false
	}
	parts := strings.SplitN(value, "_", 2)
	if len(parts) != 2 {
		return value, false
	}
	a, b := t.mapDirection(parts[0]), t.mapDirection(parts[1])
	// Straight rails: the two names are opposites; canonical order is
	// north_south / east_west.
	if a == "north" || a == "south" {
		if b == "north" || b == "south" {
			return "north_south", true
		}
	}
	if a == "east" || a == "west" {
		if b == "east" || b == "west" {
			return "east_west", true
		}
	}
	// Curved rails: canonical order is (south|north) then (east|west).
	ns, ew := a, b
	if ew == "north" || ew == "south" {
		ns, ew = b, a
	}
	switch ns + "_" + ew {
	case "south_east", "south_west", "north_east", "north_west":
		return ns + "_" + ew, true
	}
	return value, false
}

var railShapes = map[string]bool{
	"north_south": true, "east_west": true,
	"ascending_north": true, "ascending_south": true,
	"ascending_east": true, "ascending_west": true,
	"south_east": true, "south_west": true,
	"north_east": true, "north_west": true,
}

var stairShapes = map[string]bool{
	"straight":   true,
	"inner_left": true, "inner_right": true,
	"outer_left": true, "outer_right": true,
}

// connection flag keys (fences, walls, panes, redstone wire, vines,
// mushroom blocks). Their VALUES are orientation-free; the KEYS rotate.
var connectionKeys = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"up": true, "down": true,
}

// transformProperty rewrites one property under a primitive transform.
// It returns the possibly-remapped key and value. Unknown keys pass
// through untouched; unknown values for known keys are passed through
// with a trace so malformed snapshots never fail a transform.
func transformProperty(t Transform, key, value string) (string, string) {
	switch key {
	case "facing":
		if _, ok := dirVecs[value]; !ok {
			traceUnknownValue(key, value)
			return key, value
		}
		return key, t.mapDirection(value)
	case "axis":
		return key, t.mapAxis(value)
	case "rotation":
		return key, t.mapRotation16(value)
	case "half":
		if t.invertsVertical() {
			if swapped, ok := halfSwap[value]; ok {
				return key, swapped
			}
			traceUnknownValue(key, value)
		}
		return key, value
	case "hinge":
		if t.mirrorsHorizontal() {
			if swapped, ok := leftRightSwap[value]; ok {
				return key, swapped
			}
			traceUnknownValue(key, value)
		}
		return key, value
	case "shape":
		if railShapes[value] {
			out, ok := t.mapRailShape(value)
			if !ok {
				traceUnknownValue(key, value)
			}
			return key, out
		}
		if stairShapes[value] {
			if t.mirrorsHorizontal() {
				if swapped, ok := leftRightSwap[value]; ok {
					return key, swapped
				}
			}
			return key, value
		}
		traceUnknownValue(key, value)
		return key, value
	case "type":
		// Double chest halves.
		if t.mirrorsHorizontal() {
			if swapped, ok := leftRightSwap[value]; ok {
				return key, swapped
			}
		}
		return key, value
	}
	if connectionKeys[key] {
		return t.mapDirection(key), value
	}
	return key, value
}

// TransformBlockState rewrites every orientation-dependent property of a
// state under the given transform. The grid transforms call this on each
// palette entry; block names never change.
func TransformBlockState(state BlockState, t Transform) BlockState {
	out := state
	for _, prim := range t.primitives() {
		if len(out.Properties) == 0 {
			return out
		}
		props := make(map[string]string, len(out.Properties))
		for k, v := range out.Properties {
			nk, nv := transformProperty(prim, k, v)
			props[nk] = nv
		}
		out = BlockState{Name: out.Name, Properties: props}
	}
	return out
}

func traceUnknownValue(key, value string) {
	log.WithFields(log.Fields{"property": key, "value": value}).
		Trace("transform: unknown property value passed through")
}
