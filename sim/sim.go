// Package sim declares the interface a redstone simulation backend
// satisfies. The backend itself lives outside this module; the library
// only defines the contract over positions in a universal schematic.
package sim

import (
	"github.com/df-mc/dragonfly/server/block/cube"

	nucleation "github.com/Schem-at/Nucleation"
)

// Backend is an opaque simulation collaborator. Implementations receive
// a schematic up front and answer queries against their own copy of the
// world; SyncToSchematic writes the simulated state back.
type Backend interface {
	// Tick advances the simulation by n game ticks.
	Tick(n int)
	// Flush applies all pending block updates immediately.
	Flush()
	// OnUseBlock performs a player use interaction (button, lever) at a
	// world position.
	OnUseBlock(pos cube.Pos)
	// IsLit reports whether the block at the position is lit (lamps,
	// torches).
	IsLit(pos cube.Pos) bool
	// SignalStrength returns the redstone signal strength at the
	// position, in 0 through 15.
	SignalStrength(pos cube.Pos) int
	// SetSignalStrength forces the signal strength at the position.
	SetSignalStrength(pos cube.Pos, strength int)
	// SyncToSchematic writes the simulated block states back into the
	// schematic the backend was created from.
	SyncToSchematic(s *nucleation.Schematic)
}
