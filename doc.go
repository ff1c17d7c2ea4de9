// Package nucleation is a library for reading, writing, editing and
// analyzing Minecraft voxel schematics. It exposes a single universal
// in-memory model — palette-compressed multi-region block storage with
// block entities, mobile entities and definition regions — that round
// trips through three incompatible container formats (Litematica,
// Sponge Schematic v1-v3, Bedrock McStructure, see the format package)
// and supports lossless rigid-body transforms that rewrite both block
// positions and orientation-dependent block-state properties.
package nucleation
