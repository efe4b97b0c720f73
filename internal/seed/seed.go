// Package seed derives per-component seeds from a single run seed and builds
// the deterministic pseudorandom generators owned by each sampler.
//
// A run owns exactly one global seed. Every component derives its own
// sub-seed by adding a fixed offset from the table below, so streams stay
// independent without any process-wide registry.
package seed

import (
	"fmt"
	"math/rand/v2"
)

// Seed is the 64-bit value a run is reproduced from.
type Seed = uint64

// Component identifies a consumer of a derived seed.
type Component uint8

// Components with a reserved seed offset.
const (
	ComponentAmount Component = iota
	ComponentLineItem
	ComponentTemporal
	ComponentDrift
	ComponentIdentifier
	ComponentCounterparty
	ComponentAnomaly
)

// Offsets added to the global seed for each component. The values are part
// of the reproducibility contract: changing one changes every stream
// derived from it.
var offsets = map[Component]uint64{
	ComponentAmount:       0x0000_0000_0000_1000,
	ComponentLineItem:     0x0000_0000_0000_2000,
	ComponentTemporal:     0x0000_0000_0000_3000,
	ComponentDrift:        0x0000_0000_0000_4000,
	ComponentIdentifier:   0x0000_0000_0000_5000,
	ComponentCounterparty: 0x0000_0000_0000_6000,
	ComponentAnomaly:      0x0000_0000_0000_7000,
}

// streamSalt is the second PCG word for stream 0.
const streamSalt uint64 = 0xda3e39cb94b95bdb

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentAmount:
		return "amount"
	case ComponentLineItem:
		return "line_item"
	case ComponentTemporal:
		return "temporal"
	case ComponentDrift:
		return "drift"
	case ComponentIdentifier:
		return "identifier"
	case ComponentCounterparty:
		return "counterparty"
	case ComponentAnomaly:
		return "anomaly"
	default:
		return fmt.Sprintf("component(%d)", uint8(c))
	}
}

// Offset returns the fixed offset for the component.
func (c Component) Offset() uint64 {
	return offsets[c]
}

// Derive returns the sub-seed for a component. Addition wraps on overflow.
func Derive(global Seed, c Component) Seed {
	return global + c.Offset()
}

// NewRand returns a PCG-backed generator for the given seed and stream.
// Distinct streams of the same seed produce independent sequences; stream 0
// is what single-stream samplers use.
func NewRand(s Seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(s, streamSalt^stream))
}

// Stream packs a period and worker index into a stream number.
func Stream(period, worker int) uint64 {
	return uint64(period)<<16 | uint64(worker)&0xffff
}

// Components returns all components with a reserved offset, in declaration order.
func Components() []Component {
	return []Component{
		ComponentAmount,
		ComponentLineItem,
		ComponentTemporal,
		ComponentDrift,
		ComponentIdentifier,
		ComponentCounterparty,
		ComponentAnomaly,
	}
}
