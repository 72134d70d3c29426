// SPDX-License-Identifier: EPL-2.0

package container

import (
	"github.com/rs/zerolog"

	"github.com/ik5/atracctx/codec"
	"github.com/ik5/atracctx/mem"
)

// LoopPoint is one raw loop region out of a `smpl` chunk, in the
// container's own sample space.
type LoopPoint struct {
	CuePointID  uint32
	Type        uint32
	StartSample uint32
	EndSample   uint32
	Fraction    uint32
	PlayCount   uint32
}

// Track holds the static parameters of an analyzed container. It never
// changes after parsing; streaming and playback state live in the
// atrac package.
type Track struct {
	Kind        codec.Kind
	Channels    int
	JointStereo bool
	Bitrate     int
	FrameBytes  int

	// FirstSampleOffset is the encoder pre-roll declared by the
	// container, not counting the per-codec extra skew.
	FirstSampleOffset int

	// DataOffset is the file offset of the payload, FileSize the
	// logical container size (which may exceed the bytes currently
	// resident in any buffer).
	DataOffset uint32
	FileSize   uint32

	// EndSample is the last playable sample (inclusive).
	EndSample int

	// LoopStart/LoopEnd are the first loop region shifted into final
	// sample space, or -1 when the container has no loops. The raw
	// regions are kept in Loops.
	LoopStart int
	LoopEnd   int
	Loops     []LoopPoint
}

// SamplesPerFrame returns the PCM yield of one frame for this track's
// codec.
func (t *Track) SamplesPerFrame() int { return t.Kind.SamplesPerFrame() }

// FirstOffsetExtra returns the per-codec encoder skew.
func (t *Track) FirstOffsetExtra() int { return t.Kind.FirstOffsetExtra() }

// Looped reports whether the container declared any loop region.
func (t *Track) Looped() bool { return t.LoopEnd > 0 }

// Analyzer parses containers out of guest memory.
type Analyzer struct {
	mem mem.Memory
	log zerolog.Logger
}

// NewAnalyzer returns an Analyzer reading through m. Diagnostics about
// tolerated malformations go to log.
func NewAnalyzer(m mem.Memory, log zerolog.Logger) Analyzer {
	return Analyzer{mem: m, log: log}
}

// u32 reads a little-endian 32-bit guest value, 0 when unmapped. The
// firmware reads unchecked here too.
func (a Analyzer) u32(addr uint32) uint32 {
	v, err := mem.U32(a.mem, addr)
	if err != nil {
		return 0
	}
	return v
}

func (a Analyzer) u16(addr uint32) uint16 {
	v, err := mem.U16(a.mem, addr)
	if err != nil {
		return 0
	}
	return v
}
