// SPDX-License-Identifier: EPL-2.0

package container

import (
	"fmt"

	"github.com/ik5/atracctx/codec"
	"github.com/ik5/atracctx/mem"
)

// omaDataOffsetPad is the fixed distance from the inner header to the
// payload.
const omaDataOffsetPad = 96

var omaSampleRates = [8]int{32000, 44100, 48000, 88200, 96000}

// ParseOMA analyzes the proprietary tag-wrapped container: a lowercase
// 3-byte magic, a variable-length leading header whose size is packed 7
// bits per byte, and an uppercase inner header carrying the codec
// parameter block. fileSize is the logical size of the whole file,
// which may exceed the resident region while streaming.
func (a Analyzer) ParseOMA(region mem.Region, fileSize uint32) (*Track, error) {
	if region.Size < 10 {
		return nil, fmt.Errorf("%w: %d bytes", ErrOMATooSmall, region.Size)
	}

	head, err := mem.Bytes(a.mem, region.Addr, 10)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	if head[0] != 'e' || head[1] != 'a' || head[2] != '3' {
		return nil, fmt.Errorf("%w: invalid ea3 magic bytes", ErrOMAInvalidData)
	}

	// The leading header replaces an id3 tag; same 7-bit size packing.
	tagSize := uint32(head[9]) | uint32(head[8])<<7 | uint32(head[7])<<14 | uint32(head[6])<<21
	if region.Size < tagSize+36 {
		return nil, fmt.Errorf("%w: truncated before tag end", ErrOMATooSmall)
	}

	inner, err := mem.Bytes(a.mem, region.Addr+10+tagSize, 36)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	if inner[0] != 'E' || inner[1] != 'A' || inner[2] != '3' {
		return nil, fmt.Errorf("%w: invalid EA3 magic bytes", ErrOMAInvalidData)
	}

	// Byte 35 really does land in two positions; the hardware decodes
	// the parameter word this way.
	codecParams := uint32(inner[35]) | uint32(inner[34])<<8 | uint32(inner[35])<<16

	t := &Track{Channels: 2, EndSample: -1, LoopStart: -1, LoopEnd: -1, FileSize: fileSize}

	switch inner[32] {
	case 0:
		t.Kind = codec.KindATRAC3
		t.FrameBytes = int(codecParams&0x03FF) * 8
		t.Bitrate = omaSampleRates[(codecParams>>13)&7] * t.FrameBytes * 8 / 1024
		t.Channels = 2
		t.JointStereo = (codecParams>>17)&1 != 0
	case 1:
		t.Kind = codec.KindATRAC3Plus
		t.FrameBytes = int(codecParams&0x03FF)*8 + 8
		t.Bitrate = omaSampleRates[(codecParams>>13)&7] * t.FrameBytes * 8 / 2048
		t.Channels = int((codecParams >> 10) & 7)
	case 3, 4, 5:
		return nil, fmt.Errorf("%w: unsupported codec type %d", ErrOMAInvalidData, inner[32])
	default:
		return nil, fmt.Errorf("%w: invalid codec type %d", ErrOMAInvalidData, inner[32])
	}

	t.DataOffset = 10 + tagSize + omaDataOffsetPad
	if t.EndSample < 0 && t.FrameBytes != 0 {
		t.EndSample = int(fileSize-t.DataOffset) / t.FrameBytes * t.SamplesPerFrame()
	}
	t.EndSample--

	return t, nil
}
