// SPDX-License-Identifier: EPL-2.0

package container

import (
	"fmt"

	"github.com/ik5/atracctx/codec"
	"github.com/ik5/atracctx/mem"
)

const (
	riffMagic = 0x46464952
	waveMagic = 0x45564157
	fmtMagic  = 0x20746D66
	dataMagic = 0x61746164
	smplMagic = 0x6C706D73
	factMagic = 0x74636166

	at3FmtTag     = 0x0270
	at3PlusFmtTag = 0xFFFE

	// Smallest container that can hold a RIFF header plus fmt and data
	// chunks.
	minRIFFSize = 72
)

// ParseRIFF analyzes a RIFF/WAVE container at region. The region size
// is how many bytes the guest has made resident so far; chunk walking
// may look past it up to the declared file size, as the firmware does.
func (a Analyzer) ParseRIFF(region mem.Region) (*Track, error) {
	if region.Size < minRIFFSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, region.Size)
	}
	if !a.mem.Valid(region.Addr) {
		return nil, ErrInvalidAddress
	}
	if a.u32(region.Addr) != riffMagic {
		return nil, fmt.Errorf("%w: no RIFF header", ErrUnknownFormat)
	}

	addr := region.Addr
	offset := uint32(8)

	// Walk past unrelated chunks in front of the WAVE tag.
	for a.u32(addr+offset) != waveMagic {
		chunk := a.u32(addr + offset - 4)
		offset += chunk + (chunk & 1)
		if offset+12 > region.Size {
			return nil, fmt.Errorf("%w: no WAVE chunk before offset %d", ErrTooSmall, offset)
		}
		if a.u32(addr+offset) != riffMagic {
			return nil, fmt.Errorf("%w: RIFF chunk did not contain WAVE", ErrUnknownFormat)
		}
		offset += 8
	}
	offset += 4

	if offset != 12 {
		a.log.Warn().Uint32("offset", offset).Msg("RIFF chunk at unusual offset")
	}

	t := &Track{Channels: 2, EndSample: -1, LoopStart: -1, LoopEnd: -1}

	// RIFF size excluding the chunk header. A too-low value is only a
	// hint; real firmware keeps going, so trust the data chunk later.
	t.FileSize = a.u32(addr+offset-8) + 8
	maxSize := max(t.FileSize, region.Size)

	foundData := false
	var dataChunkSize uint32
	sampleOffsetAdjust := 0

	for maxSize >= offset+8 && !foundData {
		chunkMagic := a.u32(addr + offset)
		chunkSize := a.u32(addr + offset + 4)
		if chunkSize&1 != 0 {
			a.log.Warn().Uint32("offset", offset).Msg("RIFF chunk had uneven size")
		}
		chunkSize += chunkSize & 1
		offset += 8
		if chunkSize > maxSize-offset {
			break
		}

		switch chunkMagic {
		case fmtMagic:
			if err := a.parseFmt(t, addr+offset, chunkSize); err != nil {
				return nil, err
			}

		case factMagic:
			t.EndSample = int(int32(a.u32(addr + offset)))
			if chunkSize >= 8 {
				t.FirstSampleOffset = int(a.u32(addr + offset + 4))
			}
			if chunkSize >= 12 {
				largerOffset := a.u32(addr + offset + 8)
				sampleOffsetAdjust = t.FirstSampleOffset - int(largerOffset)
			}

		case smplMagic:
			if err := a.parseSmpl(t, addr+offset, chunkSize); err != nil {
				return nil, err
			}

		case dataMagic:
			foundData = true
			t.DataOffset = offset
			dataChunkSize = chunkSize
			if t.FileSize < offset+chunkSize {
				a.log.Warn().Msg("data chunk extends beyond riff chunk")
				t.FileSize = offset + chunkSize
			}
		}
		offset += chunkSize
	}

	if t.Kind == 0 {
		return nil, fmt.Errorf("%w: could not detect codec", ErrUnknownFormat)
	}
	if !foundData {
		return nil, fmt.Errorf("%w: no data chunk", ErrTooSmall)
	}

	// Only the first loop region matters to the hardware.
	if len(t.Loops) > 0 {
		t.LoopStart = int(t.Loops[0].StartSample) + t.FirstOffsetExtra() + sampleOffsetAdjust
		t.LoopEnd = int(t.Loops[0].EndSample) + t.FirstOffsetExtra() + sampleOffsetAdjust
	}

	// Without a fact chunk, derive the end sample from the payload.
	if t.EndSample <= 0 && t.FrameBytes != 0 {
		t.EndSample = int(dataChunkSize) / t.FrameBytes * t.SamplesPerFrame()
		t.EndSample -= t.FirstSampleOffset + t.FirstOffsetExtra()
	}
	t.EndSample--

	if t.LoopEnd != -1 && t.LoopEnd > t.EndSample+t.FirstSampleOffset+t.FirstOffsetExtra() {
		return nil, fmt.Errorf("%w: loop after end of data", ErrBadCodecParams)
	}

	return t, nil
}

func (a Analyzer) parseFmt(t *Track, chunkAddr, chunkSize uint32) error {
	if t.Kind != 0 {
		return fmt.Errorf("%w: multiple fmt definitions", ErrUnknownFormat)
	}

	fmtTag := a.u16(chunkAddr)
	if chunkSize < 32 || (fmtTag == at3PlusFmtTag && chunkSize < 52) {
		return fmt.Errorf("%w: fmt definition too small (%d)", ErrUnknownFormat, chunkSize)
	}

	switch fmtTag {
	case at3FmtTag:
		t.Kind = codec.KindATRAC3
	case at3PlusFmtTag:
		t.Kind = codec.KindATRAC3Plus
	default:
		return fmt.Errorf("%w: invalid fmt magic %04x", ErrUnknownFormat, fmtTag)
	}

	t.Channels = int(a.u16(chunkAddr + 2))
	if t.Channels != 1 && t.Channels != 2 {
		return fmt.Errorf("%w: invalid channel count %d", ErrUnknownFormat, t.Channels)
	}
	if rate := a.u32(chunkAddr + 4); rate != 44100 {
		return fmt.Errorf("%w: unsupported sample rate %d", ErrUnknownFormat, rate)
	}
	t.Bitrate = int(a.u32(chunkAddr+8)) * 8
	t.FrameBytes = int(a.u16(chunkAddr + 12))
	if t.FrameBytes == 0 {
		return fmt.Errorf("%w: invalid bytes per frame", ErrUnknownFormat)
	}

	if fmtTag == at3FmtTag {
		t.JointStereo = a.u32(chunkAddr+24) != 0
	}
	return nil
}

func (a Analyzer) parseSmpl(t *Track, chunkAddr, chunkSize uint32) error {
	if chunkSize < 32 {
		return fmt.Errorf("%w: smpl chunk too small (%d)", ErrUnknownFormat, chunkSize)
	}
	numLoops := int(int32(a.u32(chunkAddr + 28)))
	if numLoops != 0 && chunkSize < 36+20 {
		return fmt.Errorf("%w: smpl chunk too small for loop (%d, %d)", ErrUnknownFormat, numLoops, chunkSize)
	}
	if numLoops < 0 {
		return fmt.Errorf("%w: negative loop count %d", ErrUnknownFormat, numLoops)
	}

	loopAddr := chunkAddr + 36
	t.Loops = make([]LoopPoint, 0, numLoops)
	for i := 0; i < numLoops && uint32(36+i) < chunkSize; i, loopAddr = i+1, loopAddr+24 {
		lp := LoopPoint{
			CuePointID:  a.u32(loopAddr),
			Type:        a.u32(loopAddr + 4),
			StartSample: a.u32(loopAddr + 8),
			EndSample:   a.u32(loopAddr + 12),
			Fraction:    a.u32(loopAddr + 16),
			PlayCount:   a.u32(loopAddr + 20),
		}
		if lp.StartSample >= lp.EndSample {
			return fmt.Errorf("%w: loop starts after it ends", ErrBadCodecParams)
		}
		t.Loops = append(t.Loops, lp)
	}
	return nil
}
