// SPDX-License-Identifier: EPL-2.0

package atrac

import (
	"fmt"

	"github.com/ik5/atracctx/utils"
)

// Sentinel values RemainingFrames reports instead of a count.
const (
	// RemainAllDataLoaded means the whole file is resident; there is
	// nothing left to stream.
	RemainAllDataLoaded = -1
	// RemainNonLoopStreamEnd means the remainder of an unlooped stream
	// is resident.
	RemainNonLoopStreamEnd = -2
	// RemainLoopStreamEnd means the stream is resident up to the loop
	// point.
	RemainLoopStreamEnd = -3
)

// CalculateStreamInfo recomputes the writable span of the first buffer
// and tells the guest where the next chunk goes. Safe to call
// repeatedly; it only moves the window when data is actually added.
func (c *Context) CalculateStreamInfo() StreamInfo {
	readOffset := c.first.FileCursor
	switch {
	case c.state == StateAllDataLoaded:
		// Nothing to write.
		readOffset = 0
		c.first.Offset = 0
		c.first.WritableBytes = 0

	case c.state == StateHalfwayBuffer:
		// Filling start to finish, so the writable span is simply the
		// rest of the file.
		c.first.Offset = readOffset
		c.first.WritableBytes = c.first.FileSize - readOffset

	default:
		bufferEnd := c.streamBufferEnd()
		bufferValidExtended := c.bufferPos + c.bufferValidBytes
		if bufferValidExtended < bufferEnd {
			c.first.Offset = bufferValidExtended
			c.first.WritableBytes = bufferEnd - bufferValidExtended
		} else {
			bufferStartUsed := bufferValidExtended - bufferEnd
			c.first.Offset = bufferStartUsed
			c.first.WritableBytes = c.bufferPos - bufferStartUsed
		}

		if readOffset >= c.first.FileSize {
			if c.state == StateStreamedWithoutLoop {
				readOffset = 0
				c.first.Offset = 0
				c.first.WritableBytes = 0
			} else {
				// Wrap to just before the loop start, with pre-roll.
				readOffset = uint32(c.fileOffsetBySample(c.loopStart - c.firstOffsetExtra() - c.firstSampleOffset - c.samplesPerFrame()*2))
			}
		}

		// Never ask for bytes past the end of file, even when the
		// window has room.
		if readOffset+c.first.WritableBytes > c.first.FileSize {
			c.first.WritableBytes = c.first.FileSize - readOffset
		}

		if c.first.Offset+c.first.WritableBytes > c.bufferMaxSize {
			c.log.Error().
				Uint32("offset", c.first.Offset).
				Uint32("writable", c.first.WritableBytes).
				Uint32("bufferMax", c.bufferMaxSize).
				Msg("calculated too many writable bytes")
			c.first.Offset = 0
			c.first.WritableBytes = c.bufferMaxSize
		}
	}

	return StreamInfo{
		WritePos:      c.first.Addr + c.first.Offset,
		WritableBytes: c.first.WritableBytes,
		ReadOffset:    readOffset,
	}
}

// AddStreamData notifies the context that the guest wrote n more bytes
// of the file at the position CalculateStreamInfo announced.
func (c *Context) AddStreamData(n uint32) error {
	if c.state == StateAllDataLoaded {
		return fmt.Errorf("nothing left to stream: %w", ErrAllDataLoaded)
	}
	info := c.CalculateStreamInfo()
	if n > c.first.WritableBytes {
		return fmt.Errorf("%d > %d writable: %w", n, c.first.WritableBytes, ErrAddDataTooBig)
	}

	if n > 0 {
		c.first.FileCursor = info.ReadOffset
		addBytes := min(n, c.first.FileSize-c.first.FileCursor)
		if !c.guestResident {
			src := c.first.Addr + c.first.Offset
			dst := c.dataBuf[c.first.FileCursor : c.first.FileCursor+addBytes]
			if err := c.mem.Read(src, dst); err != nil {
				return fmt.Errorf("add stream data: %w", err)
			}
		}
		c.first.FileCursor += addBytes
	}
	c.first.Bytes += n
	if c.first.Bytes >= c.first.FileSize {
		c.first.Bytes = c.first.FileSize
		if c.state == StateHalfwayBuffer {
			c.state = StateAllDataLoaded
		}
		c.writeMirror()
	}

	c.first.Offset += n
	c.bufferValidBytes += n

	// Some titles stall waiting for the stream to rewind itself at the
	// loop point instead of seeking. The flag does it for them.
	if c.flags.LoopStreamRewind && c.state == StateStreamedLoopFromEnd && c.RemainingFrames() > 2 {
		c.loopNum++
		c.SeekToSample(c.loopStart - c.firstOffsetExtra() - c.firstSampleOffset)
	}
	return nil
}

// AddStreamDataExt appends n bytes read from an arbitrary guest
// address rather than the announced window position. The external
// mixer streams this way, bypassing CalculateStreamInfo.
func (c *Context) AddStreamDataExt(addr, n uint32) error {
	extra := uint32(c.firstOffsetExtra())
	addBytes := min(n, c.first.FileSize-c.first.FileCursor-extra)
	dst := c.dataBuf[c.first.FileCursor+extra : c.first.FileCursor+extra+addBytes]
	if err := c.mem.Read(addr, dst); err != nil {
		return fmt.Errorf("add stream data ext: %w", err)
	}
	c.first.Bytes += n
	if c.first.Bytes >= c.first.FileSize {
		c.first.Bytes = c.first.FileSize
		if c.state == StateHalfwayBuffer {
			c.state = StateAllDataLoaded
		}
	}
	c.first.FileCursor += addBytes
	c.writeMirror()
	return nil
}

// ResetWrite describes what one buffer needs before a position reset.
type ResetWrite struct {
	// WritePos is the guest address the bytes go to.
	WritePos uint32
	// WritableBytes is the most that may be written.
	WritableBytes uint32
	// MinWriteBytes is the least that must be written for the reset to
	// succeed.
	MinWriteBytes uint32
	// FilePos is the file offset the bytes must come from.
	FilePos uint32
}

// ResetBufferInfo describes both buffers' requirements for a reset to
// a given sample.
type ResetBufferInfo struct {
	First  ResetWrite
	Second ResetWrite
}

// GetResetBufferInfo computes what the guest must stream in before
// ResetPlayPosition can jump to sample.
func (c *Context) GetResetBufferInfo(sample int) ResetBufferInfo {
	var info ResetBufferInfo
	if c.state == StateAllDataLoaded {
		info.First.WritePos = c.first.Addr
		// Everything is resident already.
	} else if c.state == StateHalfwayBuffer {
		// Filling start to finish, so the requirement is however many
		// bytes it takes to reach the target position.
		info.First.WritePos = c.first.Addr + c.first.Bytes
		info.First.WritableBytes = c.first.FileSize - c.first.Bytes
		if minWrite := c.fileOffsetBySample(sample) - int(c.first.Bytes); minWrite > 0 {
			info.First.MinWriteBytes = uint32(minWrite)
		}
		info.First.FilePos = c.first.Bytes
	} else {
		// The file offset includes the previous batch of samples.
		sampleFileOffset := c.fileOffsetBySample(sample - c.firstSampleOffset - c.samplesPerFrame())

		bufSizeAligned := utils.AlignDown(c.bufferMaxSize, uint32(c.frameBytes))
		needsMoreFrames := c.firstOffsetExtra()

		info.First.WritePos = c.first.Addr
		info.First.WritableBytes = min(c.first.FileSize-uint32(sampleFileOffset), bufSizeAligned)
		if (sample+c.firstSampleOffset)%c.samplesPerFrame() >= c.samplesPerFrame()-needsMoreFrames {
			// A late sample inside the frame needs one frame extra.
			info.First.MinWriteBytes = uint32(c.frameBytes) * 3
		} else {
			info.First.MinWriteBytes = uint32(c.frameBytes) * 2
		}
		if uint32(sample) < uint32(c.firstSampleOffset) && uint32(sampleFileOffset) != c.dataOff {
			sampleFileOffset -= c.frameBytes
		}
		info.First.FilePos = uint32(sampleFileOffset)
	}

	// The second buffer never needs a write for a reset; the loop sits
	// at a fixed place. Oddly its write position mirrors the first's.
	info.Second.WritePos = c.first.Addr
	return info
}

// ResetPlayPosition jumps playback to sample. firstBytes and
// secondBytes are how much the guest just streamed into each buffer,
// which must fall inside the ranges GetResetBufferInfo reported.
func (c *Context) ResetPlayPosition(sample int, firstBytes, secondBytes uint32) error {
	if sample > c.endSample {
		return fmt.Errorf("%d > %d: %w", sample, c.endSample, ErrBadSample)
	}
	info := c.GetResetBufferInfo(sample)

	if firstBytes < info.First.MinWriteBytes || firstBytes > info.First.WritableBytes {
		return fmt.Errorf("%d not in [%d, %d]: %w", firstBytes, info.First.MinWriteBytes, info.First.WritableBytes, ErrBadFirstResetSize)
	}
	if secondBytes < info.Second.MinWriteBytes || secondBytes > info.Second.WritableBytes {
		return fmt.Errorf("%d not in [%d, %d]: %w", secondBytes, info.Second.MinWriteBytes, info.Second.WritableBytes, ErrBadSecondResetSize)
	}

	if c.state == StateAllDataLoaded {
		// Always adds zero bytes.
	} else if c.state == StateHalfwayBuffer {
		if firstBytes != 0 {
			if !c.guestResident {
				dst := c.dataBuf[c.first.Bytes : c.first.Bytes+firstBytes]
				if err := c.mem.Read(c.first.Addr+c.first.Bytes, dst); err != nil {
					return fmt.Errorf("reset play position: %w", err)
				}
			}
			c.first.FileCursor += firstBytes
			c.first.Bytes += firstBytes
			c.first.Offset += firstBytes
		}

		if c.first.Bytes >= c.first.FileSize {
			c.first.Bytes = c.first.FileSize
			c.state = StateAllDataLoaded
		}
	} else {
		if info.First.FilePos > c.first.FileSize {
			return fmt.Errorf("reset play position: %w", ErrAPIFail)
		}

		c.first.FileCursor = info.First.FilePos

		if firstBytes != 0 {
			if !c.guestResident {
				dst := c.dataBuf[c.first.FileCursor : c.first.FileCursor+firstBytes]
				if err := c.mem.Read(c.first.Addr, dst); err != nil {
					return fmt.Errorf("reset play position: %w", err)
				}
			}
			c.first.FileCursor += firstBytes
		}
		c.first.Bytes = c.first.FileCursor
		c.first.Offset = firstBytes

		c.bufferHeaderSize = 0
		c.bufferPos = uint32(c.frameBytes)
		c.bufferValidBytes = firstBytes - c.bufferPos
	}

	if c.kind.Valid() {
		c.SeekToSample(sample)
	}

	c.writeMirror()
	return nil
}

// RemainingFrames reports how many whole frames are resident but not
// yet decoded, or one of the Remain sentinels when streaming has
// caught up with the file.
func (c *Context) RemainingFrames() int {
	if c.state == StateAllDataLoaded {
		return RemainAllDataLoaded
	}

	currentFileOffset := uint32(c.fileOffsetBySample(c.currentSample - c.samplesPerFrame() + c.firstOffsetExtra()))
	if c.first.FileCursor >= c.first.FileSize {
		if c.state == StateStreamedWithoutLoop {
			return RemainNonLoopStreamEnd
		}
		loopEndAdjusted := c.loopEnd - c.firstOffsetExtra() - c.firstSampleOffset
		if c.state.NeedsTrailer() && c.currentSample > loopEndAdjusted {
			// Past the loop, so no longer looping.
			return RemainNonLoopStreamEnd
		}
		if c.state.Streamed() && c.loopNum == 0 {
			return RemainLoopStreamEnd
		}
	}

	if c.state.Streamed() {
		return int(c.bufferValidBytes) / c.frameBytes
	}

	remainingBytes := int(c.first.FileCursor) - int(currentFileOffset)
	if remainingBytes < 0 {
		return 0
	}
	return remainingBytes / c.frameBytes
}

// consumeFrame advances the window cursor by one frame, wrapping at
// the end of the circular buffer. The header only pads the front until
// the first wrap.
func (c *Context) consumeFrame() {
	c.bufferPos += uint32(c.frameBytes)
	if c.state.Streamed() {
		if c.bufferValidBytes > uint32(c.frameBytes) {
			c.bufferValidBytes -= uint32(c.frameBytes)
		} else {
			c.bufferValidBytes = 0
		}
	}
	if end := c.streamBufferEnd(); c.bufferPos >= end {
		c.bufferPos -= end
		c.bufferHeaderSize = 0
	}
}
