// SPDX-License-Identifier: EPL-2.0

package atrac

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/atracctx/codec"
	"github.com/ik5/atracctx/container"
)

// SnapshotVersion is the schema SaveState writes. LoadState accepts
// every schema from 1 up to this.
const SnapshotVersion = 9

var snapshotMagic = [4]byte{'A', 'T', 'R', 'X'}

// ErrSnapshot reports a malformed or unsupported snapshot stream.
var ErrSnapshot = fmt.Errorf("bad snapshot")

// fieldWriter serializes little-endian fields with a sticky error, so
// the save path reads as a flat field list.
type fieldWriter struct {
	w   io.Writer
	err error
}

func (fw *fieldWriter) u8(v uint8) {
	if fw.err != nil {
		return
	}
	_, fw.err = fw.w.Write([]byte{v})
}

func (fw *fieldWriter) boolean(v bool) {
	if v {
		fw.u8(1)
	} else {
		fw.u8(0)
	}
}

func (fw *fieldWriter) u32(v uint32) {
	if fw.err != nil {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, fw.err = fw.w.Write(b[:])
}

func (fw *fieldWriter) i32(v int) { fw.u32(uint32(int32(v))) }

func (fw *fieldWriter) bytes(b []byte) {
	if fw.err != nil {
		return
	}
	_, fw.err = fw.w.Write(b)
}

func (fw *fieldWriter) buffer(b *Buffer) {
	fw.u32(b.Addr)
	fw.u32(b.Bytes)
	fw.u32(b.FileSize)
	fw.u32(b.Offset)
	fw.u32(b.FileCursor)
	fw.u32(b.WritableBytes)
}

func (fw *fieldWriter) loops(loops []container.LoopPoint) {
	fw.i32(len(loops))
	for i := range loops {
		lp := &loops[i]
		fw.u32(lp.CuePointID)
		fw.u32(lp.Type)
		fw.u32(lp.StartSample)
		fw.u32(lp.EndSample)
		fw.u32(lp.Fraction)
		fw.u32(lp.PlayCount)
	}
}

// fieldReader is the mirror of fieldWriter.
type fieldReader struct {
	r   io.Reader
	err error
}

func (fr *fieldReader) u8() uint8 {
	if fr.err != nil {
		return 0
	}
	var b [1]byte
	if _, err := io.ReadFull(fr.r, b[:]); err != nil {
		fr.err = err
		return 0
	}
	return b[0]
}

func (fr *fieldReader) boolean() bool { return fr.u8() != 0 }

func (fr *fieldReader) u32() uint32 {
	if fr.err != nil {
		return 0
	}
	var b [4]byte
	if _, err := io.ReadFull(fr.r, b[:]); err != nil {
		fr.err = err
		return 0
	}
	return binary.LittleEndian.Uint32(b[:])
}

func (fr *fieldReader) i32() int { return int(int32(fr.u32())) }

func (fr *fieldReader) bytes(b []byte) {
	if fr.err != nil {
		return
	}
	if _, err := io.ReadFull(fr.r, b); err != nil {
		fr.err = err
	}
}

func (fr *fieldReader) buffer(b *Buffer) {
	b.Addr = fr.u32()
	b.Bytes = fr.u32()
	b.FileSize = fr.u32()
	b.Offset = fr.u32()
	b.FileCursor = fr.u32()
	b.WritableBytes = fr.u32()
}

func (fr *fieldReader) loops() []container.LoopPoint {
	n := fr.i32()
	if fr.err != nil || n <= 0 {
		return nil
	}
	loops := make([]container.LoopPoint, n)
	for i := range loops {
		lp := &loops[i]
		lp.CuePointID = fr.u32()
		lp.Type = fr.u32()
		lp.StartSample = fr.u32()
		lp.EndSample = fr.u32()
		lp.Fraction = fr.u32()
		lp.PlayCount = fr.u32()
	}
	return loops
}

// SaveState serializes the whole context, raw file copy included,
// under the current schema.
func (c *Context) SaveState(w io.Writer) error {
	return c.saveState(w, SnapshotVersion)
}

// saveState writes an explicit schema version. Older schemas exist so
// tests can exercise the upgrade paths; production saves always use
// the current one.
func (c *Context) saveState(w io.Writer, version int) error {
	fw := &fieldWriter{w: w}
	fw.bytes(snapshotMagic[:])
	fw.u32(uint32(version))

	fw.i32(c.channels)
	fw.i32(c.outputChannels)
	if version >= 5 {
		fw.boolean(c.jointStereo)
	}

	fw.i32(int(c.id))
	fw.buffer(&c.first)
	fw.u32(c.bufferMaxSize)
	fw.u32(uint32(c.kind))

	fw.i32(c.currentSample)
	fw.i32(c.endSample)
	fw.i32(c.firstSampleOffset)
	if version >= 3 {
		fw.u32(c.dataOff)
	}

	hasDataBuf := c.dataBuf != nil
	fw.boolean(hasDataBuf)
	if hasDataBuf {
		fw.bytes(c.dataBuf[:c.first.FileSize])
	}
	fw.buffer(&c.second)

	fw.u32(c.decodePos)
	if version < 9 {
		fw.u32(0) // removed decode-end field
	}
	if version >= 4 {
		fw.u32(c.bufferPos)
	}

	fw.i32(c.bitrate)
	fw.i32(c.frameBytes)

	fw.loops(c.loops)
	if version < 9 {
		fw.i32(42) // removed loop-count field
	}

	fw.i32(c.loopStart)
	fw.i32(c.loopEnd)
	fw.i32(c.loopNum)

	fw.u32(c.mirrorAddr)
	if version >= 6 {
		fw.u8(uint8(c.state))
	}
	if version >= 7 {
		fw.boolean(c.guestResident)
	}
	if version >= 9 {
		fw.u32(c.bufferValidBytes)
		fw.u32(c.bufferHeaderSize)
	}
	if version >= 2 && version < 9 {
		fw.boolean(false) // removed reset-buffer flag
	}

	if fw.err != nil {
		return fmt.Errorf("save state: %w", fw.err)
	}
	return nil
}

// LoadState restores a context from any schema back to 1. Fields a
// schema predates get their historical defaults, removed fields are
// consumed and discarded, and the decoder is rebuilt from parameters.
func (c *Context) LoadState(r io.Reader) error {
	fr := &fieldReader{r: r}

	var magic [4]byte
	fr.bytes(magic[:])
	if fr.err == nil && magic != snapshotMagic {
		return fmt.Errorf("%w: bad magic %q", ErrSnapshot, magic[:])
	}
	version := int(fr.u32())
	if fr.err == nil && (version < 1 || version > SnapshotVersion) {
		return fmt.Errorf("%w: unsupported version %d", ErrSnapshot, version)
	}
	if fr.err != nil {
		return fmt.Errorf("load state: %w", fr.err)
	}

	c.channels = fr.i32()
	c.outputChannels = fr.i32()
	if version >= 5 {
		c.jointStereo = fr.boolean()
	}

	c.id = int32(fr.i32())
	fr.buffer(&c.first)
	c.bufferMaxSize = fr.u32()
	c.kind = codec.Kind(fr.u32())

	c.currentSample = fr.i32()
	c.endSample = fr.i32()
	c.firstSampleOffset = fr.i32()
	if version >= 3 {
		c.dataOff = fr.u32()
	} else {
		c.dataOff = uint32(c.firstSampleOffset)
	}

	hasDataBuf := fr.boolean()
	if hasDataBuf && fr.err == nil {
		c.dataBuf = make([]byte, c.first.FileSize+OverAllocBytes)
		fr.bytes(c.dataBuf[:c.first.FileSize])
	} else {
		c.dataBuf = nil
	}
	fr.buffer(&c.second)

	c.decodePos = fr.u32()
	if version < 9 {
		_ = fr.u32() // removed decode-end field
	}
	if version >= 4 {
		c.bufferPos = fr.u32()
	} else {
		c.bufferPos = c.decodePos
	}

	c.bitrate = fr.i32()
	c.frameBytes = fr.i32()

	c.loops = fr.loops()
	if version < 9 {
		_ = fr.i32() // removed loop-count field
	}

	c.loopStart = fr.i32()
	c.loopEnd = fr.i32()
	c.loopNum = fr.i32()

	c.mirrorAddr = fr.u32()
	if version >= 6 {
		c.state = State(fr.u8())
	} else {
		if c.dataBuf == nil {
			c.state = StateNoData
		} else {
			c.updateBufferState()
		}
	}

	if version >= 7 {
		c.guestResident = fr.boolean()
	} else {
		c.guestResident = false
	}

	if version >= 9 {
		c.bufferValidBytes = fr.u32()
		c.bufferHeaderSize = fr.u32()
	} else {
		c.bufferHeaderSize = c.dataOff
		if c.frameBytes > 0 {
			c.bufferValidBytes = min(c.first.Bytes-c.dataOff, c.streamBufferEnd()-c.dataOff)
		}
		if c.state.Streamed() {
			c.bufferPos = c.dataOff
		}
	}

	if version < 8 && c.state == StateStreamedLoopWithTrailer && !c.flags.KeepLegacyTrailerState {
		// Trailer buffers could not be attached that far back; degrade
		// to a plain end loop and play it as best we can.
		c.state = StateStreamedLoopFromEnd
		c.log.Info().Msg("remapped legacy trailer loop state")
	}

	if version >= 2 && version < 9 {
		_ = fr.boolean() // removed reset-buffer flag
	}

	if fr.err != nil {
		return fmt.Errorf("load state: %w", fr.err)
	}

	// Late, since it depends on frame size and channel count.
	if c.state != StateNoData {
		if err := c.createDecoder(); err != nil {
			return err
		}
	}
	return nil
}
