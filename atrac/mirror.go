// SPDX-License-Identifier: EPL-2.0

package atrac

import (
	"fmt"

	"github.com/ik5/atracctx/mem"
)

// MirrorSize is the size of the guest-visible context structure. The
// first half is codec scratch space the context never touches; the
// info block starts at mirrorInfoOff.
const MirrorSize = 256

const (
	mirrorInfoOff = 0x80

	infoDecodePos      = 0  // u32
	infoEndSample      = 4  // u32
	infoLoopStart      = 8  // u32
	infoLoopEnd        = 12 // u32
	infoSamplesPerChan = 16 // u32
	infoNumFrame       = 20 // u8
	infoState          = 21 // u8
	infoNumChan        = 23 // u8
	infoSampleSize     = 24 // u16
	infoCodec          = 26 // u16
	infoDataOff        = 28 // u32
	infoCurOff         = 32 // u32
	infoDataEnd        = 36 // u32
	infoLoopNum        = 40 // i32
	infoStreamDataByte = 44 // u32
	infoBuffer         = 56 // u32
	infoSecondBuffer   = 60 // u32
	infoBufferByte     = 64 // u32
	infoSecondBufByte  = 68 // u32

	mirrorIDOff = 0xFC
)

// AttachMirror binds a guest-memory region that the context keeps in
// sync after every state change, so titles that peek at the raw
// structure see what the hardware would show.
func (c *Context) AttachMirror(addr uint32) error {
	r := mem.Region{Addr: addr, Size: MirrorSize}
	if !r.Valid(c.mem) {
		return fmt.Errorf("attach mirror: %w", mem.ErrBadAddress)
	}
	c.mirrorAddr = addr
	return c.WriteMirror()
}

// MirrorAddr returns the bound mirror address, zero when unbound.
func (c *Context) MirrorAddr() uint32 { return c.mirrorAddr }

// writeMirror refreshes the mirror if one is bound. State-changing
// operations call this; failures are diagnostics, not errors, because
// the guest may have unmapped the region.
func (c *Context) writeMirror() {
	if c.mirrorAddr == 0 {
		return
	}
	if err := c.WriteMirror(); err != nil {
		c.log.Debug().Err(err).Uint32("addr", c.mirrorAddr).Msg("mirror write failed")
	}
}

// WriteMirror writes the full guest-visible view of the context.
func (c *Context) WriteMirror() error {
	if c.mirrorAddr == 0 {
		return fmt.Errorf("write mirror: %w", mem.ErrBadAddress)
	}
	info := c.mirrorAddr + mirrorInfoOff

	samplesPerChan := c.samplesPerFrame()
	if c.firstSampleOffset != 0 {
		samplesPerChan = c.firstSampleOffset + c.firstOffsetExtra()
	}

	words := []struct {
		off uint32
		v   uint32
	}{
		{infoDecodePos, c.decodePosBySample(c.currentSample)},
		{infoEndSample, uint32(c.endSample + c.firstSampleOffset + c.firstOffsetExtra())},
		{infoLoopStart, uint32(max(c.loopStart, 0))},
		{infoLoopEnd, uint32(max(c.loopEnd, 0))},
		{infoSamplesPerChan, uint32(samplesPerChan)},
		{infoDataOff, c.dataOff},
		{infoCurOff, c.first.FileCursor},
		{infoDataEnd, c.first.FileSize},
		{infoLoopNum, uint32(int32(c.loopNum))},
		{infoStreamDataByte, c.first.Bytes - c.dataOff},
		{infoBuffer, c.first.Addr},
		{infoSecondBuffer, c.second.Addr},
		{infoBufferByte, c.bufferMaxSize},
		{infoSecondBufByte, c.second.Bytes},
	}
	for _, w := range words {
		if err := mem.PutU32(c.mem, info+w.off, w.v); err != nil {
			return fmt.Errorf("write mirror: %w", err)
		}
	}

	// state, one unused byte, channel count, then the u16 frame size
	// and codec id. numFrame at offset 20 stays zero.
	small := []byte{
		byte(c.state),
		0,
		byte(c.channels),
		byte(c.frameBytes), byte(c.frameBytes >> 8),
		byte(c.kind), byte(uint32(c.kind) >> 8),
	}
	if err := c.mem.Write(info+infoState, small); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}

	if err := mem.PutU32(c.mem, c.mirrorAddr+mirrorIDOff, uint32(c.id)); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	return nil
}

// ReadMirror pulls back the fields titles are known to change in
// place: the buffer state and the loop count. Some titles abuse
// loopNum to stash a voice number.
func (c *Context) ReadMirror() error {
	if c.mirrorAddr == 0 {
		return fmt.Errorf("read mirror: %w", mem.ErrBadAddress)
	}
	info := c.mirrorAddr + mirrorInfoOff

	var b [1]byte
	if err := c.mem.Read(info+infoState, b[:]); err != nil {
		return fmt.Errorf("read mirror: %w", err)
	}
	c.state = State(b[0])

	loopNum, err := mem.U32(c.mem, info+infoLoopNum)
	if err != nil {
		return fmt.Errorf("read mirror: %w", err)
	}
	c.loopNum = int(int32(loopNum))
	return nil
}
