// SPDX-License-Identifier: EPL-2.0

package atrac

import (
	"errors"
	"testing"

	"github.com/ik5/atracctx/mem"
)

const mirrorBase = testBase + 0x40000

func TestAttachMirror_BadAddress(t *testing.T) {
	t.Parallel()
	e := loaded(t, at3Fixture())

	err := e.ctx.AttachMirror(0xDEAD0000)
	if !errors.Is(err, mem.ErrBadAddress) {
		t.Errorf("AttachMirror() error = %v, want ErrBadAddress", err)
	}
}

func TestWriteMirror_Fields(t *testing.T) {
	t.Parallel()
	e := loaded(t, at3Fixture())
	if err := e.ctx.AttachMirror(mirrorBase); err != nil {
		t.Fatalf("AttachMirror() error = %v, want nil", err)
	}

	info := uint32(mirrorBase + mirrorInfoOff)
	u32 := func(off uint32) uint32 {
		t.Helper()
		v, err := mem.U32(e.m, info+off)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	if got := u32(infoEndSample); got != 2047+69 {
		t.Errorf("endSample = %d, want %d", got, 2047+69)
	}
	if got := u32(infoDataOff); got != 72 {
		t.Errorf("dataOff = %d, want 72", got)
	}
	if got := u32(infoDataEnd); got != uint32(len(e.file)) {
		t.Errorf("dataEnd = %d, want %d", got, len(e.file))
	}
	if got := u32(infoBuffer); got != testBase {
		t.Errorf("buffer = %#x, want %#x", got, testBase)
	}
	if got := u32(infoBufferByte); got != uint32(len(e.file)) {
		t.Errorf("bufferByte = %d, want %d", got, len(e.file))
	}
	// streamDataByte excludes the container header.
	if got := u32(infoStreamDataByte); got != uint32(len(e.file))-72 {
		t.Errorf("streamDataByte = %d, want %d", got, uint32(len(e.file))-72)
	}
	// No first-sample offset in the track, so samplesPerChan shows a
	// whole frame.
	if got := u32(infoSamplesPerChan); got != 1024 {
		t.Errorf("samplesPerChan = %d, want 1024", got)
	}

	var b [8]byte
	if err := e.m.Read(info+infoState, b[:7]); err != nil {
		t.Fatal(err)
	}
	if State(b[0]) != StateAllDataLoaded {
		t.Errorf("state byte = %d, want %d", b[0], StateAllDataLoaded)
	}
	if b[2] != 2 {
		t.Errorf("numChan = %d, want 2", b[2])
	}
	if got := uint16(b[3]) | uint16(b[4])<<8; got != 384 {
		t.Errorf("sampleSize = %d, want 384", got)
	}
	if got := uint16(b[5]) | uint16(b[6])<<8; got != 0x1001 {
		t.Errorf("codec = %#x, want 0x1001", got)
	}

	id, err := mem.U32(e.m, mirrorBase+mirrorIDOff)
	if err != nil {
		t.Fatal(err)
	}
	if id != 3 {
		t.Errorf("handle = %d, want 3", id)
	}
}

func TestWriteMirror_TracksDecode(t *testing.T) {
	t.Parallel()
	e := loaded(t, at3Fixture())
	if err := e.ctx.AttachMirror(mirrorBase); err != nil {
		t.Fatal(err)
	}

	pcm := make([]byte, 4096)
	if _, err := e.ctx.Decode(pcm); err != nil {
		t.Fatalf("Decode() error = %v, want nil", err)
	}

	// After 955 samples the decode position still sits inside the
	// first frame, at the skew.
	got, err := mem.U32(e.m, mirrorBase+mirrorInfoOff+infoDecodePos)
	if err != nil {
		t.Fatal(err)
	}
	if got != 69 {
		t.Errorf("decodePos = %d, want 69", got)
	}
}

func TestReadMirror(t *testing.T) {
	t.Parallel()
	e := loaded(t, at3Fixture())
	if err := e.ctx.AttachMirror(mirrorBase); err != nil {
		t.Fatal(err)
	}

	// Titles poke the state and loop count straight into the guest
	// structure; ReadMirror must honor both.
	info := uint32(mirrorBase + mirrorInfoOff)
	if err := e.m.Write(info+infoState, []byte{byte(StateForExternalMixer)}); err != nil {
		t.Fatal(err)
	}
	if err := mem.PutU32(e.m, info+infoLoopNum, ^uint32(0)); err != nil {
		t.Fatal(err)
	}

	if err := e.ctx.ReadMirror(); err != nil {
		t.Fatalf("ReadMirror() error = %v, want nil", err)
	}
	if e.ctx.State() != StateForExternalMixer {
		t.Errorf("State() = %v, want StateForExternalMixer", e.ctx.State())
	}
	if e.ctx.LoopNum() != -1 {
		t.Errorf("LoopNum() = %d, want -1", e.ctx.LoopNum())
	}
}
