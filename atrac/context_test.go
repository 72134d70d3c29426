// SPDX-License-Identifier: EPL-2.0

package atrac

import (
	"errors"
	"testing"

	"github.com/ik5/atracctx/codec"
	"github.com/ik5/atracctx/container"
	"github.com/ik5/atracctx/internal/atractest"
	"github.com/ik5/atracctx/mem"
)

const testBase = 0x10000

// testEnv wires a context over simulated memory with the fixture
// container written at testBase.
type testEnv struct {
	m    *mem.Sim
	rec  *atractest.Recorder
	ctx  *Context
	file []byte
}

func newEnv(t *testing.T, p atractest.RIFFParams) *testEnv {
	t.Helper()
	e := &testEnv{
		m:    mem.NewSim(testBase, 1<<20),
		rec:  &atractest.Recorder{},
		file: atractest.BuildRIFF(p),
	}
	e.ctx = NewContext(e.m, WithCodecs(e.rec.Registry()), WithID(3))
	if err := e.m.Write(testBase, e.file); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return e
}

func (e *testEnv) analyze(t *testing.T) {
	t.Helper()
	if err := e.ctx.Analyze(testBase, uint32(len(e.file))); err != nil {
		t.Fatalf("Analyze() error = %v, want nil", err)
	}
}

func (e *testEnv) setData(t *testing.T, readSize, bufferSize uint32) {
	t.Helper()
	if err := e.ctx.SetData(testBase, readSize, bufferSize); err != nil {
		t.Fatalf("SetData(%d, %d) error = %v, want nil", readSize, bufferSize, err)
	}
}

// at3Fixture is a plain six frame track: 384 byte frames, a fact chunk
// declaring 2048 samples, data at offset 72, 2376 bytes in total.
func at3Fixture() atractest.RIFFParams {
	return atractest.RIFFParams{
		Channels:     2,
		FrameBytes:   384,
		DataBytes:    6 * 384,
		EndSample:    2048,
		SecondOffset: -1,
	}
}

// streamedFixture is twenty frames of the same shape, large enough
// that a small buffer forces streaming.
func streamedFixture() atractest.RIFFParams {
	p := at3Fixture()
	p.DataBytes = 20 * 384
	return p
}

func TestAnalyze_TrackParameters(t *testing.T) {
	t.Parallel()
	e := newEnv(t, at3Fixture())
	e.analyze(t)

	c := e.ctx
	if c.Kind() != codec.KindATRAC3 {
		t.Errorf("Kind() = %v, want %v", c.Kind(), codec.KindATRAC3)
	}
	if c.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", c.Channels())
	}
	if c.FrameBytes() != 384 {
		t.Errorf("FrameBytes() = %d, want 384", c.FrameBytes())
	}
	if c.EndSample() != 2047 {
		t.Errorf("EndSample() = %d, want 2047", c.EndSample())
	}
	if c.dataOff != 72 {
		t.Errorf("dataOff = %d, want 72", c.dataOff)
	}
	if got, want := c.FileSize(), uint32(len(e.file)); got != want {
		t.Errorf("FileSize() = %d, want %d", got, want)
	}
	// 384 byte frames decode to 132 kbps after hardware rounding.
	if c.Bitrate() != 132 {
		t.Errorf("Bitrate() = %d, want 132", c.Bitrate())
	}
}

func TestAnalyze_LoopPastEnd(t *testing.T) {
	t.Parallel()
	p := at3Fixture()
	p.Loops = [][2]uint32{{0, 100000}}
	e := newEnv(t, p)

	err := e.ctx.Analyze(testBase, uint32(len(e.file)))
	if !errors.Is(err, container.ErrBadCodecParams) {
		t.Fatalf("Analyze() error = %v, want ErrBadCodecParams", err)
	}

	// A failed analysis leaves no codec bound, so SetData must refuse
	// and the context must stay out of a playable state.
	err = e.ctx.SetData(testBase, uint32(len(e.file)), uint32(len(e.file)))
	if !errors.Is(err, container.ErrUnknownFormat) {
		t.Fatalf("SetData() error = %v, want ErrUnknownFormat", err)
	}
	if e.ctx.State() != StateNoData {
		t.Errorf("State() = %v, want StateNoData", e.ctx.State())
	}
}

func TestSetData_States(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		params     atractest.RIFFParams
		readOf     func(fileSize uint32) uint32
		bufferOf   func(fileSize uint32) uint32
		want       State
		wantShadow bool
	}{
		{
			name:     "whole file resident",
			params:   at3Fixture(),
			readOf:   func(fs uint32) uint32 { return fs },
			bufferOf: func(fs uint32) uint32 { return fs },
			want:     StateAllDataLoaded,
		},
		{
			name:     "buffer fits but part supplied",
			params:   at3Fixture(),
			readOf:   func(fs uint32) uint32 { return fs / 2 },
			bufferOf: func(fs uint32) uint32 { return fs },
			want:     StateHalfwayBuffer,
		},
		{
			name:       "small buffer no loop",
			params:     streamedFixture(),
			readOf:     func(uint32) uint32 { return 2000 },
			bufferOf:   func(uint32) uint32 { return 2000 },
			want:       StateStreamedWithoutLoop,
			wantShadow: true,
		},
		{
			name: "small buffer loop at end",
			params: func() atractest.RIFFParams {
				p := streamedFixture()
				p.Loops = [][2]uint32{{0, 2047}}
				return p
			}(),
			readOf:     func(uint32) uint32 { return 2000 },
			bufferOf:   func(uint32) uint32 { return 2000 },
			want:       StateStreamedLoopFromEnd,
			wantShadow: true,
		},
		{
			name: "small buffer loop with trailer",
			params: func() atractest.RIFFParams {
				p := streamedFixture()
				p.Loops = [][2]uint32{{0, 1000}}
				return p
			}(),
			readOf:     func(uint32) uint32 { return 2000 },
			bufferOf:   func(uint32) uint32 { return 2000 },
			want:       StateStreamedLoopWithTrailer,
			wantShadow: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t, tt.params)
			e.analyze(t)
			fs := uint32(len(e.file))
			e.setData(t, tt.readOf(fs), tt.bufferOf(fs))

			if e.ctx.State() != tt.want {
				t.Errorf("State() = %v, want %v", e.ctx.State(), tt.want)
			}
			if e.ctx.guestResident == tt.wantShadow {
				t.Errorf("guestResident = %v, want %v", e.ctx.guestResident, !tt.wantShadow)
			}
			if e.rec.Last() == nil {
				t.Error("no decoder was created")
			}
		})
	}
}

func TestSetData_StreamedWindow(t *testing.T) {
	t.Parallel()
	e := newEnv(t, streamedFixture())
	e.analyze(t)
	e.setData(t, 2000, 2000)

	c := e.ctx
	if c.bufferHeaderSize != c.dataOff {
		t.Errorf("bufferHeaderSize = %d, want %d", c.bufferHeaderSize, c.dataOff)
	}
	if want := c.dataOff + 384; c.bufferPos != want {
		t.Errorf("bufferPos = %d, want %d", c.bufferPos, want)
	}
	if want := 2000 - c.bufferPos; c.bufferValidBytes != want {
		t.Errorf("bufferValidBytes = %d, want %d", c.bufferValidBytes, want)
	}
	// The shadow copy holds the resident prefix of the file.
	for i, b := range e.file[:2000] {
		if c.dataBuf[i] != b {
			t.Fatalf("dataBuf[%d] = %#x, want %#x", i, c.dataBuf[i], b)
		}
	}
}

func TestSetSecondBuffer(t *testing.T) {
	t.Parallel()

	p := streamedFixture()
	p.Loops = [][2]uint32{{0, 1000}}
	e := newEnv(t, p)
	e.analyze(t)
	e.setData(t, 2000, 2000)
	if !e.ctx.State().NeedsTrailer() {
		t.Fatalf("State() = %v, want trailer state", e.ctx.State())
	}

	if err := e.ctx.SetSecondBuffer(testBase+0x8000, 100); !errors.Is(err, ErrSecondBufferTooSmall) {
		t.Errorf("SetSecondBuffer(small) error = %v, want ErrSecondBufferTooSmall", err)
	}

	// Three frames is enough even when it does not reach the file end.
	if err := e.ctx.SetSecondBuffer(testBase+0x8000, 3*384); err != nil {
		t.Fatalf("SetSecondBuffer() error = %v, want nil", err)
	}
	if e.ctx.second.Addr != testBase+0x8000 {
		t.Errorf("second.Addr = %#x, want %#x", e.ctx.second.Addr, testBase+0x8000)
	}
	if e.ctx.second.Bytes != 3*384 {
		t.Errorf("second.Bytes = %d, want %d", e.ctx.second.Bytes, 3*384)
	}
}

func TestSetSecondBuffer_NotNeeded(t *testing.T) {
	t.Parallel()
	e := newEnv(t, at3Fixture())
	e.analyze(t)
	e.setData(t, uint32(len(e.file)), uint32(len(e.file)))

	err := e.ctx.SetSecondBuffer(testBase+0x8000, 1<<16)
	if !errors.Is(err, ErrSecondBufferNotNeeded) {
		t.Errorf("SetSecondBuffer() error = %v, want ErrSecondBufferNotNeeded", err)
	}
}

func TestSetLoopNum_WholeTrackLoop(t *testing.T) {
	t.Parallel()
	e := newEnv(t, at3Fixture())
	e.analyze(t)
	e.setData(t, uint32(len(e.file)), uint32(len(e.file)))

	e.ctx.SetLoopNum(2)

	if e.ctx.LoopNum() != 2 {
		t.Errorf("LoopNum() = %d, want 2", e.ctx.LoopNum())
	}
	// No loop chunk in the container, so the whole track becomes the
	// loop body, in skew-shifted sample coordinates.
	if want := 0 + 69; e.ctx.LoopStart() != want {
		t.Errorf("LoopStart() = %d, want %d", e.ctx.LoopStart(), want)
	}
	if want := 2047 + 69; e.ctx.LoopEnd() != want {
		t.Errorf("LoopEnd() = %d, want %d", e.ctx.LoopEnd(), want)
	}
}

func TestInitLowLevel(t *testing.T) {
	t.Parallel()
	m := mem.NewSim(testBase, 1<<16)
	rec := &atractest.Recorder{}
	ctx := NewContext(m, WithCodecs(rec.Registry()))

	paramsAddr := uint32(testBase + 0x100)
	for i, v := range []uint32{2, 1, 512} {
		if err := mem.PutU32(m, paramsAddr+uint32(4*i), v); err != nil {
			t.Fatal(err)
		}
	}

	if err := ctx.InitLowLevel(codec.KindATRAC3Plus, paramsAddr); err != nil {
		t.Fatalf("InitLowLevel() error = %v, want nil", err)
	}

	if ctx.State() != StateLowLevel {
		t.Errorf("State() = %v, want StateLowLevel", ctx.State())
	}
	if ctx.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", ctx.Channels())
	}
	if ctx.OutputChannels() != 1 {
		t.Errorf("OutputChannels() = %d, want 1", ctx.OutputChannels())
	}
	if ctx.FrameBytes() != 512 {
		t.Errorf("FrameBytes() = %d, want 512", ctx.FrameBytes())
	}
	if ctx.Bitrate() != 96 {
		t.Errorf("Bitrate() = %d, want 96", ctx.Bitrate())
	}

	// One raw frame in, one frame of samples out.
	frameAddr := uint32(testBase + 0x800)
	if err := m.Write(frameAddr, atractest.FramePattern(1, 512)); err != nil {
		t.Fatal(err)
	}
	pcm := make([]byte, 2048*2*2)
	written, err := ctx.DecodeLowLevel(frameAddr, pcm)
	if err != nil {
		t.Fatalf("DecodeLowLevel() error = %v, want nil", err)
	}
	if written == 0 {
		t.Error("DecodeLowLevel() wrote no bytes")
	}
	if rec.Last().Calls != 1 {
		t.Errorf("decoder calls = %d, want 1", rec.Last().Calls)
	}
}

func TestResultCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want uint32
	}{
		{nil, 0},
		{ErrAllDataDecoded, codeAllDataDecoded},
		{ErrAddDataTooBig, codeAddDataTooBig},
		{container.ErrTooSmall, codeSizeTooSmall},
		{container.ErrOMAInvalidData, codeAA3InvalidData},
		{errors.New("anything else"), codeAPIFail},
	}
	for _, tt := range tests {
		if got := ResultCode(tt.err); got != tt.want {
			t.Errorf("ResultCode(%v) = %#x, want %#x", tt.err, got, tt.want)
		}
	}
}
