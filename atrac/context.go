// SPDX-License-Identifier: EPL-2.0

package atrac

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ik5/atracctx/codec"
	"github.com/ik5/atracctx/compat"
	"github.com/ik5/atracctx/container"
	"github.com/ik5/atracctx/mem"
)

// OverAllocBytes pads the shadow copy of the file so a misbehaving
// bitstream cannot read past the end of the allocation.
const OverAllocBytes = 16384

// Buffer describes one guest-side data buffer and the context's
// bookkeeping over it. All fields are in bytes.
type Buffer struct {
	// Addr is the guest address of the buffer.
	Addr uint32
	// Bytes counts how much of the file has been supplied so far.
	Bytes uint32
	// FileSize is the total size of the backing file.
	FileSize uint32
	// Offset is the write cursor inside the buffer window.
	Offset uint32
	// FileCursor is the file offset the next supplied chunk comes from.
	FileCursor uint32
	// WritableBytes is the free span last announced to the guest.
	WritableBytes uint32
}

// StreamInfo tells the guest where to put the next chunk of the file.
type StreamInfo struct {
	// WritePos is the guest address to write at.
	WritePos uint32
	// WritableBytes is how much may be written there.
	WritableBytes uint32
	// ReadOffset is the file offset the chunk must come from.
	ReadOffset uint32
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithLogger routes the context's diagnostics to l.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Context) { c.log = l }
}

// WithCodecs uses reg to build decoders instead of an empty registry.
func WithCodecs(reg *codec.Registry) Option {
	return func(c *Context) { c.codecs = reg }
}

// WithFlags applies per-title compatibility flags.
func WithFlags(f compat.Flags) Option {
	return func(c *Context) { c.flags = f }
}

// WithID sets the guest-visible handle number.
func WithID(id int32) Option {
	return func(c *Context) { c.id = id }
}

// Context is one hardware decoder context. It is not safe for
// concurrent use.
type Context struct {
	mem    mem.Memory
	log    zerolog.Logger
	codecs *codec.Registry
	flags  compat.Flags

	id int32

	kind              codec.Kind
	channels          int
	outputChannels    int
	jointStereo       bool
	bitrate           int
	frameBytes        int
	firstSampleOffset int
	dataOff           uint32

	currentSample int
	endSample     int
	loopStart     int
	loopEnd       int
	loopNum       int
	loops         []container.LoopPoint

	first         Buffer
	second        Buffer
	bufferMaxSize uint32

	state State
	// guestResident means frames are read straight out of guest memory
	// instead of the shadow copy, so async loads into the buffer work.
	guestResident bool
	dataBuf       []byte
	decoder       codec.Decoder

	decodePos        uint32
	bufferPos        uint32
	bufferValidBytes uint32
	bufferHeaderSize uint32

	mirrorAddr uint32
}

// NewContext builds an empty context over m. Without WithCodecs the
// context can analyze containers but SetData will fail to build a
// decoder.
func NewContext(m mem.Memory, opts ...Option) *Context {
	c := &Context{
		mem:            m,
		log:            zerolog.Nop(),
		codecs:         codec.NewRegistry(),
		channels:       2,
		outputChannels: 2,
		endSample:      -1,
		loopStart:      -1,
		loopEnd:        -1,
		state:          StateNoData,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the guest-visible handle number.
func (c *Context) ID() int32 { return c.id }

// SetID changes the guest-visible handle number.
func (c *Context) SetID(id int32) { c.id = id }

// State returns the current buffer state.
func (c *Context) State() State { return c.state }

// Kind returns the codec of the bound track, zero before Analyze.
func (c *Context) Kind() codec.Kind { return c.kind }

// Channels returns the source channel count.
func (c *Context) Channels() int { return c.channels }

// OutputChannels returns how many channels Decode emits.
func (c *Context) OutputChannels() int { return c.outputChannels }

// SetOutputChannels overrides the decode output width. The external
// mixer uses this to force mono.
func (c *Context) SetOutputChannels(n int) { c.outputChannels = n }

// Bitrate returns the derived bitrate in kbps.
func (c *Context) Bitrate() int { return c.bitrate }

// FrameBytes returns the size of one compressed frame.
func (c *Context) FrameBytes() int { return c.frameBytes }

// CurrentSample returns the playback position in samples.
func (c *Context) CurrentSample() int { return c.currentSample }

// EndSample returns the last playable sample index.
func (c *Context) EndSample() int { return c.endSample }

// LoopNum returns the remaining loop count, -1 for infinite.
func (c *Context) LoopNum() int { return c.loopNum }

// LoopStart returns the raw loop start sample, -1 when unlooped.
func (c *Context) LoopStart() int { return c.loopStart }

// LoopEnd returns the raw loop end sample, -1 when unlooped.
func (c *Context) LoopEnd() int { return c.loopEnd }

// FileSize returns the total size of the bound file.
func (c *Context) FileSize() uint32 { return c.first.FileSize }

func (c *Context) samplesPerFrame() int { return c.kind.SamplesPerFrame() }

func (c *Context) firstOffsetExtra() int { return c.kind.FirstOffsetExtra() }

// streamBufferEnd is the usable end of the circular window. The window
// is a whole number of frames, not counting the header that occupies
// the front until the first wrap.
func (c *Context) streamBufferEnd() uint32 {
	framesAfterHeader := (c.bufferMaxSize - c.bufferHeaderSize) / uint32(c.frameBytes)
	return framesAfterHeader*uint32(c.frameBytes) + c.bufferHeaderSize
}

// fileOffsetBySample maps a playback sample to the file offset of the
// frame that produces it. Division truncates toward zero, which
// matters for the negative pre-roll positions used around loops.
func (c *Context) fileOffsetBySample(sample int) int {
	offsetSamples := sample + c.firstSampleOffset + c.firstOffsetExtra()
	return int(c.dataOff) + c.frameBytes + (offsetSamples/c.samplesPerFrame()-1)*c.frameBytes
}

// decodePosBySample maps a playback sample to the decoder's notion of
// position, aligned down to a frame boundary past the alignment skew.
func (c *Context) decodePosBySample(sample int) uint32 {
	spf := c.samplesPerFrame()
	return uint32(c.firstSampleOffset + c.firstOffsetExtra() + sample/spf*spf)
}

// CurBufferAddress returns the guest address of the frame at the
// current sample, shifted by adjust samples. Returns zero when the
// frame lives in the shadow copy instead of guest memory.
func (c *Context) CurBufferAddress(adjust int) uint32 {
	off := uint32(c.fileOffsetBySample(c.currentSample + adjust))
	if off < c.first.Bytes && c.guestResident {
		return c.first.Addr + off
	}
	return 0
}

// frameAt returns frameBytes of compressed data at file offset off,
// from guest memory or the shadow copy. Returns nil when the guest
// span cannot be read.
func (c *Context) frameAt(off uint32) []byte {
	if c.guestResident {
		b, err := mem.Bytes(c.mem, c.first.Addr+off, uint32(c.frameBytes))
		if err != nil {
			return nil
		}
		return b
	}
	if int(off)+c.frameBytes > len(c.dataBuf) {
		return nil
	}
	return c.dataBuf[off : int(off)+c.frameBytes]
}

// ResetData drops the decoder, the shadow copy and the mirror binding,
// returning the context to the no-data state. Track parameters from
// the last Analyze survive, which is what lets SetData follow.
func (c *Context) ResetData() {
	if c.decoder != nil {
		c.decoder.Flush()
	}
	c.decoder = nil
	c.dataBuf = nil
	c.guestResident = false
	c.state = StateNoData
	c.mirrorAddr = 0
}

// analyzeReset clears per-track fields before a fresh analysis.
func (c *Context) analyzeReset() {
	c.kind = 0
	c.currentSample = 0
	c.endSample = -1
	c.loopNum = 0
	c.loops = nil
	c.loopStart = -1
	c.loopEnd = -1
	c.decodePos = 0
	c.bufferPos = 0
	c.channels = 2
}

// applyTrack copies analyzer results into the context.
func (c *Context) applyTrack(t *container.Track) {
	c.kind = t.Kind
	c.channels = t.Channels
	c.jointStereo = t.JointStereo
	c.bitrate = t.Bitrate
	c.frameBytes = t.FrameBytes
	c.firstSampleOffset = t.FirstSampleOffset
	c.dataOff = t.DataOffset
	c.endSample = t.EndSample
	c.loopStart = t.LoopStart
	c.loopEnd = t.LoopEnd
	c.loops = t.Loops
	c.first.FileSize = t.FileSize
}

// Analyze parses a RIFF/WAVE container at addr and binds its track
// parameters to the context. The data itself is not bound until
// SetData.
func (c *Context) Analyze(addr, size uint32) error {
	c.first.Addr = addr
	c.first.Bytes = size
	c.analyzeReset()

	a := container.NewAnalyzer(c.mem, c.log)
	t, err := a.ParseRIFF(mem.Region{Addr: addr, Size: size})
	if err != nil {
		return err
	}
	c.applyTrack(t)
	c.updateBitrate()
	return nil
}

// AnalyzeOMA parses an OMA (ea3) container at addr and binds its track
// parameters to the context. fileSize is the logical size of the whole
// file, which may exceed the resident bytes while streaming.
func (c *Context) AnalyzeOMA(addr, size, fileSize uint32) error {
	c.first.Addr = addr
	c.first.Bytes = size
	c.analyzeReset()

	a := container.NewAnalyzer(c.mem, c.log)
	t, err := a.ParseOMA(mem.Region{Addr: addr, Size: size}, fileSize)
	if err != nil {
		return err
	}
	c.applyTrack(t)
	c.updateBitrate()
	return nil
}

// updateBufferState classifies the buffer by size against the file and
// by loop shape. Only meaningful once track parameters are known.
func (c *Context) updateBufferState() {
	if c.bufferMaxSize >= c.first.FileSize {
		if c.first.Bytes < c.first.FileSize {
			c.state = StateHalfwayBuffer
		} else {
			c.state = StateAllDataLoaded
		}
	} else {
		if c.loopEnd <= 0 {
			c.state = StateStreamedWithoutLoop
		} else if c.loopEnd == c.endSample+c.firstSampleOffset+c.firstOffsetExtra() {
			c.state = StateStreamedLoopFromEnd
		} else {
			c.state = StateStreamedLoopWithTrailer
		}
	}
}

// updateBitrate derives the guest-visible kbps figure from the frame
// size, with the codec-specific rounding the hardware uses.
func (c *Context) updateBitrate() {
	c.bitrate = (c.frameBytes * 352800) / 1000
	if c.kind == codec.KindATRAC3Plus {
		c.bitrate = ((c.bitrate >> 11) + 8) & 0xFFFFFFF0
	} else {
		c.bitrate = (c.bitrate + 511) >> 10
	}
}

// createDecoder builds a fresh decoder from the current parameters.
func (c *Context) createDecoder() error {
	p := codec.Params{
		Kind:       c.kind,
		Channels:   c.channels,
		FrameBytes: c.frameBytes,
	}
	if c.kind == codec.KindATRAC3 {
		// Built here rather than pulled from the container so OMA
		// works the same way.
		p.Extra = codec.Atrac3Extra(c.channels, c.jointStereo)
	}
	dec, err := c.codecs.New(p)
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	c.decoder = dec
	return nil
}

// SetData binds the analyzed file's data. The guest has written
// readSize bytes of the file into a buffer of bufferSize bytes at
// addr. This classifies the buffer, takes a shadow copy when
// streaming, and builds the decoder.
func (c *Context) SetData(addr, readSize, bufferSize uint32) error {
	c.first.Addr = addr
	c.first.Bytes = readSize
	if c.first.Bytes > c.first.FileSize {
		c.first.Bytes = c.first.FileSize
	}
	c.first.FileCursor = c.first.Bytes

	c.bufferMaxSize = bufferSize
	c.first.Offset = c.first.Bytes

	// A handle may be reused for a new sound.
	c.ResetData()
	c.updateBufferState()

	if !c.kind.Valid() {
		c.state = StateNoData
		return fmt.Errorf("set data: %w", container.ErrUnknownFormat)
	}

	if c.state == StateAllDataLoaded || c.state == StateHalfwayBuffer {
		// The whole buffer stays put, so read frames from guest memory
		// directly. Games load the rest of a halfway buffer async.
		c.guestResident = true
	}
	if c.state.Streamed() {
		c.bufferHeaderSize = c.dataOff
		c.bufferPos = c.dataOff + uint32(c.frameBytes)
		c.bufferValidBytes = c.first.Bytes - c.bufferPos
	}

	c.dataBuf = make([]byte, c.first.FileSize+OverAllocBytes)
	if !c.guestResident {
		copyBytes := min(bufferSize, c.first.FileSize)
		if err := c.mem.Read(addr, c.dataBuf[:copyBytes]); err != nil {
			return fmt.Errorf("set data: %w", err)
		}
	}
	c.decodePos = 0
	if err := c.createDecoder(); err != nil {
		return err
	}

	c.log.Info().
		Stringer("codec", c.kind).
		Int("channels", c.channels).
		Stringer("state", c.state).
		Msg("data set")
	return nil
}

// SetSecondBuffer attaches the loop trailer buffer. Only valid for a
// loop whose end precedes the end of the file.
func (c *Context) SetSecondBuffer(addr, size uint32) error {
	secondFileOffset := uint32(c.fileOffsetBySample(c.loopEnd - c.firstSampleOffset))
	desiredSize := c.first.FileSize - secondFileOffset

	// Three frames is the minimum needed to play through a loop.
	if size < desiredSize && size < uint32(c.frameBytes)*3 {
		return fmt.Errorf("second buffer %d < %d: %w", size, desiredSize, ErrSecondBufferTooSmall)
	}
	if !c.state.NeedsTrailer() {
		return ErrSecondBufferNotNeeded
	}

	c.second.Addr = addr
	c.second.Bytes = size
	c.second.FileCursor = secondFileOffset
	return nil
}

// SetLoopNum sets the remaining loop count, -1 for infinite. Setting a
// count on an unlooped track makes the whole track the loop body.
func (c *Context) SetLoopNum(n int) {
	c.loopNum = n
	if n != 0 && len(c.loops) == 0 {
		c.loopStart = c.firstSampleOffset + c.firstOffsetExtra()
		c.loopEnd = c.endSample + c.firstSampleOffset + c.firstOffsetExtra()
	}
	c.writeMirror()
}

// InitLowLevel configures the context for raw frame-at-a-time decoding
// with no container. The parameter block at paramsAddr holds channel
// count, output channel count and frame size as three words.
func (c *Context) InitLowLevel(kind codec.Kind, paramsAddr uint32) error {
	if !kind.Valid() {
		return fmt.Errorf("init low level: %w", container.ErrUnknownFormat)
	}
	c.kind = kind

	channels, err := mem.U32(c.mem, paramsAddr)
	if err != nil {
		return fmt.Errorf("init low level: %w", err)
	}
	outputChannels, err := mem.U32(c.mem, paramsAddr+4)
	if err != nil {
		return fmt.Errorf("init low level: %w", err)
	}
	frameBytes, err := mem.U32(c.mem, paramsAddr+8)
	if err != nil {
		return fmt.Errorf("init low level: %w", err)
	}
	c.channels = int(channels)
	c.outputChannels = int(outputChannels)
	c.bufferMaxSize = frameBytes
	c.frameBytes = int(c.bufferMaxSize)
	c.first.WritableBytes = uint32(c.frameBytes)
	c.ResetData()

	c.updateBitrate()
	c.jointStereo = false

	c.dataOff = 0
	c.first.Bytes = 0
	c.first.FileSize = uint32(c.frameBytes)
	c.state = StateLowLevel
	c.currentSample = 0
	c.decodePos = 0
	if err := c.createDecoder(); err != nil {
		return err
	}
	c.writeMirror()
	return nil
}

// DecodeLowLevel decodes one raw frame from guest memory into pcm.
// Returns the bytes written. The context must be in the low-level
// state.
func (c *Context) DecodeLowLevel(frameAddr uint32, pcm []byte) (int, error) {
	if c.state != StateLowLevel {
		return 0, ErrNoData
	}
	frame, err := mem.Bytes(c.mem, frameAddr, uint32(c.frameBytes))
	if err != nil {
		return 0, fmt.Errorf("decode low level: %w", err)
	}
	_, written, err := c.decoder.Decode(frame, pcm)
	if err != nil {
		return 0, fmt.Errorf("decode low level: %w", ErrDecodeFault)
	}
	return written, nil
}
