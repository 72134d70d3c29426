// SPDX-License-Identifier: EPL-2.0

// Package pcm adapts a decoder context to a pull-style sample stream.
//
// A Source hands out interleaved signed 16-bit samples the way the
// hardware emits them, hiding the context's frame granularity behind
// an internal buffer. It is the bridge between the emulation core and
// anything that thinks in samples: mixers, exporters, test harnesses.
package pcm

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/atracctx/atrac"
	"github.com/ik5/atracctx/utils"
)

// SampleRate is the only rate the hardware decodes.
const SampleRate = 44100

// Source is a pull-style stream of interleaved 16-bit PCM.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved samples. Returns the
	// number of int16 values written (not frames). When n == 0 with
	// err == io.EOF, the stream is finished.
	ReadSamples(dst []int16) (n int, err error)

	// Close releases any resources.
	Close() error
}

// Feeder streams more compressed data into a context between decodes.
// It is called whenever the next frame may not be resident yet.
type Feeder func(*atrac.Context) error

// ContextSource drives an atrac.Context one frame at a time and
// buffers the decoded samples.
type ContextSource struct {
	ctx  *atrac.Context
	feed Feeder

	frame   []byte
	pending []int16
	done    bool
}

// NewContextSource wraps ctx. The context must have data bound
// already. feed may be nil when the whole file is resident; a
// streamed context needs one to keep the window full.
func NewContextSource(ctx *atrac.Context, feed Feeder) (*ContextSource, error) {
	if ctx.State() == atrac.StateNoData {
		return nil, atrac.ErrNoData
	}
	spf := ctx.Kind().SamplesPerFrame()
	return &ContextSource{
		ctx:   ctx,
		feed:  feed,
		frame: make([]byte, spf*ctx.OutputChannels()*2),
	}, nil
}

// SampleRate implements Source.
func (s *ContextSource) SampleRate() int { return SampleRate }

// Channels implements Source.
func (s *ContextSource) Channels() int { return s.ctx.OutputChannels() }

// ReadSamples implements Source.
func (s *ContextSource) ReadSamples(dst []int16) (int, error) {
	filled := 0
	for filled < len(dst) {
		if len(s.pending) == 0 {
			if s.done {
				break
			}
			if err := s.decodeFrame(); err != nil {
				if errors.Is(err, io.EOF) {
					s.done = true
					break
				}
				return filled, err
			}
		}
		n := copy(dst[filled:], s.pending)
		s.pending = s.pending[n:]
		filled += n
	}
	if filled == 0 && s.done {
		return 0, io.EOF
	}
	return filled, nil
}

func (s *ContextSource) decodeFrame() error {
	if s.feed != nil && s.ctx.State().Streamed() {
		if err := s.feed(s.ctx); err != nil {
			return fmt.Errorf("feed stream: %w", err)
		}
	}

	res, err := s.ctx.Decode(s.frame)
	if err != nil {
		if errors.Is(err, atrac.ErrAllDataDecoded) {
			return io.EOF
		}
		return fmt.Errorf("decode frame: %w", err)
	}
	if res.Samples == 0 && !res.Finished {
		// A dry streaming window with nobody feeding it would spin.
		return atrac.ErrBufferEmpty
	}
	s.pending = utils.BytesToInt16LE(s.frame[:res.Samples*s.ctx.OutputChannels()*2])
	if res.Finished {
		s.done = true
	}
	return nil
}

// Close implements Source. The underlying context stays usable; only
// the buffered samples are dropped.
func (s *ContextSource) Close() error {
	s.pending = nil
	s.done = true
	return nil
}
