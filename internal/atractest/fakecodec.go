// SPDX-License-Identifier: EPL-2.0

package atractest

import (
	"encoding/binary"
	"errors"

	"github.com/ik5/atracctx/codec"
)

// ErrDecodeFailed is what FakeCodec returns when armed to fail.
var ErrDecodeFailed = errors.New("fake decode failure")

// FakeCodec is a deterministic codec.Decoder. Every output sample
// carries the first byte of the frame that produced it, so tests can
// tell which frame ended up where. It counts calls, pre-roll feeds and
// flushes.
type FakeCodec struct {
	FrameBytes      int
	OutputChannels  int
	SamplesPerFrame int

	Calls        int
	PrerollCalls int
	Flushes      int
	FailNext     bool

	// FirstBytes records frame[0] of every Decode call, pre-rolls
	// included.
	FirstBytes []byte
}

func (f *FakeCodec) Decode(frame, pcm []byte) (int, int, error) {
	f.Calls++
	if f.FailNext {
		f.FailNext = false
		return 0, 0, ErrDecodeFailed
	}
	if len(frame) > 0 {
		f.FirstBytes = append(f.FirstBytes, frame[0])
	}
	if pcm == nil {
		f.PrerollCalls++
		return f.FrameBytes, 0, nil
	}

	want := f.SamplesPerFrame * f.OutputChannels * 2
	n := min(want, len(pcm)&^1)
	var tag uint16
	if len(frame) > 0 {
		tag = uint16(frame[0])
	}
	for i := 0; i < n; i += 2 {
		binary.LittleEndian.PutUint16(pcm[i:], tag)
	}
	return f.FrameBytes, n, nil
}

func (f *FakeCodec) Flush() { f.Flushes++ }

// Recorder hands out FakeCodec instances through a codec.Factory and
// remembers every decoder it created.
type Recorder struct {
	Created []*FakeCodec
}

func (r *Recorder) Factory() codec.Factory {
	return func(p codec.Params) (codec.Decoder, error) {
		fc := &FakeCodec{
			FrameBytes:      p.FrameBytes,
			OutputChannels:  2,
			SamplesPerFrame: p.Kind.SamplesPerFrame(),
		}
		r.Created = append(r.Created, fc)
		return fc, nil
	}
}

// Last returns the most recently created decoder, nil when none.
func (r *Recorder) Last() *FakeCodec {
	if len(r.Created) == 0 {
		return nil
	}
	return r.Created[len(r.Created)-1]
}

// Registry returns a codec registry with both kinds backed by r.
func (r *Recorder) Registry() *codec.Registry {
	reg := codec.NewRegistry()
	reg.Register(codec.KindATRAC3, r.Factory())
	reg.Register(codec.KindATRAC3Plus, r.Factory())
	return reg
}
