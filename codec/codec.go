// SPDX-License-Identifier: EPL-2.0

package codec

import "sync"

// Kind is the guest-visible codec identifier.
type Kind uint32

const (
	// KindATRAC3Plus is the "+" codec variant.
	KindATRAC3Plus Kind = 0x1000
	// KindATRAC3 is the base codec.
	KindATRAC3 Kind = 0x1001
)

// Valid reports whether k is one of the two accepted codecs.
func (k Kind) Valid() bool {
	return k == KindATRAC3 || k == KindATRAC3Plus
}

// SamplesPerFrame returns the fixed PCM yield of one compressed frame.
func (k Kind) SamplesPerFrame() int {
	if k == KindATRAC3Plus {
		return 2048
	}
	return 1024
}

// FirstOffsetExtra returns the encoder delay the hardware adds on top
// of the container's first-sample offset.
func (k Kind) FirstOffsetExtra() int {
	if k == KindATRAC3Plus {
		return 368
	}
	return 69
}

func (k Kind) String() string {
	switch k {
	case KindATRAC3:
		return "atrac3"
	case KindATRAC3Plus:
		return "atrac3+"
	}
	return "unknown"
}

// Params carries everything needed to (re)construct a decoder. Decoders
// are never persisted; a context rebuilds one from Params whenever they
// change or after a snapshot restore.
type Params struct {
	Kind       Kind
	Channels   int
	FrameBytes int
	// Extra is a codec-specific parameter block. For the base codec it
	// encodes the joint-stereo configuration, see Atrac3Extra.
	Extra []byte
}

// Decoder decodes one compressed frame per call.
type Decoder interface {
	// Decode consumes one frame and writes interleaved little-endian
	// 16-bit PCM into pcm. A nil pcm feeds the frame without output,
	// used to warm up prediction state before a seek.
	Decode(frame []byte, pcm []byte) (consumed, written int, err error)
	// Flush drops all internal prediction state.
	Flush()
}

// Factory constructs a Decoder from Params.
type Factory func(Params) (Decoder, error)

// Registry maps codec kinds to decoder factories.
type Registry struct {
	factories map[Kind]Factory

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Kind]Factory),
		mtx:       &sync.Mutex{},
	}
}

func (r *Registry) Register(kind Kind, f Factory) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.factories[kind] = f
}

func (r *Registry) Get(kind Kind) (Factory, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	f, ok := r.factories[kind]
	return f, ok
}

// New constructs a decoder for p.Kind using the registered factory.
func (r *Registry) New(p Params) (Decoder, error) {
	f, ok := r.Get(p.Kind)
	if !ok {
		return nil, ErrUnknownKind
	}
	return f(p)
}

// Atrac3Extra builds the 14-byte parameter block the base codec wants.
// Only the joint-stereo values vary between containers.
func Atrac3Extra(channels int, jointStereo bool) []byte {
	js := byte(0)
	if jointStereo {
		js = 1
	}
	extra := make([]byte, 14)
	extra[0] = 1
	extra[3] = byte(channels) << 3
	extra[6] = js
	extra[8] = js
	extra[10] = 1
	return extra
}
