// SPDX-License-Identifier: EPL-2.0

package codec

import (
	"errors"
	"testing"
)

type nopDecoder struct{}

func (nopDecoder) Decode(frame, pcm []byte) (int, int, error) { return len(frame), 0, nil }
func (nopDecoder) Flush()                                     {}

func TestKind_FrameGeometry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind            Kind
		samplesPerFrame int
		extra           int
		name            string
	}{
		{KindATRAC3, 1024, 69, "atrac3"},
		{KindATRAC3Plus, 2048, 368, "atrac3+"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.kind.SamplesPerFrame(); got != tt.samplesPerFrame {
				t.Errorf("SamplesPerFrame() = %d, want %d", got, tt.samplesPerFrame)
			}
			if got := tt.kind.FirstOffsetExtra(); got != tt.extra {
				t.Errorf("FirstOffsetExtra() = %d, want %d", got, tt.extra)
			}
			if got := tt.kind.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if !tt.kind.Valid() {
				t.Error("Valid() = false, want true")
			}
		})
	}

	if Kind(0).Valid() {
		t.Error("Kind(0).Valid() = true, want false")
	}
}

func TestRegistry_New(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(KindATRAC3, func(p Params) (Decoder, error) {
		return nopDecoder{}, nil
	})

	if _, err := reg.New(Params{Kind: KindATRAC3}); err != nil {
		t.Errorf("New(registered) error = %v, want nil", err)
	}

	_, err := reg.New(Params{Kind: KindATRAC3Plus})
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("New(unregistered) error = %v, want ErrUnknownKind", err)
	}
}

func TestAtrac3Extra(t *testing.T) {
	t.Parallel()

	extra := Atrac3Extra(2, true)
	if len(extra) != 14 {
		t.Fatalf("len = %d, want 14", len(extra))
	}
	if extra[0] != 1 || extra[10] != 1 {
		t.Error("fixed bytes not set")
	}
	if extra[3] != 2<<3 {
		t.Errorf("channel byte = %d, want %d", extra[3], 2<<3)
	}
	if extra[6] != 1 || extra[8] != 1 {
		t.Error("joint stereo bytes not set")
	}

	mono := Atrac3Extra(1, false)
	if mono[6] != 0 || mono[8] != 0 {
		t.Error("joint stereo bytes set for non-joint stream")
	}
}
