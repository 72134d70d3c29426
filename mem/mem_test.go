// SPDX-License-Identifier: EPL-2.0

package mem

import (
	"errors"
	"testing"
)

func TestSim_ReadWriteRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewSim(0x1000, 64)

	src := []byte{1, 2, 3, 4}
	if err := m.Write(0x1010, src); err != nil {
		t.Fatalf("Write() error = %v, want nil", err)
	}

	dst := make([]byte, 4)
	if err := m.Read(0x1010, dst); err != nil {
		t.Fatalf("Read() error = %v, want nil", err)
	}

	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("dst[%d] = %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestSim_OutOfRange(t *testing.T) {
	t.Parallel()

	m := NewSim(0x1000, 16)

	tests := []struct {
		name string
		addr uint32
		n    int
	}{
		{"below base", 0x0ff0, 4},
		{"past end", 0x1010, 1},
		{"straddles end", 0x100e, 4},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := m.Read(tt.addr, make([]byte, tt.n))
			if !errors.Is(err, ErrBadAddress) {
				t.Errorf("Read() error = %v, want ErrBadAddress", err)
			}

			err = m.Write(tt.addr, make([]byte, tt.n))
			if !errors.Is(err, ErrBadAddress) {
				t.Errorf("Write() error = %v, want ErrBadAddress", err)
			}
		})
	}
}

func TestU32_LittleEndian(t *testing.T) {
	t.Parallel()

	m := NewSim(0, 8)
	if err := m.Write(0, []byte{0x52, 0x49, 0x46, 0x46}); err != nil {
		t.Fatal(err)
	}

	v, err := U32(m, 0)
	if err != nil {
		t.Fatalf("U32() error = %v, want nil", err)
	}
	if v != 0x46464952 {
		t.Errorf("U32() = %#x, want 0x46464952", v)
	}
}

func TestRegion_Valid(t *testing.T) {
	t.Parallel()

	m := NewSim(0x1000, 32)

	tests := []struct {
		name   string
		region Region
		want   bool
	}{
		{"inside", Region{0x1000, 32}, true},
		{"empty at base", Region{0x1000, 0}, true},
		{"last byte out", Region{0x1000, 33}, false},
		{"unmapped", Region{0x2000, 4}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.region.Valid(m); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
