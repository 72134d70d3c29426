// SPDX-License-Identifier: EPL-2.0

package utils

import "testing"

func TestAlignDown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v, step, want uint32
	}{
		{0, 384, 0},
		{383, 384, 0},
		{384, 384, 384},
		{1000, 384, 768},
	}

	for _, tt := range tests {
		if got := AlignDown(tt.v, tt.step); got != tt.want {
			t.Errorf("AlignDown(%d, %d) = %d, want %d", tt.v, tt.step, got, tt.want)
		}
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 1, -1, 32767, -32768, 100, -200}
	got := BytesToInt16LE(Int16ToBytesLE(samples))

	if len(got) != len(samples) {
		t.Fatalf("len = %d, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestBytesToInt16LE_OddTail(t *testing.T) {
	t.Parallel()

	got := BytesToInt16LE([]byte{0x34, 0x12, 0xff})
	if len(got) != 1 || got[0] != 0x1234 {
		t.Errorf("got %v, want [0x1234]", got)
	}
}
