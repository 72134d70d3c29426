// SPDX-License-Identifier: EPL-2.0

package utils

import "encoding/binary"

// BytesToInt16LE converts interleaved little-endian 16-bit PCM bytes
// into samples. A trailing odd byte is dropped.
func BytesToInt16LE(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// Int16ToBytesLE converts samples into interleaved little-endian 16-bit
// PCM bytes.
func Int16ToBytesLE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
