// SPDX-License-Identifier: EPL-2.0

// Package container parses the two compressed-audio containers the
// console accepts out of emulated guest memory.
//
// Both parsers are tolerant the way the real firmware is: they walk
// past unrelated leading chunks, round odd chunk sizes up, and widen a
// declared file size that a data chunk overruns instead of failing.
// Validation failures return sentinel errors from errors.go; the
// caller maps them to guest result codes.
//
// # RIFF/WAVE
//
// ParseRIFF scans a RIFF/WAVE container for the `fmt `, `fact`, `smpl`
// and `data` chunks and derives the static codec parameters and loop
// metadata:
//
//	a := container.NewAnalyzer(m, log)
//	track, err := a.ParseRIFF(mem.Region{Addr: addr, Size: size})
//
// # OMA
//
// ParseOMA handles the tag-wrapped proprietary container: a 3-byte
// magic, a variable-length leading header (7 bits per byte, 4 bytes),
// and a fixed-offset codec-parameter block.
//
// # Output
//
// Both parsers return a Track holding everything the playback engine
// needs: codec kind, channel layout, frame size, first-sample offset,
// data-chunk location, end sample and loop points. A Track is static;
// streaming state lives elsewhere.
package container
