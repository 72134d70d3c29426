// SPDX-License-Identifier: EPL-2.0

// Package codec defines the contract between the audio context and the
// perceptual decoder it drives.
//
// The decoder itself is an external collaborator: this module never
// looks inside the bitstream. It hands the decoder one fixed-size
// frame at a time and consumes interleaved 16-bit PCM back.
//
// # Decoder Contract
//
// A Decoder consumes exactly one compressed frame per Decode call:
//
//	consumed, written, err := dec.Decode(frame, pcmOut)
//
// consumed is the number of frame bytes eaten, written the number of
// PCM bytes produced. Calling Decode with a nil pcmOut feeds the frame
// for its side effect only (warming up inter-frame prediction state
// before a seek). Flush drops all internal prediction state.
//
// # Kinds
//
// Kind carries the guest-visible codec identifier. The two accepted
// kinds differ in frame geometry:
//
//   - ATRAC3: 1024 samples per frame, 69 samples of encoder skew
//   - ATRAC3+: 2048 samples per frame, 368 samples of encoder skew
//
// # Registry
//
// Decoder construction goes through a Registry of factories so the
// context stays decoupled from any concrete implementation:
//
//	reg := codec.NewRegistry()
//	reg.Register(codec.KindATRAC3Plus, myFactory)
//	dec, err := reg.New(codec.Params{Kind: codec.KindATRAC3Plus, ...})
package codec
