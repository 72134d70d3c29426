// SPDX-License-Identifier: EPL-2.0

// Package atracctx emulates the decode context of the PSP's ATRAC3 and
// ATRAC3+ hardware audio path: container analysis, the circular
// streaming buffer, frame-by-frame playback, loop handling, and the
// guest-visible context mirror.
//
// # Layout
//
// The module is split the way the hardware splits its concerns:
//   - atrac holds the decode context itself (state machine, streaming
//     window, seek and loop logic, snapshots)
//   - container parses RIFF/WAVE and OMA/AA3 headers into track
//     parameters
//   - codec is the pluggable frame-decoder registry
//   - mem abstracts guest memory so the core runs against an emulator
//     bus or a plain in-process buffer
//   - pcm adapts a context to a pull-style sample stream
//   - export writes decoded streams to WAV files
//
// # Quick Start
//
// Bind a fully resident track and drain it to PCM:
//
//	m := mem.NewSim(0x08800000, 16<<20)
//	m.Write(0x08800000, fileBytes)
//
//	ctx := atrac.NewContext(m, atrac.WithCodecs(registry))
//	if err := ctx.Analyze(0x08800000, uint32(len(fileBytes))); err != nil {
//	    return err
//	}
//	if err := ctx.SetData(0x08800000, uint32(len(fileBytes)), uint32(len(fileBytes))); err != nil {
//	    return err
//	}
//
//	src, _ := pcm.NewContextSource(ctx, nil)
//	samples, rate, err := atracctx.DrainPCM16(src, 4096)
//
// # Streaming
//
// Tracks larger than their buffer run in a streamed state. The caller
// refills the circular window between decodes; CalculateStreamInfo
// says where the next bytes go and AddStreamData commits them. The
// pcm package accepts a Feeder callback that does exactly this.
//
// # Snapshots
//
// A context serializes to a versioned snapshot and restores from any
// schema version ever shipped. See atrac.SaveState and
// atrac.LoadState.
//
// See the individual subpackages for more detailed documentation.
package atracctx
