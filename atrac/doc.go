// SPDX-License-Identifier: EPL-2.0

// Package atrac implements the console's hardware audio-decoder
// context: the streaming buffer state machine, the per-frame decode
// engine, the guest-visible mirror structure and the versioned state
// snapshot.
//
// A Context tracks how much of a compressed container is resident in
// its streaming window, feeds one frame per Decode call to an external
// codec, applies loop transitions and reports playback state back to
// the guest. Frame alignment skew, loop pre-roll, partial-fill
// semantics and the trailer buffer all follow the hardware exactly;
// games observe and depend on each of them.
//
// # Lifecycle
//
//	ctx := atrac.NewContext(m, atrac.WithCodecs(reg))
//	if err := ctx.Analyze(addr, size); err != nil { ... }
//	if err := ctx.SetData(addr, size, bufferSize); err != nil { ... }
//	for {
//	    res, err := ctx.Decode(pcm)
//	    if errors.Is(err, atrac.ErrAllDataDecoded) {
//	        break
//	    }
//	    ...
//	}
//
// While streaming, the guest asks where to put the next chunk with
// CalculateStreamInfo, writes it, then calls AddStreamData.
//
// # Threading
//
// A Context is single-threaded and non-reentrant. The caller serializes
// access per audio handle; there is no internal locking.
//
// # Snapshots
//
// SaveState writes the whole context, raw buffer included, under the
// current schema version. LoadState accepts every schema back to 1,
// defaults fields that did not exist yet, discards fields that were
// later removed, and rebuilds the decoder from parameters.
package atrac
