// SPDX-License-Identifier: EPL-2.0

package atrac

// State describes how a context's compressed data is resident. The
// numeric values are guest-visible through the mirror structure and
// persist in snapshots, so they can never be renumbered.
type State uint8

const (
	// StateNoData means the context exists but nothing is bound yet.
	StateNoData State = 1
	// StateAllDataLoaded means the entire file sits in the first buffer.
	StateAllDataLoaded State = 2
	// StateHalfwayBuffer means the buffer could hold the whole file but
	// the guest has only supplied a prefix so far.
	StateHalfwayBuffer State = 3
	// StateStreamedWithoutLoop means a circular window over an unlooped
	// file.
	StateStreamedWithoutLoop State = 4
	// StateStreamedLoopFromEnd means a circular window over a file that
	// loops from its very end.
	StateStreamedLoopFromEnd State = 5
	// StateStreamedLoopWithTrailer means the loop ends before the file
	// does, so the post-loop tail lives in a second buffer.
	StateStreamedLoopWithTrailer State = 6
	// StateLowLevel means raw frame-at-a-time decoding with no
	// container.
	StateLowLevel State = 8
	// StateForExternalMixer means the context is owned by the external
	// software mixer, which manages its streaming itself.
	StateForExternalMixer State = 16
)

// stateStreamedMask is set on every streaming variant.
const stateStreamedMask = 4

// Streamed reports whether s is one of the circular-window states.
func (s State) Streamed() bool {
	return s&stateStreamedMask != 0
}

// NeedsTrailer reports whether playback requires a second buffer for
// the data past the loop end.
func (s State) NeedsTrailer() bool {
	return s == StateStreamedLoopWithTrailer
}

func (s State) String() string {
	switch s {
	case StateNoData:
		return "no data"
	case StateAllDataLoaded:
		return "all data loaded"
	case StateHalfwayBuffer:
		return "halfway buffer"
	case StateStreamedWithoutLoop:
		return "streamed without loop"
	case StateStreamedLoopFromEnd:
		return "streamed, loop from end"
	case StateStreamedLoopWithTrailer:
		return "streamed, loop with trailer"
	case StateLowLevel:
		return "low level"
	case StateForExternalMixer:
		return "external mixer"
	default:
		return "unknown"
	}
}
