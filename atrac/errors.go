// SPDX-License-Identifier: EPL-2.0

package atrac

import (
	"errors"
	"time"

	"github.com/ik5/atracctx/container"
	"github.com/ik5/atracctx/mem"
)

var (
	// ErrNoData means no container has been bound to the context yet.
	ErrNoData = errors.New("context has no data")

	// ErrAllDataDecoded is returned by Decode once playback has passed
	// the final sample. It is a terminal condition, not a fault.
	ErrAllDataDecoded = errors.New("all data decoded")

	// ErrAllDataLoaded is returned by AddStreamData when the entire
	// file is already resident and nothing more can be appended.
	ErrAllDataLoaded = errors.New("all data already loaded")

	// ErrAddDataTooBig means an AddStreamData count exceeds the
	// writable span announced by CalculateStreamInfo.
	ErrAddDataTooBig = errors.New("stream data exceeds writable bytes")

	// ErrBadSample means a seek or reset target is outside the track.
	ErrBadSample = errors.New("sample position out of range")

	// ErrBadFirstResetSize means the first-buffer byte count passed to
	// ResetPlayPosition is outside the range GetResetBufferInfo allows.
	ErrBadFirstResetSize = errors.New("first buffer reset size out of range")

	// ErrBadSecondResetSize is the second-buffer counterpart.
	ErrBadSecondResetSize = errors.New("second buffer reset size out of range")

	// ErrSecondBufferNeeded means a trailer context cannot continue
	// past its loop end until a second buffer is attached. The context
	// never produces it itself; the guest dispatch layer raises it and
	// ResultCode maps it.
	ErrSecondBufferNeeded = errors.New("second buffer needed")

	// ErrSecondBufferNotNeeded means SetSecondBuffer was called on a
	// context whose loop configuration has no trailer.
	ErrSecondBufferNotNeeded = errors.New("second buffer not needed")

	// ErrSecondBufferTooSmall means the trailer buffer does not cover
	// the span from the loop end to the end of the file.
	ErrSecondBufferTooSmall = errors.New("second buffer too small")

	// ErrBufferEmpty means Decode has no complete frame resident.
	// The guest is expected to stream more data and retry.
	ErrBufferEmpty = errors.New("buffer is empty")

	// ErrDecodeFault reports a codec failure on a resident frame.
	ErrDecodeFault = errors.New("frame decode failed")

	// ErrAPIFail reports a transient internal inconsistency between the
	// tracked file cursor and the decode position. The guest retries
	// after APIFailDelay.
	ErrAPIFail = errors.New("api fail, retry later")
)

// APIFailDelay is how long a caller should wait before retrying an
// operation that returned ErrAPIFail.
const APIFailDelay = 200 * time.Microsecond

// Guest-visible result codes, as the hardware driver reports them.
const (
	codeAPIFail              = 0x80630002
	codeInvalidCodec         = 0x80630004
	codeBadID                = 0x80630005
	codeUnknownFormat        = 0x80630006
	codeBadCodecParams       = 0x80630007
	codeAllDataLoaded        = 0x80630009
	codeNoData               = 0x80630010
	codeSizeTooSmall         = 0x80630011
	codeSecondBufferNeeded   = 0x80630012
	codeBadSample            = 0x80630015
	codeBadFirstResetSize    = 0x80630016
	codeBadSecondResetSize   = 0x80630017
	codeAddDataTooBig        = 0x80630018
	codeSecondBufferNotNeed  = 0x80630022
	codeBufferEmpty          = 0x80630023
	codeAllDataDecoded       = 0x80630024
	codeBadAddress           = 0x80630025
	codeAA3SizeTooSmall      = 0x80631003
	codeAA3InvalidData       = 0x80631004
)

// ResultCode translates an error from this package, or from the
// container analyzers, into the numeric code the guest expects.
// nil maps to zero. Unrecognized errors map to the generic API
// failure code.
func ResultCode(err error) uint32 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrAllDataDecoded):
		return codeAllDataDecoded
	case errors.Is(err, ErrAllDataLoaded):
		return codeAllDataLoaded
	case errors.Is(err, ErrNoData):
		return codeNoData
	case errors.Is(err, ErrAddDataTooBig):
		return codeAddDataTooBig
	case errors.Is(err, ErrBadSample):
		return codeBadSample
	case errors.Is(err, ErrBadFirstResetSize):
		return codeBadFirstResetSize
	case errors.Is(err, ErrBadSecondResetSize):
		return codeBadSecondResetSize
	case errors.Is(err, ErrSecondBufferNeeded):
		return codeSecondBufferNeeded
	case errors.Is(err, ErrSecondBufferNotNeeded):
		return codeSecondBufferNotNeed
	case errors.Is(err, ErrSecondBufferTooSmall):
		return codeSizeTooSmall
	case errors.Is(err, ErrBufferEmpty):
		return codeBufferEmpty
	case errors.Is(err, container.ErrTooSmall):
		return codeSizeTooSmall
	case errors.Is(err, container.ErrUnknownFormat):
		return codeUnknownFormat
	case errors.Is(err, container.ErrBadCodecParams):
		return codeBadCodecParams
	case errors.Is(err, container.ErrInvalidAddress),
		errors.Is(err, mem.ErrBadAddress):
		return codeBadAddress
	case errors.Is(err, container.ErrOMATooSmall):
		return codeAA3SizeTooSmall
	case errors.Is(err, container.ErrOMAInvalidData):
		return codeAA3InvalidData
	default:
		return codeAPIFail
	}
}
