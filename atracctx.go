// SPDX-License-Identifier: EPL-2.0

package atracctx

import (
	"fmt"
	"io"

	"github.com/ik5/atracctx/pcm"
)

// DrainPCM16 is a high-level convenience function that pulls every
// remaining sample out of a PCM source and collects the result as
// interleaved 16-bit PCM data.
//
// Parameters:
//   - src: The sample source to drain (implements pcm.Source)
//   - bufferSize: Size of the buffer for reading samples (e.g., 4096)
//     Larger buffers may be more efficient but use more memory
//
// Returns:
//   - []int16: Collected PCM values, channel-interleaved
//   - int: The stream's sample rate in Hz
//   - error: Any error encountered while reading
//
// Note: This is a convenience function for short tracks and tests. A
// long streamed track decoded this way holds all of its PCM in memory
// at once; read from the source incrementally instead when that
// matters.
//
// Example:
//
//	src, _ := pcm.NewContextSource(ctx, nil)
//	pcm16, rate, err := atracctx.DrainPCM16(src, 4096)
//	if err != nil {
//	    panic(err)
//	}
//	// pcm16 now holds the whole track at 44.1kHz
func DrainPCM16(src pcm.Source, bufferSize int) ([]int16, int, error) {
	if bufferSize <= 0 {
		bufferSize = 4096
	}

	var pcm16 []int16
	buf := make([]int16, bufferSize)

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			pcm16 = append(pcm16, buf[:n]...)
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, src.SampleRate(), fmt.Errorf("%w", err)
		}
	}

	return pcm16, src.SampleRate(), nil
}
