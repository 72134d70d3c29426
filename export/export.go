// SPDX-License-Identifier: EPL-2.0

// Package export writes decoded audio out of the emulation core as
// standard WAV files, mainly for debugging and fidelity comparisons
// against real hardware captures.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/atracctx/pcm"
)

// chunkValues is how many int16 values are pulled per encoder write.
const chunkValues = 8192

// WriteWAV16 drains src and writes it as 16-bit PCM WAV. The writer
// must be seekable because the header carries sizes only known at the
// end.
func WriteWAV16(w io.WriteSeeker, src pcm.Source) error {
	enc := wav.NewEncoder(w, src.SampleRate(), 16, src.Channels(), 1)

	buf := make([]int16, chunkValues)
	ints := make([]int, chunkValues)
	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			for i := 0; i < n; i++ {
				ints[i] = int(buf[i])
			}
			ib := &audio.IntBuffer{
				Format: &audio.Format{
					NumChannels: src.Channels(),
					SampleRate:  src.SampleRate(),
				},
				Data:           ints[:n],
				SourceBitDepth: 16,
			}
			if werr := enc.Write(ib); werr != nil {
				return fmt.Errorf("encode wav: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read samples: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}

// DumpWAV16 writes src to a new file at path.
func DumpWAV16(path string, src pcm.Source) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteWAV16(f, src); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
