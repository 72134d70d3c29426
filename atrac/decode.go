// SPDX-License-Identifier: EPL-2.0

package atrac

// DecodeResult reports what one Decode call produced.
type DecodeResult struct {
	// Samples is how many samples per channel were written.
	Samples int
	// Finished means playback has just passed the final sample.
	Finished bool
	// Remaining is RemainingFrames after the decode.
	Remaining int
}

// GetNextSamples reports how many samples the next Decode call will
// produce. Frames hold a fixed sample count, so the first frame after
// the alignment skew and the frame after a loop are short.
func (c *Context) GetNextSamples() int {
	spf := uint32(c.samplesPerFrame())
	skipSamples := uint32(c.firstSampleOffset + c.firstOffsetExtra())
	firstSamples := (spf - skipSamples) % spf
	numSamples := uint32(c.endSample + 1 - c.currentSample)
	if c.currentSample == 0 && firstSamples != 0 {
		numSamples = firstSamples
	}
	unalignedSamples := (skipSamples + uint32(c.currentSample)) % spf
	if unalignedSamples != 0 {
		// Off alignment, possibly due to a loop. Force it back on.
		numSamples = spf - unalignedSamples
	}
	if numSamples > spf {
		numSamples = spf
	}
	if c.state == StateStreamedLoopFromEnd && int(numSamples)+c.currentSample > c.endSample {
		c.state = StateAllDataLoaded
	}
	return int(numSamples)
}

// ForceSeekToSample moves the playback position without priming the
// decoder. Used when the caller knows the decoder state is irrelevant.
func (c *Context) ForceSeekToSample(sample int) {
	if c.decoder != nil {
		c.decoder.Flush()
	}
	c.currentSample = sample
}

// SeekToSample moves the playback position and primes the decoder by
// feeding it the two frames before the target, so the overlap window
// carries real history.
func (c *Context) SeekToSample(sample int) {
	if (sample != c.currentSample || sample == 0) && c.decoder != nil {
		c.decoder.Flush()

		adjust := 0
		if sample == 0 {
			offsetSamples := c.firstSampleOffset + c.firstOffsetExtra()
			adjust = -(offsetSamples % c.samplesPerFrame())
		}
		off := uint32(c.fileOffsetBySample(sample + adjust))
		backfill := uint32(c.frameBytes) * 2
		start := off - backfill
		if off-c.dataOff < backfill {
			start = c.dataOff
		}

		for pos := start; pos < off; pos += uint32(c.frameBytes) {
			if frame := c.frameAt(pos); frame != nil {
				_, _, _ = c.decoder.Decode(frame, nil)
			}
		}
	}

	c.currentSample = sample
}

// Decode produces the next frame's samples into pcm as interleaved
// 16-bit little-endian words. pcm must hold a full frame, that is
// SamplesPerFrame times OutputChannels 16-bit samples. Returns
// ErrAllDataDecoded once playback has passed the end, which callers
// treat as completion rather than failure.
func (c *Context) Decode(pcm []byte) (DecodeResult, error) {
	loopNum := c.loopNum
	if c.state == StateForExternalMixer {
		// The mixer abuses loopNum as a voice number.
		loopNum = 0
	}

	// Many games check for the end condition explicitly.
	if c.currentSample >= c.endSample && loopNum == 0 {
		c.writeMirror()
		return DecodeResult{Finished: true}, ErrAllDataDecoded
	}

	numSamples := 0
	offsetSamples := c.firstSampleOffset + c.firstOffsetExtra()
	skipSamples := 0
	maxSamples := c.endSample + 1 - c.currentSample
	unalignedSamples := (offsetSamples + c.currentSample) % c.samplesPerFrame()
	if unalignedSamples != 0 {
		// Off alignment, possibly due to a loop. Force it back on.
		maxSamples = c.samplesPerFrame() - unalignedSamples
		skipSamples = unalignedSamples
	}

	if skipSamples != 0 && c.bufferHeaderSize == 0 {
		// Skip the bootstrap frame that only loads decoder state for
		// the looped frame.
		c.consumeFrame()
	}

	if c.kind.Valid() {
		c.SeekToSample(c.currentSample)

		gotFrame := false
		off := uint32(c.fileOffsetBySample(c.currentSample - skipSamples))
		if off < c.first.Bytes {
			frame := c.frameAt(off)
			if frame == nil {
				return DecodeResult{Finished: true}, ErrAllDataDecoded
			}
			_, outBytes, err := c.decoder.Decode(frame, pcm)
			if err != nil {
				return DecodeResult{Finished: true}, ErrAllDataDecoded
			}
			gotFrame = true

			numSamples = outBytes / (2 * c.outputChannels)
			skipped := min(skipSamples, numSamples)
			skipSamples -= skipped
			numSamples -= skipped
			// The codec always returns a full frame; clamp at the end.
			numSamples = min(maxSamples, numSamples)

			if skipped > 0 && numSamples > 0 {
				// Drop the skipped samples from the front of pcm.
				stride := 2 * c.outputChannels
				copy(pcm, pcm[skipped*stride:(skipped+numSamples)*stride])
			}
		}

		if !gotFrame && c.currentSample < c.endSample {
			// Dropped a frame somewhere. Provide a silent one so games
			// don't spin forever.
			if uint32(c.fileOffsetBySample(c.currentSample)) < c.first.FileSize {
				numSamples = min(maxSamples, c.samplesPerFrame())
				outBytes := numSamples * c.outputChannels * 2
				if pcm != nil {
					clear(pcm[:outBytes])
				}
			}
		}
	}

	c.currentSample += numSamples
	c.decodePos = c.decodePosBySample(c.currentSample)

	c.consumeFrame()

	finished := false
	hitEnd := c.currentSample >= c.endSample || (numSamples == 0 && c.first.Bytes >= c.first.FileSize)
	loopEndAdjusted := c.loopEnd - c.firstOffsetExtra() - c.firstSampleOffset
	if (hitEnd || c.currentSample > loopEndAdjusted) && loopNum != 0 {
		c.SeekToSample(c.loopStart - c.firstOffsetExtra() - c.firstSampleOffset)
		if c.state != StateForExternalMixer {
			if c.loopNum > 0 {
				c.loopNum--
			}
		}
		if c.state.Streamed() {
			// Whatever bytes remain were added from the loop. Move the
			// file cursor back unless the window already covers it.
			loopOffset := uint32(c.fileOffsetBySample(c.loopStart - c.firstOffsetExtra() - c.firstSampleOffset - c.samplesPerFrame()*2))
			if loopOffset > c.first.FileCursor || loopOffset+c.bufferValidBytes < c.first.FileCursor {
				c.first.FileCursor = loopOffset
			}
		}
	} else if hitEnd {
		finished = true

		// Move forward anyway so the position shows everything read.
		// The guest sees this through the mirror.
		c.currentSample += c.samplesPerFrame() - numSamples
	}

	res := DecodeResult{
		Samples:   numSamples,
		Finished:  finished,
		Remaining: c.RemainingFrames(),
	}
	c.writeMirror()
	return res, nil
}
