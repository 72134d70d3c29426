// SPDX-License-Identifier: EPL-2.0

// Package atractest builds container fixtures and fake collaborators
// for tests across the module.
package atractest

import (
	"bytes"
	"encoding/binary"
)

// RIFFParams describes a synthetic ATRAC RIFF/WAVE container.
type RIFFParams struct {
	Plus        bool // ATRAC3+ format tag instead of ATRAC3
	Channels    int
	FrameBytes  int
	DataBytes   int
	JointStereo bool

	// EndSample < 0 omits the fact chunk entirely.
	EndSample         int
	FirstSampleOffset int
	// SecondOffset >= 0 adds the third fact word (loop adjust source).
	SecondOffset int

	// Loops become a smpl chunk; each entry is {startSample, endSample}.
	Loops [][2]uint32

	// LeadingJunk prepends an unrelated RIFF chunk of that many payload
	// bytes before the WAVE form.
	LeadingJunk int

	// Data overrides the payload; nil fills with FramePattern.
	Data []byte
}

// BuildRIFF assembles the container bytes.
func BuildRIFF(p RIFFParams) []byte {
	buf := new(bytes.Buffer)

	if p.LeadingJunk > 0 {
		junk := p.LeadingJunk + (p.LeadingJunk & 1)
		buf.WriteString("RIFF")
		binary.Write(buf, binary.LittleEndian, uint32(p.LeadingJunk))
		buf.Write(make([]byte, junk))
	}

	body := new(bytes.Buffer)
	body.WriteString("WAVE")

	// fmt chunk
	fmtSize := 32
	fmtTag := uint16(0x0270)
	if p.Plus {
		fmtSize = 52
		fmtTag = 0xFFFE
	}
	fmtBody := make([]byte, fmtSize)
	binary.LittleEndian.PutUint16(fmtBody[0:], fmtTag)
	binary.LittleEndian.PutUint16(fmtBody[2:], uint16(p.Channels))
	binary.LittleEndian.PutUint32(fmtBody[4:], 44100)
	binary.LittleEndian.PutUint32(fmtBody[8:], 16384) // avg bytes/sec
	binary.LittleEndian.PutUint16(fmtBody[12:], uint16(p.FrameBytes))
	if p.JointStereo {
		binary.LittleEndian.PutUint32(fmtBody[24:], 1)
	}
	writeChunk(body, "fmt ", fmtBody)

	// fact chunk
	if p.EndSample >= 0 {
		factBody := new(bytes.Buffer)
		binary.Write(factBody, binary.LittleEndian, uint32(p.EndSample))
		if p.FirstSampleOffset != 0 || p.SecondOffset >= 0 {
			binary.Write(factBody, binary.LittleEndian, uint32(p.FirstSampleOffset))
		}
		if p.SecondOffset >= 0 {
			binary.Write(factBody, binary.LittleEndian, uint32(p.SecondOffset))
		}
		writeChunk(body, "fact", factBody.Bytes())
	}

	// smpl chunk
	if len(p.Loops) > 0 {
		smplBody := make([]byte, 36+24*len(p.Loops))
		binary.LittleEndian.PutUint32(smplBody[28:], uint32(len(p.Loops)))
		for i, lp := range p.Loops {
			off := 36 + 24*i
			binary.LittleEndian.PutUint32(smplBody[off+8:], lp[0])
			binary.LittleEndian.PutUint32(smplBody[off+12:], lp[1])
			binary.LittleEndian.PutUint32(smplBody[off+20:], 1) // play count
		}
		writeChunk(body, "smpl", smplBody)
	}

	// data chunk
	data := p.Data
	if data == nil {
		data = FramePattern(p.DataBytes/max(p.FrameBytes, 1)+1, max(p.FrameBytes, 1))[:p.DataBytes]
	}
	writeChunk(body, "data", data)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(body.Len()))
	buf.Write(body.Bytes())

	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, tag string, body []byte) {
	buf.WriteString(tag)
	binary.Write(buf, binary.LittleEndian, uint32(len(body)))
	buf.Write(body)
	if len(body)&1 != 0 {
		buf.WriteByte(0)
	}
}

// OMAParams describes a synthetic tag-wrapped container.
type OMAParams struct {
	Plus       bool
	FrameBytes int
	DataBytes  int
	TagSize    int
}

// BuildOMA assembles the container bytes. FrameBytes must be a multiple
// of 8 (the parameter word stores it divided by 8); for the "+" variant
// it additionally carries the +8 framing byte, which BuildOMA accounts
// for.
func BuildOMA(p OMAParams) []byte {
	buf := new(bytes.Buffer)

	buf.WriteString("ea3")
	buf.Write(make([]byte, 3))
	// 7-bit packed tag size, big-endian-ish
	buf.WriteByte(byte(p.TagSize >> 21 & 0x7F))
	buf.WriteByte(byte(p.TagSize >> 14 & 0x7F))
	buf.WriteByte(byte(p.TagSize >> 7 & 0x7F))
	buf.WriteByte(byte(p.TagSize & 0x7F))
	buf.Write(make([]byte, p.TagSize))

	inner := make([]byte, 96)
	inner[0], inner[1], inner[2] = 'E', 'A', '3'
	units := p.FrameBytes / 8
	if p.Plus {
		inner[32] = 1
		units = (p.FrameBytes - 8) / 8
	}
	// The parameter word is read as b35 | b34<<8 | b35<<16. Rate index
	// 1 (44100) sits in bits 13..15, frame units in bits 0..9, channel
	// count (for the "+" variant) in bits 10..12.
	inner[34] = 0x20 | byte(units>>8&0x03)
	inner[35] = byte(units)
	if p.Plus {
		inner[34] |= 2 << 2 // stereo
	}
	buf.Write(inner)

	buf.Write(FramePattern(p.DataBytes/max(p.FrameBytes, 1)+1, max(p.FrameBytes, 1))[:p.DataBytes])

	return buf.Bytes()
}

// FramePattern returns frames*frameBytes payload bytes where every byte
// of frame k holds k+1, so decoded output identifies its source frame.
func FramePattern(frames, frameBytes int) []byte {
	out := make([]byte, frames*frameBytes)
	for f := 0; f < frames; f++ {
		for i := 0; i < frameBytes; i++ {
			out[f*frameBytes+i] = byte(f + 1)
		}
	}
	return out
}
