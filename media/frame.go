// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"fmt"
	"time"
)

// AudioFrame is one decoded audio buffer.
// Data is interleaved signed 16 bit little endian PCM.
//
// Frames delivered by a track are only valid during the callback. Use Clone
// to keep one.
type AudioFrame struct {
	Data          []byte
	SampleRate    int
	NumChannels   int
	SampleCount   int // per channel
	BitsPerSample int

	// Timestamp is RTP timestamp of the packet frame was decoded from
	Timestamp uint32
}

// NewAudioFrame wraps 16 bit PCM and calculates sample count from data length
func NewAudioFrame(lpcm []byte, sampleRate int, numChannels int) AudioFrame {
	numChannels = max(numChannels, 1)
	return AudioFrame{
		Data:          lpcm,
		SampleRate:    sampleRate,
		NumChannels:   numChannels,
		SampleCount:   len(lpcm) / (2 * numChannels),
		BitsPerSample: 16,
	}
}

func (f *AudioFrame) String() string {
	return fmt.Sprintf("rate=%d channels=%d samples=%d bits=%d ts=%d", f.SampleRate, f.NumChannels, f.SampleCount, f.BitsPerSample, f.Timestamp)
}

func (f *AudioFrame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.SampleCount) * time.Second / time.Duration(f.SampleRate)
}

// Clone creates a deep copy of the frame
func (f *AudioFrame) Clone() *AudioFrame {
	clone := *f
	if f.Data != nil {
		clone.Data = make([]byte, len(f.Data))
		copy(clone.Data, f.Data)
	}
	return &clone
}

// IsSilent reports whether all samples are zero
func (f *AudioFrame) IsSilent() bool {
	for _, b := range f.Data {
		if b != 0 {
			return false
		}
	}
	return true
}

// SameFormat compares everything except content and timestamp
func (f *AudioFrame) SameFormat(o *AudioFrame) bool {
	return f.SampleRate == o.SampleRate &&
		f.NumChannels == o.NumChannels &&
		f.SampleCount == o.SampleCount &&
		f.BitsPerSample == o.BitsPerSample &&
		len(f.Data) == len(o.Data)
}

// SilenceInto fills dst with silent frame matching f format and duration.
// Buffer of dst is reused when large enough.
func (f *AudioFrame) SilenceInto(dst *AudioFrame) {
	buf := dst.Data
	if cap(buf) < len(f.Data) {
		buf = make([]byte, len(f.Data))
	}
	buf = buf[:len(f.Data)]
	clear(buf)

	*dst = *f
	dst.Data = buf
}
