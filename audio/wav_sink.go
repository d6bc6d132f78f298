// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/emiago/remotetrack/media"
)

// WavSink renders frames into WAV container. It stands in for audio device
// where there is none, like servers, tests or recording.
type WavSink struct {
	mu      sync.Mutex
	enc     *wav.Encoder
	format  goaudio.Format
	buf     goaudio.IntBuffer
	samples int
}

// NewWavSink creates 16 bit PCM sink. Frames written must match sample rate and channels.
func NewWavSink(w io.WriteSeeker, sampleRate int, numChannels int) *WavSink {
	s := &WavSink{
		enc: wav.NewEncoder(w, sampleRate, 16, numChannels, 1), // 1 PCM
		format: goaudio.Format{
			SampleRate:  sampleRate,
			NumChannels: numChannels,
		},
	}
	s.buf = goaudio.IntBuffer{
		Format:         &s.format,
		SourceBitDepth: 16,
	}
	return s
}

func (s *WavSink) WriteFrame(f *media.AudioFrame) error {
	if f.SampleRate != s.format.SampleRate || f.NumChannels != s.format.NumChannels {
		return fmt.Errorf("wav sink format rate=%d channels=%d does not match frame %s", s.format.SampleRate, s.format.NumChannels, f.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	numSamples := len(f.Data) / 2
	if cap(s.buf.Data) < numSamples {
		s.buf.Data = make([]int, numSamples)
	}
	data := s.buf.Data[:numSamples]
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(f.Data[2*i:])))
	}
	s.buf.Data = data

	if err := s.enc.Write(&s.buf); err != nil {
		return err
	}
	s.samples += f.SampleCount
	return nil
}

// Samples returns number of samples per channel written
func (s *WavSink) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Close finalizes WAV headers. Underlying writer is not closed.
func (s *WavSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Close()
}
