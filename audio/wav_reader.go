// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package audio

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/riff"

	"github.com/emiago/remotetrack/media"
)

var ErrFrameDurTooShort = errors.New("frame duration shorter than one sample")

// WavFrameReader reads 16 bit PCM WAV stream and splits it into frames
// of fixed duration. It acts as upstream frame source without network.
type WavFrameReader struct {
	riff.Parser
	chunkData *riff.Chunk

	FrameDur  time.Duration
	buf       []byte
	timestamp uint32
}

func NewWavFrameReader(r io.Reader) *WavFrameReader {
	parser := riff.New(r)
	return &WavFrameReader{Parser: *parser, FrameDur: 20 * time.Millisecond}
}

// ReadHeaders reads until data chunk
func (r *WavFrameReader) ReadHeaders() error {
	if err := r.Parser.ParseHeaders(); err != nil {
		return err
	}

	for {
		chunk, err := r.NextChunk()
		if err != nil {
			return err
		}

		switch chunk.ID {
		case riff.FmtID:
			if err := chunk.DecodeWavHeader(&r.Parser); err != nil {
				return err
			}
		case riff.DataFormatID:
			if r.SampleRate == 0 {
				return fmt.Errorf("wav data chunk before fmt chunk")
			}
			if r.BitsPerSample != 16 {
				return fmt.Errorf("wav bit depth %d not supported, only 16 bit PCM", r.BitsPerSample)
			}
			r.chunkData = chunk
			return nil
		default:
			chunk.Drain()
		}
	}
}

// ReadFrame reads next frame. Last frame is padded with silence.
// Frame data is valid until next call.
func (r *WavFrameReader) ReadFrame(frame *media.AudioFrame) error {
	if r.chunkData == nil {
		return fmt.Errorf("wav headers not read")
	}

	numChannels := max(int(r.NumChannels), 1)
	samples := int(time.Duration(r.SampleRate) * r.FrameDur / time.Second)
	if samples <= 0 {
		return fmt.Errorf("frame %s at %d Hz: %w", r.FrameDur, r.SampleRate, ErrFrameDurTooShort)
	}
	size := samples * numChannels * 2
	if len(r.buf) != size {
		r.buf = make([]byte, size)
	}

	n, err := io.ReadFull(r.chunkData, r.buf)
	if err != nil {
		if n == 0 || !errors.Is(err, io.ErrUnexpectedEOF) {
			return err
		}
		clear(r.buf[n:])
	}

	*frame = media.NewAudioFrame(r.buf, int(r.SampleRate), numChannels)
	frame.Timestamp = r.timestamp
	r.timestamp += uint32(samples)
	return nil
}
