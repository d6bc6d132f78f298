// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package audio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emiago/remotetrack/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWavSinkAndFrameReader(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "sink.wav")
	f, err := os.Create(fname)
	require.NoError(t, err)
	defer f.Close()

	sink := NewWavSink(f, 8000, 1)
	lpcm := sineLPCM(160)
	for i := 0; i < 5; i++ {
		frame := media.NewAudioFrame(lpcm, 8000, 1)
		require.NoError(t, sink.WriteFrame(&frame))
	}

	// Format mismatch is rejected
	bad := media.NewAudioFrame(lpcm, 16000, 1)
	require.Error(t, sink.WriteFrame(&bad))

	require.NoError(t, sink.Close())
	assert.Equal(t, 5*160, sink.Samples())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	reader := NewWavFrameReader(f)
	reader.FrameDur = 20 * time.Millisecond
	require.NoError(t, reader.ReadHeaders())
	assert.EqualValues(t, 8000, reader.SampleRate)
	assert.EqualValues(t, 1, reader.NumChannels)

	frames := 0
	frame := media.AudioFrame{}
	for {
		err := reader.ReadFrame(&frame)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, lpcm, frame.Data)
		assert.Equal(t, uint32(frames*160), frame.Timestamp)
		frames++
	}
	assert.Equal(t, 5, frames)
}

func TestWavFrameReaderPadsLastFrame(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "short.wav")
	f, err := os.Create(fname)
	require.NoError(t, err)
	defer f.Close()

	sink := NewWavSink(f, 8000, 1)
	frame := media.NewAudioFrame(sineLPCM(100), 8000, 1)
	require.NoError(t, sink.WriteFrame(&frame))
	require.NoError(t, sink.Close())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	reader := NewWavFrameReader(f)
	require.NoError(t, reader.ReadHeaders())

	require.NoError(t, reader.ReadFrame(&frame))
	assert.Equal(t, 160, frame.SampleCount)
	assert.Equal(t, sineLPCM(100), frame.Data[:200])
	assert.True(t, SilenceDetectRMS(frame.Data[200:], 1))

	require.ErrorIs(t, reader.ReadFrame(&frame), io.EOF)
}

func TestWavFrameReaderFrameDurTooShort(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "tiny.wav")
	f, err := os.Create(fname)
	require.NoError(t, err)
	defer f.Close()

	sink := NewWavSink(f, 8000, 1)
	frame := media.NewAudioFrame(sineLPCM(160), 8000, 1)
	require.NoError(t, sink.WriteFrame(&frame))
	require.NoError(t, sink.Close())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	reader := NewWavFrameReader(f)
	reader.FrameDur = 100 * time.Microsecond
	require.NoError(t, reader.ReadHeaders())

	// 100us at 8kHz is less than one sample
	require.ErrorIs(t, reader.ReadFrame(&frame), ErrFrameDurTooShort)
	require.ErrorIs(t, reader.ReadFrame(&frame), ErrFrameDurTooShort)

	// One sample is enough
	reader.FrameDur = 125 * time.Microsecond
	require.NoError(t, reader.ReadFrame(&frame))
	assert.Equal(t, 1, frame.SampleCount)
}
