// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioFrameSilenceInto(t *testing.T) {
	lpcm := make([]byte, CodecAudioUlaw.Samples16())
	for i := range lpcm {
		lpcm[i] = byte(i)
	}
	frame := NewAudioFrame(lpcm, 8000, 1)
	frame.Timestamp = 320
	require.Equal(t, 160, frame.SampleCount)
	require.Equal(t, 20*time.Millisecond, frame.Duration())

	silence := AudioFrame{}
	frame.SilenceInto(&silence)
	assert.True(t, silence.IsSilent())
	assert.True(t, frame.SameFormat(&silence))
	assert.Equal(t, frame.Duration(), silence.Duration())
	assert.Equal(t, frame.Timestamp, silence.Timestamp)
	assert.False(t, frame.IsSilent(), "source frame must not be touched")

	// Buffer is reused on next substitution
	prev := &silence.Data[0]
	frame.SilenceInto(&silence)
	assert.Same(t, prev, &silence.Data[0])

	stereo := NewAudioFrame(make([]byte, 4*480), 48000, 2)
	stereo.Data[0] = 1
	stereo.SilenceInto(&silence)
	assert.True(t, silence.IsSilent())
	assert.Equal(t, 480, silence.SampleCount)
	assert.Equal(t, 2, silence.NumChannels)
	assert.Equal(t, 10*time.Millisecond, silence.Duration())
}

func TestAudioFrameClone(t *testing.T) {
	frame := NewAudioFrame([]byte{1, 2, 3, 4}, 8000, 1)
	clone := frame.Clone()
	frame.Data[0] = 9

	assert.Equal(t, byte(1), clone.Data[0])
	assert.True(t, frame.SameFormat(clone))
}
