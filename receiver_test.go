// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package remotetrack

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/emiago/remotetrack/audio"
	"github.com/emiago/remotetrack/media"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRTPReader struct {
	pkts []rtp.Packet
	err  error
}

func (r *fakeRTPReader) ReadRTP(buf []byte, p *rtp.Packet) (int, error) {
	if len(r.pkts) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	pkt := r.pkts[0]
	r.pkts = r.pkts[1:]

	n, err := pkt.MarshalTo(buf)
	if err != nil {
		return 0, err
	}
	return n, p.Unmarshal(buf[:n])
}

func ulawPacket(t *testing.T, seq uint16, pt uint8, level int16) rtp.Packet {
	lpcm := make([]byte, 320)
	for i := 0; i < 160; i++ {
		v := level
		if i%2 == 1 {
			v = -level
		}
		binary.LittleEndian.PutUint16(lpcm[2*i:], uint16(v))
	}
	payload := make([]byte, 160)
	_, err := audio.EncodeUlawTo(payload, lpcm)
	require.NoError(t, err)

	return rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			SSRC:           5555,
			PayloadType:    pt,
			SequenceNumber: seq,
			Timestamp:      160 * uint32(seq),
		},
		Payload: payload,
	}
}

func TestTrackReceiverReadLoop(t *testing.T) {
	fake := &fakeRTPReader{}
	for i := 1; i <= 5; i++ {
		fake.pkts = append(fake.pkts, ulawPacket(t, uint16(i), 0, 4000))
	}
	// Telephone event on same stream
	fake.pkts = append(fake.pkts, ulawPacket(t, 6, 101, 4000))
	fake.pkts = append(fake.pkts, ulawPacket(t, 7, 0, 4000))

	track := NewRemoteAudioTrack(WithTrackCodec(media.CodecAudioUlaw))
	var frames []*media.AudioFrame
	track.RegisterFrameCallback(func(_ any, frame *media.AudioFrame) {
		frames = append(frames, frame.Clone())
		// Mute after third frame, from within engine goroutine
		if len(frames) == 3 {
			assert.NoError(t, track.SetEnabled(false))
		}
	}, nil)

	recv, err := NewTrackReceiver(track, fake, media.CodecAudioUlaw)
	require.NoError(t, err)

	err = recv.ReadLoop(context.Background())
	require.NoError(t, err)

	require.Len(t, frames, 6)
	for i, f := range frames {
		assert.Equal(t, 160, f.SampleCount)
		assert.Equal(t, 8000, f.SampleRate)
		if i < 3 {
			assert.Greater(t, audio.RMS(f.Data), 3000.0)
		} else {
			assert.True(t, f.IsSilent())
		}
	}
	assert.Equal(t, uint32(160), frames[0].Timestamp)
	assert.Equal(t, uint32(7*160), frames[5].Timestamp)
	assert.Equal(t, uint64(3), track.Stats().SilencedFrames)
}

func TestTrackReceiverErrors(t *testing.T) {
	track := NewRemoteAudioTrack()

	_, err := NewTrackReceiver(track, &fakeRTPReader{}, media.Codec{Name: "opus", PayloadType: 111, SampleRate: 48000})
	require.ErrorIs(t, err, media.ErrUnsupportedCodec)

	readErr := errors.New("socket broken")
	recv, err := NewTrackReceiver(track, &fakeRTPReader{err: readErr}, media.CodecAudioAlaw)
	require.NoError(t, err)
	require.ErrorIs(t, recv.ReadLoop(context.Background()), readErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, recv.ReadLoop(ctx), context.Canceled)
}

type fakeRTCPReader struct {
	reads int
}

func (r *fakeRTCPReader) ReadRTCP(buf []byte, pkts []rtcp.Packet) (int, error) {
	if r.reads == 2 {
		return 0, io.EOF
	}
	r.reads++
	pkts[0] = &rtcp.Goodbye{Sources: []uint32{5555}}
	return 1, nil
}

func TestReadRTCPLoop(t *testing.T) {
	reader := &fakeRTCPReader{}
	ReadRTCPLoop(reader, log.Logger)
	assert.Equal(t, 2, reader.reads)
}
