// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"io"
	"net"
	"testing"

	"github.com/pion/rtp"
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

func testRTPPacket(seq uint16, payload []byte) rtp.Packet {
	return rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			SSRC:           1234,
			PayloadType:    0,
			SequenceNumber: seq,
			Timestamp:      160 * uint32(seq),
		},
		Payload: payload,
	}
}

func TestRTPPacketReader(t *testing.T) {
	fake := &fakeRTPReader{}
	for i := 0; i < 10; i++ {
		fake.pkts = append(fake.pkts, testRTPPacket(uint16(i), []byte{byte(i), 1, 2, 3}))
	}
	reader := NewRTPPacketReader(fake)

	for i := 0; i < 10; i++ {
		payload, err := reader.ReadPayload()
		require.NoError(t, err)
		require.Len(t, payload, 4)
		assert.Equal(t, byte(i), payload[0])
		assert.Equal(t, uint16(i), reader.PacketHeader.SequenceNumber)
	}

	_, err := reader.ReadPayload()
	require.ErrorIs(t, err, io.EOF)
	assert.Zero(t, reader.Lost())
}

func TestRTPPacketReaderSkipsAndLoss(t *testing.T) {
	fake := &fakeRTPReader{
		pkts: []rtp.Packet{
			testRTPPacket(1, []byte{1}),
			testRTPPacket(1, []byte{1}), // duplicate
			testRTPPacket(2, []byte{2}),
			testRTPPacket(5, []byte{5}), // 3,4 lost
		},
	}
	reader := NewRTPPacketReader(fake)

	var got []byte
	for {
		payload, err := reader.ReadPayload()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		got = append(got, payload...)
	}

	assert.Equal(t, []byte{1, 2, 5}, got)
	assert.Equal(t, uint64(1), reader.Skipped())
	assert.Equal(t, uint64(2), reader.Lost())
}

func TestRTPPacketReaderClosed(t *testing.T) {
	reader := NewRTPPacketReader(&fakeRTPReader{err: net.ErrClosed})
	_, err := reader.ReadPayload()
	require.ErrorIs(t, err, io.EOF)
}
