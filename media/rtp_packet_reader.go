// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"errors"
	"io"
	"net"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// RTPBufSize is max size of RTP packet we expect on read
	RTPBufSize = 1500
)

var (
	RTPDebug  = false
	RTCPDebug = false
)

type RTPReader interface {
	// ReadRTP reads packet into buf and unmarshals it into p.
	// Payload of p may reference buf.
	ReadRTP(buf []byte, p *rtp.Packet) (int, error)
}

type RTCPReader interface {
	ReadRTCP(buf []byte, pkts []rtcp.Packet) (n int, err error)
}

// RTPPacketReader reads RTP packet and extracts payload and header.
// It has no input queue or sorting control of packets. Duplicates and packets
// with bad sequence are skipped.
type RTPPacketReader struct {
	log zerolog.Logger

	reader RTPReader

	// PacketHeader is stored after calling Read
	// Safe to read only in same goroutine as Read
	PacketHeader rtp.Header
	// packet is temporarly packet holder for header and data
	packet rtp.Packet
	buf    []byte

	seqReader RTPExtendedSequenceNumber
	// We want to track our last SSRC.
	lastSSRC uint32
	started  bool

	lost    uint64
	skipped uint64
}

func NewRTPPacketReader(reader RTPReader) *RTPPacketReader {
	return &RTPPacketReader{
		reader: reader,
		buf:    make([]byte, RTPBufSize),
		log:    log.With().Str("caller", "media").Logger(),
	}
}

// ReadPayload reads next packet in sequence and returns its payload.
// Payload is valid until next call.
func (r *RTPPacketReader) ReadPayload() ([]byte, error) {
	pkt := &r.packet
	for {
		_, err := r.reader.ReadRTP(r.buf, pkt)
		if err != nil {
			// Here we are returning EOF to be io package compatible
			if errors.Is(err, net.ErrClosed) {
				return nil, io.EOF
			}
			return nil, err
		}

		if RTPDebug {
			r.log.Debug().Msgf("Recv RTP\n%s", pkt.String())
		}

		if r.started && r.lastSSRC == pkt.SSRC {
			prevSeq := r.seqReader.ReadExtendedSeq()
			if err := r.seqReader.UpdateSeq(pkt.SequenceNumber); err != nil {
				r.skipped++
				r.log.Debug().Err(err).Uint16("seq", pkt.SequenceNumber).Msg("Skipping RTP packet")
				continue
			}

			newSeq := r.seqReader.ReadExtendedSeq()
			if newSeq > prevSeq+1 {
				r.lost += newSeq - prevSeq - 1
				r.log.Debug().Uint64("expected", prevSeq+1).Uint64("actual", newSeq).Msg("RTP packets lost")
			}
		} else {
			r.seqReader.InitSeq(pkt.SequenceNumber)
		}

		r.started = true
		r.lastSSRC = pkt.SSRC
		r.PacketHeader = pkt.Header
		return pkt.Payload, nil
	}
}

// Lost returns number of packets detected missing by sequence gaps
func (r *RTPPacketReader) Lost() uint64 {
	return r.lost
}

// Skipped returns number of duplicate or out of sequence packets dropped
func (r *RTPPacketReader) Skipped() uint64 {
	return r.skipped
}
