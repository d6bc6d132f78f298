// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package remotetrack

import (
	"context"
	"errors"
	"io"

	"github.com/emiago/remotetrack/audio"
	"github.com/emiago/remotetrack/media"
	"github.com/pion/rtcp"
	"github.com/rs/zerolog"
)

// TrackReceiver is upstream of remote audio track. It reads RTP, decodes
// payload and delivers frames to track on caller goroutine in arrival order.
type TrackReceiver struct {
	track   *RemoteAudioTrack
	reader  *media.RTPPacketReader
	decoder *audio.PCMDecoder
	log     zerolog.Logger

	frame media.AudioFrame
}

func NewTrackReceiver(track *RemoteAudioTrack, reader media.RTPReader, codec media.Codec) (*TrackReceiver, error) {
	dec, err := audio.NewPCMDecoder(codec)
	if err != nil {
		return nil, err
	}

	return &TrackReceiver{
		track:   track,
		reader:  media.NewRTPPacketReader(reader),
		decoder: dec,
		log:     track.log,
	}, nil
}

// ReadLoop runs until reader fails or ctx is canceled.
// Blocking read is not interrupted by ctx, closing reader is needed for that.
// End of stream returns nil.
func (r *TrackReceiver) ReadLoop(ctx context.Context) error {
	codec := r.decoder.Codec()
	r.log.Debug().Str("codec", codec.String()).Msg("Track receiver started")
	defer func() {
		r.log.Debug().Uint64("lost", r.reader.Lost()).Uint64("skipped", r.reader.Skipped()).Msg("Track receiver stopped")
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := r.reader.ReadPayload()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		// Other payloads like telephone events share same stream
		if pt := r.reader.PacketHeader.PayloadType; pt != codec.PayloadType {
			r.log.Debug().Uint8("pt", pt).Msg("Skipping RTP with different payload type")
			continue
		}

		if err := r.decoder.DecodeFrame(payload, &r.frame); err != nil {
			r.log.Warn().Err(err).Msg("Failed to decode RTP payload")
			continue
		}
		r.frame.Timestamp = r.reader.PacketHeader.Timestamp
		r.track.DeliverFrame(&r.frame)
	}
}

// ReadRTCPLoop drains RTCP so that interceptors keep working. It returns on reader error.
func ReadRTCPLoop(reader media.RTCPReader, log zerolog.Logger) {
	buf := make([]byte, media.RTPBufSize)
	pkts := make([]rtcp.Packet, 5)
	for {
		n, err := reader.ReadRTCP(buf, pkts)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Msg("RTCP read stopped")
			}
			return
		}

		for _, p := range pkts[:n] {
			if bye, ok := p.(*rtcp.Goodbye); ok {
				log.Debug().Uints32("sources", bye.Sources).Msg("Received RTCP BYE")
			}
		}
	}
}
