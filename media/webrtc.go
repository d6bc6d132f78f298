// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog/log"
)

// WebrtcTrackRTPReader reads RTP from remote webrtc track and RTCP from its receiver
type WebrtcTrackRTPReader struct {
	track    *webrtc.TrackRemote
	receiver *webrtc.RTPReceiver
}

func NewWebrtcTrackRTPReader(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) *WebrtcTrackRTPReader {
	return &WebrtcTrackRTPReader{
		track:    track,
		receiver: receiver,
	}
}

func (r *WebrtcTrackRTPReader) ReadRTP(buf []byte, p *rtp.Packet) (int, error) {
	n, _, err := r.track.Read(buf)
	if err != nil {
		return n, err
	}
	return n, p.Unmarshal(buf[:n])
}

func (r *WebrtcTrackRTPReader) ReadRTCP(buf []byte, pkts []rtcp.Packet) (int, error) {
	n, _, err := r.receiver.Read(buf)
	if err != nil {
		return 0, err
	}

	return RTCPUnmarshal(buf[:n], pkts)
}

// RTCPUnmarshal unmarshals compound packet into pkts.
// Packets not fitting pkts are dropped.
func RTCPUnmarshal(data []byte, pkts []rtcp.Packet) (int, error) {
	parsed, err := rtcp.Unmarshal(data)
	if err != nil {
		return 0, err
	}

	n := copy(pkts, parsed)
	if RTCPDebug {
		for _, p := range pkts[:n] {
			log.Debug().Msgf("Recv RTCP\n%s", p)
		}
	}
	return n, nil
}
