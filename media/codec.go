// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog/log"
)

var (
	// Here are some codec constants that can be reused
	CodecAudioUlaw = Codec{Name: "PCMU", PayloadType: 0, SampleRate: 8000, SampleDur: 20 * time.Millisecond, NumChannels: 1}
	CodecAudioAlaw = Codec{Name: "PCMA", PayloadType: 8, SampleRate: 8000, SampleDur: 20 * time.Millisecond, NumChannels: 1}

	ErrUnsupportedCodec = errors.New("unsupported codec")
)

type Codec struct {
	Name        string
	PayloadType uint8
	SampleRate  uint32
	SampleDur   time.Duration
	NumChannels int
}

func (c Codec) String() string {
	return fmt.Sprintf("name=%s pt=%d rate=%d dur=%s channels=%d", c.Name, c.PayloadType, c.SampleRate, c.SampleDur.String(), c.NumChannels)
}

// SampleTimestamp returns number of samples per channel carried in one packet
func (c Codec) SampleTimestamp() uint32 {
	return uint32(float64(c.SampleRate) * c.SampleDur.Seconds())
}

// Samples16 returns PCM buffer size of one packet decoded as 16 bit samples
func (c Codec) Samples16() int {
	return c.SamplesPCM(16)
}

// SamplesPCM returns PCM buffer size of one packet for given bit depth
func (c Codec) SamplesPCM(bitSize int) int {
	channels := max(c.NumChannels, 1)
	return bitSize / 8 * int(c.SampleTimestamp()) * channels
}

// CodecFromWebrtc maps negotiated webrtc codec parameters to our codec.
// Payload type is taken from negotiation as it can be dynamic.
func CodecFromWebrtc(params webrtc.RTPCodecParameters) (Codec, error) {
	var codec Codec
	switch {
	case strings.EqualFold(params.MimeType, webrtc.MimeTypePCMU):
		codec = CodecAudioUlaw
	case strings.EqualFold(params.MimeType, webrtc.MimeTypePCMA):
		codec = CodecAudioAlaw
	default:
		log.Warn().Str("mime", params.MimeType).Msg("Remote codec is not supported")
		return Codec{}, fmt.Errorf("mime type %q: %w", params.MimeType, ErrUnsupportedCodec)
	}

	codec.PayloadType = uint8(params.PayloadType)
	if params.ClockRate > 0 {
		codec.SampleRate = params.ClockRate
	}
	if params.Channels > 0 {
		codec.NumChannels = int(params.Channels)
	}
	return codec, nil
}
