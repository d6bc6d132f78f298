// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package audio

import (
	"fmt"

	"github.com/emiago/remotetrack/media"
)

/*
	PCMDecoder translates VOIP codec payloads into 16 bit LPCM frames.
	Frames produced are handed to remote track dispatch.
*/

type PCMDecoder struct {
	codec media.Codec
	buf   []byte

	// DecoderTo Must know size in advance!
	DecoderTo func(lpcm []byte, encoded []byte) (int, error)
}

func NewPCMDecoder(codec media.Codec) (*PCMDecoder, error) {
	dec := &PCMDecoder{}
	return dec, dec.Init(codec)
}

// Init should be called only once after creating PCMDecoder
func (dec *PCMDecoder) Init(codec media.Codec) error {
	dec.codec = codec

	// Match on name as payload type can be dynamic in webrtc
	switch codec.Name {
	case media.CodecAudioUlaw.Name:
		dec.DecoderTo = DecodeUlawTo
	case media.CodecAudioAlaw.Name:
		dec.DecoderTo = DecodeAlawTo
	default:
		return fmt.Errorf("decoder for %s: %w", codec.Name, media.ErrUnsupportedCodec)
	}

	dec.buf = make([]byte, codec.Samples16())
	return nil
}

func (dec *PCMDecoder) Codec() media.Codec {
	return dec.codec
}

// DecodeFrame decodes payload into frame. Frame data references decoder buffer
// and it is valid until next DecodeFrame call.
func (dec *PCMDecoder) DecodeFrame(encoded []byte, frame *media.AudioFrame) error {
	// Packets with longer ptime than negotiated need bigger buffer
	if need := 2 * len(encoded); need > len(dec.buf) {
		dec.buf = make([]byte, need)
	}

	n, err := dec.DecoderTo(dec.buf, encoded)
	if err != nil {
		return err
	}

	*frame = media.NewAudioFrame(dec.buf[:n], int(dec.codec.SampleRate), dec.codec.NumChannels)
	return nil
}
