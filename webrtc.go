// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package remotetrack

import (
	"github.com/pion/webrtc/v3"
)

// For debug
// PIONS_LOG_INFO=all

var DefaultWebrtcConfig = webrtc.Configuration{
	ICEServers: []webrtc.ICEServer{
		{
			URLs: []string{"stun:stun.l.google.com:19302"},
		},
	},

	ICETransportPolicy: webrtc.ICETransportPolicyAll,
	BundlePolicy:       webrtc.BundlePolicyMaxBundle,
}

// NewWebrtcAPI creates API with audio codecs we can decode
func NewWebrtcAPI() (*webrtc.API, error) {
	webrtcMedia := &webrtc.MediaEngine{}
	if err := webrtcRegisterCodecs(webrtcMedia); err != nil {
		return nil, err
	}

	settEng := webrtc.SettingEngine{}
	// We want UDP
	settEng.DisableActiveTCP(true)

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(webrtcMedia),
		webrtc.WithSettingEngine(settEng),
	), nil
}

func webrtcRegisterCodecs(webrtcMedia *webrtc.MediaEngine) error {
	for _, codec := range []webrtc.RTPCodecParameters{
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypePCMU, ClockRate: 8000},
			PayloadType:        0,
		},
		{
			RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypePCMA, ClockRate: 8000},
			PayloadType:        8,
		},
	} {
		if err := webrtcMedia.RegisterCodec(codec, webrtc.RTPCodecTypeAudio); err != nil {
			return err
		}
	}
	return nil
}
