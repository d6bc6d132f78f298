// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package remotetrack

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/emiago/remotetrack/media"
	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionClosed = errors.New("session closed")
)

// RemoteAudioTrackFunc is called when remote audio track is negotiated,
// before first frame is dispatched. Use it to register observer.
type RemoteAudioTrackFunc func(handle Handle, track *RemoteAudioTrack)

// Session owns peer connection and lifecycle of remote audio tracks created by it.
// Tracks are registered in handle table while they receive media.
type Session struct {
	pc      *webrtc.PeerConnection
	handles *Handles
	log     zerolog.Logger

	api               *webrtc.API
	config            webrtc.Configuration
	sinkFactory       func(codec media.Codec) DeviceSink
	onTrack           RemoteAudioTrackFunc
	deviceOutputFixed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	tracks map[Handle]*RemoteAudioTrack
	closed bool
}

type SessionOption func(s *Session)

// WithSessionHandles sets handle table. Default is DefaultHandles
func WithSessionHandles(h *Handles) SessionOption {
	return func(s *Session) {
		s.handles = h
	}
}

// WithDeviceSinkFactory creates device sink for every new remote track
func WithDeviceSinkFactory(f func(codec media.Codec) DeviceSink) SessionOption {
	return func(s *Session) {
		s.sinkFactory = f
	}
}

func WithOnRemoteAudioTrack(f RemoteAudioTrackFunc) SessionOption {
	return func(s *Session) {
		s.onTrack = f
	}
}

func WithWebrtcConfig(conf webrtc.Configuration) SessionOption {
	return func(s *Session) {
		s.config = conf
	}
}

func WithWebrtcAPI(api *webrtc.API) SessionOption {
	return func(s *Session) {
		s.api = api
	}
}

// WithSessionDeviceOutputFixed applies WithDeviceOutputFixed on all tracks
func WithSessionDeviceOutputFixed() SessionOption {
	return func(s *Session) {
		s.deviceOutputFixed = true
	}
}

func WithSessionLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.log = l
	}
}

func NewSession(opts ...SessionOption) (*Session, error) {
	s := &Session{
		handles: DefaultHandles,
		config:  DefaultWebrtcConfig,
		log:     log.Logger,
		tracks:  make(map[Handle]*RemoteAudioTrack),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With().Str("caller", "session").Logger()

	if s.api == nil {
		api, err := NewWebrtcAPI()
		if err != nil {
			return nil, err
		}
		s.api = api
	}

	pc, err := s.api.NewPeerConnection(s.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}
	s.pc = pc
	s.ctx, s.cancel = context.WithCancel(context.Background())

	pc.OnTrack(s.handleTrack)
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		s.log.Debug().Str("state", state.String()).Msg("ICE connection state changed")
	})
	return s, nil
}

func (s *Session) PeerConnection() *webrtc.PeerConnection {
	return s.pc
}

// Offer creates receive only audio offer and waits ICE gathering
func (s *Session) Offer(ctx context.Context) (webrtc.SessionDescription, error) {
	if _, err := s.pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return webrtc.SessionDescription{}, err
	}

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	return s.setLocalDescription(ctx, offer)
}

// SetAnswer applies remote answer to our offer
func (s *Session) SetAnswer(answer webrtc.SessionDescription) error {
	return s.pc.SetRemoteDescription(answer)
}

// Answer applies remote offer and returns answer after ICE gathering
func (s *Session) Answer(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	return s.setLocalDescription(ctx, answer)
}

func (s *Session) setLocalDescription(ctx context.Context, sd webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	// Create channel that is blocked until ICE Gathering is complete
	gatherComplete := webrtc.GatheringCompletePromise(s.pc)
	if err := s.pc.SetLocalDescription(sd); err != nil {
		return webrtc.SessionDescription{}, err
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return webrtc.SessionDescription{}, fmt.Errorf("waiting ICE gathering: %w", ctx.Err())
	}
	return *s.pc.LocalDescription(), nil
}

func (s *Session) handleTrack(remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	if remote.Kind() != webrtc.RTPCodecTypeAudio {
		s.log.Info().Str("kind", remote.Kind().String()).Msg("Ignoring non audio remote track")
		return
	}

	codec, err := media.CodecFromWebrtc(remote.Codec())
	if err != nil {
		s.log.Error().Err(err).Str("track_id", remote.ID()).Msg("Remote audio track can not be decoded")
		return
	}

	rtpReader := media.NewWebrtcTrackRTPReader(remote, receiver)
	s.serveTrack(remote.ID(), codec, rtpReader, rtpReader)
}

// serveTrack creates track for decoded codec, registers it and starts receiving
func (s *Session) serveTrack(id string, codec media.Codec, rtpReader media.RTPReader, rtcpReader media.RTCPReader) {
	opts := []TrackOption{
		WithTrackID(id),
		WithTrackCodec(codec),
		WithTrackLogger(s.log),
	}
	if s.sinkFactory != nil {
		opts = append(opts, WithDeviceSink(s.sinkFactory(codec)))
	}
	if s.deviceOutputFixed {
		opts = append(opts, WithDeviceOutputFixed())
	}
	track := NewRemoteAudioTrack(opts...)

	trackReceiver, err := NewTrackReceiver(track, rtpReader, codec)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to create track receiver")
		track.Close()
		return
	}

	handle, err := s.addTrack(track)
	if err != nil {
		track.Close()
		return
	}
	s.log.Info().Str("track_id", track.ID()).Uint64("handle", uint64(handle)).Str("codec", codec.String()).Msg("Remote audio track added")

	if s.onTrack != nil {
		s.onTrack(handle, track)
	}

	go ReadRTCPLoop(rtcpReader, track.log)

	go func() {
		defer s.wg.Done()
		defer s.removeTrack(handle)
		if err := trackReceiver.ReadLoop(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			track.log.Info().Err(err).Msg("Remote track receiving stopped")
		}
	}()
}

func (s *Session) addTrack(track *RemoteAudioTrack) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return InvalidHandle, ErrSessionClosed
	}

	handle := s.handles.Register(track)
	s.tracks[handle] = track
	s.wg.Add(1)
	return handle, nil
}

func (s *Session) removeTrack(handle Handle) {
	s.mu.Lock()
	track, ok := s.tracks[handle]
	delete(s.tracks, handle)
	s.mu.Unlock()
	if !ok {
		return
	}

	s.handles.Unregister(handle)
	if err := track.Close(); err != nil {
		s.log.Error().Err(err).Str("track_id", track.ID()).Msg("Failed to close track")
	}
	s.log.Info().Str("track_id", track.ID()).Msg("Remote audio track removed")
}

// Tracks returns handles of currently active remote audio tracks
func (s *Session) Tracks() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := make([]Handle, 0, len(s.tracks))
	for h := range s.tracks {
		handles = append(handles, h)
	}
	return handles
}

// Close closes peer connection and waits all tracks to be removed
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	err := s.pc.Close()
	s.wg.Wait()
	return err
}
