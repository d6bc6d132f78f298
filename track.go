// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package remotetrack

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/emiago/remotetrack/media"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidHandle = errors.New("invalid remote audio track handle")
)

// FrameCallback receives every frame dispatched by track. It is called
// synchronously on media goroutine and it must return quickly.
// Frame is valid only during the call, use Clone to keep it.
type FrameCallback func(userCtx any, frame *media.AudioFrame)

type frameObserver struct {
	callback FrameCallback
	userCtx  any
}

// DeviceSink renders frames to audio output device
type DeviceSink interface {
	WriteFrame(frame *media.AudioFrame) error
}

type DeviceSinkFunc func(frame *media.AudioFrame) error

func (f DeviceSinkFunc) WriteFrame(frame *media.AudioFrame) error {
	return f(frame)
}

type TrackStats struct {
	// Frames is number of frames received from upstream
	Frames         uint64
	ObserverFrames uint64
	DeviceFrames   uint64
	// SilencedFrames counts frames replaced with silence while disabled
	SilencedFrames uint64
	DeviceErrors   uint64
}

// RemoteAudioTrack is audio track received from remote peer.
//
// Enabled and output to device gates and observer can be changed from any
// goroutine while frames are dispatched. User data is not synchronized.
type RemoteAudioTrack struct {
	id     string
	codec  media.Codec
	log    zerolog.Logger
	handle atomic.Uint64

	enabled        atomic.Bool
	outputToDevice atomic.Bool
	observer       atomic.Pointer[frameObserver]
	closed         atomic.Bool

	// Some platforms always render to device
	deviceOutputFixed bool
	sink              DeviceSink

	userData any

	// Used only by dispatching goroutine
	silence     media.AudioFrame
	sinkFailing bool

	frames         atomic.Uint64
	observerFrames atomic.Uint64
	deviceFrames   atomic.Uint64
	silencedFrames atomic.Uint64
	deviceErrors   atomic.Uint64
}

type TrackOption func(t *RemoteAudioTrack)

func WithTrackID(id string) TrackOption {
	return func(t *RemoteAudioTrack) {
		t.id = id
	}
}

func WithTrackCodec(codec media.Codec) TrackOption {
	return func(t *RemoteAudioTrack) {
		t.codec = codec
	}
}

func WithTrackLogger(l zerolog.Logger) TrackOption {
	return func(t *RemoteAudioTrack) {
		t.log = l
	}
}

// WithDeviceSink sets where frames are rendered when output to device is on.
// Without sink track only dispatches to observer.
func WithDeviceSink(sink DeviceSink) TrackOption {
	return func(t *RemoteAudioTrack) {
		t.sink = sink
	}
}

// WithDeviceOutputFixed is for platforms where device routing can not be changed.
// SetOutputToDevice becomes no-op.
func WithDeviceOutputFixed() TrackOption {
	return func(t *RemoteAudioTrack) {
		t.deviceOutputFixed = true
	}
}

func NewRemoteAudioTrack(opts ...TrackOption) *RemoteAudioTrack {
	t := &RemoteAudioTrack{
		log: log.Logger,
	}
	for _, o := range opts {
		o(t)
	}
	if t.id == "" {
		t.id = uuid.NewString()
	}
	t.log = t.log.With().Str("caller", "remotetrack").Str("track_id", t.id).Logger()

	t.enabled.Store(true)
	t.outputToDevice.Store(true)
	return t
}

func (t *RemoteAudioTrack) ID() string {
	return t.id
}

func (t *RemoteAudioTrack) Codec() media.Codec {
	return t.codec
}

// Handle returns handle under which track is registered or InvalidHandle.
// With multiple tables it is handle of first table that registered it.
func (t *RemoteAudioTrack) Handle() Handle {
	return Handle(t.handle.Load())
}

// SetUserData stores value verbatim. Value is never interpreted by track.
// It is not safe for concurrent use.
func (t *RemoteAudioTrack) SetUserData(v any) {
	t.userData = v
}

// UserData returns last value set or nil.
// It is not safe for concurrent use.
func (t *RemoteAudioTrack) UserData() any {
	return t.userData
}

// RegisterFrameCallback replaces current observer. Nil callback removes it.
// Closed track ignores it.
func (t *RemoteAudioTrack) RegisterFrameCallback(cb FrameCallback, userCtx any) {
	if t.closed.Load() {
		return
	}
	if cb == nil {
		t.observer.Store(nil)
		t.log.Debug().Msg("Frame observer removed")
		return
	}
	t.observer.Store(&frameObserver{callback: cb, userCtx: userCtx})
	t.log.Debug().Msg("Frame observer registered")
}

// SetEnabled mutes or unmutes track. Disabled track delivers silent frames
// with same format and cadence. No renegotiation is done.
func (t *RemoteAudioTrack) SetEnabled(enabled bool) error {
	if t.closed.Load() {
		return ErrInvalidHandle
	}
	if t.enabled.Swap(enabled) != enabled {
		t.log.Debug().Bool("enabled", enabled).Msg("Track enabled changed")
	}
	return nil
}

func (t *RemoteAudioTrack) IsEnabled() bool {
	return t.enabled.Load()
}

// SetOutputToDevice controls rendering to device sink. Observer delivery is not affected.
// It is best effort, on platforms with fixed device output call is ignored.
func (t *RemoteAudioTrack) SetOutputToDevice(output bool) {
	if t.deviceOutputFixed {
		t.log.Warn().Bool("output", output).Msg("Changing device output is not supported on this platform. Ignoring")
		return
	}
	if t.outputToDevice.Swap(output) != output {
		t.log.Debug().Bool("output", output).Msg("Track output to device changed")
	}
}

func (t *RemoteAudioTrack) IsOutputToDevice() bool {
	return t.outputToDevice.Load()
}

// DeliverFrame dispatches frame to observer and device sink.
// It is called by upstream media goroutine and it must not be called concurrently.
// While track is disabled both paths receive same silent frame.
func (t *RemoteAudioTrack) DeliverFrame(frame *media.AudioFrame) {
	if t.closed.Load() {
		return
	}
	t.frames.Add(1)

	effective := frame
	if !t.enabled.Load() {
		frame.SilenceInto(&t.silence)
		effective = &t.silence
		t.silencedFrames.Add(1)
	}

	if obs := t.observer.Load(); obs != nil {
		obs.callback(obs.userCtx, effective)
		t.observerFrames.Add(1)
	}

	if t.sink == nil || !t.outputToDevice.Load() {
		return
	}

	if err := t.sink.WriteFrame(effective); err != nil {
		t.deviceErrors.Add(1)
		// Log only first error in streak, device is probably gone
		if !t.sinkFailing {
			t.log.Error().Err(err).Msg("Failed to write frame to device")
		}
		t.sinkFailing = true
		return
	}
	t.sinkFailing = false
	t.deviceFrames.Add(1)
}

func (t *RemoteAudioTrack) Stats() TrackStats {
	return TrackStats{
		Frames:         t.frames.Load(),
		ObserverFrames: t.observerFrames.Load(),
		DeviceFrames:   t.deviceFrames.Load(),
		SilencedFrames: t.silencedFrames.Load(),
		DeviceErrors:   t.deviceErrors.Load(),
	}
}

// Close detaches observer and stops dispatch. Device sink is closed if it is io.Closer.
// It must be called after upstream stopped delivering frames.
func (t *RemoteAudioTrack) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.observer.Store(nil)
	t.log.Debug().Interface("stats", t.Stats()).Msg("Track closed")

	if c, ok := t.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
