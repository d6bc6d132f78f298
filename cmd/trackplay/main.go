// SPDX-License-Identifier: MPL-2.0
// Copyright (C) 2024 Emir Aganovic

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/emiago/remotetrack"
	"github.com/emiago/remotetrack/audio"
	"github.com/emiago/remotetrack/examples"
	"github.com/emiago/remotetrack/media"
	"github.com/rs/zerolog/log"
)

// Plays WAV file through remote audio track as if it was received from peer.
// Device output is rendered into another WAV file.
//
//	trackplay -in call.wav -out device.wav -mute-at 50 -unmute-at 100

var (
	fIn         = flag.String("in", "", "Input 16 bit PCM WAV file")
	fOut        = flag.String("out", "", "Output WAV file acting as audio device. Empty disables device")
	fMuteAt     = flag.Int("mute-at", -1, "Frame index when track is disabled")
	fUnmuteAt   = flag.Int("unmute-at", -1, "Frame index when track is enabled again")
	fNoDeviceAt = flag.Int("no-device-at", -1, "Frame index when output to device is turned off")
	fFrameDur   = flag.Duration("frame", 20*time.Millisecond, "Frame duration")
	fRealtime   = flag.Bool("realtime", false, "Deliver frames at real cadence")
	fSilenceRMS = flag.Float64("silence-rms", 50, "RMS under which frame is counted as silent")
)

type frameStats struct {
	frames  int
	silent  int
	maxRMS  float64
	lastLog time.Time
}

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	examples.SetupLogger()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("Track play finished with error")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if *fIn == "" {
		return fmt.Errorf("input file is required")
	}
	if *fFrameDur <= 0 {
		return fmt.Errorf("frame duration must be positive")
	}

	in, err := os.Open(*fIn)
	if err != nil {
		return err
	}
	defer in.Close()

	reader := audio.NewWavFrameReader(in)
	reader.FrameDur = *fFrameDur
	if err := reader.ReadHeaders(); err != nil {
		return fmt.Errorf("failed to read wav headers: %w", err)
	}

	opts := []remotetrack.TrackOption{remotetrack.WithTrackID("trackplay")}
	if *fOut != "" {
		out, err := os.Create(*fOut)
		if err != nil {
			return err
		}
		defer out.Close()
		// Track closes sink and finalizes headers
		opts = append(opts, remotetrack.WithDeviceSink(audio.NewWavSink(out, int(reader.SampleRate), int(reader.NumChannels))))
	}

	track := remotetrack.NewRemoteAudioTrack(opts...)
	handle := remotetrack.DefaultHandles.Register(track)
	defer remotetrack.DefaultHandles.Unregister(handle)

	stats := &frameStats{}
	remotetrack.SetUserData(handle, *fIn)
	remotetrack.RegisterFrameCallback(handle, observeFrame, stats)

	var ticker *time.Ticker
	if *fRealtime {
		ticker = time.NewTicker(reader.FrameDur)
		defer ticker.Stop()
	}

	frame := media.AudioFrame{}
	for i := 0; ; i++ {
		if err := reader.ReadFrame(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch i {
		case *fMuteAt:
			if err := remotetrack.SetEnabled(handle, false); err != nil {
				return err
			}
			log.Info().Int("frame", i).Msg("Track disabled")
		case *fUnmuteAt:
			if err := remotetrack.SetEnabled(handle, true); err != nil {
				return err
			}
			log.Info().Int("frame", i).Msg("Track enabled")
		}
		if i == *fNoDeviceAt {
			remotetrack.SetOutputToDevice(handle, false)
			log.Info().Int("frame", i).Bool("routed", remotetrack.IsOutputToDevice(handle)).Msg("Device output turned off")
		}

		track.DeliverFrame(&frame)

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}

	if err := track.Close(); err != nil {
		return fmt.Errorf("failed to close device output: %w", err)
	}

	ts := track.Stats()
	log.Info().
		Interface("source", remotetrack.GetUserData(handle)).
		Uint64("frames", ts.Frames).
		Uint64("device_frames", ts.DeviceFrames).
		Uint64("silenced", ts.SilencedFrames).
		Int("observed_silent", stats.silent).
		Float64("max_rms", stats.maxRMS).
		Msg("Track play done")
	return nil
}

func observeFrame(userCtx any, frame *media.AudioFrame) {
	stats := userCtx.(*frameStats)
	stats.frames++

	rms := audio.RMS(frame.Data)
	stats.maxRMS = max(stats.maxRMS, rms)
	if rms < *fSilenceRMS {
		stats.silent++
	}

	if time.Since(stats.lastLog) > time.Second {
		stats.lastLog = time.Now()
		log.Debug().Int("frames", stats.frames).Float64("rms", rms).Str("frame", frame.String()).Msg("Observed")
	}
}
