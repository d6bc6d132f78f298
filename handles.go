// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package remotetrack

import (
	"sync"
	"sync/atomic"
)

// Handle is opaque reference to registered remote audio track.
// Handles are never reused so stale handle never points to other track.
type Handle uint64

const InvalidHandle Handle = 0

// DefaultHandles is table used by package level functions
var DefaultHandles = NewHandles()

// Shared by all tables so handle value identifies track in any of them
var handleSeq atomic.Uint64

// Handles resolves handles to tracks. Operations on unknown handle
// return defaults instead of failing.
type Handles struct {
	mu      sync.RWMutex
	tracks  map[Handle]*RemoteAudioTrack
	byTrack map[*RemoteAudioTrack]Handle
}

func NewHandles() *Handles {
	return &Handles{
		tracks:  make(map[Handle]*RemoteAudioTrack),
		byTrack: make(map[*RemoteAudioTrack]Handle),
	}
}

// Register adds track and returns its handle.
// Registering already registered track returns existing handle.
// Track keeps handle of first table it was registered in.
func (h *Handles) Register(t *RemoteAudioTrack) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.byTrack[t]; ok {
		return cur
	}

	handle := Handle(handleSeq.Add(1))
	h.tracks[handle] = t
	h.byTrack[t] = handle
	t.handle.CompareAndSwap(uint64(InvalidHandle), uint64(handle))
	return handle
}

// Unregister removes handle and returns track it pointed to
func (h *Handles) Unregister(handle Handle) (*RemoteAudioTrack, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tracks[handle]
	if !ok {
		return nil, false
	}
	delete(h.tracks, handle)
	delete(h.byTrack, t)
	t.handle.CompareAndSwap(uint64(handle), uint64(InvalidHandle))
	return t, true
}

func (h *Handles) Track(handle Handle) (*RemoteAudioTrack, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t, ok := h.tracks[handle]
	return t, ok
}

func (h *Handles) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tracks)
}

func (h *Handles) SetUserData(handle Handle, v any) {
	if t, ok := h.Track(handle); ok {
		t.SetUserData(v)
	}
}

func (h *Handles) GetUserData(handle Handle) any {
	if t, ok := h.Track(handle); ok {
		return t.UserData()
	}
	return nil
}

func (h *Handles) RegisterFrameCallback(handle Handle, cb FrameCallback, userCtx any) {
	if t, ok := h.Track(handle); ok {
		t.RegisterFrameCallback(cb, userCtx)
	}
}

func (h *Handles) SetEnabled(handle Handle, enabled bool) error {
	t, ok := h.Track(handle)
	if !ok {
		return ErrInvalidHandle
	}
	return t.SetEnabled(enabled)
}

func (h *Handles) IsEnabled(handle Handle) bool {
	if t, ok := h.Track(handle); ok {
		return t.IsEnabled()
	}
	return false
}

func (h *Handles) SetOutputToDevice(handle Handle, output bool) {
	if t, ok := h.Track(handle); ok {
		t.SetOutputToDevice(output)
	}
}

func (h *Handles) IsOutputToDevice(handle Handle) bool {
	if t, ok := h.Track(handle); ok {
		return t.IsOutputToDevice()
	}
	return false
}

// SetUserData assigns opaque user data to track. Not safe for concurrent use on same track.
func SetUserData(handle Handle, v any) {
	DefaultHandles.SetUserData(handle, v)
}

// GetUserData returns user data previously set or nil.
func GetUserData(handle Handle) any {
	return DefaultHandles.GetUserData(handle)
}

// RegisterFrameCallback replaces frame observer of track. Nil callback clears it.
func RegisterFrameCallback(handle Handle, cb FrameCallback, userCtx any) {
	DefaultHandles.RegisterFrameCallback(handle, cb, userCtx)
}

// SetEnabled mutes or unmutes track. Returns ErrInvalidHandle for unknown handle.
func SetEnabled(handle Handle, enabled bool) error {
	return DefaultHandles.SetEnabled(handle, enabled)
}

// IsEnabled returns false for unknown handle
func IsEnabled(handle Handle) bool {
	return DefaultHandles.IsEnabled(handle)
}

// SetOutputToDevice is best effort. Platform may ignore it.
func SetOutputToDevice(handle Handle, output bool) {
	DefaultHandles.SetOutputToDevice(handle, output)
}

// IsOutputToDevice returns false for unknown handle
func IsOutputToDevice(handle Handle) bool {
	return DefaultHandles.IsOutputToDevice(handle)
}
