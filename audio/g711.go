// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package audio

import (
	"encoding/binary"
	"io"

	"github.com/zaf/g711"
)

func DecodeUlawTo(lpcm []byte, ulaw []byte) (int, error) {
	return decodeG711To(lpcm, ulaw, g711.DecodeUlawFrame)
}

func DecodeAlawTo(lpcm []byte, alaw []byte) (int, error) {
	return decodeG711To(lpcm, alaw, g711.DecodeAlawFrame)
}

func EncodeUlawTo(ulaw []byte, lpcm []byte) (int, error) {
	return encodeG711To(ulaw, lpcm, g711.EncodeUlawFrame)
}

func EncodeAlawTo(alaw []byte, lpcm []byte) (int, error) {
	return encodeG711To(alaw, lpcm, g711.EncodeAlawFrame)
}

// Every G.711 byte expands to one 16 bit little endian sample
func decodeG711To(lpcm []byte, encoded []byte, decodeFrame func(byte) int16) (int, error) {
	if len(lpcm) < 2*len(encoded) {
		return 0, io.ErrShortBuffer
	}

	n := 0
	for _, b := range encoded {
		binary.LittleEndian.PutUint16(lpcm[n:], uint16(decodeFrame(b)))
		n += 2
	}
	return n, nil
}

func encodeG711To(encoded []byte, lpcm []byte, encodeFrame func(int16) byte) (int, error) {
	if len(lpcm) > 2*len(encoded) {
		return 0, io.ErrShortBuffer
	}

	n := 0
	for j := 0; j+1 < len(lpcm); j += 2 {
		encoded[n] = encodeFrame(int16(binary.LittleEndian.Uint16(lpcm[j:])))
		n++
	}
	return n, nil
}
