// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package audio

import (
	"encoding/binary"
	"math"
)

// RMS computes root mean square energy of 16 bit LPCM samples
func RMS(lpcm []byte) float64 {
	numSamples := len(lpcm) / 2
	if numSamples == 0 {
		return 0
	}

	var sumSquares float64
	for i := 0; i+1 < len(lpcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(lpcm[i:])))
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(numSamples))
}

// RMS Silence detection. Useful for clean audio samples
func SilenceDetectRMS(lpcm []byte, threshold float64) bool {
	return RMS(lpcm) < threshold
}
