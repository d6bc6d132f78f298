// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: Copyright (c) 2024, Emir Aganovic

package media

import (
	"errors"
)

var (
	// RFC 3550 recommended
	maxMisorder uint16 = 100
	maxDropout  uint16 = 3000
	maxSeqNum   uint16 = 65535
)

var (
	ErrRTPSequenceBad       = errors.New("bad sequence")
	ErrRTPSequenceDuplicate = errors.New("sequence duplicate")
)

// RTPExtendedSequenceNumber tracks highest received sequence and wraparounds.
// For thread safety you should wrap it
type RTPExtendedSequenceNumber struct {
	seqNum           uint16 // highest sequence received
	wrapArroundCount uint16

	badSeq uint16
}

func (sn *RTPExtendedSequenceNumber) InitSeq(seq uint16) {
	sn.seqNum = seq
	sn.badSeq = maxSeqNum
	sn.wrapArroundCount = 0
}

// Based on https://datatracker.ietf.org/doc/html/rfc1889#appendix-A.2
func (sn *RTPExtendedSequenceNumber) UpdateSeq(seq uint16) error {
	maxSeq := sn.seqNum

	udelta := seq - maxSeq
	if udelta == 0 {
		return ErrRTPSequenceDuplicate
	}

	if udelta < maxDropout {
		if seq < maxSeq {
			sn.wrapArroundCount++
		}
		sn.seqNum = seq
		return nil
	}

	if udelta <= maxSeqNum-maxMisorder {
		// sequence number made a very large jump
		if seq == sn.badSeq {
			sn.InitSeq(seq)
			return nil
		}

		sn.badSeq = seq + 1
		return ErrRTPSequenceBad
	}

	// Late or duplicate packet within misorder window
	return ErrRTPSequenceDuplicate
}

func (sn *RTPExtendedSequenceNumber) ReadExtendedSeq() uint64 {
	return uint64(sn.seqNum) + (uint64(maxSeqNum)+1)*uint64(sn.wrapArroundCount)
}
