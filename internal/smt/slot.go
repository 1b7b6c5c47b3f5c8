// Package smt implements the SCMI Shared Memory Transport: one slot per
// agent channel, written by the agent, processed by the platform.
package smt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	offStatus  = 4
	offFlags   = 16
	offLength  = 20
	offHeader  = 24
	offPayload = 28

	// DefaultSlotSize is the per-agent slot reserved in shared memory.
	DefaultSlotSize = 128
	// MinSlotSize holds the header plus one status word.
	MinSlotSize = offPayload + 4
)

// Channel status bits.
const (
	StatusFree  uint32 = 1 << 0
	StatusError uint32 = 1 << 1
)

// FlagInterrupt asks for a completion interrupt instead of polling.
const FlagInterrupt uint32 = 1 << 0

var (
	ErrSlotTooSmall    = errors.New("smt: slot smaller than header")
	ErrPayloadTooLarge = errors.New("smt: payload exceeds slot capacity")
	ErrBadLength       = errors.New("smt: length field out of range")
	ErrChannelBusy     = errors.New("smt: channel already being processed")
	ErrChannelIdle     = errors.New("smt: channel has no pending message")
	ErrChannelFailed   = errors.New("smt: platform flagged a channel error")
)

// Slot is a view over one shared-memory slot.
type Slot []byte

func (s Slot) u32(off int) uint32        { return binary.LittleEndian.Uint32(s[off:]) }
func (s Slot) put32(off int, v uint32)   { binary.LittleEndian.PutUint32(s[off:], v) }
func (s Slot) ChannelStatus() uint32     { return s.u32(offStatus) }
func (s Slot) SetChannelStatus(v uint32) { s.put32(offStatus, v) }
func (s Slot) Flags() uint32             { return s.u32(offFlags) }
func (s Slot) Length() uint32            { return s.u32(offLength) }
func (s Slot) Header() uint32            { return s.u32(offHeader) }

// Capacity is the largest payload the slot can carry.
func (s Slot) Capacity() int { return len(s) - offPayload }

// Payload returns the payload bytes announced by the length field.
func (s Slot) Payload() ([]byte, error) {
	length := s.Length()
	if length < 4 || uint64(length-4) > uint64(s.Capacity()) {
		return nil, fmt.Errorf("%w: %d", ErrBadLength, length)
	}
	return s[offPayload : offPayload+int(length-4)], nil
}

// WriteRequest is the agent side: it posts a message and marks the channel
// busy.
func (s Slot) WriteRequest(header uint32, payload []byte, interrupt bool) error {
	if len(s) < MinSlotSize {
		return ErrSlotTooSmall
	}
	if len(payload) > s.Capacity() {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), s.Capacity())
	}
	var flags uint32
	if interrupt {
		flags = FlagInterrupt
	}
	s.put32(offFlags, flags)
	s.put32(offLength, uint32(4+len(payload)))
	s.put32(offHeader, header)
	copy(s[offPayload:], payload)
	s.SetChannelStatus(0)
	return nil
}

// ReadResponse is the agent side: it returns the platform's reply once the
// channel is free again.
func (s Slot) ReadResponse() (uint32, []byte, error) {
	if len(s) < MinSlotSize {
		return 0, nil, ErrSlotTooSmall
	}
	st := s.ChannelStatus()
	if st&StatusFree == 0 {
		return 0, nil, ErrChannelBusy
	}
	if st&StatusError != 0 {
		return 0, nil, ErrChannelFailed
	}
	payload, err := s.Payload()
	if err != nil {
		return 0, nil, err
	}
	return s.Header(), payload, nil
}
