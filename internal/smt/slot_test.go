package smt

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/scmictl/internal/config"
	"github.com/danmuck/scmictl/internal/platform"
	"github.com/danmuck/scmictl/internal/platform/sim"
	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/testutil/testlog"
)

type countingDispatcher struct {
	calls int
}

func (d *countingDispatcher) Dispatch(msg *scmi.Message) { d.calls++ }

// tamperingDispatcher rewrites shared memory before handing the message on.
type tamperingDispatcher struct {
	slot Slot
	next Dispatcher
	seen []byte
}

func (d *tamperingDispatcher) Dispatch(msg *scmi.Message) {
	copy(d.slot[offPayload:], []byte{0xff, 0xff, 0xff, 0xff})
	d.seen = append([]byte(nil), msg.In...)
	d.next.Dispatch(msg)
}

func newServer(t *testing.T) *scmi.Server {
	t.Helper()
	b := config.DefaultBoard()
	hw := sim.FromBoard(b, 0)
	p, err := platform.New(b, platform.Backends{Clocks: hw.Clocks, Resets: hw.Resets, PWR: hw.PWR, PMIC: hw.PMIC})
	if err != nil {
		t.Fatalf("platform: %v", err)
	}
	return scmi.NewServer(p)
}

func newChannel(t *testing.T) *Channel {
	t.Helper()
	ch, err := NewChannel(1, make([]byte, DefaultSlotSize))
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	return ch
}

func TestNewChannelStartsFree(t *testing.T) {
	ch := newChannel(t)
	if ch.Slot().ChannelStatus() != StatusFree {
		t.Fatalf("expected free channel, got %#x", ch.Slot().ChannelStatus())
	}
	if _, err := NewChannel(0, make([]byte, MinSlotSize-1)); !errors.Is(err, ErrSlotTooSmall) {
		t.Fatalf("expected ErrSlotTooSmall, got %v", err)
	}
}

func TestProcessIdleChannel(t *testing.T) {
	ch := newChannel(t)
	d := &countingDispatcher{}
	if _, err := ch.Process(d); !errors.Is(err, ErrChannelIdle) {
		t.Fatalf("expected ErrChannelIdle, got %v", err)
	}
	if d.calls != 0 {
		t.Fatalf("expected no dispatch on idle channel")
	}
}

func TestProcessMalformedLength(t *testing.T) {
	testlog.Start(t)
	ch := newChannel(t)
	s := ch.Slot()
	if err := s.WriteRequest(0x10, nil, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	s.put32(offLength, 3)

	d := &countingDispatcher{}
	if _, err := ch.Process(d); !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected ErrBadLength, got %v", err)
	}
	if s.ChannelStatus() != StatusError|StatusFree || d.calls != 0 {
		t.Fatalf("expected error|free without dispatch, got %#x calls=%d", s.ChannelStatus(), d.calls)
	}
	if _, _, err := s.ReadResponse(); !errors.Is(err, ErrChannelFailed) {
		t.Fatalf("expected agent to see channel error, got %v", err)
	}

	_ = s.WriteRequest(0x10, nil, false)
	s.put32(offLength, uint32(4+s.Capacity()+1))
	if _, err := ch.Process(d); !errors.Is(err, ErrBadLength) {
		t.Fatalf("expected oversize length rejected, got %v", err)
	}
}

func TestProcessCopiesPayloadBeforeDispatch(t *testing.T) {
	testlog.Start(t)
	ch, err := NewChannel(0, make([]byte, DefaultSlotSize))
	if err != nil {
		t.Fatalf("new channel: %v", err)
	}
	s := ch.Slot()
	h := scmi.Header{ProtocolID: scmi.ProtocolClock, MessageID: scmi.MsgClockRateGet, Token: 7}
	if err := s.WriteRequest(h.Pack(), []byte{0, 0, 0, 0}, true); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := &tamperingDispatcher{slot: s, next: newServer(t)}
	interrupt, err := ch.Process(d)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !interrupt {
		t.Fatalf("expected interrupt flag reported")
	}
	if string(d.seen) != string([]byte{0, 0, 0, 0}) {
		t.Fatalf("expected dispatcher to see the original payload, got %x", d.seen)
	}

	header, payload, err := s.ReadResponse()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if header != h.Pack() {
		t.Fatalf("expected header %#x echoed, got %#x", h.Pack(), header)
	}
	if len(payload) != 12 {
		t.Fatalf("expected 12-byte rate response, got %d", len(payload))
	}
	status := int32(binary.LittleEndian.Uint32(payload))
	rate := binary.LittleEndian.Uint32(payload[4:])
	if status != 0 || rate != 24000000 {
		t.Fatalf("expected SUCCESS 24000000, got status=%d rate=%d", status, rate)
	}
}

func TestProcessUnknownProtocol(t *testing.T) {
	testlog.Start(t)
	ch := newChannel(t)
	s := ch.Slot()
	h := scmi.Header{ProtocolID: 0x19, MessageID: 0}
	_ = s.WriteRequest(h.Pack(), nil, false)
	if _, err := ch.Process(newServer(t)); err != nil {
		t.Fatalf("process: %v", err)
	}
	_, payload, err := s.ReadResponse()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if len(payload) != 4 || int32(binary.LittleEndian.Uint32(payload)) != int32(scmi.StatusNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED status only, got %x", payload)
	}
}

func TestProcessRejectsConcurrentEntry(t *testing.T) {
	ch := newChannel(t)
	ch.busy.Store(true)
	if _, err := ch.Process(&countingDispatcher{}); !errors.Is(err, ErrChannelBusy) {
		t.Fatalf("expected ErrChannelBusy, got %v", err)
	}
}

func TestWriteRequestTooLarge(t *testing.T) {
	s := Slot(make([]byte, DefaultSlotSize))
	if err := s.WriteRequest(0, make([]byte, 101), false); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}
