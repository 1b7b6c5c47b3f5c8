package scmi

import (
	"testing"

	"github.com/danmuck/scmictl/internal/testutil/testlog"
)

func TestVoltageDomainAttributes(t *testing.T) {
	testlog.Start(t)
	s := NewServer(newFakePlatform())

	msg := dispatch(t, s, 0, ProtocolVoltageDomain, MsgProtocolAttributes, nil)
	if got := word(t, msg, 1); got != 2 {
		t.Fatalf("expected 2 voltage domains, got %d", got)
	}
	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageDomainAttributes, request(1))
	expectStatus(t, msg, StatusSuccess)
	if got := DecodeName(msg.Response()[8:]); got != "buck1" {
		t.Fatalf("expected buck1, got %q", got)
	}
	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageDomainAttributes, request(2))
	expectStatus(t, msg, StatusNotFound)
}

func TestVoltageDescribeLevelsTriplet(t *testing.T) {
	testlog.Start(t)
	s := NewServer(newFakePlatform())
	msg := dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageDescribeLevels, request(0, 0))
	expectStatus(t, msg, StatusSuccess)

	count, triplet, remaining := SplitLevelsFlags(word(t, msg, 1))
	if count != 3 || !triplet || remaining != 0 {
		t.Fatalf("expected triplet format, got count=%d triplet=%v remaining=%d", count, triplet, remaining)
	}
	if lo, hi, step := word(t, msg, 2), word(t, msg, 3), word(t, msg, 4); lo != 1100000 || hi != 1100000 || step != 0 {
		t.Fatalf("expected (1100000,1100000,0), got (%d,%d,%d)", lo, hi, step)
	}
}

func TestVoltageDescribeLevelsPaginated(t *testing.T) {
	testlog.Start(t)
	s := NewServer(newFakePlatform())

	msg := dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageDescribeLevels, request(1, 0))
	count, triplet, remaining := SplitLevelsFlags(word(t, msg, 1))
	if count != MaxLevelsPerChunk || triplet || remaining != 4 {
		t.Fatalf("expected 10 entries with 4 remaining, got count=%d triplet=%v remaining=%d", count, triplet, remaining)
	}
	if first := word(t, msg, 2); first != 1000000 {
		t.Fatalf("expected first level 1000000, got %d", first)
	}

	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageDescribeLevels, request(1, 10))
	count, _, remaining = SplitLevelsFlags(word(t, msg, 1))
	if count != 4 || remaining != 0 {
		t.Fatalf("expected 4 entries and none remaining, got count=%d remaining=%d", count, remaining)
	}
	if msg.OutSize() != 8+4*4 {
		t.Fatalf("expected %d bytes, got %d", 8+4*4, msg.OutSize())
	}
	if last := word(t, msg, 5); last != 1650000 {
		t.Fatalf("expected last level 1650000, got %d", last)
	}

	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageDescribeLevels, request(1, 14))
	expectStatus(t, msg, StatusInvalidParameters)

	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageDescribeLevels, request(2, 0))
	expectStatus(t, msg, StatusInvalidParameters)
}

func TestVoltageConfig(t *testing.T) {
	testlog.Start(t)
	p := newFakePlatform()
	s := NewServer(p)

	msg := dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageConfigSet, request(0, VoltageConfigArchOn))
	expectStatus(t, msg, StatusSuccess)
	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageConfigGet, request(0))
	if got := word(t, msg, 1); got != VoltageConfigArchOn {
		t.Fatalf("expected config ON, got %#x", got)
	}

	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageConfigSet, request(0, 0x3))
	expectStatus(t, msg, StatusInvalidParameters)
	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageConfigSet, request(0, 0xf0|VoltageConfigArchOff))
	expectStatus(t, msg, StatusSuccess)
	if p.agents[0].voltages[0].config != VoltageConfigArchOff {
		t.Fatalf("expected only mode bits forwarded, got %#x", p.agents[0].voltages[0].config)
	}

	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageConfigGet, request(2))
	expectStatus(t, msg, StatusInvalidParameters)
}

func TestVoltageLevel(t *testing.T) {
	testlog.Start(t)
	s := NewServer(newFakePlatform())

	msg := dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageLevelSet, request(1, 0, 1300000))
	expectStatus(t, msg, StatusSuccess)
	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageLevelGet, request(1))
	if got := int32(word(t, msg, 1)); got != 1300000 {
		t.Fatalf("expected 1300000, got %d", got)
	}

	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageLevelSet, request(0, 0, 1800000))
	expectStatus(t, msg, StatusInvalidParameters)

	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageLevelSet, request(1, VoltageLevelSetAsync, 1300000))
	expectStatus(t, msg, StatusNotSupported)

	msg = dispatch(t, s, 0, ProtocolVoltageDomain, MsgVoltageLevelGet, request(2))
	expectStatus(t, msg, StatusInvalidParameters)
}
