package scmi

import (
	"encoding/binary"
	"testing"
)

type fakeClock struct {
	name    string
	rate    uint64
	enabled bool
	hidden  bool
	gateErr Status
}

type fakeReset struct {
	name     string
	asserted bool
	cycles   int
	cycleErr Status
}

type fakeVoltage struct {
	name   string
	levels []int32
	fixed  int32
	level  int32
	config uint32
}

type fakeAgent struct {
	protocols []ProtocolID
	clocks    []*fakeClock
	resets    []*fakeReset
	voltages  []*fakeVoltage
}

type fakePlatform struct {
	agents    map[uint32]*fakeAgent
	gateCalls int
}

func (p *fakePlatform) agent(id uint32) *fakeAgent {
	if a, ok := p.agents[id]; ok {
		return a
	}
	return &fakeAgent{}
}

func (p *fakePlatform) VendorName() string            { return "ST" }
func (p *fakePlatform) SubVendorName() string         { return "a-sub-vendor-name-that-is-long" }
func (p *fakePlatform) ImplementationVersion() uint32 { return 0x00010002 }
func (p *fakePlatform) ProtocolCount() int            { return 3 }
func (p *fakePlatform) Protocols(agentID uint32) []ProtocolID {
	return p.agent(agentID).protocols
}

func (p *fakePlatform) ClockCount(agentID uint32) int { return len(p.agent(agentID).clocks) }
func (p *fakePlatform) ClockName(agentID, id uint32) (string, bool) {
	c := p.agent(agentID).clocks[id]
	return c.name, !c.hidden
}
func (p *fakePlatform) ClockRate(agentID, id uint32) (uint64, Status) {
	c := p.agent(agentID).clocks[id]
	if c.hidden {
		return 0, StatusDenied
	}
	return c.rate, StatusSuccess
}
func (p *fakePlatform) ClockEnabled(agentID, id uint32) bool {
	return p.agent(agentID).clocks[id].enabled
}
func (p *fakePlatform) SetClockState(agentID, id uint32, enable bool) Status {
	c := p.agent(agentID).clocks[id]
	if c.enabled == enable {
		return StatusSuccess
	}
	p.gateCalls++
	if c.gateErr != StatusSuccess {
		return c.gateErr
	}
	c.enabled = enable
	return StatusSuccess
}

func (p *fakePlatform) ResetDomainCount(agentID uint32) int { return len(p.agent(agentID).resets) }
func (p *fakePlatform) ResetDomainName(agentID, id uint32) (string, bool) {
	return p.agent(agentID).resets[id].name, true
}
func (p *fakePlatform) ResetAutonomous(agentID, id, state uint32) Status {
	r := p.agent(agentID).resets[id]
	if r.cycleErr != StatusSuccess {
		return r.cycleErr
	}
	r.cycles++
	return StatusSuccess
}
func (p *fakePlatform) SetResetState(agentID, id uint32, assert bool) Status {
	p.agent(agentID).resets[id].asserted = assert
	return StatusSuccess
}

func (p *fakePlatform) VoltageDomainCount(agentID uint32) int {
	return len(p.agent(agentID).voltages)
}
func (p *fakePlatform) VoltageDomainName(agentID, id uint32) (string, bool) {
	return p.agent(agentID).voltages[id].name, true
}
func (p *fakePlatform) VoltageLevelCount(agentID, id uint32) (int, Status) {
	v := p.agent(agentID).voltages[id]
	if v.levels == nil {
		return 0, StatusNotSupported
	}
	return len(v.levels), StatusSuccess
}
func (p *fakePlatform) VoltageLevels(agentID, id uint32, start int, dst []int32) (int, Status) {
	return copy(dst, p.agent(agentID).voltages[id].levels[start:]), StatusSuccess
}
func (p *fakePlatform) VoltageLevelRange(agentID, id uint32) (LevelRange, Status) {
	v := p.agent(agentID).voltages[id]
	return LevelRange{Min: v.fixed, Max: v.fixed}, StatusSuccess
}
func (p *fakePlatform) VoltageLevel(agentID, id uint32) (int32, Status) {
	return p.agent(agentID).voltages[id].level, StatusSuccess
}
func (p *fakePlatform) SetVoltageLevel(agentID, id uint32, uv int32) Status {
	v := p.agent(agentID).voltages[id]
	if v.levels == nil && uv != v.fixed {
		return StatusInvalidParameters
	}
	v.level = uv
	return StatusSuccess
}
func (p *fakePlatform) VoltageConfig(agentID, id uint32) (uint32, Status) {
	return p.agent(agentID).voltages[id].config, StatusSuccess
}
func (p *fakePlatform) SetVoltageConfig(agentID, id uint32, config uint32) Status {
	p.agent(agentID).voltages[id].config = config
	return StatusSuccess
}

func newFakePlatform() *fakePlatform {
	pmic := make([]int32, 14)
	for i := range pmic {
		pmic[i] = int32(1000000 + i*50000)
	}
	return &fakePlatform{agents: map[uint32]*fakeAgent{
		0: {
			protocols: []ProtocolID{ProtocolClock, ProtocolResetDomain, ProtocolVoltageDomain},
			clocks: []*fakeClock{
				{name: "ck_hse", rate: 24000000, enabled: true},
				{name: "ck_hsi", rate: 64000000},
				{name: "ck_mpu", rate: 650000000, hidden: true},
				{name: "pll_big", rate: 0x1_0000_0002},
			},
			resets: []*fakeReset{
				{name: "spi6"},
				{name: "mcu_hold_boot", cycleErr: StatusNotSupported},
			},
			voltages: []*fakeVoltage{
				{name: "reg11", fixed: 1100000, level: 1100000},
				{name: "buck1", levels: pmic, level: 1200000, config: VoltageConfigArchOn},
			},
		},
		1: {
			protocols: []ProtocolID{ProtocolClock},
			clocks:    []*fakeClock{{name: "pll3_q", rate: 208877930}},
		},
	}}
}

func request(words ...uint32) []byte {
	out := make([]byte, 0, 4*len(words))
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

func dispatch(t *testing.T, s *Server, agent uint32, protocol ProtocolID, message uint8, in []byte) *Message {
	t.Helper()
	msg, err := NewMessage(agent, Header{ProtocolID: protocol, MessageID: message}, in, make([]byte, 100))
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	s.Dispatch(msg)
	if msg.OutSize() < 4 || msg.OutSize() > len(msg.Out) {
		t.Fatalf("expected response size within [4,%d], got %d", len(msg.Out), msg.OutSize())
	}
	return msg
}

func word(t *testing.T, msg *Message, i int) uint32 {
	t.Helper()
	resp := msg.Response()
	if len(resp) < 4*(i+1) {
		t.Fatalf("expected at least %d response bytes, got %d", 4*(i+1), len(resp))
	}
	return binary.LittleEndian.Uint32(resp[4*i:])
}

func expectStatus(t *testing.T, msg *Message, want Status) {
	t.Helper()
	if got := msg.Status(); got != want {
		t.Fatalf("expected status %s, got %s", want, got)
	}
	if want != StatusSuccess && msg.OutSize() != 4 {
		t.Fatalf("expected status-only response, got %d bytes", msg.OutSize())
	}
}
