package platform

import (
	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/scmi/nospec"
)

func (p *Platform) clock(agentID, clockID uint32) (*agent, *clock) {
	a := p.agent(agentID)
	c, ok := nospec.Load(a.clocks, clockID, nil)
	if !ok {
		return a, nil
	}
	return a, c
}

func (p *Platform) ClockCount(agentID uint32) int {
	return len(p.agent(agentID).clocks)
}

func (p *Platform) ClockName(agentID, clockID uint32) (string, bool) {
	a, c := p.clock(agentID, clockID)
	if c == nil || !a.allowed(c.secure) {
		return "", false
	}
	return c.name, true
}

func (p *Platform) ClockRate(agentID, clockID uint32) (uint64, scmi.Status) {
	a, c := p.clock(agentID, clockID)
	if c == nil {
		return 0, scmi.StatusNotFound
	}
	if !a.allowed(c.secure) {
		return 0, scmi.StatusDenied
	}
	rate, err := p.hw.Clocks.Rate(c.hw)
	if err != nil {
		p.log.Error().Str("clock", c.name).Err(err).Msg("clock rate read failed")
		return 0, scmi.StatusHardwareError
	}
	return rate, scmi.StatusSuccess
}

func (p *Platform) ClockEnabled(agentID, clockID uint32) bool {
	a, c := p.clock(agentID, clockID)
	if c == nil || !a.allowed(c.secure) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return c.enabled
}

// SetClockState only touches the gate on a state change. The cached state
// follows the gate write and is left alone when it fails.
func (p *Platform) SetClockState(agentID, clockID uint32, enable bool) scmi.Status {
	a, c := p.clock(agentID, clockID)
	if c == nil {
		return scmi.StatusNotFound
	}
	if !a.allowed(c.secure) {
		return scmi.StatusDenied
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c.enabled == enable {
		return scmi.StatusSuccess
	}
	var err error
	if enable {
		err = p.hw.Clocks.Enable(c.hw)
	} else {
		err = p.hw.Clocks.Disable(c.hw)
	}
	if err != nil {
		p.log.Error().
			Uint32("agent", agentID).
			Str("clock", c.name).
			Bool("enable", enable).
			Err(err).
			Msg("clock gate failed")
		return scmi.StatusHardwareError
	}
	c.enabled = enable
	p.log.Debug().Uint32("agent", agentID).Str("clock", c.name).Bool("enable", enable).Msg("clock gated")
	return scmi.StatusSuccess
}
