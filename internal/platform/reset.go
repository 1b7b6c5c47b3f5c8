package platform

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/scmi/nospec"
)

var ErrResetTimeout = errors.New("platform: reset line did not acknowledge")

const resetPollInterval = 10 * time.Microsecond

func (p *Platform) reset(agentID, domainID uint32) (*agent, *resetDomain) {
	a := p.agent(agentID)
	r, ok := nospec.Load(a.resets, domainID, nil)
	if !ok {
		return a, nil
	}
	return a, r
}

func (p *Platform) ResetDomainCount(agentID uint32) int {
	return len(p.agent(agentID).resets)
}

func (p *Platform) ResetDomainName(agentID, domainID uint32) (string, bool) {
	a, r := p.reset(agentID, domainID)
	if r == nil || !a.allowed(r.secure) {
		return "", false
	}
	return r.name, true
}

// ResetAutonomous asserts then deasserts the line, waiting for the
// acknowledge of each phase. The MCU hold boot control does not cycle.
func (p *Platform) ResetAutonomous(agentID, domainID, state uint32) scmi.Status {
	a, r := p.reset(agentID, domainID)
	if r == nil {
		return scmi.StatusNotFound
	}
	if !a.allowed(r.secure) {
		return scmi.StatusDenied
	}
	if r.holdBoot || state != scmi.ResetStateContextLoss {
		return scmi.StatusNotSupported
	}

	if err := p.driveReset(r, true); err != nil {
		p.log.Error().Str("reset", r.name).Err(err).Msg("reset assert failed")
		return scmi.StatusHardwareError
	}
	if err := p.driveReset(r, false); err != nil {
		p.log.Error().Str("reset", r.name).Err(err).Msg("reset deassert failed")
		return scmi.StatusHardwareError
	}
	p.log.Debug().Uint32("agent", agentID).Str("reset", r.name).Msg("reset cycled")
	return scmi.StatusSuccess
}

func (p *Platform) SetResetState(agentID, domainID uint32, assert bool) scmi.Status {
	a, r := p.reset(agentID, domainID)
	if r == nil {
		return scmi.StatusNotFound
	}
	if !a.allowed(r.secure) {
		return scmi.StatusDenied
	}

	var err error
	switch {
	case r.holdBoot:
		err = p.hw.Resets.SetMCUHoldBoot(assert)
	case assert:
		err = p.hw.Resets.Set(r.hw)
	default:
		err = p.hw.Resets.Release(r.hw)
	}
	if err != nil {
		p.log.Error().Str("reset", r.name).Bool("assert", assert).Err(err).Msg("reset request failed")
		return scmi.StatusHardwareError
	}
	p.log.Debug().Uint32("agent", agentID).Str("reset", r.name).Bool("assert", assert).Msg("reset state set")
	return scmi.StatusSuccess
}

// driveReset requests a state and polls the acknowledge until it matches or
// the domain timeout expires.
func (p *Platform) driveReset(r *resetDomain, assert bool) error {
	var err error
	if assert {
		err = p.hw.Resets.Set(r.hw)
	} else {
		err = p.hw.Resets.Release(r.hw)
	}
	if err != nil {
		return err
	}

	deadline := time.Now().Add(r.timeout)
	for {
		got, err := p.hw.Resets.Asserted(r.hw)
		if err != nil {
			return err
		}
		if got == assert {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrResetTimeout, r.name, r.timeout)
		}
		time.Sleep(resetPollInterval)
	}
}
