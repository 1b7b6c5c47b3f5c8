package platform

import (
	"math"

	"github.com/danmuck/scmictl/internal/config"
	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/scmi/nospec"
)

// PMIC levels are programmed in millivolts on 16 bits.
const maxPMICMicrovolts = math.MaxUint16 * 1000

func (p *Platform) voltage(agentID, domainID uint32) (*agent, *voltageDomain) {
	a := p.agent(agentID)
	v, ok := nospec.Load(a.voltages, domainID, nil)
	if !ok {
		return a, nil
	}
	return a, v
}

// voltageAccess resolves a domain and applies the access policy.
func (p *Platform) voltageAccess(agentID, domainID uint32) (*voltageDomain, scmi.Status) {
	a, v := p.voltage(agentID, domainID)
	if v == nil {
		return nil, scmi.StatusNotFound
	}
	if !a.allowed(v.secure) {
		return nil, scmi.StatusDenied
	}
	return v, scmi.StatusSuccess
}

func (p *Platform) VoltageDomainCount(agentID uint32) int {
	return len(p.agent(agentID).voltages)
}

func (p *Platform) VoltageDomainName(agentID, domainID uint32) (string, bool) {
	a, v := p.voltage(agentID, domainID)
	if v == nil || !a.allowed(v.secure) {
		return "", false
	}
	return v.name, true
}

// VoltageLevelCount reports PWR rails as range-only.
func (p *Platform) VoltageLevelCount(agentID, domainID uint32) (int, scmi.Status) {
	v, st := p.voltageAccess(agentID, domainID)
	if st != scmi.StatusSuccess {
		return 0, st
	}
	if v.kind != config.RegulatorPMIC {
		return 0, scmi.StatusNotSupported
	}
	levels, err := p.hw.PMIC.LevelsMV(v.regulator)
	if err != nil {
		return 0, p.hardwareFault(v, "pmic levels", err)
	}
	return len(levels), scmi.StatusSuccess
}

func (p *Platform) VoltageLevels(agentID, domainID uint32, start int, dst []int32) (int, scmi.Status) {
	v, st := p.voltageAccess(agentID, domainID)
	if st != scmi.StatusSuccess {
		return 0, st
	}
	if v.kind != config.RegulatorPMIC {
		return 0, scmi.StatusNotSupported
	}
	levels, err := p.hw.PMIC.LevelsMV(v.regulator)
	if err != nil {
		return 0, p.hardwareFault(v, "pmic levels", err)
	}
	if start < 0 || start >= len(levels) {
		return 0, scmi.StatusOutOfRange
	}
	n := 0
	for _, mv := range levels[start:] {
		if n == len(dst) {
			break
		}
		dst[n] = int32(mv) * 1000
		n++
	}
	return n, scmi.StatusSuccess
}

func (p *Platform) VoltageLevelRange(agentID, domainID uint32) (scmi.LevelRange, scmi.Status) {
	v, st := p.voltageAccess(agentID, domainID)
	if st != scmi.StatusSuccess {
		return scmi.LevelRange{}, st
	}
	if v.kind != config.RegulatorPWR {
		return scmi.LevelRange{}, scmi.StatusNotSupported
	}
	mv, err := p.hw.PWR.LevelMV(v.regulator)
	if err != nil {
		return scmi.LevelRange{}, p.hardwareFault(v, "pwr level", err)
	}
	uv := int32(mv) * 1000
	return scmi.LevelRange{Min: uv, Max: uv, Step: 0}, scmi.StatusSuccess
}

func (p *Platform) VoltageLevel(agentID, domainID uint32) (int32, scmi.Status) {
	v, st := p.voltageAccess(agentID, domainID)
	if st != scmi.StatusSuccess {
		return 0, st
	}
	var mv uint16
	var err error
	if v.kind == config.RegulatorPWR {
		mv, err = p.hw.PWR.LevelMV(v.regulator)
	} else {
		mv, err = p.hw.PMIC.LevelMV(v.regulator)
	}
	if err != nil {
		return 0, p.hardwareFault(v, "level read", err)
	}
	return int32(mv) * 1000, scmi.StatusSuccess
}

// SetVoltageLevel accepts only the fixed level on PWR rails. PMIC levels
// are truncated to millivolts and must hit the regulator table.
func (p *Platform) SetVoltageLevel(agentID, domainID uint32, microvolts int32) scmi.Status {
	v, st := p.voltageAccess(agentID, domainID)
	if st != scmi.StatusSuccess {
		return st
	}
	if v.kind == config.RegulatorPWR {
		mv, err := p.hw.PWR.LevelMV(v.regulator)
		if err != nil {
			return p.hardwareFault(v, "pwr level", err)
		}
		if int64(microvolts) != int64(mv)*1000 {
			return scmi.StatusInvalidParameters
		}
		return scmi.StatusSuccess
	}

	if microvolts < 0 || int64(microvolts) > maxPMICMicrovolts {
		return scmi.StatusInvalidParameters
	}
	mv := uint16(microvolts / 1000)
	if err := p.hw.PMIC.SetLevelMV(v.regulator, mv); err != nil {
		p.log.Error().Str("regulator", v.regulator).Uint16("mv", mv).Err(err).Msg("pmic level set failed")
		return scmi.StatusGenericError
	}
	p.log.Debug().Uint32("agent", agentID).Str("regulator", v.regulator).Uint16("mv", mv).Msg("pmic level set")
	return scmi.StatusSuccess
}

func (p *Platform) VoltageConfig(agentID, domainID uint32) (uint32, scmi.Status) {
	v, st := p.voltageAccess(agentID, domainID)
	if st != scmi.StatusSuccess {
		return 0, st
	}
	var on bool
	var err error
	if v.kind == config.RegulatorPWR {
		on, err = p.hw.PWR.Enabled(v.regulator)
	} else {
		on, err = p.hw.PMIC.Enabled(v.regulator)
	}
	if err != nil {
		return 0, p.hardwareFault(v, "enable read", err)
	}
	if on {
		return scmi.VoltageConfigArchOn, scmi.StatusSuccess
	}
	return scmi.VoltageConfigArchOff, scmi.StatusSuccess
}

// SetVoltageConfig maps ARCH_ON/ARCH_OFF onto the regulator enable. A PWR
// rail that never reports ready is a hardware error, a PMIC write failure a
// generic one.
func (p *Platform) SetVoltageConfig(agentID, domainID uint32, mode uint32) scmi.Status {
	v, st := p.voltageAccess(agentID, domainID)
	if st != scmi.StatusSuccess {
		return st
	}
	on := mode&scmi.VoltageConfigMask == scmi.VoltageConfigArchOn

	if v.kind == config.RegulatorPWR {
		if err := p.hw.PWR.SetEnabled(v.regulator, on); err != nil {
			return p.hardwareFault(v, "pwr enable", err)
		}
	} else if err := p.hw.PMIC.SetEnabled(v.regulator, on); err != nil {
		p.log.Error().Str("regulator", v.regulator).Bool("on", on).Err(err).Msg("pmic enable failed")
		return scmi.StatusGenericError
	}
	p.log.Debug().Uint32("agent", agentID).Str("regulator", v.regulator).Bool("on", on).Msg("regulator switched")
	return scmi.StatusSuccess
}

func (p *Platform) hardwareFault(v *voltageDomain, op string, err error) scmi.Status {
	p.log.Error().Str("regulator", v.regulator).Str("op", op).Err(err).Msg("regulator access failed")
	return scmi.StatusHardwareError
}
