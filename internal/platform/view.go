package platform

import "github.com/danmuck/scmictl/internal/scmi"

type AgentView struct {
	ID        uint32        `json:"id"`
	Name      string        `json:"name"`
	Secure    bool          `json:"secure"`
	Protocols []string      `json:"protocols"`
	Clocks    []ClockView   `json:"clocks"`
	Resets    []ResetView   `json:"resets"`
	Voltages  []VoltageView `json:"voltages"`
}

type ClockView struct {
	ID      uint32 `json:"id"`
	Name    string `json:"name"`
	Rate    uint64 `json:"rate"`
	Enabled bool   `json:"enabled"`
}

type ResetView struct {
	ID          uint32 `json:"id"`
	Name        string `json:"name"`
	MCUHoldBoot bool   `json:"mcu_hold_boot,omitempty"`
}

type VoltageView struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	Regulator  string `json:"regulator"`
	Kind       string `json:"kind"`
	Microvolts int32  `json:"microvolts"`
	On         bool   `json:"on"`
}

// Agents snapshots every agent the way that agent itself would see it:
// resources it may not access are left out.
func (p *Platform) Agents() []AgentView {
	views := make([]AgentView, 0, len(p.agents))
	for _, a := range p.agents {
		views = append(views, p.agentView(a))
	}
	return views
}

// Agent returns one agent view, false for IDs outside the board.
func (p *Platform) Agent(agentID uint32) (AgentView, bool) {
	a := p.agent(agentID)
	if a == noAgent {
		return AgentView{}, false
	}
	return p.agentView(a), true
}

func (p *Platform) agentView(a *agent) AgentView {
	v := AgentView{ID: a.id, Name: a.name, Secure: a.secure}
	for _, id := range a.protocols {
		v.Protocols = append(v.Protocols, id.String())
	}
	for i, c := range a.clocks {
		if !a.allowed(c.secure) {
			continue
		}
		rate, _ := p.ClockRate(a.id, uint32(i))
		v.Clocks = append(v.Clocks, ClockView{
			ID:      uint32(i),
			Name:    c.name,
			Rate:    rate,
			Enabled: p.ClockEnabled(a.id, uint32(i)),
		})
	}
	for i, r := range a.resets {
		if !a.allowed(r.secure) {
			continue
		}
		v.Resets = append(v.Resets, ResetView{ID: uint32(i), Name: r.name, MCUHoldBoot: r.holdBoot})
	}
	for i, d := range a.voltages {
		if !a.allowed(d.secure) {
			continue
		}
		uv, _ := p.VoltageLevel(a.id, uint32(i))
		cfg, _ := p.VoltageConfig(a.id, uint32(i))
		v.Voltages = append(v.Voltages, VoltageView{
			ID:         uint32(i),
			Name:       d.name,
			Regulator:  d.regulator,
			Kind:       d.kind,
			Microvolts: uv,
			On:         cfg == scmi.VoltageConfigArchOn,
		})
	}
	return v
}
