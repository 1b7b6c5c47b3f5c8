package sim

import "github.com/danmuck/scmictl/internal/config"

// Hardware bundles the simulated devices of one board.
type Hardware struct {
	Clocks *Clocks
	Resets *Resets
	PWR    *Regulators
	PMIC   *Regulators
}

// FromBoard provisions simulated devices for every resource a board
// references. Reset lines acknowledge after ackPolls status reads.
func FromBoard(b config.Board, ackPolls int) *Hardware {
	hw := &Hardware{
		Clocks: NewClocks(),
		Resets: NewResets(ackPolls),
		PWR:    NewRegulators(),
		PMIC:   NewRegulators(),
	}
	for _, a := range b.Agents {
		for _, c := range a.Clocks {
			hw.Clocks.Add(hwName(c.HW, c.Name), c.Rate)
		}
		for _, r := range a.Resets {
			hw.Resets.Add(hwName(r.HW, r.Name))
		}
	}
	for _, r := range b.Regulators {
		switch r.Kind {
		case config.RegulatorPWR:
			hw.PWR.Add(r.Name, r.LevelsMV, r.DefaultMV, r.Enabled)
		case config.RegulatorPMIC:
			hw.PMIC.Add(r.Name, r.LevelsMV, r.DefaultMV, r.Enabled)
		}
	}
	return hw
}

func hwName(hw, name string) string {
	if hw != "" {
		return hw
	}
	return name
}
