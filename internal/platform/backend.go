package platform

// ClockGate switches and measures clocks by hardware identifier.
type ClockGate interface {
	Enable(hw string) error
	Disable(hw string) error
	Rate(hw string) (uint64, error)
}

// ResetLines drives reset requests; Asserted reads the acknowledged state.
type ResetLines interface {
	Set(hw string) error
	Release(hw string) error
	Asserted(hw string) (bool, error)
	SetMCUHoldBoot(hold bool) error
}

// PowerRegulators are fixed-level rails with an enable bit.
type PowerRegulators interface {
	LevelMV(name string) (uint16, error)
	Enabled(name string) (bool, error)
	SetEnabled(name string, on bool) error
}

// PMIC regulators select a level from a millivolt table.
type PMIC interface {
	LevelsMV(name string) ([]uint16, error)
	LevelMV(name string) (uint16, error)
	SetLevelMV(name string, mv uint16) error
	Enabled(name string) (bool, error)
	SetEnabled(name string, on bool) error
}

type Backends struct {
	Clocks ClockGate
	Resets ResetLines
	PWR    PowerRegulators
	PMIC   PMIC
}
