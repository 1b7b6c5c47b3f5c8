package sim

import (
	"fmt"
	"slices"
	"sync"
)

type regulator struct {
	levels []uint16
	level  uint16
	on     bool
	fault  bool
}

// Regulators models both the PWR fixed rails and the PMIC regulator bank.
// The PWR side exposes one level per rail; the PMIC side selects levels
// from a millivolt table.
type Regulators struct {
	mu   sync.Mutex
	regs map[string]*regulator
}

func NewRegulators() *Regulators {
	return &Regulators{regs: make(map[string]*regulator)}
}

func (r *Regulators) Add(name string, levelsMV []uint16, defaultMV uint16, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs[name] = &regulator{levels: slices.Clone(levelsMV), level: defaultMV, on: on}
}

func (r *Regulators) reg(name string) (*regulator, error) {
	reg, ok := r.regs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRegulator, name)
	}
	return reg, nil
}

func (r *Regulators) LevelsMV(name string) ([]uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, err := r.reg(name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(reg.levels), nil
}

func (r *Regulators) LevelMV(name string) (uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, err := r.reg(name)
	if err != nil {
		return 0, err
	}
	return reg.level, nil
}

func (r *Regulators) SetLevelMV(name string, mv uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, err := r.reg(name)
	if err != nil {
		return err
	}
	if reg.fault {
		return fmt.Errorf("%w: %s", ErrInjected, name)
	}
	if !slices.Contains(reg.levels, mv) {
		return fmt.Errorf("%w: %s %dmV", ErrLevelNotInTable, name, mv)
	}
	reg.level = mv
	return nil
}

func (r *Regulators) Enabled(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, err := r.reg(name)
	if err != nil {
		return false, err
	}
	return reg.on, nil
}

// SetEnabled switches the rail and waits for its ready flag; a faulted
// rail never becomes ready.
func (r *Regulators) SetEnabled(name string, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, err := r.reg(name)
	if err != nil {
		return err
	}
	if reg.fault {
		return fmt.Errorf("%w: %s", ErrNotReady, name)
	}
	reg.on = on
	return nil
}

func (r *Regulators) InjectFault(name string, fault bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.regs[name]; ok {
		reg.fault = fault
	}
}
