package sim

import (
	"fmt"
	"sync"
)

type resetLine struct {
	requested bool
	asserted  bool
	pending   int
	stuck     bool
}

// Resets models RCC reset lines whose status acknowledges a request after
// a number of status reads.
type Resets struct {
	mu       sync.Mutex
	lines    map[string]*resetLine
	ackPolls int
	holdBoot bool
}

// NewResets returns lines that acknowledge after ackPolls status reads.
func NewResets(ackPolls int) *Resets {
	return &Resets{lines: make(map[string]*resetLine), ackPolls: ackPolls}
}

func (r *Resets) Add(hw string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[hw] = &resetLine{}
}

func (r *Resets) line(hw string) (*resetLine, error) {
	l, ok := r.lines[hw]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReset, hw)
	}
	return l, nil
}

func (r *Resets) Set(hw string) error {
	return r.request(hw, true)
}

func (r *Resets) Release(hw string) error {
	return r.request(hw, false)
}

func (r *Resets) request(hw string, assert bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.line(hw)
	if err != nil {
		return err
	}
	l.requested = assert
	l.pending = r.ackPolls
	if l.pending == 0 && !l.stuck {
		l.asserted = assert
	}
	return nil
}

// Asserted reads the line status. A stuck line never follows its request.
func (r *Resets) Asserted(hw string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, err := r.line(hw)
	if err != nil {
		return false, err
	}
	if l.stuck {
		return l.asserted, nil
	}
	if l.pending > 0 {
		l.pending--
		if l.pending == 0 {
			l.asserted = l.requested
		}
	}
	return l.asserted, nil
}

func (r *Resets) SetMCUHoldBoot(hold bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holdBoot = hold
	return nil
}

func (r *Resets) MCUHoldBoot() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.holdBoot
}

// Stick freezes a line in its current state.
func (r *Resets) Stick(hw string, stuck bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lines[hw]; ok {
		l.stuck = stuck
	}
}
