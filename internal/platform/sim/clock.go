package sim

import (
	"fmt"
	"sync"
)

type clockState struct {
	rate  uint64
	on    bool
	fault bool
}

// Clocks models a bank of gated fixed-rate clocks.
type Clocks struct {
	mu      sync.Mutex
	clocks  map[string]*clockState
	toggles int
}

func NewClocks() *Clocks {
	return &Clocks{clocks: make(map[string]*clockState)}
}

// Add registers a clock, initially gated off.
func (c *Clocks) Add(hw string, rate uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clocks[hw] = &clockState{rate: rate}
}

func (c *Clocks) lookup(hw string) (*clockState, error) {
	st, ok := c.clocks[hw]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClock, hw)
	}
	return st, nil
}

func (c *Clocks) Enable(hw string) error {
	return c.gate(hw, true)
}

func (c *Clocks) Disable(hw string) error {
	return c.gate(hw, false)
}

func (c *Clocks) gate(hw string, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.lookup(hw)
	if err != nil {
		return err
	}
	if st.fault {
		return fmt.Errorf("%w: gate %s", ErrInjected, hw)
	}
	st.on = on
	c.toggles++
	return nil
}

func (c *Clocks) Rate(hw string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.lookup(hw)
	if err != nil {
		return 0, err
	}
	return st.rate, nil
}

func (c *Clocks) IsOn(hw string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.clocks[hw]
	return ok && st.on
}

// Toggles counts successful gate writes.
func (c *Clocks) Toggles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.toggles
}

// InjectFault makes every later gate write on hw fail.
func (c *Clocks) InjectFault(hw string, fault bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.clocks[hw]; ok {
		st.fault = fault
	}
}
