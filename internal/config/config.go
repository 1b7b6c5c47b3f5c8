package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// NameSize matches the SCMI name field: names must leave room for a NUL.
const NameSize = 16

const DefaultResetTimeoutUS = 1000

const (
	RegulatorPWR  = "pwr"
	RegulatorPMIC = "pmic"
)

var protocolNames = []string{"clock", "reset", "voltage"}

// Board describes every agent-visible resource of one platform.
type Board struct {
	Name                  string            `toml:"name"`
	Vendor                string            `toml:"vendor"`
	SubVendor             string            `toml:"sub_vendor"`
	ImplementationVersion uint32            `toml:"implementation_version"`
	Agents                []AgentConfig     `toml:"agents"`
	Regulators            []RegulatorConfig `toml:"regulators"`
}

// AgentConfig is one agent's resource set. Agent IDs are dense and match
// their position in Board.Agents.
type AgentConfig struct {
	ID     uint32 `toml:"id"`
	Name   string `toml:"name"`
	Secure bool   `toml:"secure"`
	// Protocols overrides the discovered protocol list when set.
	Protocols []string        `toml:"protocols,omitempty"`
	Clocks    []ClockConfig   `toml:"clocks,omitempty"`
	Resets    []ResetConfig   `toml:"resets,omitempty"`
	Voltages  []VoltageConfig `toml:"voltages,omitempty"`
}

type ClockConfig struct {
	Name string `toml:"name"`
	// HW is the back-end clock identifier, Name when empty.
	HW      string `toml:"hw,omitempty"`
	Rate    uint64 `toml:"rate"`
	Enabled bool   `toml:"enabled"`
	Secure  bool   `toml:"secure,omitempty"`
}

type ResetConfig struct {
	Name        string `toml:"name"`
	HW          string `toml:"hw,omitempty"`
	MCUHoldBoot bool   `toml:"mcu_hold_boot,omitempty"`
	Secure      bool   `toml:"secure,omitempty"`
	TimeoutUS   uint32 `toml:"timeout_us,omitempty"`
}

type VoltageConfig struct {
	Name      string `toml:"name"`
	Regulator string `toml:"regulator"`
	Secure    bool   `toml:"secure,omitempty"`
}

// RegulatorConfig is a PWR (single fixed level) or PMIC (level table)
// regulator. Levels are millivolts.
type RegulatorConfig struct {
	Name      string   `toml:"name"`
	Kind      string   `toml:"kind"`
	LevelsMV  []uint16 `toml:"levels_mv"`
	DefaultMV uint16   `toml:"default_mv"`
	Enabled   bool     `toml:"enabled"`
}

func LoadBoard(path string) (Board, error) {
	var b Board
	if err := loadToml(path, &b); err != nil {
		return Board{}, err
	}
	ApplyBoardDefaults(&b)
	if err := ValidateBoard(b); err != nil {
		return Board{}, err
	}
	return b, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

// MarshalBoard renders a board back to TOML.
func MarshalBoard(b Board) ([]byte, error) {
	return toml.Marshal(b)
}

func ApplyBoardDefaults(b *Board) {
	if b.Name == "" {
		b.Name = "board"
	}
	for i := range b.Agents {
		a := &b.Agents[i]
		for j := range a.Clocks {
			if a.Clocks[j].HW == "" {
				a.Clocks[j].HW = a.Clocks[j].Name
			}
		}
		for j := range a.Resets {
			if a.Resets[j].HW == "" {
				a.Resets[j].HW = a.Resets[j].Name
			}
			if a.Resets[j].TimeoutUS == 0 {
				a.Resets[j].TimeoutUS = DefaultResetTimeoutUS
			}
		}
	}
	for i := range b.Regulators {
		r := &b.Regulators[i]
		if len(r.LevelsMV) > 0 && !slices.Contains(r.LevelsMV, r.DefaultMV) {
			r.DefaultMV = r.LevelsMV[0]
		}
	}
}

func ValidateBoard(b Board) error {
	if err := validateName("vendor", b.Vendor, false); err != nil {
		return err
	}
	if err := validateName("sub_vendor", b.SubVendor, true); err != nil {
		return err
	}
	if len(b.Agents) == 0 {
		return fmt.Errorf("board config has no agents")
	}

	regulators := make(map[string]RegulatorConfig, len(b.Regulators))
	for i, r := range b.Regulators {
		if err := ValidateRegulator(r); err != nil {
			return fmt.Errorf("regulator[%d] invalid: %w", i, err)
		}
		if _, dup := regulators[r.Name]; dup {
			return fmt.Errorf("regulator[%d] duplicate name %q", i, r.Name)
		}
		regulators[r.Name] = r
	}

	for i, a := range b.Agents {
		if a.ID != uint32(i) {
			return fmt.Errorf("agent[%d] has id %d, agent ids must be dense", i, a.ID)
		}
		if err := validateAgent(a, regulators); err != nil {
			return fmt.Errorf("agent[%d] invalid: %w", i, err)
		}
	}
	return nil
}

func validateAgent(a AgentConfig, regulators map[string]RegulatorConfig) error {
	for _, p := range a.Protocols {
		if !slices.Contains(protocolNames, strings.ToLower(p)) {
			return fmt.Errorf("unknown protocol %q", p)
		}
	}
	for i, c := range a.Clocks {
		if err := validateName(fmt.Sprintf("clock[%d]", i), c.Name, false); err != nil {
			return err
		}
	}
	for i, r := range a.Resets {
		if err := validateName(fmt.Sprintf("reset[%d]", i), r.Name, false); err != nil {
			return err
		}
	}
	for i, v := range a.Voltages {
		if err := validateName(fmt.Sprintf("voltage[%d]", i), v.Name, false); err != nil {
			return err
		}
		if _, ok := regulators[v.Regulator]; !ok {
			return fmt.Errorf("voltage[%d] references unknown regulator %q", i, v.Regulator)
		}
	}
	return nil
}

func ValidateRegulator(r RegulatorConfig) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.LevelsMV) == 0 {
		return fmt.Errorf("levels_mv is required")
	}
	switch r.Kind {
	case RegulatorPWR:
		if len(r.LevelsMV) != 1 {
			return fmt.Errorf("pwr regulator has exactly one level, got %d", len(r.LevelsMV))
		}
	case RegulatorPMIC:
	default:
		return fmt.Errorf("unknown kind %q", r.Kind)
	}
	if !slices.Contains(r.LevelsMV, r.DefaultMV) {
		return fmt.Errorf("default_mv %d not in levels", r.DefaultMV)
	}
	return nil
}

func validateName(field, name string, allowEmpty bool) error {
	if name == "" && !allowEmpty {
		return fmt.Errorf("%s name is required", field)
	}
	if len(name) >= NameSize {
		return fmt.Errorf("%s name %q exceeds %d bytes", field, name, NameSize-1)
	}
	return nil
}
