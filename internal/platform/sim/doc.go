// Package sim holds in-memory register-level stand-ins for the stm32mp1
// clock gates, reset lines, PWR regulators and STPMIC1-like PMIC. They back
// the platform providers on hosts without the hardware and in tests.
package sim

import "errors"

var (
	ErrUnknownClock     = errors.New("sim: unknown clock")
	ErrUnknownReset     = errors.New("sim: unknown reset line")
	ErrUnknownRegulator = errors.New("sim: unknown regulator")
	ErrLevelNotInTable  = errors.New("sim: level not in regulator table")
	ErrInjected         = errors.New("sim: injected fault")
	ErrNotReady         = errors.New("sim: regulator ready timeout")
)
