package scmi

// Provider methods receive IDs already range-checked by the handlers and
// sanitized through nospec. Implementations still reject IDs outside their
// own namespace and must never index with an unchecked agent ID.

// BaseProvider answers Base protocol discovery.
type BaseProvider interface {
	VendorName() string
	SubVendorName() string
	ImplementationVersion() uint32
	// ProtocolCount is the number of protocols the platform implements,
	// Base excluded.
	ProtocolCount() int
	// Protocols lists the protocols visible to an agent, Base excluded.
	Protocols(agentID uint32) []ProtocolID
}

// ClockProvider owns the per-agent clock resources.
type ClockProvider interface {
	ClockCount(agentID uint32) int
	// ClockName returns false when the clock is hidden from the agent.
	ClockName(agentID, clockID uint32) (string, bool)
	ClockRate(agentID, clockID uint32) (uint64, Status)
	ClockEnabled(agentID, clockID uint32) bool
	SetClockState(agentID, clockID uint32, enable bool) Status
}

// ResetProvider owns the per-agent reset domains.
type ResetProvider interface {
	ResetDomainCount(agentID uint32) int
	ResetDomainName(agentID, domainID uint32) (string, bool)
	// ResetAutonomous performs a full assert/deassert cycle.
	ResetAutonomous(agentID, domainID, state uint32) Status
	SetResetState(agentID, domainID uint32, assert bool) Status
}

// LevelRange is a voltage min/max/step triplet in microvolts.
type LevelRange struct {
	Min  int32
	Max  int32
	Step int32
}

// VoltageProvider owns the per-agent voltage domains. Levels are microvolts.
type VoltageProvider interface {
	VoltageDomainCount(agentID uint32) int
	VoltageDomainName(agentID, domainID uint32) (string, bool)
	// VoltageLevelCount returns NOT_SUPPORTED when the domain only exposes
	// a range triplet.
	VoltageLevelCount(agentID, domainID uint32) (int, Status)
	// VoltageLevels fills dst from level index start and returns the
	// number of entries written.
	VoltageLevels(agentID, domainID uint32, start int, dst []int32) (int, Status)
	VoltageLevelRange(agentID, domainID uint32) (LevelRange, Status)
	VoltageLevel(agentID, domainID uint32) (int32, Status)
	SetVoltageLevel(agentID, domainID uint32, microvolts int32) Status
	VoltageConfig(agentID, domainID uint32) (uint32, Status)
	SetVoltageConfig(agentID, domainID uint32, config uint32) Status
}

// Platform is everything the dispatcher needs from the resource layer.
type Platform interface {
	BaseProvider
	ClockProvider
	ResetProvider
	VoltageProvider
}
