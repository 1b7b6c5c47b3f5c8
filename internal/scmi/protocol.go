package scmi

import "fmt"

// ProtocolID selects a protocol handler table.
type ProtocolID uint8

const (
	ProtocolBase          ProtocolID = 0x10
	ProtocolClock         ProtocolID = 0x14
	ProtocolResetDomain   ProtocolID = 0x16
	ProtocolVoltageDomain ProtocolID = 0x17
)

func (p ProtocolID) String() string {
	switch p {
	case ProtocolBase:
		return "base"
	case ProtocolClock:
		return "clock"
	case ProtocolResetDomain:
		return "reset"
	case ProtocolVoltageDomain:
		return "voltage"
	default:
		return fmt.Sprintf("protocol(%#x)", uint8(p))
	}
}

// Message IDs shared by every protocol.
const (
	MsgProtocolVersion           uint8 = 0x00
	MsgProtocolAttributes        uint8 = 0x01
	MsgProtocolMessageAttributes uint8 = 0x02
)

// Base protocol message IDs.
const (
	MsgBaseDiscoverVendor                uint8 = 0x03
	MsgBaseDiscoverSubVendor             uint8 = 0x04
	MsgBaseDiscoverImplementationVersion uint8 = 0x05
	MsgBaseDiscoverListProtocols         uint8 = 0x06
)

// Clock protocol message IDs.
const (
	MsgClockAttributes    uint8 = 0x03
	MsgClockDescribeRates uint8 = 0x04
	MsgClockRateSet       uint8 = 0x05
	MsgClockRateGet       uint8 = 0x06
	MsgClockConfigSet     uint8 = 0x07
)

// Reset Domain protocol message IDs.
const (
	MsgResetDomainAttributes uint8 = 0x03
	MsgResetDomainRequest    uint8 = 0x04
	MsgResetDomainNotify     uint8 = 0x05
)

// Voltage Domain protocol message IDs.
const (
	MsgVoltageDomainAttributes uint8 = 0x03
	MsgVoltageDescribeLevels   uint8 = 0x04
	MsgVoltageConfigSet        uint8 = 0x05
	MsgVoltageConfigGet        uint8 = 0x06
	MsgVoltageLevelSet         uint8 = 0x07
	MsgVoltageLevelGet         uint8 = 0x08
)

// Protocol versions reported by PROTOCOL_VERSION.
const (
	VersionBase          uint32 = 0x20000
	VersionClock         uint32 = 0x20000
	VersionResetDomain   uint32 = 0x10000
	VersionVoltageDomain uint32 = 0x20000
)

// NameSize is the fixed width of every name field on the wire, terminator
// included.
const NameSize = 16

// MaxProtocolsPerList bounds DISCOVER_LIST_PROTOCOLS entries per response.
const MaxProtocolsPerList = 8

// MaxLevelsPerChunk bounds VOLTAGE_DESCRIBE_LEVELS array entries per response.
const MaxLevelsPerChunk = 10

// Clock CONFIG_SET attributes and DESCRIBE_RATES flags.
const (
	ClockConfigEnable    uint32 = 1 << 0
	ClockAttrEnabled     uint32 = 1 << 0
	ClockRateFormatRange uint32 = 1 << 12
)

// Reset Domain RESET flags and attribute values.
const (
	ResetFlagAutonomous uint32 = 1 << 0
	ResetFlagExplicit   uint32 = 1 << 1
	ResetFlagAsync      uint32 = 1 << 2
	resetFlagMask              = ResetFlagAutonomous | ResetFlagExplicit | ResetFlagAsync

	ResetAttrAsync          uint32 = 1 << 31
	ResetAttrNotify         uint32 = 1 << 30
	ResetLatencyUnknown     uint32 = 0x7fffffff
	ResetStateContextLoss   uint32 = 0
	ResetStateArchitectural uint32 = 1 << 31
)

// Voltage Domain config modes and DESCRIBE_LEVELS flags.
const (
	VoltageConfigMask      uint32 = 0xf
	VoltageConfigArchOff   uint32 = 0x0
	VoltageConfigArchOn    uint32 = 0x7
	VoltageLevelsTriplet   uint32 = 1 << 12
	VoltageLevelSetAsync   uint32 = 1 << 0
	voltageDomainCountMask uint32 = 0xffff
)

// LevelsFlags packs the DESCRIBE_RATES / DESCRIBE_LEVELS flags word.
func LevelsFlags(count uint32, format uint32, remaining uint32) uint32 {
	return (remaining&0xffff)<<16 | format&(1<<12) | count&0xfff
}

// SplitLevelsFlags unpacks a DESCRIBE_RATES / DESCRIBE_LEVELS flags word.
func SplitLevelsFlags(flags uint32) (count uint32, triplet bool, remaining uint32) {
	return flags & 0xfff, flags&(1<<12) != 0, flags >> 16
}
