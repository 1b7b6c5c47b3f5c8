package scmi

var voltageHandlers = []handlerFunc{
	MsgProtocolVersion:           reportVoltageVersion,
	MsgProtocolAttributes:        reportVoltageAttributes,
	MsgProtocolMessageAttributes: reportMessageAttributes,
	MsgVoltageDomainAttributes:   voltageDomainAttributes,
	MsgVoltageDescribeLevels:     voltageDescribeLevels,
	MsgVoltageConfigSet:          voltageConfigSet,
	MsgVoltageConfigGet:          voltageConfigGet,
	MsgVoltageLevelSet:           voltageLevelSet,
	MsgVoltageLevelGet:           voltageLevelGet,
}

var voltagePayloadSizes = []uint32{
	MsgProtocolVersion:           0,
	MsgProtocolAttributes:        0,
	MsgProtocolMessageAttributes: 4,
	MsgVoltageDomainAttributes:   4,
	MsgVoltageDescribeLevels:     8,
	MsgVoltageConfigSet:          8,
	MsgVoltageConfigGet:          4,
	MsgVoltageLevelSet:           12,
	MsgVoltageLevelGet:           4,
}

// describe levels header: status + flags
const describeLevelsHeaderSize = 8

func reportVoltageVersion(s *Server, msg *Message) {
	msg.writeResponse(newResponse(StatusSuccess).u32(VersionVoltageDomain))
}

func reportVoltageAttributes(s *Server, msg *Message) {
	count := uint32(s.platform.VoltageDomainCount(msg.AgentID)) & voltageDomainCountMask
	msg.writeResponse(newResponse(StatusSuccess).u32(count))
}

func voltageDomainAttributes(s *Server, msg *Message) {
	id, ok := resourceID(a2p(msg.In).u32(0), s.platform.VoltageDomainCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusNotFound)
		return
	}
	name, ok := s.platform.VoltageDomainName(msg.AgentID, id)
	if !ok {
		msg.statusResponse(StatusNotFound)
		return
	}
	msg.writeResponse(newResponse(StatusSuccess).u32(0).name(name))
}

// voltageDescribeLevels pages through the discrete level array, or falls
// back to a min/max/step triplet when the domain has no array.
func voltageDescribeLevels(s *Server, msg *Message) {
	in := a2p(msg.In)
	id, ok := resourceID(in.u32(0), s.platform.VoltageDomainCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	index := uint64(in.u32(1))

	total, st := s.platform.VoltageLevelCount(msg.AgentID, id)
	switch st {
	case StatusSuccess:
	case StatusNotSupported:
		describeLevelTriplet(s, msg, id)
		return
	default:
		msg.statusResponse(st)
		return
	}
	if total < 0 || index >= uint64(total) {
		msg.statusResponse(StatusInvalidParameters)
		return
	}

	chunk := min(MaxLevelsPerChunk, (len(msg.Out)-describeLevelsHeaderSize)/4, total-int(index))
	if chunk <= 0 {
		msg.statusResponse(StatusProtocolError)
		return
	}
	levels := make([]int32, chunk)
	n, st := s.platform.VoltageLevels(msg.AgentID, id, int(index), levels)
	if st != StatusSuccess {
		msg.statusResponse(st)
		return
	}
	n = min(max(n, 0), chunk)
	remaining := uint32(total - int(index) - n)

	out := newResponse(StatusSuccess).u32(LevelsFlags(uint32(n), 0, remaining))
	for _, level := range levels[:n] {
		out = out.i32(level)
	}
	msg.writeResponse(out)
}

func describeLevelTriplet(s *Server, msg *Message, id uint32) {
	r, st := s.platform.VoltageLevelRange(msg.AgentID, id)
	if st != StatusSuccess {
		msg.statusResponse(st)
		return
	}
	msg.writeResponse(newResponse(StatusSuccess).
		u32(LevelsFlags(3, VoltageLevelsTriplet, 0)).
		i32(r.Min).
		i32(r.Max).
		i32(r.Step))
}

func voltageConfigSet(s *Server, msg *Message) {
	in := a2p(msg.In)
	id, ok := resourceID(in.u32(0), s.platform.VoltageDomainCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	mode := in.u32(1) & VoltageConfigMask
	if mode != VoltageConfigArchOn && mode != VoltageConfigArchOff {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	msg.statusResponse(s.platform.SetVoltageConfig(msg.AgentID, id, mode))
}

func voltageConfigGet(s *Server, msg *Message) {
	id, ok := resourceID(a2p(msg.In).u32(0), s.platform.VoltageDomainCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	config, st := s.platform.VoltageConfig(msg.AgentID, id)
	if st != StatusSuccess {
		msg.statusResponse(st)
		return
	}
	msg.writeResponse(newResponse(StatusSuccess).u32(config & VoltageConfigMask))
}

func voltageLevelSet(s *Server, msg *Message) {
	in := a2p(msg.In)
	id, ok := resourceID(in.u32(0), s.platform.VoltageDomainCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	if in.u32(1)&VoltageLevelSetAsync != 0 {
		msg.statusResponse(StatusNotSupported)
		return
	}
	msg.statusResponse(s.platform.SetVoltageLevel(msg.AgentID, id, in.i32(2)))
}

func voltageLevelGet(s *Server, msg *Message) {
	id, ok := resourceID(a2p(msg.In).u32(0), s.platform.VoltageDomainCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	level, st := s.platform.VoltageLevel(msg.AgentID, id)
	if st != StatusSuccess {
		msg.statusResponse(st)
		return
	}
	msg.writeResponse(newResponse(StatusSuccess).i32(level))
}
