package scmi

var clockHandlers = []handlerFunc{
	MsgProtocolVersion:           reportClockVersion,
	MsgProtocolAttributes:        reportClockAttributes,
	MsgProtocolMessageAttributes: reportMessageAttributes,
	MsgClockAttributes:           clockAttributes,
	MsgClockDescribeRates:        clockDescribeRates,
	MsgClockRateSet:              clockRateSet,
	MsgClockRateGet:              clockRateGet,
	MsgClockConfigSet:            clockConfigSet,
}

var clockPayloadSizes = []uint32{
	MsgProtocolVersion:           0,
	MsgProtocolAttributes:        0,
	MsgProtocolMessageAttributes: 4,
	MsgClockAttributes:           4,
	MsgClockDescribeRates:        8,
	MsgClockRateSet:              16,
	MsgClockRateGet:              4,
	MsgClockConfigSet:            8,
}

const clockMaxPendingTransitions = 1

func reportClockVersion(s *Server, msg *Message) {
	msg.writeResponse(newResponse(StatusSuccess).u32(VersionClock))
}

func reportClockAttributes(s *Server, msg *Message) {
	count := uint32(s.platform.ClockCount(msg.AgentID)) & 0xffff
	msg.writeResponse(newResponse(StatusSuccess).u32(clockMaxPendingTransitions<<16 | count))
}

func clockAttributes(s *Server, msg *Message) {
	id, ok := resourceID(a2p(msg.In).u32(0), s.platform.ClockCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusNotFound)
		return
	}
	name, ok := s.platform.ClockName(msg.AgentID, id)
	if !ok {
		msg.statusResponse(StatusNotFound)
		return
	}
	var attrs uint32
	if s.platform.ClockEnabled(msg.AgentID, id) {
		attrs |= ClockAttrEnabled
	}
	msg.writeResponse(newResponse(StatusSuccess).u32(attrs).name(name))
}

// clockDescribeRates reports the single current rate as a one-entry list.
// The response has a fixed size whether or not an entry is returned.
func clockDescribeRates(s *Server, msg *Message) {
	in := a2p(msg.In)
	id, ok := resourceID(in.u32(0), s.platform.ClockCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusInvalidParameters)
		return
	}

	var rate uint64
	var count uint32
	if in.u32(1) == 0 {
		r, st := s.platform.ClockRate(msg.AgentID, id)
		if st != StatusSuccess {
			msg.statusResponse(st)
			return
		}
		rate = r
		count = 1
	}
	msg.writeResponse(newResponse(StatusSuccess).
		u32(LevelsFlags(count, 0, 0)).
		u32(uint32(rate)).
		u32(uint32(rate >> 32)))
}

func clockRateSet(s *Server, msg *Message) {
	msg.statusResponse(StatusNotSupported)
}

func clockRateGet(s *Server, msg *Message) {
	id, ok := resourceID(a2p(msg.In).u32(0), s.platform.ClockCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	rate, st := s.platform.ClockRate(msg.AgentID, id)
	if st != StatusSuccess {
		msg.statusResponse(st)
		return
	}
	msg.writeResponse(newResponse(StatusSuccess).u32(uint32(rate)).u32(uint32(rate >> 32)))
}

func clockConfigSet(s *Server, msg *Message) {
	in := a2p(msg.In)
	id, ok := resourceID(in.u32(0), s.platform.ClockCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	enable := in.u32(1)&ClockConfigEnable != 0
	msg.statusResponse(s.platform.SetClockState(msg.AgentID, id, enable))
}
