package scmi

var resetHandlers = []handlerFunc{
	MsgProtocolVersion:           reportResetVersion,
	MsgProtocolAttributes:        reportResetAttributes,
	MsgProtocolMessageAttributes: reportMessageAttributes,
	MsgResetDomainAttributes:     resetDomainAttributes,
	MsgResetDomainRequest:        resetDomainRequest,
	MsgResetDomainNotify:         resetDomainNotify,
}

var resetPayloadSizes = []uint32{
	MsgProtocolVersion:           0,
	MsgProtocolAttributes:        0,
	MsgProtocolMessageAttributes: 4,
	MsgResetDomainAttributes:     4,
	MsgResetDomainRequest:        12,
	MsgResetDomainNotify:         8,
}

func reportResetVersion(s *Server, msg *Message) {
	msg.writeResponse(newResponse(StatusSuccess).u32(VersionResetDomain))
}

func reportResetAttributes(s *Server, msg *Message) {
	count := uint32(s.platform.ResetDomainCount(msg.AgentID)) & 0xffff
	msg.writeResponse(newResponse(StatusSuccess).u32(count))
}

// Domains never advertise async or notify support; latency is unknown.
func resetDomainAttributes(s *Server, msg *Message) {
	id, ok := resourceID(a2p(msg.In).u32(0), s.platform.ResetDomainCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusNotFound)
		return
	}
	name, ok := s.platform.ResetDomainName(msg.AgentID, id)
	if !ok {
		msg.statusResponse(StatusNotFound)
		return
	}
	msg.writeResponse(newResponse(StatusSuccess).u32(0).u32(ResetLatencyUnknown).name(name))
}

func resetDomainRequest(s *Server, msg *Message) {
	in := a2p(msg.In)
	id, ok := resourceID(in.u32(0), s.platform.ResetDomainCount(msg.AgentID))
	if !ok {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	flags, state := in.u32(1), in.u32(2)
	if flags&^resetFlagMask != 0 {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	if flags&ResetFlagAsync != 0 {
		msg.statusResponse(StatusNotSupported)
		return
	}

	switch {
	case flags&ResetFlagAutonomous != 0:
		// Only the architectural full context loss cycle is implemented.
		if state != ResetStateContextLoss {
			msg.statusResponse(StatusNotSupported)
			return
		}
		msg.statusResponse(s.platform.ResetAutonomous(msg.AgentID, id, state))
	case flags&ResetFlagExplicit != 0:
		msg.statusResponse(s.platform.SetResetState(msg.AgentID, id, true))
	default:
		msg.statusResponse(s.platform.SetResetState(msg.AgentID, id, false))
	}
}

func resetDomainNotify(s *Server, msg *Message) {
	if _, ok := resourceID(a2p(msg.In).u32(0), s.platform.ResetDomainCount(msg.AgentID)); !ok {
		msg.statusResponse(StatusInvalidParameters)
		return
	}
	msg.statusResponse(StatusNotSupported)
}
