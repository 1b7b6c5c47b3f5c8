package scmi

var baseHandlers = []handlerFunc{
	MsgProtocolVersion:                   reportBaseVersion,
	MsgProtocolAttributes:                reportBaseAttributes,
	MsgProtocolMessageAttributes:         reportMessageAttributes,
	MsgBaseDiscoverVendor:                discoverVendor,
	MsgBaseDiscoverSubVendor:             discoverSubVendor,
	MsgBaseDiscoverImplementationVersion: discoverImplementationVersion,
	MsgBaseDiscoverListProtocols:         discoverListProtocols,
}

var basePayloadSizes = []uint32{
	MsgProtocolVersion:                   0,
	MsgProtocolAttributes:                0,
	MsgProtocolMessageAttributes:         4,
	MsgBaseDiscoverVendor:                0,
	MsgBaseDiscoverSubVendor:             0,
	MsgBaseDiscoverImplementationVersion: 0,
	MsgBaseDiscoverListProtocols:         4,
}

func reportBaseVersion(s *Server, msg *Message) {
	msg.writeResponse(newResponse(StatusSuccess).u32(VersionBase))
}

// Agent count is not reported: agents cannot discover each other.
func reportBaseAttributes(s *Server, msg *Message) {
	count := uint32(s.platform.ProtocolCount()) & 0xff
	msg.writeResponse(newResponse(StatusSuccess).u32(count))
}

func discoverVendor(s *Server, msg *Message) {
	msg.writeResponse(newResponse(StatusSuccess).name(s.platform.VendorName()))
}

func discoverSubVendor(s *Server, msg *Message) {
	msg.writeResponse(newResponse(StatusSuccess).name(s.platform.SubVendorName()))
}

func discoverImplementationVersion(s *Server, msg *Message) {
	msg.writeResponse(newResponse(StatusSuccess).u32(s.platform.ImplementationVersion()))
}

func discoverListProtocols(s *Server, msg *Message) {
	skip := uint64(a2p(msg.In).u32(0))
	list := s.platform.Protocols(msg.AgentID)

	var ids [MaxProtocolsPerList]byte
	n := 0
	if skip < uint64(len(list)) {
		for _, id := range list[skip:] {
			if n == len(ids) {
				break
			}
			ids[n] = byte(id)
			n++
		}
	}
	msg.writeResponse(newResponse(StatusSuccess).u32(uint32(n)).bytes(ids[:]))
}
