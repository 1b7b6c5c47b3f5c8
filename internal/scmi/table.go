package scmi

import (
	"fmt"

	"github.com/danmuck/scmictl/internal/scmi/nospec"
)

type handlerFunc func(s *Server, msg *Message)

// protocolTable pairs handlers with their exact a2p payload sizes. Both
// slices are indexed by message ID; a nil handler means unsupported.
type protocolTable struct {
	id       ProtocolID
	handlers []handlerFunc
	sizes    []uint32
}

func newProtocolTable(id ProtocolID, handlers []handlerFunc, sizes []uint32) *protocolTable {
	if len(handlers) != len(sizes) {
		panic(fmt.Sprintf("scmi: %s table has %d handlers and %d payload sizes",
			id, len(handlers), len(sizes)))
	}
	return &protocolTable{id: id, handlers: handlers, sizes: sizes}
}

func (t *protocolTable) lookup(messageID uint32) (handlerFunc, uint32, bool) {
	h, ok := nospec.Load(t.handlers, messageID, nil)
	if !ok || h == nil {
		return nil, 0, false
	}
	size, _ := nospec.Load(t.sizes, messageID, 0)
	return h, size, true
}

func (t *protocolTable) supports(messageID uint32) bool {
	_, _, ok := t.lookup(messageID)
	return ok
}

var (
	baseTable    *protocolTable
	clockTable   *protocolTable
	resetTable   *protocolTable
	voltageTable *protocolTable
)

// Tables are built in init because the common PROTOCOL_MESSAGE_ATTRIBUTES
// handler reads them back.
func init() {
	baseTable = newProtocolTable(ProtocolBase, baseHandlers, basePayloadSizes)
	clockTable = newProtocolTable(ProtocolClock, clockHandlers, clockPayloadSizes)
	resetTable = newProtocolTable(ProtocolResetDomain, resetHandlers, resetPayloadSizes)
	voltageTable = newProtocolTable(ProtocolVoltageDomain, voltageHandlers, voltagePayloadSizes)
}

func tableFor(id ProtocolID) *protocolTable {
	switch id {
	case ProtocolBase:
		return baseTable
	case ProtocolClock:
		return clockTable
	case ProtocolResetDomain:
		return resetTable
	case ProtocolVoltageDomain:
		return voltageTable
	default:
		return nil
	}
}

// reportMessageAttributes serves PROTOCOL_MESSAGE_ATTRIBUTES for every
// protocol from its own handler table.
func reportMessageAttributes(s *Server, msg *Message) {
	id := a2p(msg.In).u32(0)
	t := tableFor(msg.ProtocolID)
	if t == nil || !t.supports(id) {
		msg.statusResponse(StatusNotFound)
		return
	}
	msg.writeResponse(newResponse(StatusSuccess).u32(0))
}

// resourceID bounds an agent-supplied ID against count and returns the
// sanitized value for use by providers.
func resourceID(id uint32, count int) (uint32, bool) {
	if count <= 0 {
		return 0, false
	}
	n := uint32(count)
	if uint64(count) > uint64(^uint32(0)) {
		n = ^uint32(0)
	}
	return nospec.Clamp(id, n)
}
