package scmi

import (
	"encoding/binary"
	"errors"
)

const statusSize = 4

var ErrOutputTooSmall = errors.New("scmi: output buffer cannot hold a status word")

// Header is the decoded SMT message header word.
type Header struct {
	MessageID  uint8
	Type       uint8
	ProtocolID ProtocolID
	Token      uint16
}

func (h Header) Pack() uint32 {
	return uint32(h.MessageID) |
		uint32(h.Type&0x3)<<8 |
		uint32(h.ProtocolID)<<10 |
		uint32(h.Token&0x3ff)<<18
}

func UnpackHeader(word uint32) Header {
	return Header{
		MessageID:  uint8(word),
		Type:       uint8(word>>8) & 0x3,
		ProtocolID: ProtocolID(word >> 10),
		Token:      uint16(word>>18) & 0x3ff,
	}
}

// Message is one in-flight request. In is the a2p payload and Out the p2a
// buffer owned by the transport; handlers write at most len(Out) bytes.
type Message struct {
	AgentID    uint32
	ProtocolID ProtocolID
	MessageID  uint8
	In         []byte
	Out        []byte

	outSize  int
	answered bool
}

// NewMessage binds a request to its output buffer.
func NewMessage(agentID uint32, h Header, in, out []byte) (*Message, error) {
	if len(out) < statusSize {
		return nil, ErrOutputTooSmall
	}
	return &Message{
		AgentID:    agentID,
		ProtocolID: h.ProtocolID,
		MessageID:  h.MessageID,
		In:         in,
		Out:        out,
	}, nil
}

// OutSize is the number of valid bytes at the start of Out.
func (m *Message) OutSize() int { return m.outSize }

// Response returns the written part of Out.
func (m *Message) Response() []byte { return m.Out[:m.outSize] }

// Status returns the leading status word of the response.
func (m *Message) Status() Status {
	if m.outSize < statusSize {
		return StatusGenericError
	}
	return Status(int32(binary.LittleEndian.Uint32(m.Out)))
}

// Answered reports whether a response has been recorded.
func (m *Message) Answered() bool { return m.answered }

func (m *Message) reset() {
	m.outSize = 0
	m.answered = false
}

// writeResponse records a full payload, status word first. A payload that
// does not fit is replaced by a PROTOCOL_ERROR status.
func (m *Message) writeResponse(payload []byte) {
	if m.answered {
		return
	}
	if len(payload) > len(m.Out) {
		m.statusResponse(StatusProtocolError)
		return
	}
	m.outSize = copy(m.Out, payload)
	m.answered = true
}

func (m *Message) statusResponse(st Status) {
	if m.answered {
		return
	}
	m.forceStatus(st)
}

// forceStatus replaces whatever was recorded with a bare status.
func (m *Message) forceStatus(st Status) {
	binary.LittleEndian.PutUint32(m.Out, uint32(int32(st)))
	m.outSize = statusSize
	m.answered = true
}

// response accumulates a p2a payload.
type response []byte

func newResponse(st Status) response {
	return binary.LittleEndian.AppendUint32(make(response, 0, 32), uint32(int32(st)))
}

func (r response) u32(v uint32) response {
	return binary.LittleEndian.AppendUint32(r, v)
}

func (r response) i32(v int32) response {
	return r.u32(uint32(v))
}

// name appends a fixed NameSize field, NUL padded, truncated so the
// terminator always fits.
func (r response) name(s string) response {
	var field [NameSize]byte
	copy(field[:NameSize-1], s)
	return append(r, field[:]...)
}

func (r response) bytes(b []byte) response {
	return append(r, b...)
}

// a2p is a cursor over a size-checked request payload.
type a2p []byte

func (p a2p) u32(i int) uint32 {
	return binary.LittleEndian.Uint32(p[i*4:])
}

func (p a2p) i32(i int) int32 {
	return int32(p.u32(i))
}

// DecodeName trims a fixed-width name field at its first NUL.
func DecodeName(field []byte) string {
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}
