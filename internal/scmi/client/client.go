// Package client is the agent side of SCMI: it encodes requests, hands them
// to a Transport and decodes the platform's responses.
package client

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/danmuck/scmictl/internal/scmi"
)

var (
	ErrShortResponse = errors.New("client: response shorter than expected")
	ErrNilTransport  = errors.New("client: nil transport")
)

// StatusError is a non-SUCCESS status returned by the platform.
type StatusError struct {
	Protocol scmi.ProtocolID
	Message  uint8
	Status   scmi.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %s message %#x: %s", e.Protocol, e.Message, e.Status)
}

// IsStatus reports whether err carries the given platform status.
func IsStatus(err error, st scmi.Status) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == st
}

// Transport carries one request and returns the raw response payload,
// status word included.
type Transport interface {
	Exchange(ctx context.Context, h scmi.Header, payload []byte) ([]byte, error)
}

type Client struct {
	transport Transport
	token     atomic.Uint32
}

func New(t Transport) (*Client, error) {
	if t == nil {
		return nil, ErrNilTransport
	}
	return &Client{transport: t}, nil
}

// Call sends a raw payload and returns the response body after the status
// word. A non-SUCCESS status is returned as *StatusError.
func (c *Client) Call(ctx context.Context, protocol scmi.ProtocolID, message uint8, payload []byte) ([]byte, error) {
	h := scmi.Header{
		MessageID:  message,
		ProtocolID: protocol,
		Token:      uint16(c.token.Add(1)) & 0x3ff,
	}
	resp, err := c.transport.Exchange(ctx, h, payload)
	if err != nil {
		return nil, err
	}
	if len(resp) < 4 {
		return nil, ErrShortResponse
	}
	st := scmi.Status(int32(binary.LittleEndian.Uint32(resp)))
	if st != scmi.StatusSuccess {
		return nil, &StatusError{Protocol: protocol, Message: message, Status: st}
	}
	return resp[4:], nil
}

func (c *Client) call(ctx context.Context, protocol scmi.ProtocolID, message uint8, minLen int, words ...uint32) (reader, error) {
	payload := make([]byte, 0, 4*len(words))
	for _, w := range words {
		payload = binary.LittleEndian.AppendUint32(payload, w)
	}
	body, err := c.Call(ctx, protocol, message, payload)
	if err != nil {
		return nil, err
	}
	if len(body) < minLen {
		return nil, fmt.Errorf("%w: %s message %#x got %d bytes, want %d",
			ErrShortResponse, protocol, message, len(body), minLen)
	}
	return reader(body), nil
}

type reader []byte

func (r reader) u32(i int) uint32 { return binary.LittleEndian.Uint32(r[i*4:]) }

func (r reader) name(off int) string { return scmi.DecodeName(r[off : off+scmi.NameSize]) }

func (c *Client) ProtocolVersion(ctx context.Context, p scmi.ProtocolID) (uint32, error) {
	r, err := c.call(ctx, p, scmi.MsgProtocolVersion, 4)
	if err != nil {
		return 0, err
	}
	return r.u32(0), nil
}

func (c *Client) ProtocolAttributes(ctx context.Context, p scmi.ProtocolID) (uint32, error) {
	r, err := c.call(ctx, p, scmi.MsgProtocolAttributes, 4)
	if err != nil {
		return 0, err
	}
	return r.u32(0), nil
}

// MessageSupported asks whether a protocol implements a message ID.
func (c *Client) MessageSupported(ctx context.Context, p scmi.ProtocolID, message uint32) (bool, error) {
	_, err := c.call(ctx, p, scmi.MsgProtocolMessageAttributes, 4, message)
	switch {
	case err == nil:
		return true, nil
	case IsStatus(err, scmi.StatusNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Local is a Transport dispatching straight into an in-process server.
type Local struct {
	Server  *scmi.Server
	AgentID uint32
	// OutSize bounds the response buffer, 100 bytes when zero.
	OutSize int

	mu sync.Mutex
}

func (l *Local) Exchange(ctx context.Context, h scmi.Header, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := l.OutSize
	if size == 0 {
		size = 100
	}
	msg, err := scmi.NewMessage(l.AgentID, h, payload, make([]byte, size))
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.Server.Dispatch(msg)
	l.mu.Unlock()
	return msg.Response(), nil
}
