package doorbell

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic          uint32 = 0x5C3100B1
	Version        uint8  = 1
	FixedHeaderLen uint8  = 16
	FlagHasAuth    uint8  = 0x01
)

// Kind discriminates frame payloads.
type Kind uint8

const (
	KindRequest  Kind = 1
	KindResponse Kind = 2
	KindError    Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	ErrShortHeader       = errors.New("doorbell: short fixed header")
	ErrBadMagic          = errors.New("doorbell: bad magic")
	ErrBadVersion        = errors.New("doorbell: unsupported version")
	ErrHeaderLenTooSmall = errors.New("doorbell: header_len smaller than fixed header")
	ErrHeaderLenMismatch = errors.New("doorbell: auth flag set but header_len has no auth bytes")
	ErrPayloadTooLarge   = errors.New("doorbell: payload too large")
	ErrAuthTooLarge      = errors.New("doorbell: auth too large")
)

// Header is the fixed big-endian wire header.
type Header struct {
	Magic      uint32
	Version    uint8
	HeaderLen  uint8
	Kind       Kind
	Flags      uint8
	AgentID    uint32
	PayloadLen uint32
}

// Frame is one complete wire message. Auth travels between the fixed
// header and the payload.
type Frame struct {
	Header  Header
	Auth    []byte
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxAuthBytes    uint32
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxAuthBytes:    128,
		MaxPayloadBytes: 4 * 1024,
	}
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h := DecodeHeader(fixed)
	if h.Magic != Magic {
		return Frame{}, fmt.Errorf("%w: %#x", ErrBadMagic, h.Magic)
	}
	if h.Version != Version {
		return Frame{}, fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	if h.HeaderLen < FixedHeaderLen {
		return Frame{}, ErrHeaderLenTooSmall
	}

	authLen := uint32(h.HeaderLen - FixedHeaderLen)
	if h.Flags&FlagHasAuth != 0 && authLen == 0 {
		return Frame{}, ErrHeaderLenMismatch
	}
	if authLen > limits.MaxAuthBytes {
		return Frame{}, ErrAuthTooLarge
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}

	auth := make([]byte, authLen)
	if authLen > 0 {
		if _, err := io.ReadFull(r, auth); err != nil {
			return Frame{}, err
		}
	}
	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Header: h, Auth: auth, Payload: payload}, nil
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	authLen := uint32(len(f.Auth))
	payloadLen := uint32(len(f.Payload))
	if uint64(len(f.Auth)) > uint64(limits.MaxAuthBytes) || len(f.Auth) > 255-int(FixedHeaderLen) {
		return ErrAuthTooLarge
	}
	if uint64(len(f.Payload)) > uint64(limits.MaxPayloadBytes) {
		return ErrPayloadTooLarge
	}

	h := f.Header
	h.Magic = Magic
	h.Version = Version
	h.HeaderLen = FixedHeaderLen + uint8(authLen)
	h.PayloadLen = payloadLen
	if authLen > 0 {
		h.Flags |= FlagHasAuth
	} else {
		h.Flags &^= FlagHasAuth
	}

	buf := make([]byte, 0, int(h.HeaderLen)+len(f.Payload))
	buf = append(buf, EncodeHeader(h)...)
	buf = append(buf, f.Auth...)
	buf = append(buf, f.Payload...)
	_, err := w.Write(buf)
	return err
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.HeaderLen
	buf[6] = uint8(h.Kind)
	buf[7] = h.Flags
	binary.BigEndian.PutUint32(buf[8:12], h.AgentID)
	binary.BigEndian.PutUint32(buf[12:16], h.PayloadLen)
	return buf
}

func DecodeHeader(b [FixedHeaderLen]byte) Header {
	return Header{
		Magic:      binary.BigEndian.Uint32(b[0:4]),
		Version:    b[4],
		HeaderLen:  b[5],
		Kind:       Kind(b[6]),
		Flags:      b[7],
		AgentID:    binary.BigEndian.Uint32(b[8:12]),
		PayloadLen: binary.BigEndian.Uint32(b[12:16]),
	}
}
