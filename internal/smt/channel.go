package smt

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/scmictl/internal/scmi"
)

// Dispatcher answers one message in place.
type Dispatcher interface {
	Dispatch(msg *scmi.Message)
}

// Channel binds an agent to its slot.
type Channel struct {
	AgentID uint32
	slot    Slot
	busy    atomic.Bool
	log     zerolog.Logger
}

// NewChannel takes ownership of a slot and marks it free.
func NewChannel(agentID uint32, mem []byte) (*Channel, error) {
	if len(mem) < MinSlotSize {
		return nil, ErrSlotTooSmall
	}
	c := &Channel{
		AgentID: agentID,
		slot:    Slot(mem),
		log:     log.Logger.With().Str("component", "smt").Uint32("agent", agentID).Logger(),
	}
	c.slot.SetChannelStatus(StatusFree)
	return c, nil
}

func (c *Channel) Slot() Slot { return c.slot }

// Process handles the pending message of the channel. The request payload
// is copied out of shared memory before dispatch and the response is built
// in a private buffer. It reports whether the agent asked for a completion
// interrupt.
func (c *Channel) Process(d Dispatcher) (bool, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return false, ErrChannelBusy
	}
	defer c.busy.Store(false)

	s := c.slot
	status := s.ChannelStatus()
	if status&StatusFree != 0 {
		return false, ErrChannelIdle
	}
	header := s.Header()
	interrupt := s.Flags()&FlagInterrupt != 0
	payload, err := s.Payload()
	if err != nil {
		c.log.Debug().Err(err).Msg("malformed slot")
		s.SetChannelStatus(StatusError | StatusFree)
		return interrupt, err
	}
	in := append([]byte(nil), payload...)
	out := make([]byte, s.Capacity())

	msg, err := scmi.NewMessage(c.AgentID, scmi.UnpackHeader(header), in, out)
	if err != nil {
		s.SetChannelStatus(StatusError | StatusFree)
		return interrupt, fmt.Errorf("smt: agent %d: %w", c.AgentID, err)
	}
	d.Dispatch(msg)

	copy(s[offPayload:], msg.Response())
	s.put32(offLength, uint32(4+msg.OutSize()))
	s.put32(offHeader, header)
	s.SetChannelStatus(StatusFree)
	return interrupt, nil
}
