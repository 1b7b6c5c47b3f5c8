// Package tee routes SMC doorbell calls from the Non-secure world to the
// agent channels living in shared memory.
package tee

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/scmictl/internal/smt"
)

// FunctionBase is the first SiP SMC function ID of the SCMI channels; agent
// n rings FunctionBase+n.
const FunctionBase uint32 = 0x82002000

// SMC return codes placed in r0.
const (
	ReturnOK               int32 = 0
	ReturnNotSupported     int32 = -1
	ReturnInvalidParameter int32 = -2
	ReturnBusy             int32 = -3
)

var (
	ErrDuplicateAgent = errors.New("tee: agent already bound")
	ErrUnknownAgent   = errors.New("tee: unknown agent")
	ErrImageSize      = errors.New("tee: slot image does not match slot size")
)

// Router maps SMC function IDs onto channels. One call is processed at a
// time.
type Router struct {
	dispatcher smt.Dispatcher
	log        zerolog.Logger

	mu       sync.Mutex
	channels map[uint32]*smt.Channel
	// Notify is called when the agent asked for a completion interrupt.
	Notify func(agentID uint32)
}

func NewRouter(d smt.Dispatcher) *Router {
	return &Router{
		dispatcher: d,
		log:        log.Logger.With().Str("component", "tee").Logger(),
		channels:   make(map[uint32]*smt.Channel),
	}
}

// Bind attaches the slot at mem to agentID.
func (r *Router) Bind(agentID uint32, mem []byte) (*smt.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[agentID]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateAgent, agentID)
	}
	ch, err := smt.NewChannel(agentID, mem)
	if err != nil {
		return nil, err
	}
	r.channels[agentID] = ch
	return ch, nil
}

// Agents lists the bound agents in ascending order.
func (r *Router) Agents() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint32, 0, len(r.channels))
	for id := range r.channels {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Router) Channel(agentID uint32) (*smt.Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[agentID]
	return ch, ok
}

// Ring processes the agent's slot in place and reports whether the agent
// asked for a completion interrupt.
func (r *Router) Ring(agentID uint32) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[agentID]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownAgent, agentID)
	}
	return ch.Process(r.dispatcher)
}

// Exchange stores image in the agent's slot, rings it and returns a copy of
// the slot afterwards. A malformed request still yields the image, carrying
// ERROR, next to the error. An idle or busy channel yields no image.
func (r *Router) Exchange(agentID uint32, image []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAgent, agentID)
	}
	slot := ch.Slot()
	if len(image) != len(slot) {
		return nil, fmt.Errorf("%w: %d != %d", ErrImageSize, len(image), len(slot))
	}
	copy(slot, image)
	if _, err := ch.Process(r.dispatcher); err != nil {
		if errors.Is(err, smt.ErrChannelIdle) || errors.Is(err, smt.ErrChannelBusy) {
			return nil, err
		}
		return append([]byte(nil), slot...), err
	}
	return append([]byte(nil), slot...), nil
}

// Handle serves one SMC and returns the value for r0.
func (r *Router) Handle(fid uint32) int32 {
	if fid < FunctionBase {
		return ReturnNotSupported
	}
	agentID := fid - FunctionBase

	interrupt, err := r.Ring(agentID)
	if err != nil {
		if !errors.Is(err, ErrUnknownAgent) {
			r.log.Debug().Uint32("agent", agentID).Err(err).Msg("channel error")
		}
		return ReturnCode(err)
	}
	if interrupt && r.Notify != nil {
		r.Notify(agentID)
	}
	return ReturnOK
}

// ReturnCode maps a Ring error onto the SMC return value.
func ReturnCode(err error) int32 {
	switch {
	case err == nil:
		return ReturnOK
	case errors.Is(err, ErrUnknownAgent):
		return ReturnNotSupported
	case errors.Is(err, smt.ErrChannelBusy):
		return ReturnBusy
	default:
		return ReturnInvalidParameter
	}
}
