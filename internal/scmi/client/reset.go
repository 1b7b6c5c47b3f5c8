package client

import (
	"context"

	"github.com/danmuck/scmictl/internal/scmi"
)

type ResetDomainInfo struct {
	ID      uint32
	Name    string
	Flags   uint32
	Latency uint32
}

func (c *Client) ResetDomainCount(ctx context.Context) (int, error) {
	attrs, err := c.ProtocolAttributes(ctx, scmi.ProtocolResetDomain)
	if err != nil {
		return 0, err
	}
	return int(attrs & 0xffff), nil
}

func (c *Client) ResetDomainAttributes(ctx context.Context, id uint32) (ResetDomainInfo, error) {
	r, err := c.call(ctx, scmi.ProtocolResetDomain, scmi.MsgResetDomainAttributes, 8+scmi.NameSize, id)
	if err != nil {
		return ResetDomainInfo{}, err
	}
	return ResetDomainInfo{ID: id, Flags: r.u32(0), Latency: r.u32(1), Name: r.name(8)}, nil
}

// Reset issues a raw RESET request.
func (c *Client) Reset(ctx context.Context, id, flags, state uint32) error {
	_, err := c.call(ctx, scmi.ProtocolResetDomain, scmi.MsgResetDomainRequest, 0, id, flags, state)
	return err
}

// CycleReset requests an autonomous context-loss reset cycle.
func (c *Client) CycleReset(ctx context.Context, id uint32) error {
	return c.Reset(ctx, id, scmi.ResetFlagAutonomous, scmi.ResetStateContextLoss)
}

func (c *Client) SetResetState(ctx context.Context, id uint32, assert bool) error {
	var flags uint32
	if assert {
		flags = scmi.ResetFlagExplicit
	}
	return c.Reset(ctx, id, flags, scmi.ResetStateContextLoss)
}
