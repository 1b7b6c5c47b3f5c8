package client

import (
	"context"

	"github.com/danmuck/scmictl/internal/scmi"
)

type ClockInfo struct {
	ID      uint32
	Name    string
	Enabled bool
}

func (c *Client) ClockCount(ctx context.Context) (int, error) {
	attrs, err := c.ProtocolAttributes(ctx, scmi.ProtocolClock)
	if err != nil {
		return 0, err
	}
	return int(attrs & 0xffff), nil
}

func (c *Client) ClockAttributes(ctx context.Context, id uint32) (ClockInfo, error) {
	r, err := c.call(ctx, scmi.ProtocolClock, scmi.MsgClockAttributes, 4+scmi.NameSize, id)
	if err != nil {
		return ClockInfo{}, err
	}
	return ClockInfo{
		ID:      id,
		Name:    r.name(4),
		Enabled: r.u32(0)&scmi.ClockAttrEnabled != 0,
	}, nil
}

func (c *Client) ClockRate(ctx context.Context, id uint32) (uint64, error) {
	r, err := c.call(ctx, scmi.ProtocolClock, scmi.MsgClockRateGet, 8, id)
	if err != nil {
		return 0, err
	}
	return uint64(r.u32(1))<<32 | uint64(r.u32(0)), nil
}

// ClockRates returns the discrete rates reported from index 0.
func (c *Client) ClockRates(ctx context.Context, id uint32) ([]uint64, error) {
	var rates []uint64
	for {
		r, err := c.call(ctx, scmi.ProtocolClock, scmi.MsgClockDescribeRates, 4, id, uint32(len(rates)))
		if err != nil {
			return rates, err
		}
		count, _, remaining := scmi.SplitLevelsFlags(r.u32(0))
		if len(r) < 4+int(count)*8 {
			return rates, ErrShortResponse
		}
		for i := 0; i < int(count); i++ {
			rates = append(rates, uint64(r.u32(2+2*i))<<32|uint64(r.u32(1+2*i)))
		}
		if remaining == 0 || count == 0 {
			return rates, nil
		}
	}
}

func (c *Client) SetClockRate(ctx context.Context, id uint32, rate uint64) error {
	_, err := c.call(ctx, scmi.ProtocolClock, scmi.MsgClockRateSet, 0, 0, id, uint32(rate), uint32(rate>>32))
	return err
}

func (c *Client) SetClockState(ctx context.Context, id uint32, enable bool) error {
	var attrs uint32
	if enable {
		attrs = scmi.ClockConfigEnable
	}
	_, err := c.call(ctx, scmi.ProtocolClock, scmi.MsgClockConfigSet, 0, id, attrs)
	return err
}
