package client

import (
	"context"

	"github.com/danmuck/scmictl/internal/scmi"
)

type VoltageDomainInfo struct {
	ID   uint32
	Name string
}

// VoltageLevels describes a domain either as a discrete list or as a
// min/max/step range.
type VoltageLevels struct {
	Levels []int32
	Range  *scmi.LevelRange
}

func (c *Client) VoltageDomainCount(ctx context.Context) (int, error) {
	attrs, err := c.ProtocolAttributes(ctx, scmi.ProtocolVoltageDomain)
	if err != nil {
		return 0, err
	}
	return int(attrs & 0xffff), nil
}

func (c *Client) VoltageDomainAttributes(ctx context.Context, id uint32) (VoltageDomainInfo, error) {
	r, err := c.call(ctx, scmi.ProtocolVoltageDomain, scmi.MsgVoltageDomainAttributes, 4+scmi.NameSize, id)
	if err != nil {
		return VoltageDomainInfo{}, err
	}
	return VoltageDomainInfo{ID: id, Name: r.name(4)}, nil
}

// DescribeLevels pages through VOLTAGE_DESCRIBE_LEVELS until nothing remains.
func (c *Client) DescribeLevels(ctx context.Context, id uint32) (VoltageLevels, error) {
	var out VoltageLevels
	for {
		r, err := c.call(ctx, scmi.ProtocolVoltageDomain, scmi.MsgVoltageDescribeLevels, 4, id, uint32(len(out.Levels)))
		if err != nil {
			return out, err
		}
		count, triplet, remaining := scmi.SplitLevelsFlags(r.u32(0))
		if len(r) < 4+4*int(count) {
			return out, ErrShortResponse
		}
		if triplet {
			if count != 3 {
				return out, ErrShortResponse
			}
			out.Range = &scmi.LevelRange{
				Min:  int32(r.u32(1)),
				Max:  int32(r.u32(2)),
				Step: int32(r.u32(3)),
			}
			return out, nil
		}
		for i := 1; i <= int(count); i++ {
			out.Levels = append(out.Levels, int32(r.u32(i)))
		}
		if remaining == 0 || count == 0 {
			return out, nil
		}
	}
}

func (c *Client) VoltageConfig(ctx context.Context, id uint32) (uint32, error) {
	r, err := c.call(ctx, scmi.ProtocolVoltageDomain, scmi.MsgVoltageConfigGet, 4, id)
	if err != nil {
		return 0, err
	}
	return r.u32(0), nil
}

func (c *Client) SetVoltageConfig(ctx context.Context, id, config uint32) error {
	_, err := c.call(ctx, scmi.ProtocolVoltageDomain, scmi.MsgVoltageConfigSet, 0, id, config)
	return err
}

func (c *Client) VoltageLevel(ctx context.Context, id uint32) (int32, error) {
	r, err := c.call(ctx, scmi.ProtocolVoltageDomain, scmi.MsgVoltageLevelGet, 4, id)
	if err != nil {
		return 0, err
	}
	return int32(r.u32(0)), nil
}

func (c *Client) SetVoltageLevel(ctx context.Context, id uint32, microvolts int32) error {
	_, err := c.call(ctx, scmi.ProtocolVoltageDomain, scmi.MsgVoltageLevelSet, 0, id, 0, uint32(microvolts))
	return err
}
