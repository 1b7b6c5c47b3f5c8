package client

import (
	"context"

	"github.com/danmuck/scmictl/internal/scmi"
)

// BaseInfo is the Base protocol discovery summary.
type BaseInfo struct {
	Version               uint32
	ProtocolCount         int
	Vendor                string
	SubVendor             string
	ImplementationVersion uint32
	Protocols             []scmi.ProtocolID
}

func (c *Client) DiscoverBase(ctx context.Context) (BaseInfo, error) {
	var info BaseInfo
	var err error
	if info.Version, err = c.ProtocolVersion(ctx, scmi.ProtocolBase); err != nil {
		return info, err
	}
	attrs, err := c.ProtocolAttributes(ctx, scmi.ProtocolBase)
	if err != nil {
		return info, err
	}
	info.ProtocolCount = int(attrs & 0xff)

	r, err := c.call(ctx, scmi.ProtocolBase, scmi.MsgBaseDiscoverVendor, scmi.NameSize)
	if err != nil {
		return info, err
	}
	info.Vendor = r.name(0)
	r, err = c.call(ctx, scmi.ProtocolBase, scmi.MsgBaseDiscoverSubVendor, scmi.NameSize)
	if err != nil {
		return info, err
	}
	info.SubVendor = r.name(0)
	r, err = c.call(ctx, scmi.ProtocolBase, scmi.MsgBaseDiscoverImplementationVersion, 4)
	if err != nil {
		return info, err
	}
	info.ImplementationVersion = r.u32(0)

	info.Protocols, err = c.ListProtocols(ctx)
	return info, err
}

// ListProtocols walks DISCOVER_LIST_PROTOCOLS with an advancing skip until
// the platform returns an empty chunk.
func (c *Client) ListProtocols(ctx context.Context) ([]scmi.ProtocolID, error) {
	var out []scmi.ProtocolID
	for {
		r, err := c.call(ctx, scmi.ProtocolBase, scmi.MsgBaseDiscoverListProtocols, 4, uint32(len(out)))
		if err != nil {
			return out, err
		}
		n := int(r.u32(0))
		if n == 0 {
			return out, nil
		}
		if n > scmi.MaxProtocolsPerList || len(r) < 4+n {
			return out, ErrShortResponse
		}
		for _, id := range r[4 : 4+n] {
			out = append(out, scmi.ProtocolID(id))
		}
	}
}
