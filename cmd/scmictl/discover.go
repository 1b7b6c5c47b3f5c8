package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newDiscoverCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Show the Base protocol view of the platform",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(s *session, args []string) error {
			info, err := s.DiscoverBase(s.ctx)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(info.Protocols))
			for _, p := range info.Protocols {
				names = append(names, p.String())
			}
			s.printf("vendor:     %s\n", info.Vendor)
			s.printf("sub-vendor: %s\n", info.SubVendor)
			s.printf("impl:       %#x\n", info.ImplementationVersion)
			s.printf("base:       %#x\n", info.Version)
			s.printf("protocols:  %s\n", strings.Join(names, ", "))
			return nil
		}),
	}
}
