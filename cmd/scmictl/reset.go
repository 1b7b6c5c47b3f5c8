package main

import (
	"github.com/spf13/cobra"
)

func newResetCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset Domain protocol operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the reset domains of the agent",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(s *session, args []string) error {
			n, err := s.ResetDomainCount(s.ctx)
			if err != nil {
				return err
			}
			for id := uint32(0); id < uint32(n); id++ {
				info, err := s.ResetDomainAttributes(s.ctx, id)
				if err != nil {
					return err
				}
				s.printf("%3d  %-15s flags=%#x latency=%#x\n", id, info.Name, info.Flags, info.Latency)
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cycle <id>",
		Short: "Assert then release a reset domain",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return s.CycleReset(s.ctx, id)
		}),
	})

	for _, state := range []struct {
		use    string
		short  string
		assert bool
	}{
		{"assert", "Hold a reset domain in reset", true},
		{"deassert", "Release a reset domain", false},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:   state.use + " <id>",
			Short: state.short,
			Args:  cobra.ExactArgs(1),
			RunE: run(opts, func(s *session, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return s.SetResetState(s.ctx, id, state.assert)
			}),
		})
	}
	return cmd
}
