package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newClockCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Clock protocol operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the clocks of the agent",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(s *session, args []string) error {
			n, err := s.ClockCount(s.ctx)
			if err != nil {
				return err
			}
			for id := uint32(0); id < uint32(n); id++ {
				info, err := s.ClockAttributes(s.ctx, id)
				if err != nil {
					return err
				}
				rate, err := s.ClockRate(s.ctx, id)
				if err != nil {
					return err
				}
				state := "off"
				if info.Enabled {
					state = "on"
				}
				s.printf("%3d  %-15s %12d Hz  %s\n", id, info.Name, rate, state)
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rate <id>",
		Short: "Read the rate of one clock",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rate, err := s.ClockRate(s.ctx, id)
			if err != nil {
				return err
			}
			s.printf("%d\n", rate)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-rate <id> <hz>",
		Short: "Request a clock rate",
		Args:  cobra.ExactArgs(2),
		RunE: run(opts, func(s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rate, err := strconv.ParseUint(args[1], 0, 64)
			if err != nil {
				return fmt.Errorf("bad rate %q: %w", args[1], err)
			}
			return s.SetClockRate(s.ctx, id, rate)
		}),
	})

	for _, state := range []struct {
		use    string
		short  string
		enable bool
	}{
		{"enable", "Gate a clock on", true},
		{"disable", "Gate a clock off", false},
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
				return s.SetClockState(s.ctx, id, state.enable)
			}),
		})
	}
	return cmd
}
