package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmuck/scmictl/internal/scmi"
)

func newVoltageCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voltage",
		Short: "Voltage Domain protocol operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the voltage domains of the agent",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(s *session, args []string) error {
			n, err := s.VoltageDomainCount(s.ctx)
			if err != nil {
				return err
			}
			for id := uint32(0); id < uint32(n); id++ {
				info, err := s.VoltageDomainAttributes(s.ctx, id)
				if err != nil {
					return err
				}
				level, err := s.VoltageLevel(s.ctx, id)
				if err != nil {
					return err
				}
				mode, err := s.VoltageConfig(s.ctx, id)
				if err != nil {
					return err
				}
				state := "off"
				if mode == scmi.VoltageConfigArchOn {
					state = "on"
				}
				s.printf("%3d  %-15s %8d uV  %s\n", id, info.Name, level, state)
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "levels <id>",
		Short: "Describe the levels a domain supports",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			levels, err := s.DescribeLevels(s.ctx, id)
			if err != nil {
				return err
			}
			if levels.Range != nil {
				s.printf("range %d..%d step %d uV\n", levels.Range.Min, levels.Range.Max, levels.Range.Step)
				return nil
			}
			out := make([]string, 0, len(levels.Levels))
			for _, l := range levels.Levels {
				out = append(out, strconv.Itoa(int(l)))
			}
			s.printf("%s\n", strings.Join(out, " "))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-level <id> <microvolts>",
		Short: "Set a domain level",
		Args:  cobra.ExactArgs(2),
		RunE: run(opts, func(s *session, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			uv, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("bad level %q: %w", args[1], err)
			}
			return s.SetVoltageLevel(s.ctx, id, int32(uv))
		}),
	})

	for _, state := range []struct {
		use   string
		short string
		mode  uint32
	}{
		{"on", "Switch a domain on", scmi.VoltageConfigArchOn},
		{"off", "Switch a domain off", scmi.VoltageConfigArchOff},
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
				return s.SetVoltageConfig(s.ctx, id, state.mode)
			}),
		})
	}
	return cmd
}
