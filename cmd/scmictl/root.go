package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/danmuck/scmictl/internal/config"
	"github.com/danmuck/scmictl/internal/doorbell"
	"github.com/danmuck/scmictl/internal/platform"
	"github.com/danmuck/scmictl/internal/platform/sim"
	"github.com/danmuck/scmictl/internal/scmi"
	"github.com/danmuck/scmictl/internal/scmi/client"
)

type options struct {
	addr      string
	agent     uint32
	token     string
	timeout   time.Duration
	local     bool
	boardPath string
	tls       doorbell.TLSConfig
}

// session is one connected agent for the lifetime of a command.
type session struct {
	*client.Client
	ctx   context.Context
	out   io.Writer
	close func()
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "scmictl",
		Short: "SCMI agent client for scmid",
		Long: `scmictl speaks SCMI as one agent, either to a running scmid over the ` +
			`doorbell transport or to an in-process simulated board (--local).`,
		SilenceUsage: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.addr, "addr", "127.0.0.1:9310", "scmid doorbell address")
	f.Uint32VarP(&opts.agent, "agent", "a", 0, "agent id to speak as")
	f.StringVar(&opts.token, "token", "", "doorbell auth token")
	f.DurationVar(&opts.timeout, "timeout", 5*time.Second, "per command timeout")
	f.BoolVar(&opts.local, "local", false, "use an in-process simulated board instead of scmid")
	f.StringVar(&opts.boardPath, "board", "", "board TOML for --local (default stm32mp15)")
	f.BoolVar(&opts.tls.Enabled, "tls", false, "dial the doorbell over TLS")
	f.StringVar(&opts.tls.CAFile, "tls-ca", "", "CA bundle for the doorbell server")
	f.StringVar(&opts.tls.CertFile, "tls-cert", "", "client certificate for mutual TLS")
	f.StringVar(&opts.tls.KeyFile, "tls-key", "", "client key for mutual TLS")
	f.StringVar(&opts.tls.ServerName, "tls-server-name", "", "expected server name")

	root.AddCommand(
		newDiscoverCmd(opts),
		newClockCmd(opts),
		newResetCmd(opts),
		newVoltageCmd(opts),
		newConfigCmd(),
	)
	return root
}

// connect opens an agent session according to the global flags.
func connect(cmd *cobra.Command, opts *options) (*session, error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)

	var transport client.Transport
	closeTransport := func() {}
	if opts.local {
		board := config.DefaultBoard()
		if opts.boardPath != "" {
			b, err := config.LoadBoard(opts.boardPath)
			if err != nil {
				cancel()
				return nil, err
			}
			board = b
		}
		hw := sim.FromBoard(board, 0)
		p, err := platform.New(board, platform.Backends{Clocks: hw.Clocks, Resets: hw.Resets, PWR: hw.PWR, PMIC: hw.PMIC})
		if err != nil {
			cancel()
			return nil, err
		}
		transport = &client.Local{Server: scmi.NewServer(p), AgentID: opts.agent}
	} else {
		cfg := doorbell.DefaultConfig()
		cfg.MaxConnectAttempts = 3
		cfg.TLS = opts.tls
		if opts.tls.CertFile != "" {
			cfg.TLS.Mutual = true
		}
		bell, err := doorbell.Dial(ctx, opts.addr, opts.agent, cfg, doorbell.WithToken(opts.token))
		if err != nil {
			cancel()
			return nil, err
		}
		transport = bell
		closeTransport = func() { _ = bell.Close() }
	}

	c, err := client.New(transport)
	if err != nil {
		closeTransport()
		cancel()
		return nil, err
	}
	return &session{
		Client: c,
		ctx:    ctx,
		out:    cmd.OutOrStdout(),
		close: func() {
			closeTransport()
			cancel()
		},
	}, nil
}

// run wraps a command body with connect/close.
func run(opts *options, fn func(s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := connect(cmd, opts)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(s, args)
	}
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func parseID(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad id %q: %w", raw, err)
	}
	return uint32(id), nil
}
