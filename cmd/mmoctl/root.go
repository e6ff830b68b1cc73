package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mmoclient/internal/app/events"
	"mmoclient/internal/app/gateway"
	"mmoclient/internal/app/session"
	"mmoclient/internal/configs"
	"mmoclient/internal/pkg/logx"
)

// globalFlags are the persistent flags. Each overrides its MMO_* environment
// variable when set.
type globalFlags struct {
	baseURL     string
	timeout     time.Duration
	sessionFile string
	strictAuth  bool
	verbose     bool
}

// client is what every subcommand works with. It is filled in by the root
// command's PersistentPreRunE.
type client struct {
	flags globalFlags

	cfg      *configs.ClientConfig
	bus      *events.Bus
	session  *session.Session
	gateway  *gateway.Gateway
	registry *prometheus.Registry
}

// NewRootCmd creates the root command for mmoctl.
func NewRootCmd() *cobra.Command {
	c := &client{}

	cmd := &cobra.Command{
		Use:   "mmoctl",
		Short: "Command-line client for the MMO game backend",
		Long: `mmoctl drives the game client's network gateway from a terminal: it logs in,
manages characters and saves positions against the game backend. The session
(token and character roster) is kept in a YAML file between invocations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return c.save()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.flags.baseURL, "base-url", configs.DefaultBaseURL, "game backend base URL (MMO_BASE_URL)")
	flags.DurationVar(&c.flags.timeout, "timeout", configs.DefaultRequestTimeout, "per-request timeout (MMO_REQUEST_TIMEOUT)")
	flags.StringVar(&c.flags.sessionFile, "session-file", ".mmoctl-session.yaml", "where the session is kept (MMO_SESSION_FILE)")
	flags.BoolVar(&c.flags.strictAuth, "strict-auth", false, "refuse character writes without a token (MMO_STRICT_AUTH)")
	flags.BoolVarP(&c.flags.verbose, "verbose", "v", false, "log gateway activity to stderr")

	cmd.AddCommand(NewHealthCmd(c))
	cmd.AddCommand(NewPingCmd(c))
	cmd.AddCommand(NewRegisterCmd(c))
	cmd.AddCommand(NewLoginCmd(c))
	cmd.AddCommand(NewLogoutCmd(c))
	cmd.AddCommand(NewWhoamiCmd(c))
	cmd.AddCommand(NewCharactersCmd(c))
	cmd.AddCommand(NewCharacterCmd(c))
	cmd.AddCommand(NewCreateCmd(c))
	cmd.AddCommand(NewSelectCmd(c))
	cmd.AddCommand(NewSavePositionCmd(c))

	return cmd
}

// setup loads configuration, restores the session and builds the gateway.
func (c *client) setup(cmd *cobra.Command) error {
	cfg, err := configs.LoadClientConfig()
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	if changed("base-url") {
		cfg.BaseURL = c.flags.baseURL
	}
	if changed("timeout") {
		cfg.RequestTimeout = c.flags.timeout
	}
	if changed("session-file") {
		cfg.SessionFile = c.flags.sessionFile
	}
	if changed("strict-auth") {
		cfg.StrictAuth = c.flags.strictAuth
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	logx.InitGlobalLoggerTo(cmd.ErrOrStderr(), cfg.Environment == configs.EnvDevelopment)
	if !c.flags.verbose {
		logx.SetLevel(zerolog.ErrorLevel)
	}

	c.bus = events.NewBus()
	c.bus.SubscribeAll(func(ev events.Event) {
		logx.Debug("Event published", "event", ev.String())
	})

	c.session = session.New(c.bus)
	snap, err := session.LoadSnapshot(cfg.SessionFile)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	c.session.Restore(snap)

	c.registry = prometheus.NewRegistry()

	opts := gateway.OptionsFromConfig(cfg)
	opts.Publisher = c.bus
	opts.Metrics = gateway.NewMetrics(c.registry)

	c.gateway, err = gateway.New(c.session, opts)
	return err
}

// save writes the session back to disk.
func (c *client) save() error {
	if c.session == nil {
		return nil
	}
	if err := session.SaveSnapshot(c.cfg.SessionFile, c.session.Snapshot()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
