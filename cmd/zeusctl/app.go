package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codefionn/dazeus/internal/config"
	"github.com/codefionn/dazeus/internal/logger"
	"github.com/codefionn/dazeus/internal/socketutil"
	"github.com/codefionn/dazeus/pkg/dazeus"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	configPath string
	socket     string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "zeusctl",
		Short: "Command line client for the DaZeus IRC bot core",
		Long: `zeusctl connects to a DaZeus core and issues requests on its behalf.

The core address is read from the config file, the DAZEUS_SOCKET environment variable or the
--socket flag, in increasing order of precedence. Supported addresses are unix:PATH,
tcp:HOST:PORT and ws:// or wss:// URLs of a WebSocket bridge.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file (JSON or TOML)")
	root.PersistentFlags().StringVar(&a.socket, "socket", "", "Core address, overrides the config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error, none")

	root.AddCommand(
		a.networksCmd(),
		a.channelsCmd(),
		a.nickCmd(),
		a.joinCmd(),
		a.partCmd(),
		a.sayCmd(),
		a.whoisCmd(),
		a.namesCmd(),
		a.propertyCmd(),
		a.configCmd(),
		a.listenCmd(),
		a.echoCmd(),
		a.statusCmd(),
	)
	return root
}

// setup loads the configuration and initializes logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path := a.configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.socket != "" {
		cfg.Socket = a.socket
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	for _, warning := range cfg.Validate() {
		logger.Warn("config: %s", warning)
	}
	logger.Debug("zeusctl %s: socket=%s config=%s", cmd.Name(), cfg.Socket, path)
	return nil
}

// connect dials the core, waiting for its socket first when configured to.
func (a *app) connect(ctx context.Context) (*dazeus.Session, error) {
	addr, err := socketutil.ParseAddress(a.cfg.Socket)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout())
	defer cancel()

	if a.cfg.WaitForSocket && addr.Network == socketutil.NetworkUnix {
		logger.Info("Waiting for core socket %s", addr.Target)
		if err := socketutil.WaitForSocket(dialCtx, addr.Target); err != nil {
			return nil, fmt.Errorf("core socket did not appear: %w", err)
		}
	}

	s, err := dazeus.Connect(dialCtx, a.cfg.Socket,
		dazeus.WithLogger(logger.Slog(nil)),
		dazeus.WithRequestTimeout(a.cfg.RequestTimeout()),
		dazeus.WithNickCache(a.cfg.NickCacheTTL()),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to core at %s (session %s)", addr, s.ID())
	return s, nil
}

// withSession runs fn with a connected session and closes it afterwards.
func (a *app) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *dazeus.Session) error) error {
	ctx := cmd.Context()
	s, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// handshake identifies zeusctl to the core with the configured plugin name.
func (a *app) handshake(ctx context.Context, s *dazeus.Session) error {
	resp, err := s.Handshake(ctx, a.cfg.PluginName, a.cfg.PluginVersion, a.cfg.ConfigGroup())
	if err != nil {
		return err
	}
	return checkResponse(resp)
}

// checkResponse turns a failure response into an error.
func checkResponse(resp *dazeus.Response) error {
	if resp.Success() {
		return nil
	}
	reason := resp.Reason()
	if reason == "" {
		reason = resp.GetStringOr("error", resp.String())
	}
	return errors.New("core refused request: " + reason)
}
