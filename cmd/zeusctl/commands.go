package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/codefionn/dazeus/internal/logger"
	"github.com/codefionn/dazeus/internal/pidfile"
	"github.com/codefionn/dazeus/internal/socketutil"
	"github.com/codefionn/dazeus/pkg/dazeus"
)

const defaultAnswerTimeout = 10 * time.Second

func (a *app) networksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the networks the core is connected to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				resp, err := s.Networks(ctx)
				if err != nil {
					return err
				}
				if err := checkResponse(resp); err != nil {
					return err
				}
				printLines(cmd, resp.Strings("networks"))
				return nil
			})
		},
	}
}

func (a *app) channelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels NETWORK",
		Short: "List the channels joined on a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				resp, err := s.Channels(ctx, args[0])
				if err != nil {
					return err
				}
				if err := checkResponse(resp); err != nil {
					return err
				}
				printLines(cmd, resp.Strings("channels"))
				return nil
			})
		},
	}
}

func (a *app) nickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nick NETWORK",
		Short: "Print the nick of the bot on a network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				resp, err := s.Nick(ctx, args[0])
				if err != nil {
					return err
				}
				if err := checkResponse(resp); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.GetStringOr("nick", ""))
				return nil
			})
		},
	}
}

func (a *app) joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join NETWORK CHANNEL",
		Short: "Join a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				resp, err := s.Join(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return checkResponse(resp)
			})
		},
	}
}

func (a *app) partCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "part NETWORK CHANNEL",
		Short: "Leave a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				resp, err := s.Part(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return checkResponse(resp)
			})
		},
	}
}

func (a *app) sayCmd() *cobra.Command {
	var notice, action bool
	var wrap int

	cmd := &cobra.Command{
		Use:   "say NETWORK TARGET MESSAGE...",
		Short: "Send a message to a channel or user",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if notice && action {
				return errors.New("--notice and --action are mutually exclusive")
			}
			if wrap < 0 {
				wrap = a.cfg.WrapWidth
			}
			lines := splitMessage(strings.Join(args[2:], " "), wrap)

			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				send := s.Message
				switch {
				case notice:
					send = s.Notice
				case action:
					send = s.Action
				}
				for _, line := range lines {
					resp, err := send(ctx, args[0], args[1], line)
					if err != nil {
						return err
					}
					if err := checkResponse(resp); err != nil {
						return err
					}
				}
				logger.Debug("Sent %d line(s) to %s on %s", len(lines), args[1], args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&notice, "notice", false, "Send a NOTICE instead of a PRIVMSG")
	cmd.Flags().BoolVar(&action, "action", false, "Send a CTCP ACTION (/me)")
	cmd.Flags().IntVar(&wrap, "wrap", -1, "Wrap the message at this width, 0 disables wrapping (default from config)")
	return cmd
}

func (a *app) whoisCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "whois NETWORK NICK",
		Short: "Ask the IRC server about a nick and print the answer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				evt, err := s.Whois(ctx, args[0], args[1])
				if err != nil {
					return answerError("whois", err)
				}
				printLines(cmd, evt.Params[min(3, len(evt.Params)):])
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultAnswerTimeout, "How long to wait for the answer")
	return cmd
}

func (a *app) namesCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "names NETWORK CHANNEL",
		Short: "List the nicks in a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				evt, err := s.Names(ctx, args[0], args[1])
				if err != nil {
					return answerError("names", err)
				}
				printLines(cmd, evt.Params[min(3, len(evt.Params)):])
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultAnswerTimeout, "How long to wait for the answer")
	return cmd
}

func answerError(what string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("no %s answer from the IRC server in time", what)
	}
	return err
}

func (a *app) propertyCmd() *cobra.Command {
	var network, sender, receiver string
	scope := func() dazeus.Scope {
		return dazeus.FullScope(network, sender, receiver)
	}

	cmd := &cobra.Command{
		Use:   "property",
		Short: "Read and write properties in the core database",
	}
	cmd.PersistentFlags().StringVar(&network, "network", "", "Restrict to a network")
	cmd.PersistentFlags().StringVar(&sender, "sender", "", "Restrict to a sender, usually a channel")
	cmd.PersistentFlags().StringVar(&receiver, "receiver", "", "Restrict to a receiver, usually a user")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get NAME",
			Short: "Print a property",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
					resp, err := s.GetProperty(ctx, args[0], scope())
					if err != nil {
						return err
					}
					if err := checkResponse(resp); err != nil {
						return err
					}
					value, ok := resp.GetString("value")
					if !ok {
						return fmt.Errorf("property %s is not set", args[0])
					}
					fmt.Fprintln(cmd.OutOrStdout(), value)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set NAME VALUE",
			Short: "Store a property",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
					resp, err := s.SetProperty(ctx, args[0], args[1], scope())
					if err != nil {
						return err
					}
					return checkResponse(resp)
				})
			},
		},
		&cobra.Command{
			Use:   "unset NAME",
			Short: "Remove a property",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
					resp, err := s.UnsetProperty(ctx, args[0], scope())
					if err != nil {
						return err
					}
					return checkResponse(resp)
				})
			},
		},
		&cobra.Command{
			Use:   "keys [PREFIX]",
			Short: "List property names starting with PREFIX",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				prefix := ""
				if len(args) == 1 {
					prefix = args[0]
				}
				return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
					resp, err := s.GetPropertyKeys(ctx, prefix, scope())
					if err != nil {
						return err
					}
					if err := checkResponse(resp); err != nil {
						return err
					}
					printLines(cmd, resp.Strings("keys"))
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	var core bool
	cmd := &cobra.Command{
		Use:   "config KEY",
		Short: "Print a configuration value of the plugin, or of the core with --core",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group := dazeus.ConfigPlugin
			if core {
				group = dazeus.ConfigCore
			}
			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				// Plugin config is looked up under the name given in the handshake.
				if group == dazeus.ConfigPlugin {
					if err := a.handshake(ctx, s); err != nil {
						return err
					}
				}
				resp, err := s.GetConfig(ctx, args[0], group)
				if err != nil {
					return err
				}
				if err := checkResponse(resp); err != nil {
					return err
				}
				value := resp.Lookup("value")
				if value.Type == gjson.Null {
					return fmt.Errorf("%s config %s is not set", group, args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), value.String())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&core, "core", false, "Read from the core configuration")
	return cmd
}

func (a *app) listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen [EVENT...]",
		Short: "Print events until interrupted",
		Long: `Print events until interrupted. Without arguments all event types are printed.
Event names are case-insensitive; COMMAND_name listens for a command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := parseEventTypes(args)
			if err != nil {
				return err
			}
			r := newRenderer(cmd.OutOrStdout())

			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				for _, t := range types {
					_, resp, err := s.Subscribe(ctx, t, func(evt dazeus.Event, _ *dazeus.Session) {
						fmt.Fprintln(cmd.OutOrStdout(), r.event(evt))
					})
					if err != nil {
						return err
					}
					if err := checkResponse(resp); err != nil {
						return fmt.Errorf("subscribe %s: %w", t, err)
					}
				}
				logger.Info("Listening for %d event type(s)", len(types))
				return ignoreCancel(ctx, s.Listen(ctx))
			})
		},
	}
}

// allEventTypes are the event types listen subscribes to by default.
var allEventTypes = []dazeus.EventType{
	dazeus.EventAction, dazeus.EventActionMe, dazeus.EventConnect, dazeus.EventCtcp,
	dazeus.EventCtcpMe, dazeus.EventCtcpReply, dazeus.EventDisconnect, dazeus.EventInvite,
	dazeus.EventJoin, dazeus.EventKick, dazeus.EventMode, dazeus.EventNames, dazeus.EventNick,
	dazeus.EventNotice, dazeus.EventNumeric, dazeus.EventPart, dazeus.EventPong, dazeus.EventPrivMsg,
	dazeus.EventPrivMsgMe, dazeus.EventQuit, dazeus.EventTopic, dazeus.EventUnknown,
	dazeus.EventWhois,
}

func parseEventTypes(names []string) ([]dazeus.EventType, error) {
	if len(names) == 0 {
		return allEventTypes, nil
	}
	types := make([]dazeus.EventType, 0, len(names))
	for _, name := range names {
		t, err := dazeus.ParseEventType(name)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func (a *app) echoCmd() *cobra.Command {
	var command, pidPath string
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Run a plugin that repeats every message it sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pidPath == "" {
				pidPath = a.cfg.PidFile
			}
			if pidPath != "" {
				pf, err := pidfile.Acquire(pidPath)
				if err != nil {
					return err
				}
				defer func() {
					if err := pf.Release(); err != nil {
						logger.Warn("Failed to remove pidfile %s: %v", pf.Path(), err)
					}
				}()
			}

			return a.withSession(cmd, func(ctx context.Context, s *dazeus.Session) error {
				if err := a.handshake(ctx, s); err != nil {
					return err
				}

				var err error
				if command != "" {
					_, _, err = s.SubscribeCommand(ctx, command, func(evt dazeus.Event, s *dazeus.Session) {
						a.echo(ctx, s, evt, evt.Param(4))
					})
				} else {
					_, _, err = s.Subscribe(ctx, dazeus.EventPrivMsg, func(evt dazeus.Event, s *dazeus.Session) {
						a.echo(ctx, s, evt, evt.Param(3))
					})
				}
				if err != nil {
					return err
				}

				logger.Info("Echo plugin %s running", a.cfg.PluginName)
				return ignoreCancel(ctx, s.Listen(ctx))
			})
		},
	}
	cmd.Flags().StringVar(&command, "command", "", "Only echo the arguments of this command")
	cmd.Flags().StringVar(&pidPath, "pidfile", "", "Refuse to start while the process in this PID file runs (default from config)")
	return cmd
}

func (a *app) echo(ctx context.Context, s *dazeus.Session, evt dazeus.Event, text string) {
	if text == "" {
		return
	}
	resp, err := s.Reply(ctx, evt, text, a.cfg.Highlight)
	if err != nil {
		logger.Error("Echo reply failed: %v", err)
		return
	}
	if !resp.Success() {
		logger.Warn("Core refused echo reply: %s", resp)
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether a core is listening at the configured address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), socketutil.GetSocketDetectionInfo(a.cfg.Socket))
			return nil
		},
	}
}

// ignoreCancel hides the error of a run stopped by the user.
func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func printLines(cmd *cobra.Command, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
}
