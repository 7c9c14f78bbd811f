package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nestor/internal/config"
	"nestor/internal/domain"
	"nestor/internal/nestorapi"
	"nestor/internal/outbox"
	"nestor/internal/response"
)

type sendFlags struct {
	user  string
	room  string
	team  string
	debug bool
}

// sendCmd builds "send" or, when reply is set, "reply".
func sendCmd(reply bool) *cobra.Command {
	var f sendFlags
	use, short := "send", "Send lines to the user's channel"
	if reply {
		use, short = "reply", "Reply to the user with lines"
	}

	cmd := &cobra.Command{
		Use:   use + " [line]...",
		Short: short,
		Long:  short + ". Each argument is one line; with no arguments lines are read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, f, reply, args)
		},
	}
	cmd.Flags().StringVarP(&f.user, "user", "u", "", "user uid to answer (required)")
	cmd.Flags().StringVarP(&f.room, "room", "r", "", "channel uid the user spoke in (required)")
	cmd.Flags().StringVarP(&f.team, "team", "t", "", "team id (default: robot.teamId from config)")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "buffer into the local outbox instead of posting")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("room")
	return cmd
}

func runSend(cmd *cobra.Command, f sendFlags, reply bool, args []string) error {
	cfg, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	payload, err := payloadFromArgs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	team := f.team
	if team == "" {
		team = cfg.Robot.TeamID
	}
	if team == "" {
		return fmt.Errorf("team id required: pass --team or set robot.teamId")
	}
	debug := f.debug || cfg.Robot.DebugMode

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := response.Config{
		Robot:   domain.NewRobot(team, cfg.Robot.BotUID, debug),
		Message: domain.NewTextMessage(domain.User{ID: f.user, Room: f.room}, ""),
		Logger:  logger,
	}
	if debug {
		store, err := outbox.NewStore(cfg.Outbox.DBPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		rc.Sink = store.ForTeam(team)
	} else {
		client, err := newAPIClient(cfg)
		if err != nil {
			return err
		}
		rc.Poster = client
	}

	resp := response.New(rc)
	if reply {
		err = resp.Reply(ctx, payload)
	} else {
		err = resp.Send(ctx, payload)
	}
	if err != nil {
		return err
	}
	logger.Info("response delivered", "team", team, "user", f.user, "channel", f.room, "reply", reply, "debug", debug, "lines", len(payload))
	return nil
}

// payloadFromArgs uses args as lines, or stdin lines when no args are given.
func payloadFromArgs(args []string, stdin io.Reader) (domain.Payload, error) {
	if len(args) > 0 {
		return domain.Lines(args...), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimRight(text, "\r\n")
	if text == "" {
		return nil, fmt.Errorf("nothing to send: pass lines as arguments or on stdin")
	}
	return domain.Lines(strings.Split(text, "\n")...), nil
}

func newAPIClient(cfg *config.Config) (*nestorapi.Client, error) {
	var token nestorapi.TokenSource = nestorapi.EnvToken(cfg.API.TokenEnv)
	if cfg.API.Token != "" {
		token = nestorapi.StaticToken(cfg.API.Token)
	}
	return nestorapi.New(nestorapi.Config{
		BaseURL:   cfg.API.BaseURL,
		Token:     token,
		Timeout:   time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		UserAgent: cfg.API.UserAgent,
		Logger:    logger,
	})
}

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect responses buffered in debug mode",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List buffered responses, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := loadConfig()
			if err != nil {
				return err
			}
			defer cleanup()
			store, err := outbox.NewStore(cfg.Outbox.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				kind := "send"
				if e.Reply {
					kind = "reply"
				}
				fmt.Fprintf(out, "%s  %s  %-5s  %s\n", e.CreatedAt.Local().Format(time.DateTime), e.Team, kind, strings.Join(e.Strings, " | "))
			}
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 0, "maximum entries to show (0 = all)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all buffered responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := loadConfig()
			if err != nil {
				return err
			}
			defer cleanup()
			store, err := outbox.NewStore(cfg.Outbox.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("outbox cleared", "removed", n)
			return nil
		},
	}

	cmd.AddCommand(list, clearCmd)
	return cmd
}
