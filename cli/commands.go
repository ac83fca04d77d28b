package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"playlist2podcast"
	"playlist2podcast/config"
	"playlist2podcast/feed"
	"playlist2podcast/internal/logging"
	"playlist2podcast/storage"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "playlist2podcast",
		Usage: "Mirror video playlists as self-hosted podcast feeds",
		Description: `Downloads new items of every configured playlist as audio with yt-dlp
and writes a podcast.xml next to them, then sleeps until the next cycle.

Without a command, runs forever using ./config.yaml.

Flags can be set via environment variables, e.g.:

--config => P2P_CONFIG=/etc/playlist2podcast.yaml
--log-level => P2P_LOG_LEVEL=debug`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "Path to the YAML or TOML configuration file",
				EnvVars: []string{"P2P_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (overrides log_level from the configuration)",
				EnvVars: []string{"P2P_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			runCmd(),
			onceCmd(),
			statusCmd(),
			checkCmd(),
		},
		Action: runAction,
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Sync all podcasts, then repeat after the configured interval",
		Action: runAction,
	}
}

func onceCmd() *cli.Command {
	return &cli.Command{
		Name:  "once",
		Usage: "Run a single sync cycle and exit",
		Description: `Useful from cron or a systemd timer. Exits non-zero when any podcast
failed to sync.`,
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, app *playlist2podcast.App) error {
				summary := app.Once(ctx)
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d podcasts failed to sync", summary.Failed, summary.Failed+summary.Succeeded)
				}
				return nil
			})
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Print the last known sync state of every podcast",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			store, err := storage.OpenReadOnly(cfg.StateFile)
			if err != nil {
				return err
			}
			defer store.Close()

			states, err := store.ListStates(c.Context)
			if err != nil {
				return err
			}
			if len(states) == 0 {
				fmt.Fprintln(c.App.Writer, "No podcasts synced yet.")
				return nil
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PODCAST\tPHASE\tENTRIES\tLAST SYNC\tLAST ATTEMPT\tERROR")
			for _, st := range states {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					st.Podcast,
					st.Phase,
					st.Entries,
					formatTime(st.LastSyncAt),
					formatTime(st.LastAttemptAt),
					truncate(st.LastError, 60),
				)
			}
			return w.Flush()
		},
	}
}

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Parse a generated feed and report its entries",
		ArgsUsage: "<podcast.xml>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return errors.New("check takes exactly one feed path")
			}
			parsed, err := feed.Verify(c.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s: %d entries (%s)\n", parsed.Title, len(parsed.Items), parsed.FeedType)
			return nil
		},
	}
}

func runAction(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, app *playlist2podcast.App) error {
		err := app.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

// withApp loads the configuration, opens the application and runs fn until
// SIGINT or SIGTERM.
func withApp(c *cli.Context, fn func(ctx context.Context, app *playlist2podcast.App) error) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	logger, err := newLogger(c, cfg)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"config":    c.String("config"),
		"podcasts":  len(cfg.Podcasts.Entries),
		"interval":  cfg.Interval.String(),
		"dateafter": cfg.DateAfter.String(),
	}).Info("configuration loaded")

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := playlist2podcast.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

// newLogger logs to standard output at the level from --log-level, falling
// back to the configured one.
func newLogger(c *cli.Context, cfg *config.Config) (*logrus.Logger, error) {
	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	return logging.New(c.App.Writer, level)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
