package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/app"
	"github.com/and161185/notekeeper/internal/config"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/logging"
)

type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	baseURL    string
	configPath string
	envFile    string
	verbose    bool

	app      *app.App
	restored *bool
}

func (c *cli) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nk",
		Short:         "Command line client for the notes service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  nk login --email ann@example.com
  nk list --search groceries
  nk edit <note-id> --title "Plan" --color green
  nk share <note-id> --email bob@example.com --role editor
  nk notifications`),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.setup()
		},
	}
	cmd.SetIn(c.in)
	cmd.SetOut(c.out)
	cmd.SetErr(c.errOut)

	pf := cmd.PersistentFlags()
	pf.StringVar(&c.baseURL, "base-url", "", "service base URL (overrides config)")
	pf.StringVar(&c.configPath, "config", "", "YAML config file (default <config dir>/config.yaml)")
	pf.StringVar(&c.envFile, "env-file", "", "dotenv file (default ./.env when present)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging to stderr")

	cmd.AddCommand(
		c.versionCmd(),
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.listCmd(),
		c.newCmd(),
		c.showCmd(),
		c.editCmd(),
		c.pinCmd(),
		c.rmCmd(),
		c.shareCmd(),
		c.unshareCmd(),
		c.notificationsCmd(),
		c.answerCmd("accept", "Accept an invitation"),
		c.answerCmd("decline", "Decline an invitation"),
		c.dismissCmd(),
	)
	return cmd
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath, c.envFile)
	if err != nil {
		return err
	}
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	level := cfg.LogLevel
	if c.verbose {
		level = "debug"
	}
	log, err := logging.NewTo(c.errOut, level)
	if err != nil {
		return err
	}
	log.Debug("config", zap.String("base_url", cfg.BaseURL), zap.String("dir", cfg.Dir))
	c.app = app.New(cfg, log)
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
}

// requireSession restores the stored session once per process.
func (c *cli) requireSession(ctx context.Context) error {
	if c.restored == nil {
		ok := c.app.Session.Restore(ctx)
		c.restored = &ok
	}
	if !*c.restored {
		return errs.ErrNoSession
	}
	return nil
}

// timeout derives a per-command deadline from the config.
func (c *cli) timeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.app.Cfg.Timeout)
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			c.printf("nk %s (%s)\n", version, buildDate)
		},
	}
}
