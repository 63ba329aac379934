package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/app"
	"github.com/vyrodovalexey/adminstate/internal/config"
	"github.com/vyrodovalexey/adminstate/internal/logging"
)

// console carries what every command needs. It is filled by the root
// command's pre-run hook.
type console struct {
	apiURL   string
	stateDir string
	verbose  bool

	app    *app.App
	logger *zap.Logger
	closed bool
}

func newRootCmd() *cobra.Command {
	return (&console{}).command()
}

// command builds the command tree bound to c.
func (c *console) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "admin",
		Short: "Command line admin console for the person API",
		Long: `admin signs in to the admin API and manages person records.
The session is kept in the state directory between runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open()
		},
	}

	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "API base URL (overrides "+config.EnvAPIURL+")")
	root.PersistentFlags().StringVar(&c.stateDir, "state-dir", "", "session directory (overrides "+config.EnvStateDir+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newPersonCmd(c),
		newToastsCmd(c),
	)
	c.closeAfterRun(root)
	return root
}

// closeAfterRun wraps every RunE in the tree so the app is closed whether the
// command succeeds or fails. Post-run hooks are skipped on error.
func (c *console) closeAfterRun(cmd *cobra.Command) {
	if runE := cmd.RunE; runE != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer c.close()
			return runE(cmd, args)
		}
	}
	for _, sub := range cmd.Commands() {
		c.closeAfterRun(sub)
	}
}

// open loads the configuration and builds the console app.
func (c *console) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.APIURL = c.apiURL
	}
	if c.stateDir != "" {
		cfg.StateDir = c.stateDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating flags: %w", err)
	}

	level := "error"
	if c.verbose {
		level = "debug"
	}
	c.logger, err = logging.New(level, "stderr")
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	c.app, err = app.New(cfg, c.logger)
	if err != nil {
		_ = c.logger.Sync()
		return err
	}
	return nil
}

func (c *console) close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.app != nil {
		c.app.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// authorize runs the route guard for path before a command does anything.
func (c *console) authorize(path string) error {
	if _, err := c.app.Authorize(path); err != nil {
		if errors.Is(err, app.ErrAccessDenied) && !c.app.Session().IsAuthenticated() {
			return fmt.Errorf("%w; run \"admin login\" first", err)
		}
		return err
	}
	return nil
}
