package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"upmon/internal/config"
	"upmon/internal/logger"
)

// cli holds state shared by all commands.
type cli struct {
	configFile string
	envFile    string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "upmon",
		Short: "Self-hosted uptime monitoring for hosts and websites",
		Long: `upmon periodically checks ping (TCP connect) and website (HTTP GET)
monitors, records every result in SQLite and exposes the history as
paginated lists, daily calendars and response-time graphs.

Run "upmon serve" for the long-running scheduler and API, or call
"upmon run" from cron to execute a single scheduling pass.`,
		Version:           fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime),
		SilenceUsage:      true,
		PersistentPreRunE: c.load,
	}

	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "path to config.yaml (default: ./config.yaml or $HOME/.upmon/config.yaml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before configuration")

	root.AddCommand(
		newServeCmd(c),
		newRunCmd(c),
		newCheckCmd(c),
		newMigrateCmd(c),
	)
	return root
}

// load reads the dotenv file, the configuration and sets up logging.
func (c *cli) load(cmd *cobra.Command, _ []string) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", c.envFile, err)
		}
	}

	cfg, err := config.Load(c.configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, err := logger.Setup(cfg.Log, cmd.ErrOrStderr()); err != nil {
		return err
	}

	c.cfg = cfg
	log.Debug().Str("command", cmd.Name()).Msg("Configuration loaded")
	return nil
}
