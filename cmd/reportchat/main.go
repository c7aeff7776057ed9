package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stupiduntilnot/reportchat/internal/config"
	"github.com/stupiduntilnot/reportchat/internal/logging"
)

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries the state shared by subcommands once the root has loaded it.
type cli struct {
	configFile string
	logLevel   string
	logOut     io.Writer

	cfg config.Config
	log *logrus.Logger
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	c := &cli{logOut: logOut}

	root := &cobra.Command{
		Use:           "reportchat",
		Short:         "Chat with the data shown on a report page",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default ./reportchat.yaml if present)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(c),
		newAskCmd(c),
		newPromptCmd(c),
		newProvidersCmd(c),
		newEventsCmd(c),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, c.logOut)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	c.cfg = cfg
	c.log = log
	if cfg.ConfigFile != "" {
		log.WithField("file", cfg.ConfigFile).Debug("loaded config file")
	}
	return nil
}
