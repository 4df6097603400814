// Command accountkit runs the account and billing server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/accountkit/pkg/config"
	"github.com/dmitrymomot/accountkit/pkg/logger"
	"github.com/dmitrymomot/accountkit/pkg/requestid"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// runtimeConfig is the part of the configuration every command needs.
type runtimeConfig struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Name string `env:"APP_NAME" envDefault:"accountkit"`
	Log  logger.Config
}

func newLogger() (*slog.Logger, error) {
	var cfg runtimeConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithConfig(cfg.Log),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)
	return log, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "accountkit",
		Short:         "Account management and subscription billing server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var envFile string
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load variables from this file before reading the environment")
	root.PersistentPreRun = func(*cobra.Command, []string) {
		if envFile != "" {
			config.LoadDotenv(envFile)
		}
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("accountkit %s (%s)\n", Version, GitCommit)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
