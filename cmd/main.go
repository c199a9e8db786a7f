package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saint0x/ggrowth/pkg/config"
	"github.com/saint0x/ggrowth/pkg/log"
)

// skipConfig marks commands that run without the full environment.
const skipConfig = "skip-config"

var (
	debug  bool
	logger *log.Logger
	env    *config.Environment
	setup  *config.Pipeline
)

var rootCmd = &cobra.Command{
	Use:           "ggrowth",
	Short:         "Autonomous website improvement agent",
	Long:          "ggrowth analyzes a website's source, picks the most valuable improvement, applies it and opens a pull request.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = log.New(debug || os.Getenv("DEBUG") == "true")

		if cmd.Annotations[skipConfig] == "true" {
			return nil
		}

		var err error
		env, err = loadEnvironment(logger, config.Validate)
		if err != nil {
			return err
		}

		if env.LogFile != "" {
			if err := logger.MirrorTo(env.LogFile); err != nil {
				return err
			}
			logger.Debug("Mirroring logs to %s", env.LogFile)
		}

		setup, err = config.LoadPipeline(env.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load pipeline config: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(startCmd, runOnceCmd, interactiveCmd, statusCmd)
}

// loadEnvironment validates the environment and reports every missing
// variable before anything touches the network.
func loadEnvironment(logger *log.Logger, validate func() (*config.Environment, error)) (*config.Environment, error) {
	logger.Loading("Validating environment...")
	e, err := validate()

	var missing *config.MissingError
	if errors.As(err, &missing) {
		logger.Error("Missing required environment variables:")
		for _, name := range missing.Names {
			logger.Error("  - %s", name)
		}
		return nil, err
	}
	if err != nil {
		logger.Error("Environment validation failed: %v", err)
		return nil, err
	}

	logger.Success("Environment validated for %s/%s (%s)", e.Owner, e.Repo, e.Provider)
	return e, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var missing *config.MissingError
		if !errors.As(err, &missing) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
