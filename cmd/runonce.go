package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Run the improvement pipeline once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := buildPipeline(cmd.Context(), logger, env, setup)
		if err != nil {
			return err
		}

		res := pipe.Run(cmd.Context())
		elapsed := res.Finished.Sub(res.Started).Round(time.Millisecond)
		if res.Err != nil {
			logger.Error("Run %s failed after %s: %v", res.RunID, elapsed, res.Err)
			return fmt.Errorf("run failed: %w", res.Err)
		}

		logger.Success("Run %s finished in %s", res.RunID, elapsed)
		if res.PRURL != "" {
			logger.PR("Pull request #%d: %s", res.PRNumber, res.PRURL)
		}
		return nil
	},
}
