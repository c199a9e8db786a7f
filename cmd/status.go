package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/saint0x/ggrowth/pkg/scheduler"
	"github.com/saint0x/ggrowth/pkg/server"
)

var statusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show the schedule of a running ggrowth start process",
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL, err := server.LocalURL(server.ConfigDir())
		if err != nil {
			logger.Warning("Scheduler: inactive (%v)", err)
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		st, err := server.FetchStatus(ctx, &http.Client{}, baseURL)
		if err != nil {
			logger.Warning("Scheduler: inactive (%v)", err)
			return nil
		}

		fmt.Fprint(cmd.OutOrStdout(), formatStatus(st))
		return nil
	},
}

func formatStatus(st *scheduler.Status) string {
	if !st.IsRunning {
		return "Scheduler: inactive\n"
	}

	s := fmt.Sprintf("Scheduler: active\nCron:      %s\n", st.CronExpression)
	if st.NextRun != nil {
		s += fmt.Sprintf("Next run:  %s\n", st.NextRun.Local().Format(time.RFC1123))
	}
	if st.LastRun != nil {
		s += fmt.Sprintf("Last run:  %s\n", st.LastRun.Local().Format(time.RFC1123))
	}
	if st.LastError != "" {
		s += fmt.Sprintf("Last error: %s\n", st.LastError)
	}
	if st.InFlight {
		s += "A run is in progress\n"
	}
	return s
}
