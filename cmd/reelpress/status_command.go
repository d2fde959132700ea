package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"reelpress/internal/api"
	"reelpress/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			status, statusErr := client.Status(cmd.Context())
			running := statusErr == nil && status.Running
			if statusErr != nil && !errors.Is(statusErr, api.ErrDaemonUnavailable) {
				return statusErr
			}

			if asJSON {
				payload := map[string]any{
					"daemon_running": running,
				}
				if statusErr == nil {
					payload["status"] = status
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon running: %s\n", yesNo(running))
			if statusErr == nil {
				fmt.Fprintf(out, "Daemon PID:     %d\n", status.PID)
				fmt.Fprintf(out, "Queue DB:       %s\n", status.QueueDBPath)
				renderWorkflowStatus(cmd, status.Workflow)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Dependencies:")
			for _, dep := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				marker := "ok"
				if !dep.Available {
					marker = "missing"
					if dep.Optional {
						marker = "missing (optional)"
					}
				}
				fmt.Fprintf(out, "  %-10s %s\n", dep.Name, marker)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Checks:")
			for _, res := range preflight.RunAll(cmd.Context(), cfg) {
				marker := "ok"
				if !res.Passed {
					marker = "failed"
				}
				fmt.Fprintf(out, "  %-22s %-8s %s\n", res.Name, marker, res.Detail)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func renderWorkflowStatus(cmd *cobra.Command, wf api.WorkflowStatusView) {
	out := cmd.OutOrStdout()

	if len(wf.QueueStats) > 0 {
		states := make([]string, 0, len(wf.QueueStats))
		for state := range wf.QueueStats {
			states = append(states, state)
		}
		sort.Strings(states)
		fmt.Fprintln(out, "Queue:")
		for _, state := range states {
			fmt.Fprintf(out, "  %-12s %d\n", state, wf.QueueStats[state])
		}
	}

	if len(wf.StageHealth) > 0 {
		fmt.Fprintln(out, "Stages:")
		for _, stage := range wf.StageHealth {
			marker := "ready"
			if !stage.Ready {
				marker = "not ready"
				if stage.Detail != "" {
					marker += " (" + stage.Detail + ")"
				}
			}
			fmt.Fprintf(out, "  %-12s %s\n", stage.Name, marker)
		}
	}

	if wf.LastError != "" {
		fmt.Fprintf(out, "Last error:     %s\n", wf.LastError)
	}
	if wf.LastJob != nil {
		fmt.Fprintf(out, "Last job:       %s (%s)\n", wf.LastJob.JobID, wf.LastJob.State)
	}
}
