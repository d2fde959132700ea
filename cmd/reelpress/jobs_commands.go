package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelpress/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage processing jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var state string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.ListJobs(cmd.Context(), state)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}

				rows := make([][]string, 0, len(resp.Jobs))
				for _, job := range resp.Jobs {
					detail := job.Caption
					if job.ErrorMessage != "" {
						detail = job.ErrorMessage
					}
					rows = append(rows, []string{
						job.JobID,
						job.State,
						strconv.Itoa(job.Progress) + "%",
						job.Source,
						truncate(detail, 48),
						job.CreatedAt,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Job", "State", "Progress", "Source", "Detail", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Filter by job state (queued, downloading, processing, uploading, completed, failed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its outputs and events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				job, err := client.GetJob(cmd.Context(), args[0])
				if err != nil {
					if api.IsNotFound(err) {
						return fmt.Errorf("job %s not found", args[0])
					}
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				renderJobView(cmd, job)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	return cmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove terminal jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch scope {
			case "completed", "failed", "all":
			default:
				return fmt.Errorf("invalid scope %q; use completed, failed, or all", scope)
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.ClearJobs(cmd.Context(), scope)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", resp.Removed)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "completed", "Which jobs to remove: completed, failed, or all")
	return cmd
}

func renderJobView(cmd *cobra.Command, job api.JobView) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Job:      %s\n", job.JobID)
	fmt.Fprintf(out, "State:    %s\n", job.State)
	fmt.Fprintf(out, "Progress: %d%%\n", job.Progress)
	if job.Degraded {
		fmt.Fprintf(out, "Degraded: yes (%s)\n", job.DegradedReason)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", job.ErrorMessage)
	}
	if job.CreatedAt != "" {
		fmt.Fprintf(out, "Created:  %s\n", job.CreatedAt)
	}
	if job.CompletedAt != "" {
		fmt.Fprintf(out, "Finished: %s\n", job.CompletedAt)
	}

	for _, output := range job.Output {
		fmt.Fprintf(out, "Output:   %s\n", output.VideoURL)
		for _, publish := range output.Publishes {
			name := publish.DisplayName
			if name == "" {
				name = publish.OpenID
			}
			if publish.Error != "" {
				fmt.Fprintf(out, "  publish %s: failed (%s)\n", name, publish.Error)
				continue
			}
			fmt.Fprintf(out, "  publish %s: %s\n", name, publish.PublishID)
		}
	}

	if len(job.Events) > 0 {
		fmt.Fprintln(out, "Events:")
		for _, event := range job.Events {
			line := event.Type
			if event.Message != "" {
				line += ": " + event.Message
			}
			fmt.Fprintf(out, "  %s  %s\n", event.CreatedAt, line)
		}
	}
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
