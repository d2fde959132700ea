package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelpress/internal/api"
	"reelpress/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var sourceURL string
	var sourceFile string
	var caption string
	var hashtags []string
	var publish bool
	var accounts []string
	var wait bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a video processing job",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SubmitJobRequest{
				Caption:          caption,
				Hashtags:         hashtags,
				PostToTikTok:     publish,
				TikTokAccountIDs: accounts,
			}

			url := strings.TrimSpace(sourceURL)
			file := strings.TrimSpace(sourceFile)
			switch {
			case url == "" && file == "":
				return errors.New("provide a source with --url or --file")
			case url != "" && file != "":
				return errors.New("--url and --file are mutually exclusive")
			case url != "":
				req.SourceVideoURL = url
			default:
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read source file: %w", err)
				}
				req.SourceVideoBase64 = base64.StdEncoding.EncodeToString(data)
			}

			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.SubmitJob(cmd.Context(), req)
				if err != nil {
					return err
				}

				if !wait {
					if asJSON {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s (%s)\n", resp.JobID, resp.State)
					return nil
				}

				job, err := waitForJob(cmd.Context(), client, resp.JobID, cmd)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				renderJobView(cmd, job)
				if job.State == string(queue.StatusFailed) {
					return fmt.Errorf("job %s failed: %s", job.JobID, job.ErrorMessage)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sourceURL, "url", "", "Source video URL to download")
	cmd.Flags().StringVar(&sourceFile, "file", "", "Local video file to upload with the request")
	cmd.Flags().StringVar(&caption, "caption", "", "Caption for the produced video")
	cmd.Flags().StringArrayVar(&hashtags, "hashtag", nil, "Hashtag to attach (repeatable)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish to TikTok after upload")
	cmd.Flags().StringArrayVar(&accounts, "account", nil, "TikTok account open_id to publish to (repeatable)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the job to reach a terminal state")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")

	return cmd
}

func waitForJob(ctx context.Context, client *api.Client, jobID string, cmd *cobra.Command) (api.JobView, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	lastState := ""
	for {
		job, err := client.GetJob(ctx, jobID)
		if err != nil {
			return api.JobView{}, err
		}
		if job.State != lastState {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", jobID, job.State)
			lastState = job.State
		}
		switch job.State {
		case string(queue.StatusCompleted), string(queue.StatusFailed):
			return job, nil
		}

		select {
		case <-ctx.Done():
			return api.JobView{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
