package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelpress/internal/api"
)

func newAccountsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List connected TikTok accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Accounts(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				if len(resp.Accounts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No accounts connected; visit /auth/tiktok/connect on the daemon to add one")
					return nil
				}

				rows := make([][]string, 0, len(resp.Accounts))
				for _, account := range resp.Accounts {
					rows = append(rows, []string{
						account.OpenID,
						account.DisplayName,
						account.TokenExpiry,
						account.ConnectedAt,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Open ID", "Display Name", "Token Expiry", "Connected"},
					rows,
					nil,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON output")
	cmd.AddCommand(newAccountsRemoveCommand(ctx))
	return cmd
}

func newAccountsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <open-id>",
		Short: "Disconnect a TikTok account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.RemoveAccount(cmd.Context(), args[0])
				if err != nil {
					if api.IsNotFound(err) {
						return fmt.Errorf("account %s not found", args[0])
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed account %s\n", resp.OpenID)
				return nil
			})
		},
	}
}
