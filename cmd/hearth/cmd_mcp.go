package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hearth-home/hearth/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("phone", "", "phone number the tools act as (default $HEARTH_MCP_PHONE)")
	mcpCmd.Flags().Bool("quiet", false, "do not notify the household about changes")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the household tools over MCP stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		phone, _ := cmd.Flags().GetString("phone")
		if phone == "" {
			phone = os.Getenv("HEARTH_MCP_PHONE")
		}
		if phone == "" {
			return fmt.Errorf("--phone or HEARTH_MCP_PHONE is required")
		}
		quiet, _ := cmd.Flags().GetBool("quiet")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		uc := a.newUsecases(nil)
		user, err := uc.Users.Resolve(ctx, phone)
		if err != nil {
			return err
		}

		var notifier mcp.Broadcaster
		if !quiet {
			notifier = uc.Notify
		}
		return mcp.NewHouseholdServer(uc.Tools, notifier, user, a.logger).Run(ctx)
	},
}
