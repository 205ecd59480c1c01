package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <address> <message>",
	Short: "Send a message through the configured channels",
	Long:  "Send a message to a chat address such as whatsapp:+15551234567 or feishu:ou_xxx.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		to := args[0]
		body := strings.Join(args[1:], " ")
		if err := a.delivery.Send(context.Background(), to, body); err != nil {
			return fmt.Errorf("send to %s: %w", to, err)
		}
		fmt.Println("Message sent successfully!")
		return nil
	},
}
