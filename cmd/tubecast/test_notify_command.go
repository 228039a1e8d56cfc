package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tubecast/internal/notify"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test message to the authorized sender",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Messaging.SendURL) == "" {
				return fmt.Errorf("messaging.send_url is not configured")
			}
			recipient, err := ctx.resolveSender("")
			if err != nil {
				return err
			}

			notifier := notify.NewFromConfig(cfg)
			if err := notifier.Send(cmd.Context(), recipient, "Tubecast test message"); err != nil {
				return fmt.Errorf("send test message: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test message sent to %s\n", recipient)
			return nil
		},
	}
}
