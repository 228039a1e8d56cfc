package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tubecast/internal/store"
)

func newConversationCommand(ctx *commandContext) *cobra.Command {
	conversationCmd := &cobra.Command{
		Use:   "conversation",
		Short: "Inspect and reset the chat dialog state",
	}

	conversationCmd.AddCommand(&cobra.Command{
		Use:   "show [sender]",
		Short: "Show the sender's conversation record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConversationShow(cmd, ctx, senderArg(args))
		},
	})

	conversationCmd.AddCommand(&cobra.Command{
		Use:   "reset [sender]",
		Short: "Return the sender's conversation to idle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConversationReset(cmd, ctx, senderArg(args))
		},
	})

	return conversationCmd
}

func senderArg(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(args[0])
	}
	return ""
}

// resolveSender falls back to the configured authorized sender when no
// explicit identity is given.
func (c *commandContext) resolveSender(sender string) (string, error) {
	if sender != "" {
		return sender, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	allowed := strings.TrimSpace(cfg.Messaging.AllowedSender)
	if allowed == "" {
		return "", fmt.Errorf("no sender given and messaging.allowed_sender is not configured")
	}
	return allowed, nil
}

func runConversationShow(cmd *cobra.Command, ctx *commandContext, sender string) error {
	sender, err := ctx.resolveSender(sender)
	if err != nil {
		return err
	}
	st, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	conv, err := st.GetConversation(cmd.Context(), sender)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sender:      %s\n", conv.Sender)
	fmt.Fprintf(out, "State:       %s\n", conv.State)
	fmt.Fprintf(out, "Source URL:  %s\n", valueOrDash(conv.SourceURL))
	fmt.Fprintf(out, "Account:     %s\n", accountLabel(cmd, st, conv))
	fmt.Fprintf(out, "Title:       %s\n", valueOrDash(conv.Title))
	fmt.Fprintf(out, "Description: %s\n", descriptionLabel(conv))
	fmt.Fprintf(out, "Thumbnail:   %s\n", thumbnailLabel(conv))
	fmt.Fprintf(out, "Visibility:  %s\n", conv.Visibility)
	fmt.Fprintf(out, "Updated:     %s\n", conv.UpdatedAt.Local().Format(time.DateTime))
	return nil
}

func runConversationReset(cmd *cobra.Command, ctx *commandContext, sender string) error {
	sender, err := ctx.resolveSender(sender)
	if err != nil {
		return err
	}
	st, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ResetConversation(cmd.Context(), sender); err != nil {
		return fmt.Errorf("reset conversation: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Conversation for %s reset to idle\n", sender)
	return nil
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func accountLabel(cmd *cobra.Command, st *store.Store, conv *store.Conversation) string {
	if conv.AccountID == nil {
		return "-"
	}
	account, err := st.GetAccount(cmd.Context(), *conv.AccountID)
	if err != nil {
		return fmt.Sprintf("#%d", *conv.AccountID)
	}
	return fmt.Sprintf("%s (#%d)", account.Name, account.ID)
}

func descriptionLabel(conv *store.Conversation) string {
	if conv.Description == nil {
		return "-"
	}
	if *conv.Description == "" {
		return "(empty)"
	}
	return *conv.Description
}

func thumbnailLabel(conv *store.Conversation) string {
	if conv.Thumbnail == nil {
		return "(source preview)"
	}
	if conv.Thumbnail.IsRemote() {
		return "remote: " + conv.Thumbnail.Value
	}
	return "local: " + conv.Thumbnail.Value
}
