package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tubecast/internal/accounts"
	"tubecast/internal/logging"
	"tubecast/internal/store"
)

func newAccountsCommand(ctx *commandContext) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage publishing accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountsList(cmd, ctx)
		},
	}

	accountsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List publishing accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountsList(cmd, ctx)
		},
	})

	accountsCmd.AddCommand(&cobra.Command{
		Use:   "remove <id|name>",
		Short: "Remove an account and its credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccountsRemove(cmd, ctx, args[0])
		},
	})

	return accountsCmd
}

func runAccountsList(cmd *cobra.Command, ctx *commandContext) error {
	st, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	list, err := st.ListAccounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No accounts. Add one from chat with 'add'.")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, account := range list {
		rows = append(rows, []string{
			strconv.FormatInt(account.ID, 10),
			account.Name,
			authorizedLabel(account),
			account.CreatedAt.Local().Format(time.DateTime),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Authorized", "Created"}, rows))
	return nil
}

// authorizedLabel reports whether the account's credential file exists yet.
func authorizedLabel(account store.Account) string {
	if strings.TrimSpace(account.CredentialRef) == "" {
		return "no"
	}
	if _, err := os.Stat(account.CredentialRef); err != nil {
		return "pending"
	}
	return "yes"
}

func runAccountsRemove(cmd *cobra.Command, ctx *commandContext, target string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	st, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	registry := accounts.NewRegistry(cfg, st, logging.NewNop())
	account, err := resolveAccount(cmd, st, target)
	if err != nil {
		return err
	}

	if err := registry.RemoveAccount(cmd.Context(), account.ID); err != nil {
		return fmt.Errorf("remove account: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed account %q\n", account.Name)
	return nil
}

func resolveAccount(cmd *cobra.Command, st *store.Store, target string) (*store.Account, error) {
	target = strings.TrimSpace(target)
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		return st.GetAccount(cmd.Context(), id)
	}
	account, err := st.FindAccountByName(cmd.Context(), target)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("no account named %q", target)
	}
	return account, nil
}
