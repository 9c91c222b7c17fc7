package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dnsbridge/internal/app"
	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/core/ports"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage provider accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered accounts",
	RunE: withApp(false, func(ctx context.Context, a *app.App) error {
		accounts, err := a.Accounts.ListAccounts(ctx)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("no accounts registered")
			return nil
		}
		fmt.Printf("%-36s  %-20s  %-12s  %-7s  %s\n", "ID", "NAME", "PROVIDER", "STATUS", "ERROR")
		for _, acc := range accounts {
			fmt.Printf("%-36s  %-20s  %-12s  %-7s  %s\n",
				acc.ID, acc.Name, acc.Provider, acc.Status, acc.ErrorMessage)
		}
		return nil
	}),
}

var (
	accountName     string
	accountProvider string
	accountCreds    []string
)

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new account after validating its credentials",
	RunE: withApp(false, func(ctx context.Context, a *app.App) error {
		provider, err := domain.ParseProviderKind(accountProvider)
		if err != nil {
			return err
		}
		creds, err := domain.CredentialsFromMap(provider, parseCredFlags(accountCreds))
		if err != nil {
			return err
		}
		account, err := a.Accounts.CreateAccount(ctx, ports.CreateAccountRequest{
			Name:        accountName,
			Credentials: creds,
		})
		if err != nil {
			return err
		}
		fmt.Printf("account %s created (%s)\n", account.ID, account.Provider)
		return nil
	}),
}

var accountsUpdateCmd = &cobra.Command{
	Use:   "update <account-id>",
	Short: "Rename an account or replace its credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(false, func(ctx context.Context, a *app.App) error {
			req := ports.UpdateAccountRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &accountName
			}
			if len(accountCreds) > 0 {
				account, err := a.Accounts.GetAccount(ctx, args[0])
				if err != nil {
					return err
				}
				creds, err := domain.CredentialsFromMap(account.Provider, parseCredFlags(accountCreds))
				if err != nil {
					return err
				}
				req.Credentials = &creds
			}
			account, err := a.Accounts.UpdateAccount(ctx, args[0], req)
			if err != nil {
				return err
			}
			fmt.Printf("account %s updated\n", account.ID)
			return nil
		})(cmd, args)
	},
}

var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <account-id>...",
	Short: "Delete one or more accounts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(false, func(ctx context.Context, a *app.App) error {
			if len(args) == 1 {
				if err := a.Accounts.DeleteAccount(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("account %s deleted\n", args[0])
				return nil
			}
			result, err := a.Accounts.DeleteAccounts(ctx, args)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d, failed %d\n", result.SuccessCount, result.FailedCount)
			for _, f := range result.Failures {
				fmt.Printf("  %s: %s\n", f.ID, f.Reason)
			}
			return nil
		})(cmd, args)
	},
}

func init() {
	accountsAddCmd.Flags().StringVar(&accountName, "name", "", "display name")
	accountsAddCmd.Flags().StringVar(&accountProvider, "provider", "", "provider: cloudflare, aliyun, dnspod or huaweicloud")
	accountsAddCmd.Flags().StringArrayVar(&accountCreds, "cred", nil, "credential field as key=value (repeatable)")
	_ = accountsAddCmd.MarkFlagRequired("name")
	_ = accountsAddCmd.MarkFlagRequired("provider")
	_ = accountsAddCmd.MarkFlagRequired("cred")

	accountsUpdateCmd.Flags().StringVar(&accountName, "name", "", "new display name")
	accountsUpdateCmd.Flags().StringArrayVar(&accountCreds, "cred", nil, "replacement credential field as key=value (repeatable)")

	accountsCmd.AddCommand(accountsListCmd, accountsAddCmd, accountsUpdateCmd, accountsRemoveCmd)
}

func parseCredFlags(pairs []string) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, _ := strings.Cut(pair, "=")
		m[k] = v
	}
	return m
}
