package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"dnsbridge/internal/app"
	"dnsbridge/internal/core/domain"
)

var (
	exportIDs      []string
	exportAll      bool
	exportOut      string
	exportEncrypt  bool
	exportPassword string

	importPassword string
	importPreview  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export accounts with credentials to a file",
	RunE: withApp(false, func(ctx context.Context, a *app.App) error {
		ids := exportIDs
		if exportAll {
			accounts, err := a.Accounts.ListAccounts(ctx)
			if err != nil {
				return err
			}
			ids = ids[:0]
			for _, acc := range accounts {
				ids = append(ids, acc.ID)
			}
		}

		data, filename, err := a.Transfer.Export(ctx, domain.ExportRequest{
			AccountIDs: ids,
			Encrypt:    exportEncrypt,
			Password:   exportPassword,
		})
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = filename
		} else if info, err := os.Stat(out); err == nil && info.IsDir() {
			out = filepath.Join(out, filename)
		}
		if err := os.WriteFile(out, data, 0o600); err != nil {
			return fmt.Errorf("write export file: %w", err)
		}
		fmt.Printf("exported %d account(s) to %s\n", len(ids), out)
		return nil
	}),
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import accounts from an export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(false, func(ctx context.Context, a *app.App) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}

			if importPreview {
				preview, err := a.Transfer.Preview(ctx, data, importPassword)
				if err != nil {
					return err
				}
				if preview.Encrypted && preview.AccountCount == nil {
					fmt.Println("file is encrypted; pass --password to preview its contents")
					return nil
				}
				fmt.Printf("%d account(s) in file\n", *preview.AccountCount)
				for _, p := range preview.Accounts {
					conflict := ""
					if p.HasConflict {
						conflict = "  (name conflict)"
					}
					fmt.Printf("  %-20s  %s%s\n", p.Name, p.Provider, conflict)
				}
				return nil
			}

			result, err := a.Transfer.Import(ctx, data, importPassword)
			if err != nil {
				return err
			}
			fmt.Printf("imported %d account(s), %d failed\n", result.SuccessCount, len(result.Failures))
			for _, f := range result.Failures {
				fmt.Printf("  %s: %s\n", f.Name, f.Reason)
			}
			return nil
		})(cmd, args)
	},
}

func init() {
	exportCmd.Flags().StringArrayVar(&exportIDs, "id", nil, "account ID to export (repeatable)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every account")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file or directory")
	exportCmd.Flags().BoolVar(&exportEncrypt, "encrypt", false, "encrypt the credential payload")
	exportCmd.Flags().StringVar(&exportPassword, "password", "", "password for --encrypt")

	importCmd.Flags().StringVar(&importPassword, "password", "", "password for encrypted files")
	importCmd.Flags().BoolVar(&importPreview, "preview", false, "show the file contents without importing")
}
