package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dnsbridge/internal/app"
	"dnsbridge/internal/core/domain"
)

var (
	domainsAccount string
	domainsPage    int
	domainsSize    int
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Browse DNS zones of an account",
}

var domainsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the zones visible to an account",
	RunE: withApp(true, func(ctx context.Context, a *app.App) error {
		resp, err := a.Records.ListDomains(ctx, domainsAccount, domain.PaginationParams{
			Page:     domainsPage,
			PageSize: domainsSize,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%-34s  %-30s  %-8s  %s\n", "ZONE ID", "NAME", "STATUS", "RECORDS")
		for _, d := range resp.Items {
			count := "-"
			if d.RecordCount != nil {
				count = fmt.Sprintf("%d", *d.RecordCount)
			}
			fmt.Printf("%-34s  %-30s  %-8s  %s\n", d.ID, d.Name, d.Status, count)
		}
		fmt.Printf("page %d of %d total\n", resp.Page, resp.TotalCount)
		return nil
	}),
}

func init() {
	domainsListCmd.Flags().StringVar(&domainsAccount, "account", "", "account ID")
	domainsListCmd.Flags().IntVar(&domainsPage, "page", 1, "page number")
	domainsListCmd.Flags().IntVar(&domainsSize, "page-size", 0, "page size (0 = provider maximum)")
	_ = domainsListCmd.MarkFlagRequired("account")

	domainsCmd.AddCommand(domainsListCmd)
}
