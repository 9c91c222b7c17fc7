package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dnsbridge/internal/app"
	"dnsbridge/internal/core/domain"
)

var (
	recAccount string
	recZone    string
	recName    string
	recType    string
	recTTL     uint32
	recProxied bool

	recAddress    string
	recTarget     string
	recPriority   uint16
	recExchange   string
	recText       string
	recNameserver string
	recWeight     uint16
	recPort       uint16
	recFlags      uint8
	recTag        string
	recValue      string

	recKeyword string
	recPage    int
	recSize    int
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage DNS records in a zone",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records in a zone",
	RunE: withApp(true, func(ctx context.Context, a *app.App) error {
		resp, err := a.Records.ListRecords(ctx, recAccount, recZone, domain.RecordQueryParams{
			Page:       recPage,
			PageSize:   recSize,
			Keyword:    recKeyword,
			RecordType: domain.RecordType(recType),
		})
		if err != nil {
			return err
		}
		fmt.Printf("%-34s  %-24s  %-6s  %-6s  %s\n", "RECORD ID", "NAME", "TYPE", "TTL", "VALUE")
		for _, r := range resp.Items {
			fmt.Printf("%-34s  %-24s  %-6s  %-6d  %s\n", r.ID, r.Name, r.Data.Type, r.TTL, r.Data.Content())
		}
		fmt.Printf("page %d of %d total\n", resp.Page, resp.TotalCount)
		return nil
	}),
}

var recordsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a record",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(true, func(ctx context.Context, a *app.App) error {
			data, err := recordDataFromFlags()
			if err != nil {
				return err
			}
			req := domain.CreateDnsRecordRequest{
				ZoneID: recZone,
				Name:   recName,
				TTL:    recTTL,
				Data:   data,
			}
			if cmd.Flags().Changed("proxied") {
				req.Proxied = &recProxied
			}
			rec, err := a.Records.CreateRecord(ctx, recAccount, req)
			if err != nil {
				return err
			}
			fmt.Printf("record %s created: %s %s %s\n", rec.ID, rec.Name, rec.Data.Type, rec.Data.Content())
			return nil
		})(cmd, args)
	},
}

var recordsUpdateCmd = &cobra.Command{
	Use:   "update <record-id>",
	Short: "Replace a record's payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(true, func(ctx context.Context, a *app.App) error {
			data, err := recordDataFromFlags()
			if err != nil {
				return err
			}
			req := domain.UpdateDnsRecordRequest{
				ZoneID: recZone,
				Name:   recName,
				TTL:    recTTL,
				Data:   data,
			}
			if cmd.Flags().Changed("proxied") {
				req.Proxied = &recProxied
			}
			rec, err := a.Records.UpdateRecord(ctx, recAccount, args[0], req)
			if err != nil {
				return err
			}
			fmt.Printf("record %s updated: %s %s %s\n", rec.ID, rec.Name, rec.Data.Type, rec.Data.Content())
			return nil
		})(cmd, args)
	},
}

var recordsRemoveCmd = &cobra.Command{
	Use:   "remove <record-id>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(true, func(ctx context.Context, a *app.App) error {
			if err := a.Records.DeleteRecord(ctx, recAccount, args[0], recZone); err != nil {
				return err
			}
			fmt.Printf("record %s deleted\n", args[0])
			return nil
		})(cmd, args)
	},
}

// recordDataFromFlags builds the typed payload for the requested record type
// from the value flags that type uses.
func recordDataFromFlags() (domain.RecordData, error) {
	data := domain.RecordData{Type: domain.RecordType(recType)}
	switch data.Type {
	case domain.TypeA, domain.TypeAAAA:
		data.Address = recAddress
	case domain.TypeCNAME:
		data.Target = recTarget
	case domain.TypeMX:
		data.Priority = recPriority
		data.Exchange = recExchange
	case domain.TypeTXT:
		data.Text = recText
	case domain.TypeNS:
		data.Nameserver = recNameserver
	case domain.TypeSRV:
		data.Priority = recPriority
		data.Weight = recWeight
		data.Port = recPort
		data.Target = recTarget
	case domain.TypeCAA:
		data.Flags = recFlags
		data.Tag = recTag
		data.Value = recValue
	default:
		return domain.RecordData{}, domain.E(domain.CodeValidationError, "unknown record type %q", recType)
	}
	return data, nil
}

func addRecordValueFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&recName, "name", "@", "record name relative to the zone")
	cmd.Flags().StringVar(&recType, "type", "", "record type: A, AAAA, CNAME, MX, TXT, NS, SRV or CAA")
	cmd.Flags().Uint32Var(&recTTL, "ttl", 600, "record TTL in seconds")
	cmd.Flags().BoolVar(&recProxied, "proxied", false, "proxy through Cloudflare (cloudflare accounts only)")

	cmd.Flags().StringVar(&recAddress, "address", "", "IP address (A, AAAA)")
	cmd.Flags().StringVar(&recTarget, "target", "", "target host (CNAME, SRV)")
	cmd.Flags().Uint16Var(&recPriority, "priority", 0, "priority (MX, SRV)")
	cmd.Flags().StringVar(&recExchange, "exchange", "", "mail exchange host (MX)")
	cmd.Flags().StringVar(&recText, "text", "", "text payload (TXT)")
	cmd.Flags().StringVar(&recNameserver, "nameserver", "", "delegated nameserver (NS)")
	cmd.Flags().Uint16Var(&recWeight, "weight", 0, "weight (SRV)")
	cmd.Flags().Uint16Var(&recPort, "port", 0, "port (SRV)")
	cmd.Flags().Uint8Var(&recFlags, "flags", 0, "flags (CAA)")
	cmd.Flags().StringVar(&recTag, "tag", "", "property tag (CAA)")
	cmd.Flags().StringVar(&recValue, "value", "", "property value (CAA)")

	_ = cmd.MarkFlagRequired("type")
}

func init() {
	for _, cmd := range []*cobra.Command{recordsListCmd, recordsAddCmd, recordsUpdateCmd, recordsRemoveCmd} {
		cmd.Flags().StringVar(&recAccount, "account", "", "account ID")
		cmd.Flags().StringVar(&recZone, "zone", "", "zone ID")
		_ = cmd.MarkFlagRequired("account")
		_ = cmd.MarkFlagRequired("zone")
	}

	recordsListCmd.Flags().StringVar(&recKeyword, "keyword", "", "filter by name substring")
	recordsListCmd.Flags().StringVar(&recType, "type", "", "filter by record type")
	recordsListCmd.Flags().IntVar(&recPage, "page", 1, "page number")
	recordsListCmd.Flags().IntVar(&recSize, "page-size", 0, "page size (0 = provider maximum)")

	addRecordValueFlags(recordsAddCmd)
	addRecordValueFlags(recordsUpdateCmd)

	recordsCmd.AddCommand(recordsListCmd, recordsAddCmd, recordsUpdateCmd, recordsRemoveCmd)
}
