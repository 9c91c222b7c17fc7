package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dnsbridge/internal/app"
	"dnsbridge/internal/config"
	"dnsbridge/internal/core/domain"
)

var (
	cfgFile string
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", derr.Code, err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "dnsbridge",
	Short:         "Unified DNS record management across cloud providers",
	Long:          `dnsbridge manages DNS accounts, zones and records on Cloudflare, Aliyun, DNSPod and Huawei Cloud through one interface.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dnsbridge version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(accountsCmd, domainsCmd, recordsCmd, exportCmd, importCmd, versionCmd)
}

// withApp wires the service graph for one command invocation and tears it
// down afterwards. restore rebuilds the provider registry first, which
// commands touching live providers need.
func withApp(restore bool, fn func(ctx context.Context, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		a, err := app.New(cfg, version)
		if err != nil {
			return err
		}
		defer a.Close() //nolint:errcheck

		ctx := cmd.Context()
		if restore {
			if err := a.RestoreProviders(ctx); err != nil {
				return err
			}
		}
		return fn(ctx, a)
	}
}
