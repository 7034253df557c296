package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/contenthub/caller"
	"github.com/xraph/contenthub/types"
)

var (
	configPath string
	actAs      string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "contenthub",
	Short:        "Pay-per-view and ownership ledger for creator content",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONTENTHUB_CONFIG"), "path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&actAs, "as", "", "wallet address to act as for mutating commands")

	configCmd.AddCommand(configInitCmd)
	platformCmd.AddCommand(platformInitCmd, platformShowCmd, platformStatsCmd)
	contentCmd.AddCommand(contentUploadCmd, contentInfoCmd, contentListCmd, contentRevenueCmd)
	payCmd.AddCommand(payViewCmd, payOwnCmd)
	accessCmd.AddCommand(accessGrantCmd, accessCheckCmd)
	ownershipCmd.AddCommand(ownershipMintCmd, ownershipShowCmd)
	paymentsCmd.AddCommand(paymentsListCmd, paymentsSpentCmd)

	rootCmd.AddCommand(serveCmd, configCmd, platformCmd, contentCmd, payCmd, accessCmd, ownershipCmd, paymentsCmd)
}

// withApp opens the configured ledger, runs fn and closes the ledger.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// actor attaches the --as address to ctx.
func actor(ctx context.Context) (context.Context, error) {
	addr, err := caller.Static(actAs).Attest(ctx, caller.Claim{})
	if err != nil {
		return nil, fmt.Errorf("--as is required: %w", err)
	}
	return caller.WithAddress(ctx, addr), nil
}

func parseAddress(s string) (types.Address, error) {
	addr, ok := types.ParseAddress(s)
	if !ok {
		return "", fmt.Errorf("invalid address %q", s)
	}
	return addr, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
