// Command nftifyctl drives the marketplace HTTP API from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	fromAddr  string
)

var rootCmd = &cobra.Command{
	Use:   "nftifyctl",
	Short: "Command line client for the NFTify marketplace service",
	Long: `nftifyctl talks to a running NFTify onchain service. Write commands act
as the account given with --from; prices and values are given in ether.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultServer := os.Getenv("NFTIFY_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "service base URL (or NFTIFY_SERVER env)")
	rootCmd.PersistentFlags().StringVar(&fromAddr, "from", os.Getenv("NFTIFY_FROM"), "caller address for write commands (or NFTIFY_FROM env)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
