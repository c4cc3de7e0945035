package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ticketd",
		Short: "Event ticketing chain client",
		Long:  "ticketd drives the on-chain event registry, ticket NFT, and resale market: browsing events, verifying and checking in tickets, claiming refunds, and listing or buying resale tickets.",
	}

	rootCmd.PersistentFlags().String("home", "", "home directory (default ~/.ticketd)")

	InitRootCmd(rootCmd)

	return rootCmd
}
