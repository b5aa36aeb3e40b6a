package main

import (
	"context"
	"fmt"
	"sort"

	"web3-token-agent/pkg/logger"

	"github.com/spf13/cobra"
)

var walletsCreate bool

var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "Show the agent wallets",
	Long:  `Loads the agent's custodial wallets from the encrypted record and prints their addresses. With --create, provisions them if missing.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, span := logger.StartSpan(context.Background(), "script", "wallets")
		defer span.End()
		e := setup(ctx)
		defer e.repo.Close()

		a := e.agent(ctx)
		defer a.Close()

		set, err := a.Wallets.GetWallets(ctx, e.cfg.Agent.ID, walletsCreate)
		if err != nil {
			exit(err)
		}
		if set == nil {
			fmt.Println("No wallets for agent", e.cfg.Agent.ID)
			return
		}
		chains := make([]string, 0, len(set.Wallets))
		for chain := range set.Wallets {
			chains = append(chains, chain)
		}
		sort.Strings(chains)
		for _, chain := range chains {
			w := set.Wallets[chain]
			fmt.Printf("%-10s %s (%s)\n", chain, w.DefaultAddress, w.ID)
		}
	},
}

func init() {
	walletsCmd.Flags().BoolVar(&walletsCreate, "create", false, "Provision wallets when no record exists")
}
