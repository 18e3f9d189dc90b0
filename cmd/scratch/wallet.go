package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"seeker-scratch/internal/address"
	"seeker-scratch/internal/models"
	"seeker-scratch/internal/services"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <card>",
		Short: "Buy and scratch one card, then print the inferred prize",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			if _, err := a.requireSigner(); err != nil {
				return err
			}
			transactor, state, device := a.core(nil)
			settler := services.NewSettlementOrchestrator(a.catalog, a.ledger, a.program, transactor, state, device, services.SettlementOptions{
				DustLamports: a.cfg.PrizeDustLamports,
			})
			defer settler.Close()

			if err := state.RefreshTreasury(cmd.Context()); err != nil {
				return fmt.Errorf("failed to read treasury: %w", err)
			}

			settlement, err := settler.Purchase(cmd.Context(), models.CardType(args[0]))
			if err != nil {
				return errors.New(services.UserMessage(err))
			}
			if *settlement.Prize == 0 {
				fmt.Println("No prize this time.")
			} else {
				fmt.Printf("You won %s SOL!\n", models.FormatSOL(*settlement.Prize))
			}
			return printJSON(settlement)
		},
	}
}

func newProfileCmd() *cobra.Command {
	var wallet string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Print a player profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := current
			owner := a.owner
			if wallet != "" {
				key, err := address.ParsePublicKey(wallet)
				if err != nil {
					return fmt.Errorf("invalid wallet: %w", err)
				}
				owner = &key
			}
			if owner == nil {
				return fmt.Errorf("no wallet given and no keypair configured")
			}

			state := services.NewLedgerState(a.ledger, a.program, owner, a.store, nil)
			if err := state.RefreshProfile(cmd.Context()); err != nil {
				return fmt.Errorf("failed to read profile: %w", err)
			}
			profile := state.Profile()
			if profile == nil {
				fmt.Println("No profile yet.")
				return nil
			}
			return printJSON(profile)
		},
	}
	cmd.Flags().StringVar(&wallet, "wallet", "", "wallet address (defaults to the loaded keypair)")
	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the monthly points leaderboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := current
			state := services.NewLedgerState(a.ledger, a.program, a.owner, a.store, nil)
			if err := state.RefreshLeaderboard(cmd.Context()); err != nil {
				return fmt.Errorf("failed to read leaderboard: %w", err)
			}
			entries, _ := state.Leaderboard()
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			for i, e := range entries {
				fmt.Printf("%3d  %-20s %10d pts\n", i+1, e.Label(), e.PointsThisMonth)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to print (0 for all)")
	return cmd
}

func newDeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive [wallet]",
		Short: "Print the treasury, profile and bonus NFT addresses",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current
			deriver := a.program.Deriver()
			out := map[string]string{
				"program":  deriver.ProgramID().String(),
				"treasury": deriver.TreasuryAddress().String(),
			}

			owner := a.owner
			if len(args) == 1 {
				key, err := address.ParsePublicKey(args[0])
				if err != nil {
					return fmt.Errorf("invalid wallet: %w", err)
				}
				owner = &key
			}
			if owner != nil {
				out["wallet"] = owner.String()
				out["profile"] = deriver.ProfileAddress(*owner).String()
				out["bonus_nft"] = deriver.BonusAssetAddress(*owner).String()
			}
			return printJSON(out)
		},
	}
}
