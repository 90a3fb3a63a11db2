package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"nft-sales-alerts/internal/app"
)

var (
	simulateName   string
	simulateAmount float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Send a synthetic sale notification to every configured channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateAmount < 0 {
			return errors.New("--amount cannot be negative")
		}

		opts := app.SimulateOptions{
			Name:      simulateName,
			AmountEth: simulateAmount,
		}
		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateName, "name", "Test Asset", "Asset name for the synthetic sale")
	simulateCmd.Flags().Float64Var(&simulateAmount, "amount", 1.0, "Sale amount in ether")
}
