package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"nft-sales-alerts/internal/alerting"
	"nft-sales-alerts/internal/opensea"
)

// Simulate pushes one synthetic sale through the formatter and every
// configured channel, which makes webhook and display configuration testable
// without waiting for a real sale.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if opts.Name == "" {
		return errors.New("a simulated asset name is required")
	}

	channels, err := a.newChannels(ctx)
	if err != nil {
		return err
	}

	amountWei := decimal.NewFromFloat(opts.AmountEth).
		Mul(decimal.New(1, 18)).
		Round(0).
		StringFixed(0)

	event := opensea.RawEvent{
		Kind:       opensea.KindSale,
		AssetName:  opts.Name,
		AmountWei:  amountWei,
		Buyer:      "0x0000000000000000000000000000000000000001",
		Seller:     "0x0000000000000000000000000000000000000002",
		OccurredAt: time.Now().UTC(),
	}

	note := a.newFormatter().Format(event)
	report := alerting.NewFanout(a.Logger).Deliver(ctx, channels, []alerting.Notification{note})
	if report.AllFailed() {
		return errors.New("simulated notification was rejected by every channel")
	}

	a.Logger.Info().Int("delivered", report.Delivered).Msg("simulated notification sent")
	return nil
}
