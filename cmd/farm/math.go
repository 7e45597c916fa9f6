package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"yieldFarm/internal/pricemath"
)

func newTickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Convert a price to a tick or a tick to a price",
		RunE:  runTick,
	}
	cmd.Flags().String("price", "", "price quoted as token1 per token0")
	cmd.Flags().Int("tick", 0, "tick to convert back to a price")
	cmd.Flags().Int("decimals0", 0, "token0 decimals (0 with decimals1 0 means raw price)")
	cmd.Flags().Int("decimals1", 0, "token1 decimals")
	cmd.Flags().Int("spacing", 0, "tick spacing to align to")
	return cmd
}

type tickOutput struct {
	Tick        int    `json:"tick"`
	AlignedTick *int   `json:"aligned_tick,omitempty"`
	Price       string `json:"price"`
}

func runTick(cmd *cobra.Command, _ []string) error {
	priceRaw, _ := cmd.Flags().GetString("price")
	dec0, _ := cmd.Flags().GetInt("decimals0")
	dec1, _ := cmd.Flags().GetInt("decimals1")
	spacing, _ := cmd.Flags().GetInt("spacing")

	var out tickOutput
	if priceRaw != "" {
		price, err := pricemath.ParsePrice(priceRaw)
		if err != nil {
			return err
		}
		tick, err := pricemath.PriceToTickAdjusted(price, dec0, dec1)
		if err != nil {
			return err
		}
		out.Tick = tick
	} else {
		if !cmd.Flags().Changed("tick") {
			return fmt.Errorf("either --price or --tick is required")
		}
		out.Tick, _ = cmd.Flags().GetInt("tick")
		if out.Tick < pricemath.MinTick || out.Tick > pricemath.MaxTick {
			return fmt.Errorf("%w: %d", pricemath.ErrTickOutOfBounds, out.Tick)
		}
	}

	if spacing != 0 {
		aligned, err := pricemath.AlignTick(out.Tick, spacing)
		if err != nil {
			return err
		}
		out.AlignedTick = &aligned
	}
	out.Price = pricemath.FormatPrice(pricemath.TickToPriceAdjusted(out.Tick, dec0, dec1))
	return printJSON(cmd, out)
}

func newRangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Compute a price range around a center price",
		RunE:  runRange,
	}
	cmd.Flags().String("center", "", "center price")
	cmd.Flags().Float64("percent", 10, "range half width in percent")
	cmd.Flags().Int("decimals", 18, "fraction digits kept")
	cmd.Flags().Bool("full", false, "full range")
	return cmd
}

func runRange(cmd *cobra.Command, _ []string) error {
	full, _ := cmd.Flags().GetBool("full")
	if full {
		return printJSON(cmd, pricemath.ComputeFullRange())
	}

	center, _ := cmd.Flags().GetString("center")
	percent, _ := cmd.Flags().GetFloat64("percent")
	decimals, _ := cmd.Flags().GetInt("decimals")
	if center == "" {
		return fmt.Errorf("center price is required")
	}
	r, err := pricemath.ComputeRange(center, percent, decimals)
	if err != nil {
		return err
	}
	return printJSON(cmd, r)
}

func newNudgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nudge <price>",
		Short: "Step a price bound by 0.01%",
		Args:  cobra.ExactArgs(1),
		RunE:  runNudge,
	}
	cmd.Flags().Bool("down", false, "step down instead of up")
	cmd.Flags().Int("decimals", 18, "fraction digits kept")
	return cmd
}

func runNudge(cmd *cobra.Command, args []string) error {
	down, _ := cmd.Flags().GetBool("down")
	decimals, _ := cmd.Flags().GetInt("decimals")
	out, err := pricemath.NudgePrice(args[0], !down, decimals)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func newMinAmountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "min-amount <amount>",
		Short: "Apply slippage tolerance to a desired amount",
		Args:  cobra.ExactArgs(1),
		RunE:  runMinAmount,
	}
	cmd.Flags().Float64("slippage", 0.5, "slippage tolerance in percent")
	cmd.Flags().Int("decimals", 18, "token decimals")
	return cmd
}

type minAmountOutput struct {
	Desired     string `json:"desired"`
	Minimum     string `json:"minimum"`
	DesiredBase string `json:"desired_base"`
	MinimumBase string `json:"minimum_base"`
}

func runMinAmount(cmd *cobra.Command, args []string) error {
	slippage, _ := cmd.Flags().GetFloat64("slippage")
	decimals, _ := cmd.Flags().GetInt("decimals")

	desired, err := pricemath.ParseUnits(args[0], decimals)
	if err != nil {
		return err
	}
	minimum, err := pricemath.MinimumAmount(desired, slippage)
	if err != nil {
		return err
	}
	return printJSON(cmd, minAmountOutput{
		Desired:     pricemath.FormatUnits(desired, decimals),
		Minimum:     pricemath.FormatUnits(minimum, decimals),
		DesiredBase: desired.String(),
		MinimumBase: minimum.String(),
	})
}

func newTruncateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "truncate <value>",
		Short: "Cut a decimal string to a number of fraction digits",
		Args:  cobra.ExactArgs(1),
		RunE:  runTruncate,
	}
	cmd.Flags().Int("decimals", 6, "fraction digits kept")
	return cmd
}

func runTruncate(cmd *cobra.Command, args []string) error {
	decimals, _ := cmd.Flags().GetInt("decimals")
	out, err := pricemath.TruncateDecimalString(args[0], decimals)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
