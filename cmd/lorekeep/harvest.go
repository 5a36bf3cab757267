package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/cli"
)

func harvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest [categories...]",
		Short: "Generate questions for specific categories",
		Long: `Run a one-off targeted harvest: generate questions for the named
categories, deduplicate them against the library and persist the rest.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runHarvest,
	}

	cmd.Flags().IntP("count", "n", 10, "number of questions to generate")
	cmd.Flags().Bool("dry-run", false, "count questions without persisting anything")

	return cmd
}

func runHarvest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}

	d, cleanup, err := buildDaemon(ctx, dryRun)
	if err != nil {
		return err
	}
	defer cleanup()
	defer d.Flush()

	result, err := d.HarvestCategories(ctx, args, count)
	if err != nil {
		return fmt.Errorf("harvest failed: %w", err)
	}

	fmt.Println(cli.TitleStyle.Render("Harvest complete"))
	fmt.Printf("  Generated: %d\n", result.Fetched)
	fmt.Printf("  Added:     %s\n", cli.SuccessStyle.Render(fmt.Sprintf("%d", result.Added)))
	skipped := result.Fetched - result.Added - result.Errors
	if skipped > 0 {
		fmt.Printf("  Skipped:   %s\n", cli.SubtleStyle.Render(fmt.Sprintf("%d duplicates", skipped)))
	}
	if result.Errors > 0 {
		fmt.Printf("  Errors:    %s\n", cli.ErrorStyle.Render(fmt.Sprintf("%d", result.Errors)))
	}
	return nil
}
