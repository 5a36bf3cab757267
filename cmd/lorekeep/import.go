package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/cli"
	"github.com/lorekeep/lorekeep/internal/source"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import questions from a CSV file",
		Long: `Import questions from a CSV file into the library. Each row is
deduplicated against the existing questions before insertion.

Expected columns:
  question,category,difficulty,correct_index,explanation,hint,choice1,choice2[,...]`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("dry-run", false, "validate and count without persisting anything")
	cmd.Flags().Int("batch-size", 100, "rows read per batch")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	batchSize, err := cmd.Flags().GetInt("batch-size")
	if err != nil {
		return err
	}

	d, cleanup, err := buildDaemon(ctx, dryRun)
	if err != nil {
		return err
	}
	defer cleanup()
	defer d.Flush()

	src := source.NewCSVFile(path)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Importing questions..."),
	)

	var imported, skipped, failed int
	for {
		batch, err := src.Fetch(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, q := range batch {
			added, err := d.Ingest(ctx, q, src.Name(), src.Kind())
			_ = bar.Add(1)
			switch {
			case err != nil:
				failed++
			case added:
				imported++
			default:
				skipped++
			}
		}
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	fmt.Println(cli.TitleStyle.Render("Import complete"))
	fmt.Printf("  Imported: %s\n", cli.SuccessStyle.Render(fmt.Sprintf("%d", imported)))
	if skipped > 0 {
		fmt.Printf("  Skipped:  %s\n", cli.SubtleStyle.Render(fmt.Sprintf("%d duplicates", skipped)))
	}
	if failed > 0 {
		fmt.Printf("  Failed:   %s\n", cli.ErrorStyle.Render(fmt.Sprintf("%d", failed)))
	}
	return nil
}
