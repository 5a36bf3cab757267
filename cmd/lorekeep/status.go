package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lorekeep/lorekeep/internal/cli"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/service"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library size and daemon statistics",
		Long: `Display the size of the question library and, when the daemon has
published a statistics snapshot, its acquisition counters.`,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	total, err := store.CountQuestions(ctx)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	categories, err := store.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to get categories: %w", err)
	}

	sources, err := store.GetSources(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	fmt.Println(cli.TitleStyle.Render("Question library"))
	fmt.Printf("  Questions:  %s\n", cli.SuccessStyle.Render(fmt.Sprintf("%d", total)))
	fmt.Printf("  Categories: %d\n", len(categories))
	for _, src := range sources {
		fmt.Printf("  - %s (%s): %d stored\n", src.Name, src.Kind, src.QuestionCount)
	}

	if snap, ok := readStatsSnapshot(); ok {
		fmt.Println()
		fmt.Println(cli.TitleStyle.Render("Daemon"))
		fmt.Printf("  State:      %s\n", renderState(snap.State))
		fmt.Printf("  Fetched:    %d\n", snap.TotalFetched)
		fmt.Printf("  Added:      %d\n", snap.TotalAdded)
		fmt.Printf("  Duplicates: %d\n", snap.TotalDuplicate)
		fmt.Printf("  Rate limits hit: %d\n", snap.RateLimitHits)
		fmt.Printf("  Errors:     %d\n", snap.TotalErrors)

		for _, src := range snap.Sources {
			state := cli.SuccessStyle.Render("enabled")
			if !src.Enabled {
				state = cli.SubtleStyle.Render("disabled")
			}
			fmt.Printf("  - %s (%s): %d fetched, %d added, %d duplicates\n",
				src.Name, state, src.Fetched, src.Added, src.Duplicates)
		}
	}

	return nil
}

// readStatsSnapshot loads the snapshot the daemon persists after each cycle.
func readStatsSnapshot() (service.StatsSnapshot, bool) {
	path := config.ExpandPath(viper.GetString("daemon.stats_path"))
	if path == "" {
		return service.StatsSnapshot{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return service.StatsSnapshot{}, false
	}

	var snap service.StatsSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return service.StatsSnapshot{}, false
	}
	return snap, true
}

func renderState(state string) string {
	switch state {
	case "running":
		return cli.SuccessStyle.Render(state)
	case "paused":
		return cli.WarningStyle.Render(state)
	default:
		return cli.SubtleStyle.Render(state)
	}
}
