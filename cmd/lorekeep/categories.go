package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep/internal/cli"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect question categories",
	}

	cmd.AddCommand(listCategoriesCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Long:  `Display all categories with their stored question counts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories yet. Run the daemon or a harvest to acquire questions."))
				return nil
			}

			fmt.Println(cli.TitleStyle.Render("Categories"))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() {
				_ = w.Flush()
			}()

			fmt.Fprintln(w, "NAME\tQUESTIONS")
			for _, c := range categories {
				questions, err := store.QuestionsByCategory(ctx, c.Name)
				if err != nil {
					return fmt.Errorf("failed to count questions for %s: %w", c.Name, err)
				}
				fmt.Fprintf(w, "%s\t%d\n", c.Name, len(questions))
			}

			return nil
		},
	}
}
