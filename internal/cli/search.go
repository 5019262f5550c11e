package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/diary"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search meals, symptoms and profiles by keyword",
		Long:  "Search food items, symptoms, categories and profile names for matching text.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().StringP("profile", "p", "", "Filter by profile id")
	cmd.Flags().String("kind", "", "Filter by kind: food, symptom, profile")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	profile, _ := cmd.Flags().GetString("profile")
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	a := openApp()
	defer a.Close()

	results := a.Diary.Search(cmd.Context(), diary.SearchParams{
		Query:     query,
		ProfileID: profile,
		Kind:      kind,
		Limit:     limit,
	})
	if results == nil {
		results = []diary.SearchResult{}
	}

	output(results, func(w io.Writer) {
		for _, r := range results {
			fmt.Fprintf(w, "%-8s %s  %s", r.Kind, r.ID, r.Title)
			if r.Detail != "" {
				fmt.Fprintf(w, "  (%s)", r.Detail)
			}
			fmt.Fprintln(w)
		}
	})
}
