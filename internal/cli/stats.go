package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/diary"
	"github.com/rcliao/allergy-diary/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show diary and database statistics",
		Run:   runStats,
	}

	recent := &cobra.Command{
		Use:   "recent",
		Short: "Show the latest meals and symptoms",
		Run:   runRecent,
	}
	recent.Flags().StringP("profile", "p", "", "Filter by profile id")
	recent.Flags().IntP("limit", "l", 10, "Max entries")

	RootCmd.AddCommand(cmd, recent)
}

func runStats(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	out := struct {
		Diary    diary.Stats  `json:"diary"`
		Database *store.Stats `json:"database,omitempty"`
	}{Diary: a.Diary.Stats(cmd.Context())}

	if a.Store != nil {
		st, err := a.Store.Stats(cmd.Context())
		if err != nil {
			exitErr("stats", err)
		}
		out.Database = st
	}

	output(out, func(w io.Writer) {
		fmt.Fprintf(w, "profiles: %d  meals: %d  symptoms: %d (%d linked)\n",
			out.Diary.Profiles, out.Diary.FoodEntries, out.Diary.SymptomEntries, out.Diary.LinkedSymptoms)
		for _, p := range out.Diary.PerProfile {
			fmt.Fprintf(w, "  %s: %d meals, %d symptoms\n", p.Name, p.FoodEntries, p.SymptomEntries)
		}
		if out.Database != nil {
			fmt.Fprintf(w, "database: %s (%d bytes)\n", out.Database.DBPath, out.Database.DBSizeBytes)
		}
	})
}

func runRecent(cmd *cobra.Command, args []string) {
	profile, _ := cmd.Flags().GetString("profile")
	limit, _ := cmd.Flags().GetInt("limit")

	a := openApp()
	defer a.Close()

	activity := a.Diary.Recent(cmd.Context(), profile, limit)
	output(activity, func(w io.Writer) {
		for _, act := range activity {
			switch {
			case act.Food != nil:
				foodTable(w, *act.Food)
			case act.Symptom != nil:
				symptomTable(w, *act.Symptom)
			}
		}
	})
}
