package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/model"
	"github.com/rcliao/allergy-diary/internal/quota"
)

func init() {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show today's usage and what is left of the daily limits",
		Run:   runUsage,
	}

	limits := &cobra.Command{
		Use:   "limits",
		Short: "Change the daily limits",
		Long:  "Change the daily limits. Only flags given on the command line are applied.",
		Run:   runLimits,
	}
	limits.Flags().Int("food", 0, "Food entries per day")
	limits.Flags().Int("symptoms", 0, "Symptom entries per day")
	limits.Flags().Int("exports", 0, "Exports and analyses per day")
	limits.Flags().Int("profiles", 0, "Maximum number of profiles")

	cmd.AddCommand(limits)
	RootCmd.AddCommand(cmd)
}

type usageReport struct {
	Date      string            `json:"date"`
	Premium   bool              `json:"premium"`
	Usage     model.DailyUsage  `json:"usage"`
	Limits    model.UsageLimits `json:"limits"`
	Remaining quota.Remaining   `json:"remaining"`
}

func runUsage(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a := openApp()
	defer a.Close()

	r := usageReport{
		Date:      a.Quota.Today(),
		Premium:   a.Premium.IsActive(ctx),
		Usage:     a.Quota.Usage(ctx),
		Limits:    a.Quota.Limits(ctx),
		Remaining: a.Quota.Remaining(ctx, len(a.Diary.Profiles.List(ctx))),
	}
	output(r, func(w io.Writer) {
		fmt.Fprintf(w, "%s (premium: %t)\n", r.Date, r.Premium)
		fmt.Fprintf(w, "food entries:    %d used, %s left\n", r.Usage.FoodEntries, r.Remaining.FoodEntries)
		fmt.Fprintf(w, "symptom entries: %d used, %s left\n", r.Usage.SymptomEntries, r.Remaining.SymptomEntries)
		fmt.Fprintf(w, "exports:         %d used, %s left\n", r.Usage.Exports, r.Remaining.Exports)
		fmt.Fprintf(w, "profiles:        %s left\n", r.Remaining.Profiles)
	})
}

func runLimits(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	a := openApp()
	defer a.Close()

	l := a.Quota.Limits(cmd.Context())
	set := func(name string, dst *int) {
		if f.Changed(name) {
			*dst, _ = f.GetInt(name)
		}
	}
	set("food", &l.DailyFoodEntries)
	set("symptoms", &l.DailySymptomEntries)
	set("exports", &l.DailyExports)
	set("profiles", &l.MaxProfiles)

	if err := a.Quota.SetLimits(cmd.Context(), l); err != nil {
		exitErr("set limits", err)
	}
	output(a.Quota.Limits(cmd.Context()), nil)
}
