package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/diary"
	"github.com/rcliao/allergy-diary/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "symptom",
		Short: "Log and manage symptoms",
	}

	add := &cobra.Command{
		Use:   "add [symptom]",
		Short: "Log a symptom",
		Run:   runSymptomAdd,
	}
	add.Flags().StringP("profile", "p", "", "Profile id (required)")
	add.Flags().String("category", string(model.CategoryGeneral), "Category: skin, gastro, respiratory, general")
	add.Flags().StringP("severity", "s", string(model.SeverityMild), "Severity: mild, moderate, severe")
	add.Flags().String("start", "", "Start time (default: now)")
	add.Flags().String("duration", "", "Duration, free text")
	add.Flags().String("food", "", "Id of the meal suspected to cause it")
	add.MarkFlagRequired("profile")

	list := &cobra.Command{
		Use:   "list",
		Short: "List symptoms",
		Run:   runSymptomList,
	}
	list.Flags().StringP("profile", "p", "", "Only symptoms of this profile")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a symptom",
		Args:  cobra.ExactArgs(1),
		Run:   runSymptomGet,
	}

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a symptom",
		Args:  cobra.ExactArgs(1),
		Run:   runSymptomUpdate,
	}
	update.Flags().String("symptom", "", "Symptom")
	update.Flags().StringP("profile", "p", "", "Profile id")
	update.Flags().String("category", "", "Category: skin, gastro, respiratory, general")
	update.Flags().StringP("severity", "s", "", "Severity: mild, moderate, severe")
	update.Flags().String("start", "", "Start time")
	update.Flags().String("duration", "", "Duration")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a symptom",
		Args:  cobra.ExactArgs(1),
		Run:   runSymptomRm,
	}

	cmd.AddCommand(add, list, get, update, rm)
	RootCmd.AddCommand(cmd)
}

func symptomTable(w io.Writer, entries ...model.SymptomEntry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s  %s (%s, %s)  profile=%s", e.ID, e.LoggedAt.Local().Format("2006-01-02 15:04"), e.Symptom, e.Severity, e.Category, e.ProfileID)
		if e.LinkedFoodEntryID != "" {
			fmt.Fprintf(w, "  food=%s", e.LinkedFoodEntryID)
		}
		fmt.Fprintln(w)
	}
}

func runSymptomAdd(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	profile, _ := f.GetString("profile")
	category, _ := f.GetString("category")
	severity, _ := f.GetString("severity")
	start, _ := f.GetString("start")
	duration, _ := f.GetString("duration")
	food, _ := f.GetString("food")

	symptom, err := argsOrStdin(args)
	if err != nil {
		exitErr("read stdin", err)
	}

	a := openApp()
	defer a.Close()

	e, err := a.Diary.Symptoms.Add(cmd.Context(), diary.SymptomInput{
		Symptom:           symptom,
		Category:          model.SymptomCategory(category),
		Severity:          model.Severity(severity),
		StartTime:         start,
		Duration:          duration,
		LinkedFoodEntryID: food,
		ProfileID:         profile,
	})
	if err != nil {
		exitErr("add symptom", err)
	}
	if e == nil {
		limitReached(a, "symptom entries")
	}
	output(e, func(w io.Writer) { symptomTable(w, *e) })
}

func runSymptomList(cmd *cobra.Command, args []string) {
	profile, _ := cmd.Flags().GetString("profile")

	a := openApp()
	defer a.Close()

	var entries []model.SymptomEntry
	if profile != "" {
		entries = a.Diary.Symptoms.ForProfile(cmd.Context(), profile)
	} else {
		entries = a.Diary.Symptoms.List(cmd.Context())
	}
	output(entries, func(w io.Writer) { symptomTable(w, entries...) })
}

func runSymptomGet(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	e, err := a.Diary.Symptoms.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("get symptom", err)
	}
	output(e, nil)
}

func runSymptomUpdate(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}

	patch := diary.SymptomPatch{
		Symptom:   str("symptom"),
		StartTime: str("start"),
		Duration:  str("duration"),
		ProfileID: str("profile"),
	}
	if s := str("category"); s != nil {
		v := model.SymptomCategory(*s)
		patch.Category = &v
	}
	if s := str("severity"); s != nil {
		v := model.Severity(*s)
		patch.Severity = &v
	}

	a := openApp()
	defer a.Close()

	e, err := a.Diary.Symptoms.Update(cmd.Context(), args[0], patch)
	if err != nil {
		exitErr("update symptom", err)
	}
	output(e, func(w io.Writer) { symptomTable(w, *e) })
}

func runSymptomRm(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	if err := a.Diary.Symptoms.Delete(cmd.Context(), args[0]); err != nil {
		exitErr("delete symptom", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
}
