package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/diary"
	"github.com/rcliao/allergy-diary/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "food",
		Short: "Log and manage meals",
	}

	add := &cobra.Command{
		Use:   "add [food items]",
		Short: "Log a meal",
		Long:  "Log a meal for one or more profiles. Food items can be a positional arg or piped via stdin.",
		Run:   runFoodAdd,
	}
	add.Flags().StringP("profiles", "p", "", "Profile ids (comma-separated, required)")
	add.Flags().String("photo", "", "Photo reference")
	add.MarkFlagRequired("profiles")

	list := &cobra.Command{
		Use:   "list",
		Short: "List meals",
		Run:   runFoodList,
	}
	list.Flags().StringP("profile", "p", "", "Only meals of this profile")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a meal and the symptoms linked to it",
		Args:  cobra.ExactArgs(1),
		Run:   runFoodGet,
	}

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a meal",
		Args:  cobra.ExactArgs(1),
		Run:   runFoodUpdate,
	}
	update.Flags().String("items", "", "Food items")
	update.Flags().StringP("profiles", "p", "", "Profile ids (comma-separated)")
	update.Flags().String("photo", "", "Photo reference")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a meal",
		Args:  cobra.ExactArgs(1),
		Run:   runFoodRm,
	}

	cmd.AddCommand(add, list, get, update, rm)
	RootCmd.AddCommand(cmd)
}

func foodTable(w io.Writer, entries ...model.FoodEntry) {
	for _, f := range entries {
		fmt.Fprintf(w, "%s  %s  %s  [%s]\n", f.ID, f.Timestamp.Local().Format("2006-01-02 15:04"), f.FoodItems, strings.Join(f.ProfileIDs, ","))
	}
}

func runFoodAdd(cmd *cobra.Command, args []string) {
	profiles, _ := cmd.Flags().GetString("profiles")
	photo, _ := cmd.Flags().GetString("photo")

	items, err := argsOrStdin(args)
	if err != nil {
		exitErr("read stdin", err)
	}

	a := openApp()
	defer a.Close()

	f, err := a.Diary.Foods.Add(cmd.Context(), diary.FoodInput{
		FoodItems:  items,
		Photo:      photo,
		ProfileIDs: splitList(profiles),
	})
	if err != nil {
		exitErr("add food", err)
	}
	if f == nil {
		limitReached(a, "food entries")
	}
	output(f, func(w io.Writer) { foodTable(w, *f) })
}

func runFoodList(cmd *cobra.Command, args []string) {
	profile, _ := cmd.Flags().GetString("profile")

	a := openApp()
	defer a.Close()

	var entries []model.FoodEntry
	if profile != "" {
		entries = a.Diary.Foods.ForProfile(cmd.Context(), profile)
	} else {
		entries = a.Diary.Foods.List(cmd.Context())
	}
	output(entries, func(w io.Writer) { foodTable(w, entries...) })
}

func runFoodGet(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	f, err := a.Diary.Foods.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("get food", err)
	}
	output(struct {
		*model.FoodEntry
		Symptoms []model.SymptomEntry `json:"linkedSymptoms"`
	}{f, a.Diary.Symptoms.Linked(cmd.Context(), f.ID)}, nil)
}

func runFoodUpdate(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	var patch diary.FoodPatch
	if f.Changed("items") {
		v, _ := f.GetString("items")
		patch.FoodItems = &v
	}
	if f.Changed("photo") {
		v, _ := f.GetString("photo")
		patch.Photo = &v
	}
	if f.Changed("profiles") {
		v, _ := f.GetString("profiles")
		ids := splitList(v)
		patch.ProfileIDs = &ids
	}

	a := openApp()
	defer a.Close()

	entry, err := a.Diary.Foods.Update(cmd.Context(), args[0], patch)
	if err != nil {
		exitErr("update food", err)
	}
	output(entry, func(w io.Writer) { foodTable(w, *entry) })
}

func runFoodRm(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	if err := a.Diary.Foods.Delete(cmd.Context(), args[0]); err != nil {
		exitErr("delete food", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
}
