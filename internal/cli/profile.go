package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rcliao/allergy-diary/internal/diary"
	"github.com/rcliao/allergy-diary/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles",
	}

	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a profile",
		Args:  cobra.MaximumNArgs(1),
		Run:   runProfileAdd,
	}
	profileFlags(add.Flags())

	list := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Run:   runProfileList,
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a profile",
		Args:  cobra.ExactArgs(1),
		Run:   runProfileGet,
	}

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change profile fields",
		Long:  "Change profile fields. Only flags given on the command line are applied.",
		Args:  cobra.ExactArgs(1),
		Run:   runProfileUpdate,
	}
	profileFlags(update.Flags())
	update.Flags().String("name", "", "Name")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a profile with its symptoms and meal references",
		Args:  cobra.ExactArgs(1),
		Run:   runProfileRm,
	}

	cmd.AddCommand(add, list, get, update, rm)
	RootCmd.AddCommand(cmd)
}

func profileFlags(f *pflag.FlagSet) {
	f.String("dob", "", "Date of birth (YYYY-MM-DD)")
	f.String("gender", "", "Gender: male, female, diverse, unspecified")
	f.Float64("weight", 0, "Weight in kg")
	f.Float64("height", 0, "Height in cm")
	f.String("allergies", "", "Known allergies (comma-separated)")
	f.String("conditions", "", "Chronic conditions (comma-separated)")
	f.String("medications", "", "Medications (comma-separated)")
	f.String("diet", "", "Dietary preferences (comma-separated): vegetarian, vegan, gluten_free, lactose_free, other")
	f.String("activity", "", "Activity level: low, medium, high")
	f.String("stress", "", "Stress level: low, medium, high")
	f.String("smoking", "", "Smoking: never, former, occasional, regular")
	f.String("alcohol", "", "Alcohol: never, rarely, moderate, frequent")
	f.String("sleep", "", "Sleep quality: poor, fair, good, very_good")
	f.String("avatar", "", "Avatar")
}

func diets(s string) []model.DietaryPreference {
	var out []model.DietaryPreference
	for _, d := range splitList(s) {
		out = append(out, model.DietaryPreference(d))
	}
	return out
}

func profileTable(w io.Writer, profiles ...model.Profile) {
	for _, p := range profiles {
		fmt.Fprintf(w, "%s  %s", p.ID, p.Name)
		if len(p.KnownAllergies) > 0 {
			fmt.Fprintf(w, "  allergies: %s", strings.Join(p.KnownAllergies, ", "))
		}
		fmt.Fprintln(w)
	}
}

func runProfileAdd(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	var name string
	if len(args) > 0 {
		name = args[0]
	}
	dob, _ := f.GetString("dob")
	gender, _ := f.GetString("gender")
	weight, _ := f.GetFloat64("weight")
	height, _ := f.GetFloat64("height")
	allergies, _ := f.GetString("allergies")
	conditions, _ := f.GetString("conditions")
	medications, _ := f.GetString("medications")
	diet, _ := f.GetString("diet")
	activity, _ := f.GetString("activity")
	stress, _ := f.GetString("stress")
	smoking, _ := f.GetString("smoking")
	alcohol, _ := f.GetString("alcohol")
	sleep, _ := f.GetString("sleep")
	avatar, _ := f.GetString("avatar")

	a := openApp()
	defer a.Close()

	p, err := a.Diary.Profiles.Add(cmd.Context(), model.Profile{
		Name:               name,
		DateOfBirth:        dob,
		Gender:             model.Gender(gender),
		Weight:             weight,
		Height:             height,
		KnownAllergies:     splitList(allergies),
		ChronicConditions:  splitList(conditions),
		Medications:        splitList(medications),
		DietaryPreferences: diets(diet),
		ActivityLevel:      model.Level(activity),
		StressLevel:        model.Level(stress),
		SmokingStatus:      model.SmokingStatus(smoking),
		AlcoholConsumption: model.AlcoholConsumption(alcohol),
		SleepQuality:       model.SleepQuality(sleep),
		Avatar:             avatar,
	})
	if err != nil {
		exitErr("add profile", err)
	}
	if p == nil {
		limitReached(a, "profiles")
	}

	output(p, func(w io.Writer) { profileTable(w, *p) })
}

func runProfileList(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	profiles := a.Diary.Profiles.List(cmd.Context())
	output(profiles, func(w io.Writer) { profileTable(w, profiles...) })
}

func runProfileGet(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	p, err := a.Diary.Profiles.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("get profile", err)
	}
	output(p, nil)
}

func runProfileUpdate(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	var patch diary.ProfilePatch

	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}
	num := func(name string) *float64 {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetFloat64(name)
		return &v
	}
	list := func(name string) *[]string {
		s := str(name)
		if s == nil {
			return nil
		}
		v := splitList(*s)
		return &v
	}

	patch.Name = str("name")
	patch.DateOfBirth = str("dob")
	patch.Weight = num("weight")
	patch.Height = num("height")
	patch.KnownAllergies = list("allergies")
	patch.ChronicConditions = list("conditions")
	patch.Medications = list("medications")
	patch.Avatar = str("avatar")
	if s := str("gender"); s != nil {
		v := model.Gender(*s)
		patch.Gender = &v
	}
	if s := str("diet"); s != nil {
		v := diets(*s)
		patch.DietaryPreferences = &v
	}
	if s := str("activity"); s != nil {
		v := model.Level(*s)
		patch.ActivityLevel = &v
	}
	if s := str("stress"); s != nil {
		v := model.Level(*s)
		patch.StressLevel = &v
	}
	if s := str("smoking"); s != nil {
		v := model.SmokingStatus(*s)
		patch.SmokingStatus = &v
	}
	if s := str("alcohol"); s != nil {
		v := model.AlcoholConsumption(*s)
		patch.AlcoholConsumption = &v
	}
	if s := str("sleep"); s != nil {
		v := model.SleepQuality(*s)
		patch.SleepQuality = &v
	}

	a := openApp()
	defer a.Close()

	p, err := a.Diary.Profiles.Update(cmd.Context(), args[0], patch)
	if err != nil {
		exitErr("update profile", err)
	}
	output(p, func(w io.Writer) { profileTable(w, *p) })
}

func runProfileRm(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	if err := a.Diary.Profiles.Delete(cmd.Context(), args[0]); err != nil {
		exitErr("delete profile", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
}
