package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change application settings",
		Run:   runSettings,
	}

	cmd.Flags().String("name", "", "Diary name")
	cmd.Flags().String("notes", "", "Free-form notes")

	RootCmd.AddCommand(cmd)
}

func runSettings(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	a := openApp()
	defer a.Close()

	s := a.Diary.Settings(cmd.Context())
	if f.Changed("name") || f.Changed("notes") {
		if f.Changed("name") {
			s.Name, _ = f.GetString("name")
		}
		if f.Changed("notes") {
			s.Notes, _ = f.GetString("notes")
		}
		if err := a.Diary.SaveSettings(cmd.Context(), s); err != nil {
			exitErr("save settings", err)
		}
	}
	output(s, nil)
}
