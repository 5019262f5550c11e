package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "link <symptom-id> <food-id>",
		Short: "Link a symptom to the meal suspected to cause it",
		Args:  cobra.ExactArgs(2),
		Run:   runLink,
	}

	unlink := &cobra.Command{
		Use:   "unlink <symptom-id>",
		Short: "Remove a symptom's meal link",
		Args:  cobra.ExactArgs(1),
		Run:   runUnlink,
	}

	RootCmd.AddCommand(cmd, unlink)
}

func runLink(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	e, err := a.Diary.Symptoms.Link(cmd.Context(), args[0], args[1])
	if err != nil {
		exitErr("link", err)
	}
	output(e, func(w io.Writer) { symptomTable(w, *e) })
}

func runUnlink(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	e, err := a.Diary.Symptoms.Unlink(cmd.Context(), args[0])
	if err != nil {
		exitErr("unlink", err)
	}
	output(e, func(w io.Writer) { symptomTable(w, *e) })
}
