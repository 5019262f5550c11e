package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/backup"
)

func init() {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check stored data for missing fields and dangling references",
		Run:   runDoctor,
	}

	cmd.Flags().Bool("fix", false, "Remove references to deleted profiles")

	RootCmd.AddCommand(cmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	fix, _ := cmd.Flags().GetBool("fix")

	a := openApp()
	defer a.Close()

	out := struct {
		Report  backup.IntegrityReport `json:"report"`
		Cleaned *backup.CleanResult    `json:"cleaned,omitempty"`
	}{}

	if fix {
		res, err := a.Backup.Clean(cmd.Context())
		if err != nil {
			exitErr("clean", err)
		}
		out.Cleaned = &res
	}
	out.Report = a.Backup.Validate(cmd.Context())

	output(out, func(w io.Writer) {
		if out.Cleaned != nil {
			fmt.Fprintf(w, "stripped %d profile references, removed %d symptoms\n",
				out.Cleaned.StrippedReferences, out.Cleaned.RemovedSymptoms)
		}
		for _, e := range out.Report.Errors {
			fmt.Fprintln(w, "error:", e)
		}
		for _, e := range out.Report.Warnings {
			fmt.Fprintln(w, "warning:", e)
		}
		if out.Report.IsValid {
			fmt.Fprintln(w, "ok")
		}
	})
}
