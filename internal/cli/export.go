package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the whole diary as JSON",
		Long:  "Export profiles, meals, symptoms and settings as a versioned JSON document, to stdout or a file.",
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	a := openApp()
	defer a.Close()

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			exitErr("create file", err)
		}
		defer f.Close()
		w = f
	}

	doc, err := a.Backup.Export(cmd.Context(), w)
	if err != nil {
		exitErr("export", err)
	}
	if out != "" {
		fmt.Printf(`{"ok":true,"file":%q,"foodEntries":%d,"symptomEntries":%d,"profiles":%d}`+"\n",
			out, doc.Metadata.TotalFoodEntries, doc.Metadata.TotalSymptomEntries, doc.Metadata.TotalProfiles)
	}
}
