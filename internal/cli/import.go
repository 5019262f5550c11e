package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a diary from JSON",
		Long: "Import a diary from JSON (file or stdin). Expects the format produced by export; " +
			"older unversioned exports are accepted too. Existing profiles, meals and symptoms are replaced.",
		Args: cobra.MaximumNArgs(1),
		Run:  runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
	}

	a := openApp()
	defer a.Close()

	res, err := a.Backup.Import(cmd.Context(), r)
	if err != nil {
		exitErr("import", err)
	}
	output(res, nil)
}
