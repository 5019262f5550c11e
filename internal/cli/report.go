package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/report"
)

func init() {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a CSV report of the whole diary",
		Long:  "Write a CSV report of profiles, meals and symptoms. Counts against the daily export limit.",
		Run:   runReport,
	}

	cmd.Flags().StringP("out", "o", "", "Output file (default: allergy_care_data_<date>.csv, - for stdout)")

	RootCmd.AddCommand(cmd)
}

func runReport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	a := openApp()
	defer a.Close()

	var buf bytes.Buffer
	ok, err := a.Report.CSV(cmd.Context(), &buf)
	if err != nil {
		exitErr("report", err)
	}
	if !ok {
		limitReached(a, "exports")
	}

	if out == "-" {
		os.Stdout.Write(buf.Bytes())
		return
	}
	if out == "" {
		out = report.Filename(a.KV.Clock().Now().In(a.Config.Quota.Location()))
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		exitErr("write report", err)
	}
	fmt.Printf(`{"ok":true,"file":%q}`+"\n", out)
}
