package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage automatic snapshots",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List retained snapshots, newest first",
		Run:   runBackupList,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Take a snapshot now",
		Run:   runBackupCreate,
	}

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace profiles, meals, symptoms and settings with a snapshot",
		Args:  cobra.ExactArgs(1),
		Run:   runBackupRestore,
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		Run:   runBackupRm,
	}

	settings := &cobra.Command{
		Use:   "settings",
		Short: "Show or change automatic backup settings",
		Run:   runBackupSettings,
	}
	settings.Flags().Bool("enabled", true, "Take automatic snapshots")
	settings.Flags().String("frequency", "", "Minimum spacing: daily, weekly, monthly")
	settings.Flags().Int("max", 0, "Snapshots to keep (1-100)")

	cmd.AddCommand(list, create, restore, rm, settings)
	RootCmd.AddCommand(cmd)
}

type backupSummary struct {
	ID             string `json:"id"`
	Timestamp      string `json:"timestamp"`
	Profiles       int    `json:"profiles"`
	FoodEntries    int    `json:"foodEntries"`
	SymptomEntries int    `json:"symptomEntries"`
}

func summarize(b model.AutoBackup) backupSummary {
	return backupSummary{
		ID:             b.ID,
		Timestamp:      b.Timestamp.Local().Format("2006-01-02 15:04:05"),
		Profiles:       len(b.Data.UserProfiles),
		FoodEntries:    len(b.Data.FoodEntries),
		SymptomEntries: len(b.Data.SymptomEntries),
	}
}

func backupTable(w io.Writer, rows ...backupSummary) {
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s  %d profiles, %d meals, %d symptoms\n", r.ID, r.Timestamp, r.Profiles, r.FoodEntries, r.SymptomEntries)
	}
}

func runBackupList(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	backups := a.Backup.List(cmd.Context())
	rows := make([]backupSummary, len(backups))
	for i, b := range backups {
		rows[i] = summarize(b)
	}
	output(rows, func(w io.Writer) { backupTable(w, rows...) })
}

func runBackupCreate(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	b, err := a.Backup.CreateNow(cmd.Context())
	if err != nil {
		exitErr("backup", err)
	}
	row := summarize(*b)
	output(row, func(w io.Writer) { backupTable(w, row) })
}

func runBackupRestore(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	if !a.Backup.Restore(cmd.Context(), args[0]) {
		exitErr("restore", fmt.Errorf("snapshot %s could not be restored", args[0]))
	}
	fmt.Printf(`{"ok":true,"restored":%q}`+"\n", args[0])
}

func runBackupRm(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	ok, err := a.Backup.Delete(cmd.Context(), args[0])
	if err != nil {
		exitErr("delete backup", err)
	}
	fmt.Printf(`{"ok":%t,"deleted":%q}`+"\n", ok, args[0])
}

func runBackupSettings(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	a := openApp()
	defer a.Close()

	s := a.Backup.Settings(cmd.Context())
	if f.Changed("enabled") || f.Changed("frequency") || f.Changed("max") {
		if f.Changed("enabled") {
			s.Enabled, _ = f.GetBool("enabled")
		}
		if f.Changed("frequency") {
			v, _ := f.GetString("frequency")
			s.Frequency = model.BackupFrequency(v)
		}
		if f.Changed("max") {
			s.MaxBackups, _ = f.GetInt("max")
		}
		if err := a.Backup.SaveSettings(cmd.Context(), s); err != nil {
			exitErr("backup settings", err)
		}
		s = a.Backup.Settings(cmd.Context())
	}
	output(s, nil)
}
