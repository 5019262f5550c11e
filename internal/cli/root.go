// Package cli implements the allergy-diary CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/app"
	"github.com/rcliao/allergy-diary/internal/config"
)

var (
	dbPath     string
	formatFlag string
	configPath string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "allergy-diary",
	Short: "Food and symptom diary for allergies",
	Long: "Log meals and symptoms for one or more profiles, find possible food triggers, " +
		"and keep local backups. SQLite-backed, single binary.",
	Version: app.BuildVersion(),
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $ALLERGY_DIARY_DB or ~/.allergy-diary/diary.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $ALLERGY_DIARY_CONFIG or ./allergy-diary.yaml)")
}

func openApp() *app.App {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	return app.New(cfg, app.NewLogger(cfg.Log))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// output prints v as indented JSON, or calls text when --format text is set
// and the command has a text rendering.
func output(v any, text func(w io.Writer)) {
	if strings.EqualFold(formatFlag, "text") && text != nil {
		text(os.Stdout)
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// limitReached reports a rejected quota check on stderr, closes a and exits
// with 2.
func limitReached(a *app.App, what string) {
	a.Close()
	fmt.Fprintf(os.Stderr, "daily limit reached: %s (see `allergy-diary usage`, or upgrade to premium)\n", what)
	os.Exit(2)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// argsOrStdin joins args, or reads piped stdin when there are none.
func argsOrStdin(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return "", nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
