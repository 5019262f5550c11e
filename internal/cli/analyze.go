package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/analysis"
	"github.com/rcliao/allergy-diary/internal/model"
)

var analysisKinds = map[string]analysis.Kind{
	"triggers": analysis.TriggerAnalysis,
	"meals":    analysis.MealSuggestion,
	"symptoms": analysis.SymptomAdvice,
}

func init() {
	cmd := &cobra.Command{
		Use:   "analyze [extra context]",
		Short: "Ask the configured language model about the diary",
		Long: "Ask the configured language model for possible food triggers (default), " +
			"safe meal ideas or symptom advice. Counts against the daily export limit. " +
			"This is not a medical diagnosis.",
		Run: runAnalyze,
	}
	cmd.Flags().StringP("profile", "p", "", "Only use entries of this profile")
	cmd.Flags().StringP("kind", "k", "triggers", "Analysis: triggers, meals, symptoms")

	latest := &cobra.Command{
		Use:   "latest",
		Short: "Show the last stored trigger analysis",
		Run:   runAnalyzeLatest,
	}
	forget := &cobra.Command{
		Use:   "clear",
		Short: "Forget the stored trigger analysis",
		Run:   runAnalyzeClear,
	}
	cmd.AddCommand(latest, forget)

	chat := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask a free-form question",
		Run:   runChat,
	}

	RootCmd.AddCommand(cmd, chat)
}

func printSuggestion(s *model.AiSuggestion) {
	output(s, func(w io.Writer) {
		if s.Response != "" {
			fmt.Fprintln(w, s.Response)
		}
		if len(s.PossibleTriggers) > 0 {
			fmt.Fprintln(w, "possible triggers:", strings.Join(s.PossibleTriggers, ", "))
		}
		if s.Explanation != "" {
			fmt.Fprintln(w, s.Explanation)
		}
		for _, tip := range s.Suggestions {
			fmt.Fprintln(w, "-", tip)
		}
	})
}

func analysisFailed(err error) {
	if errors.Is(err, analysis.ErrDisabled) {
		exitErr("analyze", fmt.Errorf("%w (set llm.provider in the config or LLM_PROVIDER)", err))
	}
	exitErr("analyze", err)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	profile, _ := cmd.Flags().GetString("profile")
	kindName, _ := cmd.Flags().GetString("kind")

	kind, ok := analysisKinds[kindName]
	if !ok {
		exitErr("analyze", fmt.Errorf("unknown kind %q (valid: triggers, meals, symptoms)", kindName))
	}
	extra := strings.Join(args, " ")

	a := openApp()
	defer a.Close()

	var (
		out *model.AiSuggestion
		err error
	)
	if kind == analysis.TriggerAnalysis {
		out, err = a.Analysis.SuggestTriggers(cmd.Context(), profile, extra)
	} else {
		out, err = a.Analysis.Analyze(cmd.Context(), analysis.Request{Kind: kind, ProfileID: profile, Context: extra})
	}
	if err != nil {
		analysisFailed(err)
	}
	if out == nil {
		limitReached(a, "exports")
	}
	printSuggestion(out)
}

func runAnalyzeLatest(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	s := a.Analysis.Latest(cmd.Context())
	if s == nil {
		fmt.Fprintln(os.Stderr, "no stored analysis")
		os.Exit(1)
	}
	printSuggestion(s)
}

func runAnalyzeClear(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	a.Analysis.Clear(cmd.Context())
	fmt.Println(`{"ok":true}`)
}

func runChat(cmd *cobra.Command, args []string) {
	msg, err := argsOrStdin(args)
	if err != nil {
		exitErr("read stdin", err)
	}

	a := openApp()
	defer a.Close()

	out, err := a.Analysis.Chat(cmd.Context(), msg)
	if err != nil {
		analysisFailed(err)
	}
	if out == nil {
		limitReached(a, "exports")
	}
	printSuggestion(out)
}
