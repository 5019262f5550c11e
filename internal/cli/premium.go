package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "premium",
		Short: "Show or change the premium subscription",
		Run:   runPremiumStatus,
	}

	activate := &cobra.Command{
		Use:       "activate <monthly|yearly|lifetime>",
		Short:     "Record a completed subscription purchase",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"monthly", "yearly", "lifetime"},
		Run:       runPremiumActivate,
	}

	cancel := &cobra.Command{
		Use:   "cancel",
		Short: "Drop premium privileges",
		Run:   runPremiumCancel,
	}

	cmd.AddCommand(activate, cancel)
	RootCmd.AddCommand(cmd)
}

type premiumReport struct {
	model.PremiumStatus
	Active bool `json:"active"`
}

func printPremium(r premiumReport) {
	output(r, func(w io.Writer) {
		if !r.IsPremium {
			fmt.Fprintln(w, "free plan")
			return
		}
		fmt.Fprintf(w, "premium (%s), active: %t", r.SubscriptionType, r.Active)
		if r.ExpiryDate != nil {
			fmt.Fprintf(w, ", expires %s", r.ExpiryDate.Local().Format("2006-01-02"))
		}
		fmt.Fprintln(w)
	})
}

func runPremiumStatus(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	printPremium(premiumReport{
		PremiumStatus: a.Premium.Status(cmd.Context()),
		Active:        a.Premium.IsActive(cmd.Context()),
	})
}

func runPremiumActivate(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	st, err := a.Premium.Activate(cmd.Context(), model.SubscriptionType(args[0]))
	if err != nil {
		exitErr("activate premium", err)
	}
	printPremium(premiumReport{PremiumStatus: st, Active: a.Premium.IsActive(cmd.Context())})
}

func runPremiumCancel(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	a.Premium.Cancel(cmd.Context())
	printPremium(premiumReport{PremiumStatus: a.Premium.Status(cmd.Context())})
}
