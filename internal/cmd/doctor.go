package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rgygrj9sjw-svg/Claims/internal/doctor"
)

var (
	doctorJSON     bool
	doctorSkipPort bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight checks against the current configuration",
	Long: `Checks the data directory, databases, signing key, admin keys, and the
embedded detection patterns, and reports pass/warn/fail per check. Exits
non-zero when any check fails.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "emit the report as JSON")
	doctorCmd.Flags().BoolVar(&doctorSkipPort, "skip-port-check", false, "skip the listen probe")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "doctor")
	defer span.End()

	report := doctor.Run(ctx, doctor.Options{SkipPortProbe: doctorSkipPort})

	if doctorJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, c := range report.Checks {
			marker := map[string]string{"pass": "ok  ", "warn": "warn", "fail": "FAIL"}[c.Status]
			fmt.Printf("%s  %-20s %s\n", marker, c.Name, c.Message)
			if c.Fix != "" && c.Status != "pass" {
				fmt.Printf("      fix: %s\n", c.Fix)
			}
		}
		fmt.Printf("\n%d passed, %d warnings, %d failed\n",
			report.Summary.Pass, report.Summary.Warn, report.Summary.Fail)
	}

	if report.Status == "fail" {
		return fmt.Errorf("doctor found %d failing check(s)", report.Summary.Fail)
	}
	return nil
}
