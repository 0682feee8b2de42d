package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rgygrj9sjw-svg/Claims/internal/claim"
	"github.com/rgygrj9sjw-svg/Claims/internal/moderate"
	"github.com/rgygrj9sjw-svg/Claims/internal/sanitize"
)

var (
	moderateThreshold     int
	moderateShowSanitized bool
)

var moderateCmd = &cobra.Command{
	Use:   "moderate [submission.json]",
	Short: "Run the full content-safety pipeline over a submission file",
	Long: `Reads a claim submission as JSON (from a file or stdin), redacts all
free-text fields, moderates the sanitized text, and prints the resulting
publication decision. Nothing is persisted; this is a dry run of exactly what
the serve endpoint does at intake.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModerate,
}

func init() {
	moderateCmd.Flags().IntVar(&moderateThreshold, "keyword-threshold", moderate.DefaultKeywordReviewThreshold,
		"distinct non-accusatory keyword count that triggers review")
	moderateCmd.Flags().BoolVar(&moderateShowSanitized, "show-sanitized", false,
		"print the sanitized submission instead of the decision")
	rootCmd.AddCommand(moderateCmd)
}

func runModerate(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "moderate")
	defer span.End()

	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading submission file: %w", err)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}

	var sub claim.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return fmt.Errorf("parsing submission JSON: %w", err)
	}
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("invalid submission: %w", err)
	}

	scanner, err := sanitize.NewScanner()
	if err != nil {
		return fmt.Errorf("building PII scanner: %w", err)
	}
	moderator, err := moderate.NewModerator(
		moderate.WithKeywordReviewThreshold(moderateThreshold),
	)
	if err != nil {
		return fmt.Errorf("building moderator: %w", err)
	}

	decision := claim.NewPipeline(scanner, moderator).Process(ctx, &sub)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if moderateShowSanitized {
		return enc.Encode(sub)
	}
	return enc.Encode(decision)
}
