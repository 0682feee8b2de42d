package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rgygrj9sjw-svg/Claims/internal/sanitize"
)

var scanCmd = &cobra.Command{
	Use:   "scan [text]",
	Short: "Report which PII categories text contains, without redacting",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "scan")
	defer span.End()

	text, err := textFromArgsOrStdin(args)
	if err != nil {
		return err
	}

	scanner, err := sanitize.NewScanner()
	if err != nil {
		return fmt.Errorf("building PII scanner: %w", err)
	}

	hasPII, types := scanner.ContainsPII(ctx, text)
	if types == nil {
		types = []string{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"has_pii": hasPII,
		"types":   types,
	})
}
