package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rgygrj9sjw-svg/Claims/internal/sanitize"
)

var redactCategoryFile string

var redactCmd = &cobra.Command{
	Use:   "redact [text]",
	Short: "Redact PII from text (reads stdin when no argument is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRedact,
}

func init() {
	redactCmd.Flags().StringVar(&redactCategoryFile, "categories", "", "PII category override YAML file")
	rootCmd.AddCommand(redactCmd)
}

func runRedact(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "redact")
	defer span.End()

	text, err := textFromArgsOrStdin(args)
	if err != nil {
		return err
	}

	var opts []sanitize.Option
	if redactCategoryFile != "" {
		opts = append(opts, sanitize.WithCategoryFile(redactCategoryFile))
	}
	scanner, err := sanitize.NewScanner(opts...)
	if err != nil {
		return fmt.Errorf("building PII scanner: %w", err)
	}

	fmt.Println(scanner.Redact(ctx, text))
	return nil
}

// textFromArgsOrStdin returns the single positional argument, or the whole of
// stdin when no argument was given.
func textFromArgsOrStdin(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
