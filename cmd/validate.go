// -- cmd/validate.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/tourguard-cli/internal/observability"
	"github.com/xkilldash9x/tourguard-cli/internal/tour"
	"go.uber.org/zap"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate <tours.json>",
	Short: "Structurally validate tour definitions",
	Long: `Validate checks tour definitions against the authoring rules: required
fields, known enum values, safe selectors, trigger and condition coherence,
and duplicate IDs across the batch. Validation is static; no page is loaded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := loadTours(args[0])
		if err != nil {
			return err
		}

		_, err = tour.ValidateMany(defs)
		if validateJSON {
			out := map[string]any{"valid": err == nil, "tours": len(defs)}
			if err != nil {
				out["error"] = err
			}
			return printJSON(cmd, out)
		}

		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		observability.GetLogger().Info("All tours valid", zap.Int("tours", len(defs)))
		fmt.Fprintf(cmd.OutOrStdout(), "%d tour(s) valid\n", len(defs))
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "emit machine-readable output")
	rootCmd.AddCommand(validateCmd)
}
