// -- cmd/health.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/tourguard-cli/internal/observability"
	"go.uber.org/zap"
)

var (
	healthURL      string
	healthHeadless bool
	healthJSON     bool
)

var healthCmd = &cobra.Command{
	Use:   "health <tours.json>",
	Short: "Run the health check pipeline over tour definitions",
	Long: `Health scores each tour through the staged pipeline: configuration,
element availability, accessibility, performance, and navigation flow.
With --url the element stages run against a live page; without it they are
skipped and noted on the result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := loadTours(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		eng, err := buildEngine(ctx, healthURL, healthHeadless)
		if err != nil {
			return err
		}
		defer eng.close()

		results, err := eng.checker.CheckMultipleTours(ctx, defs)
		if err != nil {
			return err
		}

		if st, closeStore, err := openStore(ctx); err != nil {
			return err
		} else if st != nil {
			defer closeStore()
			if err := st.SaveHealthResults(ctx, eng.runID, results); err != nil {
				observability.GetLogger().Warn("Failed to persist health results", zap.Error(err))
			}
		}

		if healthJSON {
			return printJSON(cmd, results)
		}

		unhealthy := 0
		for _, hr := range results {
			state := "healthy"
			if !hr.IsHealthy {
				state = "UNHEALTHY"
				unhealthy++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-30s score %3d  %s  (%d issues, %d warnings)\n",
				hr.TourID, hr.Score, state, len(hr.Issues), len(hr.Warnings))
			for _, issue := range hr.Issues {
				fmt.Fprintf(cmd.OutOrStdout(), "    [%s/%s] %s\n", issue.Severity, issue.Category, issue.Message)
			}
			for _, warn := range hr.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "    [%s/%s] %s\n", warn.Impact, warn.Category, warn.Message)
			}
		}
		if unhealthy > 0 {
			return fmt.Errorf("%d of %d tours unhealthy", unhealthy, len(results))
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthURL, "url", "", "page URL to resolve elements against")
	healthCmd.Flags().BoolVar(&healthHeadless, "headless", true, "run the browser headless")
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "emit machine-readable output")
	rootCmd.AddCommand(healthCmd)
}
