// -- cmd/deploy.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xkilldash9x/tourguard-cli/api/schemas"
	"github.com/xkilldash9x/tourguard-cli/internal/deploy"
	"github.com/xkilldash9x/tourguard-cli/internal/observability"
	"go.uber.org/zap"
)

var (
	deployURL      string
	deployHeadless bool
	deployJSON     bool
	deployEnv      string
	deployStrict   bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy <tours.json>",
	Short: "Evaluate the deployment gate for a batch of tours",
	Long: `Deploy runs the full gate: structural validation, per-tour health,
security heuristics, simulated performance and load, and cross-browser
selector checks. The command exits non-zero when the batch is blocked.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := loadTours(args[0])
		if err != nil {
			return err
		}

		if deployEnv != "" {
			env := schemas.Environment(deployEnv)
			if !env.IsValid() {
				return fmt.Errorf("unknown environment %q", deployEnv)
			}
			engineCfg.SetDeployEnvironment(env)
		}
		if cmd.Flags().Changed("strict") {
			engineCfg.SetDeployStrict(deployStrict)
		}

		ctx := cmd.Context()
		eng, err := buildEngine(ctx, deployURL, deployHeadless)
		if err != nil {
			return err
		}
		defer eng.close()

		validator := deploy.NewValidator(eng.checker, engineCfg.Deploy(), observability.GetLogger())
		result, err := validator.ValidateForDeployment(ctx, defs)
		if err != nil {
			return err
		}

		if st, closeStore, err := openStore(ctx); err != nil {
			return err
		} else if st != nil {
			defer closeStore()
			if err := st.SaveDeploymentResult(ctx, eng.runID, result); err != nil {
				observability.GetLogger().Warn("Failed to persist deployment result", zap.Error(err))
			}
		}

		if deployJSON {
			if err := printJSON(cmd, result); err != nil {
				return err
			}
		} else {
			fmt.Fprint(cmd.OutOrStdout(), deploy.RenderReport(result))
		}

		if !result.CanDeploy {
			return fmt.Errorf("deployment blocked: %d blocker(s)", len(result.Blockers))
		}
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployURL, "url", "", "page URL to resolve elements against")
	deployCmd.Flags().BoolVar(&deployHeadless, "headless", true, "run the browser headless")
	deployCmd.Flags().BoolVar(&deployJSON, "json", false, "emit machine-readable output")
	deployCmd.Flags().StringVar(&deployEnv, "env", "", "target environment (development, staging, production)")
	deployCmd.Flags().BoolVar(&deployStrict, "strict", false, "enable strict mode")
	rootCmd.AddCommand(deployCmd)
}
