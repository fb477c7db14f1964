// File: cmd/run.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/formpilot/formpilot/api/schemas"
	"github.com/formpilot/formpilot/internal/observability"
)

// newRunCmd creates the one-shot `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [message...]",
		Short: "Execute a single natural-language instruction and exit",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			comps, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Shutdown()

			comps.Session.SetStepObserver(func(so schemas.StepOutcome) {
				fmt.Printf("  %s: %s\n", so.Step.Describe(), so.Outcome.String())
			})

			message := strings.Join(args, " ")
			reply := comps.Session.Ask(ctx, message)
			fmt.Println(reply.Content)

			if output, _ := cmd.Flags().GetString("output"); output != "" {
				return exportSession(comps, cfg.Export.Format, output)
			}
			return nil
		},
	}

	runCmd.Flags().StringP("output", "o", "", "Write a session report to this path after the run.")
	return runCmd
}
