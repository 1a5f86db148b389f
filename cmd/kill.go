package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"connbreaker/internal/breaker"
)

// ErrTerminationFailed makes the kill command exit non-zero.
var ErrTerminationFailed = errors.New("termination failed")

var killCmd = &cobra.Command{
	Use:   "kill <pid|name>",
	Short: "Close all network connections of a process once",
	Long: `Resolve the process by PID or name and invoke the connection-closing
utility once. The process itself keeps running.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runKill,
}

func init() {
	rootCmd.AddCommand(killCmd)
}

func runKill(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	target, err := a.selectTarget(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := a.breaker.Trigger(cmd.Context(), breaker.SourceCLI)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d): %s\n", target.Name, target.PID, out.Result.Summary())
	if out.Result.Failed {
		return fmt.Errorf("%w: %w", ErrTerminationFailed, out.Result.Err)
	}
	return nil
}
