package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"connbreaker/internal/procdir"
)

var psAll bool

var psCmd = &cobra.Command{
	Use:   "ps [filter]",
	Short: "List running processes that can be targeted",
	Long: `List a snapshot of running processes. With a filter, only processes whose
PID equals it or whose name contains it are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPs,
}

func init() {
	psCmd.Flags().BoolVarP(&psAll, "all", "a", false,
		"show every process instead of one row per executable name")
	rootCmd.AddCommand(psCmd)
}

func runPs(cmd *cobra.Command, args []string) error {
	procs := newDirectory(procdir.Options{SkipSystem: cfg.Picker.SkipSystem})
	entries, err := procs.List(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) == 1 {
		entries = procdir.Find(entries, args[0])
	} else if psAll || !cfg.Picker.UniqueNames {
		procdir.SortByName(entries)
	} else {
		entries = procdir.Dedupe(entries)
	}

	printEntries(cmd.OutOrStdout(), entries)
	return nil
}

func printEntries(w io.Writer, entries []procdir.Entry) {
	_, _ = fmt.Fprintf(w, "%-8s %-32s %s\n", "PID", "NAME", "PATH")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%-8d %-32s %s\n", e.PID, e.Name, e.Path)
	}
}
