package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"connbreaker/internal/breaker"
	"connbreaker/internal/log"
	"connbreaker/internal/pubsub"
)

var listenTarget string

var listenCmd = &cobra.Command{
	Use:   "listen --target <pid|name> [--hotkey combo]",
	Short: "Run headless: close the target's connections on every hotkey press",
	Long: `Select a target and register the global hotkey without the terminal UI.
Outcomes are printed until interrupted with Ctrl+C.`,
	SilenceUsage: true,
	RunE:         runListen,
}

func init() {
	listenCmd.Flags().StringVarP(&listenTarget, "target", "t", "",
		"target process by PID or name")
	_ = listenCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	combo := startupHotkey()
	if combo == "" {
		return errors.New("no hotkey configured: pass --hotkey or set hotkey in the config file")
	}

	release, err := guardInteractive(skipAdminCheck)
	if err != nil {
		return err
	}
	defer release()

	a, err := newApp(cfg, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	target, err := a.selectTarget(ctx, listenTarget)
	if err != nil {
		return err
	}

	events := a.breaker.Broker().Subscribe(ctx)

	binding, err := a.registerHotkey(combo)
	if err != nil {
		return err
	}

	if err := a.watchConfig(ctx, viper.GetViper()); err != nil {
		log.Warn(log.CatWatcher, "config watching disabled", "error", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Press %s to close all connections of %s (%d). Ctrl+C stops.\n",
		binding.Display(), target.Name, target.PID)

	printOutcomes(ctx, out, events)
	return nil
}

// printOutcomes writes one line per finished outcome until ctx ends or the
// channel closes.
func printOutcomes(ctx context.Context, w io.Writer, events <-chan pubsub.Event[breaker.Outcome]) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != pubsub.OutcomeEvent {
				continue
			}
			o := ev.Payload
			_, _ = fmt.Fprintf(w, "%s [%s] %s\n", o.At.Format("15:04:05"), o.Source, o.Result.Summary())
		}
	}
}
