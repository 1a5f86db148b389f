package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"connbreaker/internal/config"
	"connbreaker/internal/log"
	"connbreaker/internal/ui"
)

func init() {
	// Query the terminal background before Bubble Tea owns stdin, otherwise
	// the OSC 11 response can leak into the input loop.
	_ = lipgloss.HasDarkBackground()
}

var (
	version    = "dev"
	cfgFile    string
	cfg        config.Config
	configPath string
	configErr  error
	logCleanup func()

	skipAdminCheck bool
	rootTarget     string
	hotkeyFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "connbreaker",
	Short: "Close a process's network connections with a global hotkey",
	Long: `connbreaker lets you pick a running process and close all of its
network connections on a global hotkey press, using an external
connection-closing utility (NirSoft CurrPorts by default).`,
	Version:           version,
	PersistentPreRunE: setup,
	RunE:              runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./.connbreaker/config.yaml or <user config dir>/connbreaker/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false,
		"write a debug log (also enabled by "+log.EnvDebug+")")
	rootCmd.PersistentFlags().StringVar(&hotkeyFlag, "hotkey", "",
		"global hotkey at startup, e.g. ctrl+alt+k (overrides the config file)")
	rootCmd.PersistentFlags().String("tool", "",
		"path to the connection-closing utility")
	rootCmd.PersistentFlags().BoolVar(&skipAdminCheck, "skip-admin-check", false,
		"start without administrator privileges")
	rootCmd.Flags().StringVarP(&rootTarget, "target", "t", "",
		"preselect a target by PID or name")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("tool.path", rootCmd.PersistentFlags().Lookup("tool"))
}

func initConfig() {
	path, exists := config.Resolve(cfgFile)
	loaded, err := config.Load(viper.GetViper(), path, exists)
	if err != nil {
		configErr = err
		return
	}
	cfg = loaded
	configPath = path
}

// startupHotkey is the combination registered at launch. --hotkey is not
// bound into viper so that config reloads never bring it back after the user
// picked another combination.
func startupHotkey() string {
	if hotkeyFlag != "" {
		return hotkeyFlag
	}
	return cfg.Hotkey
}

// setup fails on config errors and starts debug logging.
func setup(cmd *cobra.Command, args []string) error {
	if configErr != nil {
		return configErr
	}
	if !cfg.Debug && !log.DebugRequested() {
		return nil
	}
	cleanup, err := log.Init(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("initializing debug log: %w", err)
	}
	logCleanup = cleanup
	log.Info(log.CatConfig, "connbreaker starting", "version", version, "config", configPath)
	return nil
}

func runApp(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var notice string
	if combo := startupHotkey(); combo != "" {
		if _, err := a.registerHotkey(combo); err != nil {
			notice = fmt.Sprintf("Hotkey %s not registered: %v", combo, err)
		}
	}

	if err := a.watchConfig(ctx, viper.GetViper()); err != nil {
		log.Warn(log.CatWatcher, "config watching disabled", "error", err)
	}

	model := ui.NewModel(ctx, ui.Options{
		Directory:       a.procs,
		Selection:       a.sel,
		Breaker:         a.breaker,
		Outcomes:        a.breaker.Broker(),
		Hotkeys:         a.hotkeys,
		SaveHotkey:      func(c string) error { return config.SaveHotkey(configPath, c) },
		UniqueNames:     cfg.Picker.UniqueNames,
		RefreshInterval: cfg.Picker.RefreshInterval,
		InitialTarget:   rootTarget,
		Notice:          notice,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	defer func() {
		if logCleanup != nil {
			logCleanup()
		}
	}()
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
