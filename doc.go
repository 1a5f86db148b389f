// Package main implements connbreaker, a terminal application that closes
// every network connection of a chosen process when a global hotkey is
// pressed. The process itself keeps running.
//
// # Architecture
//
// The codebase is organized into the following packages:
//
//   - cmd: cobra commands (the TUI, listen, kill, ps) and component wiring
//   - internal/procdir: process list snapshots per platform
//   - internal/selection: the current target, shared between UI and hotkey
//   - internal/terminator: runs the connection-closing utility
//   - internal/breaker: serializes triggers and publishes outcomes
//   - internal/hotkey: combination parsing and global registration
//   - internal/ui: Bubble Tea model, path formatters and styles
//   - internal/config: viper/yaml configuration and persistence
//   - internal/watcher: config file change detection
//   - internal/platform: elevation check and single-instance lock
//
// # Extensibility
//
// Custom path formatters for the process picker can be registered using
// ui.RegisterFormatter:
//
//	ui.RegisterFormatter(&MyCustomFormatter{})
package main
