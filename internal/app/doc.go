// Package app provides the orchestration layer for the nodedeck application.
//
// # Overview
//
// This package wires together configuration, the tail coordinator, the HTTP
// API and the UI to create the complete nodedeck experience. It serves as
// the composition root where all dependencies are initialized and connected.
//
// # Architecture
//
// The app package follows a simple initialization pattern:
//
//  1. Load nodedeck configuration from ~/.config/nodedeck/config.toml
//  2. Open the file-backed zap logger (the UI owns the terminal)
//  3. Build the source registry and the file/agent source mux
//  4. Create the tail coordinator and autostart every configured source
//  5. Serve the HTTP API in the background
//  6. Start the TUI and block until user exits or context cancels
//
// In headless mode step 6 is skipped and Run blocks on the HTTP server
// instead, which turns nodedeck into a plain log/metrics API for remote
// dashboards.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file invalid
//   - Log file or directory cannot be created
//   - Agent client initialization failure
//
// Recoverable conditions (handled inside the coordinator):
//   - A source being unreachable, which marks it stale
//   - Individual tail autostart failures, which are logged and skipped
//
// # Configuration
//
// The Options struct allows callers to customize:
//
//   - ConfigPath: Path to config.toml (default: ~/.config/nodedeck/config.toml)
//   - PrefsPath: Path to prefs.toml (default: ~/.config/nodedeck/prefs.toml)
//   - Headless: Serve the HTTP API without the terminal UI
//
// # Design Rationale
//
// This package intentionally keeps orchestration logic minimal and focused.
// Business logic lives in domain packages (tail, logfmt, metrics, source,
// server, ui). The app package simply connects these pieces with sensible
// defaults for the single-operator monitoring use case.
package app
