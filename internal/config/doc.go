// Package config handles loading and parsing nodedeck configuration files.
//
// # Overview
//
// This package reads nodedeck's TOML configuration to discover the monitored
// sources, the agent API endpoint, and the tuning knobs for the tail
// pipeline.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/nodedeck/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/nodedeck/config.toml
//   - Agent API endpoint: 127.0.0.1:7580
//   - HTTP API bind: 127.0.0.1:7581
//   - Poll interval: 500ms
//   - Fetch window: 200 lines
//   - Buffer capacity: 10000 lines per source
//   - Log file: ~/.local/state/nodedeck/nodedeck.log
//
// # TOML Format
//
// Example config.toml:
//
//	agent_bind = "127.0.0.1:7580"
//	http_bind = "127.0.0.1:7581"
//	poll_interval_ms = 500
//	buffer_capacity = 10000
//
//	[[sources]]
//	name = "kaspad"
//	type = "kaspad"
//	log_path = "~/.kaspad/logs/kaspad.log"
//
//	[[sources]]
//	name = "bridge"
//	type = "viaduct"
//
// A source with a log_path is tailed from disk; one without is fetched
// through the agent API. Every source needs a name and a type; the type
// selects the metric patterns applied to its lines.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//   - Sources missing a name or type
//
// Missing config files are NOT an error - defaults are used instead, which
// yields a deck with no sources until one is configured.
package config
