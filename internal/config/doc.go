// Package config loads the ludex client configuration.
//
// # Configuration Discovery
//
// Load resolves settings in this order, later steps winning:
//
//  1. Built-in defaults
//  2. The TOML file (explicit path, or ~/.config/ludex/config.toml)
//  3. LUDEX_* environment variables
//
// A missing config file is not an error. Empty strings in the file are
// treated as unset.
//
// # Default Values
//
//   - api_url: http://127.0.0.1:8000/api
//   - token_file: ~/.local/share/ludex/token.json
//   - log_file: ~/.local/share/ludex/ludex.log
//   - log_level: info
//   - refresh_seconds: 0 (background refresh off)
//   - requests_per_second: 8 (0 disables the client limiter)
//   - mutation_retries: 2
//
// # TOML Format
//
//	api_url = "https://games.example.com/api"
//	token_file = "~/.local/share/ludex/token.json"
//	log_file = "~/.local/share/ludex/ludex.log"
//	log_level = "debug"
//	refresh_seconds = 60
//	requests_per_second = 4
//	mutation_retries = 3
//
// # Environment
//
// LUDEX_API_URL, LUDEX_TOKEN_FILE, LUDEX_LOG_FILE, LUDEX_LOG_LEVEL,
// LUDEX_REFRESH_SECONDS, LUDEX_RPS and LUDEX_MUTATION_RETRIES override the
// matching file keys. They are parsed with caarlos0/env.
//
// # Path Expansion
//
// token_file and log_file accept ~ and relative paths; both are expanded to
// absolute paths. api_url is only trimmed; catalog.ParseBaseURL validates it.
//
// # Error Handling
//
// Load returns errors for unreadable or malformed files, malformed
// environment values, negative refresh_seconds or mutation_retries, and
// unknown log levels.
package config
