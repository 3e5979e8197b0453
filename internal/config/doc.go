// Package config loads, normalizes, and validates Sift configuration.
//
// Load resolves the file from an explicit path, ~/.config/sift/config.toml,
// or ./sift.toml (in that order), applies defaults and environment
// fallbacks for the provider API key, and validates the result.
// CreateSample writes the embedded sample configuration.
package config
