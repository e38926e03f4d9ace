// Package cliconfig provides configuration types and loading for the credd CLI.
//
// It implements a layered configuration system with the following precedence
// (highest to lowest):
//
//  1. Command-line flags
//  2. Environment variables (CREDD_* prefix)
//  3. Local config file (.creddrc.yaml in the current directory)
//  4. Global config file (~/.config/credd/config.yaml)
//  5. Default values
//
// Every value records which layer it came from in CLIConfig.Sources, keyed by
// the field's YAML name; `credd config` prints the map so operators can see
// why a setting has the value it does.
//
// The API key for admin requests is resolved separately by GetAPIKey: the
// CREDD_API_KEY environment variable wins, then the key file the server
// writes under the XDG data directory.
package cliconfig
