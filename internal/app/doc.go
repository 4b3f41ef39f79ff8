// Package app wires stores and services into the dependency graph the CLI
// runs on, and loads runtime configuration from flags and an optional TOML
// file in the home directory.
package app
