// Package cmd implements the command-line interface of the dFeed
// activity-feed engine. It provides a hierarchical command structure
// for inspecting and benchmarking a feed deployment.
//
// The package is organized into several subpackages:
//
//   - bench: Commands for benchmarking the fanout pipeline
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dfeed -help for a list of all commands.
package cmd
