// Package cmd implements the command-line interface of kvRelay. It provides
// a hierarchical command structure with operations for running the relay and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Command for starting and configuring the relay server
//   - kv: Client commands (set, get, del, incr, search) and a benchmark (perf)
//   - util: Shared utilities for configuration and output (internal use)
//
// Every flag can also be set as an environment variable KVRELAY_<FLAG>
// (e.g. KVRELAY_REDIS_HOST), .env and .env.local are loaded on start.
//
// See kvrelay -help for a list of all commands.
package cmd
