// Package metrics records relay activity with VictoriaMetrics/metrics and
// exposes it in the Prometheus text format.
//
// All metrics live in the default VictoriaMetrics set, so every relay server in
// a process reports into the same series:
//
//	kvrelay_connections_total                   accepted client connections
//	kvrelay_connections_active                  currently open client connections
//	kvrelay_commands_total{action}              processed commands per action
//	kvrelay_command_errors_total{kind}          protocol, validation and store errors
//	kvrelay_command_duration_seconds{action}    handling latency histogram
//	kvrelay_store_state                         0 reconnecting, 1 connected, 2 failed
//	kvrelay_store_reconnects_total              connections to the store that were lost
package metrics
