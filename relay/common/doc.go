// Package common provides the data structures and utilities shared by the
// relay server, its transports and the relay client.
//
// The package focuses on:
//   - The JSON wire protocol spoken between clients and the relay
//   - Configuration structures for server and client components
//   - Custom logging implementation integrated with Dragonboat's logger facade
//
// Key Components:
//
//   - Command: A decoded client request ({"action", "key", "value", "query",
//     "pattern"}). The value may be any JSON value; ValueText converts it to the
//     text that is stored.
//
//   - Reply: The response to exactly one command. Depending on its ReplyType it
//     is encoded as {"key", "value"}, {"results": [...]} or {"error"}. The error
//     messages sent to clients are the ErrMsg* constants.
//
//   - ServerConfig: Configuration of the relay server, including the transport,
//     the backing store and its reconnect discipline. Validate reports every
//     problem as an error wrapping ErrStartupConfig. ToRedisOptions converts the
//     store settings for the rstore package.
//
//   - ClientConfig: Configuration of the relay client (endpoint, timeout, retries).
//
//   - Logger: Custom logger that plugs into Dragonboat's logger package, so every
//     package obtains its logger with logger.GetLogger(name).
package common
