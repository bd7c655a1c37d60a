// Package base provides the connection handling shared by all relay
// transports, independent of the network protocol that carries the messages.
// Protocol specific packages (ws, tcp) only supply connectors that turn
// network connections into message connections.
//
// Key Components:
//
//   - IMessageConn: A message oriented connection. WebSocket frames and
//     length-prefixed TCP frames are both exposed through it.
//
//   - ServeConn: The connection handler. It reads messages in a loop and hands
//     each one to the registered handler in its own goroutine, optionally
//     bounded per connection. Writes are serialized. After the connection is
//     closed, replies of messages that are still in flight are discarded.
//
//   - IServerConnector/IClientConnector: Interfaces for protocol-specific
//     operations that allow extending the base transport with different
//     network protocols.
//
//   - serverTransport: Binds the listening socket, reports readiness and runs
//     the connector until the server context is done.
//
//   - clientTransport: A single connection client. Because relay messages carry
//     no request id, request/reply pairs are serialized on the connection. A
//     failed request closes the connection; the next request reconnects.
//     Requests are only retried when they never reached the connection.
//
// Frame Format (tcp):
//
//	+----------------------+----------------------+
//	| length (4 bytes, BE) | payload (length)     |
//	+----------------------+----------------------+
//
// Thread Safety:
//
//	All public methods are thread-safe. The server creates a dedicated
//	goroutine for each connection and one for each message in flight.
package base
