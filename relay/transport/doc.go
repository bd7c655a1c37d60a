// Package transport defines the interfaces between the relay and the network.
// It provides a common contract that all transport implementations must
// fulfill, so the relay server and client do not depend on the protocol that
// carries the messages.
//
// Key Components:
//
//   - IRelayServerTransport: Interface for server-side transports. A transport
//     accepts client connections and calls the registered ServerHandleFunc for
//     every message. Replies are written back on the connection the message
//     arrived on.
//
//   - IHTTPMounter: Optional interface of HTTP based server transports, used to
//     serve the status endpoints on the same port as the relay.
//
//   - IRelayClientTransport: Interface for client-side transports used by the
//     relay client and the CLI.
//
// Implementations live in the subpackages ws (WebSocket, the default) and tcp
// (length-framed TCP). Both build on the connection handling in package base.
package transport
