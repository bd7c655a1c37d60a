// Package server implements the relay server: it accepts client connections
// through a transport, decodes every message into a command, executes it
// against the single shared store and writes the reply back.
//
// Key Components:
//
//   - RelayServer: Owns the store handle, the transport and the serializer.
//     Serve connects the store (the first attempt is synchronous, later ones run
//     in the store's own supervisor), registers the message handler, mounts the
//     status endpoints and runs the transport until the context is done. Ready
//     is closed once the listening socket is bound.
//
//   - IRelayServerAdapter: The command dispatcher. The store adapter
//     (iStoreServerAdapterImpl) validates every command before it makes exactly
//     one store call, and maps store errors to generic client messages.
//
//   - Status endpoints: /healthz (listening), /readyz (store connected) and
//     /metrics (Prometheus text format).
//
// Message Handling:
//
//	message --decode--> Command --adapter--> store --> Reply --encode--> message
//
//	Messages that cannot be decoded are dropped: the client gets no reply and
//	the connection stays open. Validation errors and store errors are replied
//	as {"error": "..."}.
package server
