// Package ws implements the WebSocket transport of the relay, the transport
// browsers use. It is built on gorilla/websocket on top of net/http.
//
// Every text or binary frame carries one JSON command, every reply is sent as
// a text frame. The server upgrades requests on any path, except the paths
// mounted through the IHTTPMounter interface (the status endpoints), and:
//
//   - checks the Origin header against the configured allow-list
//   - limits the size of incoming messages (larger messages close the connection)
//   - pings idle clients and closes connections that stop answering
//   - applies the write timeout to every reply
//
// Usage:
//
//	srv := ws.NewWSServerTransport()
//	cli := ws.NewWSClientTransport() // endpoint "ws://host:port/"
package ws
