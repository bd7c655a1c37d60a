// Package client provides a Go client for the relay protocol. It is used by
// the kv commands of the CLI and by the end-to-end tests.
//
// The client works with any IRelayClientTransport (ws or tcp) and serializer.
// Error replies of the relay are returned as *ReplyError, except "Key not
// found" which Get reports as loaded == false.
//
// Example:
//
//	c, err := client.NewRelayClient(config, tcp.NewTCPClientTransport(), serializer.NewJSONSerializer())
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	n, err := c.Increment(ctx, "score", 5)
package client
