// Package tcp implements the length-framed TCP transport of the relay.
//
// Each message, in both directions, is a frame of a 4 byte big-endian length
// followed by the JSON payload (see base.ReadFrame and base.WriteFrame).
// Frames above the configured message size are skipped without closing the
// connection. Accepted connections have TCP_NODELAY and keep-alive enabled.
package tcp
