// Package serializer converts relay commands and replies to and from their
// wire representation.
//
// The relay protocol is JSON, so jsonSerializerImpl is the only
// implementation. DecodeCommand is strict: anything that is not a JSON object,
// or an object whose fields have the wrong types, is rejected. The server
// treats such messages as protocol errors and drops them without a reply.
//
// All serializer implementations are stateless and safe for concurrent use.
package serializer
