package serializer

import "github.com/ValentinKolb/kvRelay/relay/common"

// IRelaySerializer is the interface for all Command and Reply serializers
type IRelaySerializer interface {
	// EncodeCommand serializes a Command into a byte array (client side)
	EncodeCommand(cmd common.Command) ([]byte, error)
	// DecodeCommand deserializes a byte array into a Command (server side)
	// It returns an error if the bytes are not a well-formed command
	DecodeCommand(b []byte, cmd *common.Command) error
	// EncodeReply serializes a Reply into a byte array (server side)
	EncodeReply(reply common.Reply) ([]byte, error)
	// DecodeReply deserializes a byte array into a Reply (client side)
	DecodeReply(b []byte, reply *common.Reply) error
}
