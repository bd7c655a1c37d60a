package serializer

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/ValentinKolb/kvRelay/relay/common"
)

// ErrNotAnObject is returned when a message is valid JSON but not a JSON object
var ErrNotAnObject = errors.New("message is not a JSON object")

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRelaySerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRelaySerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRelaySerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) EncodeCommand(cmd common.Command) ([]byte, error) {
	return json.Marshal(cmd)
}

func (j jsonSerializerImpl) DecodeCommand(b []byte, cmd *common.Command) error {
	// "null", arrays and scalars would decode into a zero Command without error
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrNotAnObject
	}
	return json.Unmarshal(trimmed, cmd)
}

func (j jsonSerializerImpl) EncodeReply(reply common.Reply) ([]byte, error) {
	return json.Marshal(reply)
}

func (j jsonSerializerImpl) DecodeReply(b []byte, reply *common.Reply) error {
	return json.Unmarshal(b, reply)
}
