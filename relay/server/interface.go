package server

import (
	"context"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/ValentinKolb/kvRelay/relay/common"
)

// IRelayServerAdapter is the interface for the command dispatcher
// It translates a decoded command into store calls and shapes the reply
type IRelayServerAdapter interface {
	// Handle handles a command and returns the reply
	// It takes a Command and a store as parameters.
	// Every command produces exactly one reply, errors are returned as error replies.
	// Invalid commands never reach the store.
	Handle(ctx context.Context, cmd *common.Command, store store.IStore) (reply *common.Reply)
}
