package server

import (
	"context"
	"errors"
	"strconv"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/metrics"
)

func NewIStoreServerAdapter() IRelayServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(ctx context.Context, cmd *common.Command, s store.IStore) *common.Reply {
	// Check for nil store
	if s == nil {
		Logger.Errorf("handler: store is nil")
		return common.NewErrorReply(common.ErrMsgOperationFailed)
	}

	key := cmd.KeyName()

	switch cmd.Action {
	case common.ActionSet:
		value, ok := cmd.ValueText()
		if key == "" || !ok {
			return invalid(common.ErrMsgInvalidKeyOrValue)
		}
		stored, err := s.Set(ctx, key, value)
		if err != nil {
			return storeFailure(cmd.Action, key, err)
		}
		Logger.Debugf("Set %s to %s", key, stored)
		return common.NewValueReply(key, stored)

	case common.ActionGet:
		if key == "" {
			return invalid(common.ErrMsgInvalidKey)
		}
		value, found, err := s.Get(ctx, key)
		if err != nil {
			return storeFailure(cmd.Action, key, err)
		}
		if !found {
			return common.NewErrorReply(common.ErrMsgKeyNotFound)
		}
		return common.NewValueReply(key, value)

	case common.ActionDelete:
		if key == "" {
			return invalid(common.ErrMsgInvalidKey)
		}
		if err := s.Delete(ctx, key); err != nil {
			return storeFailure(cmd.Action, key, err)
		}
		return common.NewValueReply(key, nil)

	case common.ActionIncrement:
		text, ok := cmd.ValueText()
		if key == "" || !ok {
			return invalid(common.ErrMsgInvalidAddition)
		}
		// the delta may be sent as a JSON number or as a string
		delta, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return invalid(common.ErrMsgInvalidAddition)
		}
		value, err := s.Increment(ctx, key, delta)
		if err != nil {
			return storeFailure(cmd.Action, key, err)
		}
		return common.NewValueReply(key, value)

	case common.ActionSearch:
		pairs, err := s.ListKeys(ctx, cmd.Pattern)
		if err != nil {
			return storeFailure(cmd.Action, cmd.Pattern, err)
		}
		if cmd.Query == nil {
			return common.NewSearchReply(pairs)
		}
		// filter in place, pairs is owned by this call
		results := pairs[:0]
		for _, kv := range pairs {
			if kv.Value == *cmd.Query {
				results = append(results, kv)
			}
		}
		return common.NewSearchReply(results)

	default:
		Logger.Warningf("Unknown action: %q", cmd.Action)
		return invalid(common.ErrMsgUnknownAction)
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// invalid returns a validation error reply
func invalid(msg string) *common.Reply {
	metrics.CommandError(metrics.ErrorKindValidation)
	return common.NewErrorReply(msg)
}

// storeFailure logs the store error and returns the generic reply for it.
// Store errors are never sent to the client verbatim.
func storeFailure(action common.Action, key string, err error) *common.Reply {
	metrics.CommandError(metrics.ErrorKindStore)
	log := common.WithFields(Logger, "action", string(action), "key", key)
	if errors.Is(err, store.ErrStoreUnavailable) {
		log.Warningf("%v", err)
		return common.NewErrorReply(common.ErrMsgStoreUnavailable)
	}
	log.Errorf("%v", err)
	return common.NewErrorReply(common.ErrMsgOperationFailed)
}
