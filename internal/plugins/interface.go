package plugins

import "context"

// Invoker is the dispatch surface the transport layer depends on.
type Invoker interface {
	InvokeCommand(ctx context.Context, commandID string, payload []byte) ([]byte, error)
}

var _ Invoker = (*Manager)(nil)
