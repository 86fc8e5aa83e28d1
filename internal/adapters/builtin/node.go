package builtin

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/sawolford/onsub/internal/adapters/shell"
	"github.com/sawolford/onsub/internal/core/ports"
)

// NodeID is the unique identifier for the function registry Graft node.
const NodeID graft.ID = "adapter.builtin"

func init() {
	graft.Register(graft.Node[ports.FunctionRegistry]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (ports.FunctionRegistry, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			return NewRegistry(executor), nil
		},
	})
}
