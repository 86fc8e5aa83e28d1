package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/sawolford/onsub/internal/core/ports"
)

const (
	// WalkerNodeID is the unique identifier for the walker Graft node.
	WalkerNodeID graft.ID = "adapter.fs.walker"
	// WorkdirNodeID is the unique identifier for the scoped working directory Graft node.
	WorkdirNodeID graft.ID = "adapter.fs.workdir"
)

func init() {
	graft.Register(graft.Node[ports.Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Walker, error) {
			return NewWalker(), nil
		},
	})

	graft.Register(graft.Node[ports.Workdir]{
		ID:        WorkdirNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Workdir, error) {
			return NewWorkdir(), nil
		},
	})
}
