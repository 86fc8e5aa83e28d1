package app

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/sawolford/onsub/internal/adapters/builtin"  //nolint:depguard // Wired in app layer
	"github.com/sawolford/onsub/internal/adapters/config"   //nolint:depguard // Wired in app layer
	"github.com/sawolford/onsub/internal/adapters/fs"       //nolint:depguard // Wired in app layer
	"github.com/sawolford/onsub/internal/adapters/logger"   //nolint:depguard // Wired in app layer
	"github.com/sawolford/onsub/internal/adapters/manifest" //nolint:depguard // Wired in app layer
	"github.com/sawolford/onsub/internal/adapters/shell"    //nolint:depguard // Wired in app layer
	"github.com/sawolford/onsub/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains the initialized application components handed to the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			manifest.NodeID,
			fs.WalkerNodeID,
			fs.WorkdirNodeID,
			shell.NodeID,
			builtin.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: a, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	manifests, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}
	walker, err := graft.Dep[ports.Walker](ctx)
	if err != nil {
		return nil, err
	}
	workdir, err := graft.Dep[ports.Workdir](ctx)
	if err != nil {
		return nil, err
	}
	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}
	functions, err := graft.Dep[ports.FunctionRegistry](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, manifests, walker, executor, functions, workdir, log), nil
}
