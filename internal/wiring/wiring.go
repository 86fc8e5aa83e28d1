// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "github.com/sawolford/onsub/internal/adapters/builtin"
	_ "github.com/sawolford/onsub/internal/adapters/config"
	_ "github.com/sawolford/onsub/internal/adapters/fs"
	_ "github.com/sawolford/onsub/internal/adapters/logger"
	_ "github.com/sawolford/onsub/internal/adapters/manifest"
	_ "github.com/sawolford/onsub/internal/adapters/shell"
	// Register app nodes.
	_ "github.com/sawolford/onsub/internal/app"
)
