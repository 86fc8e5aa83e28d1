package ports

import "github.com/sawolford/onsub/internal/core/domain"

// ConfigLoader defines the interface for loading the profile registry.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration file at path.
	Load(path string) (*domain.Config, error)
}
