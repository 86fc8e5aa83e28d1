package ports

import (
	"iter"

	"github.com/sawolford/onsub/internal/core/domain"
)

// ManifestLoader reads explicit path assignments.
//
//go:generate mockgen -source=enumerator.go -destination=mocks/mock_enumerator.go -package=mocks
type ManifestLoader interface {
	// Load reads every manifest file and returns candidates grouped by section
	// in order of first appearance.
	Load(paths []string) ([]domain.Candidate, error)
}

// Walker enumerates directories by recursive traversal.
type Walker interface {
	// Walk yields root and every directory below it, pruning ignored names
	// and paths whose separator count reaches depth when depth >= 0.
	Walk(root string, ignores []string, depth int) iter.Seq2[domain.Candidate, error]
}
