// Package resolver selects the profile that governs a directory.
package resolver

import (
	"context"
	"os"

	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports"
)

// Resolver evaluates profile priorities against a directory.
type Resolver struct {
	workdir ports.Workdir
}

// New creates a Resolver that scopes evaluation through workdir.
func New(workdir ports.Workdir) *Resolver {
	return &Resolver{workdir: workdir}
}

// Resolve returns the profile with the highest non-zero priority for vc.
// Profiles are evaluated in the given order and an equal score never
// displaces an earlier profile. A directory that does not exist, or that
// disappears before evaluation, matches nothing.
func (r *Resolver) Resolve(ctx context.Context, vc domain.VisitContext, profiles []*domain.Profile) (*domain.Profile, bool) {
	if info, err := os.Stat(vc.Dir); err != nil || !info.IsDir() {
		return nil, false
	}

	var (
		best      *domain.Profile
		bestScore int
	)

	err := r.workdir.Within(vc.Dir, func() error {
		for _, p := range profiles {
			if p.Priority == nil {
				continue
			}
			scoped := vc
			scoped.Section = p.Name
			if score := p.Priority.Priority(ctx, scoped); score > bestScore {
				best, bestScore = p, score
			}
		}
		return nil
	})
	if err != nil {
		return nil, false
	}

	return best, best != nil
}
