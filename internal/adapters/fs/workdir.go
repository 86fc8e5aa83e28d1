package fs

import (
	"os"
	"sync"

	"github.com/sawolford/onsub/internal/core/domain"
	"go.trai.ch/zerr"
)

// Workdir serializes changes of the process working directory.
// Within must not be called re-entrantly from fn.
type Workdir struct {
	mu sync.Mutex
}

// NewWorkdir creates a new Workdir.
func NewWorkdir() *Workdir {
	return &Workdir{}
}

// Within runs fn with the working directory set to dir, restoring the previous
// directory afterwards even when fn fails or panics.
func (w *Workdir) Within(dir string, fn func() error) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, err := os.Getwd()
	if err != nil {
		return zerr.Wrap(domain.ErrChdirFailed, err.Error())
	}

	if err := os.Chdir(dir); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrChdirFailed, "cannot enter directory"), "dir", dir)
	}

	defer func() {
		if cerr := os.Chdir(prev); cerr != nil && err == nil {
			err = zerr.With(zerr.Wrap(domain.ErrChdirFailed, "cannot restore directory"), "dir", prev)
		}
	}()

	return fn()
}
