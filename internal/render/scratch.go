package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ZacxDev/video-captioner/internal/config"
	"github.com/pkg/errors"
)

// ScratchPath returns the path of a job-owned file. Names are scoped by job
// id so concurrent jobs sharing dir never collide.
func ScratchPath(dir, jobID, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s-%s", config.ScratchPrefix, jobID, name))
}

// ScratchSet is the set of files a job owns. Release removes all of them.
type ScratchSet struct {
	dir   string
	jobID string

	mu    sync.Mutex
	paths []string
}

func NewScratchSet(dir, jobID string) *ScratchSet {
	return &ScratchSet{dir: dir, jobID: jobID}
}

// Path registers and returns the scratch path for name. The file is not
// created.
func (s *ScratchSet) Path(name string) string {
	p := ScratchPath(s.dir, s.jobID, name)
	s.Adopt(p)
	return p
}

// Adopt takes ownership of existing files.
func (s *ScratchSet) Adopt(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		if p != "" {
			s.paths = append(s.paths, p)
		}
	}
}

// WriteFile writes data to a new scratch file and returns its path.
func (s *ScratchSet) WriteFile(name string, data []byte) (string, error) {
	p := s.Path(name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", errors.Wrapf(err, "failed to write scratch file %s", p)
	}
	return p, nil
}

// Paths returns the owned paths in registration order.
func (s *ScratchSet) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

// Release removes every owned file. Files that were never created are not
// an error. The set is empty afterwards.
func (s *ScratchSet) Release() []error {
	s.mu.Lock()
	paths := s.paths
	s.paths = nil
	s.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, errors.Wrapf(err, "failed to remove %s", p))
		}
	}
	return errs
}
