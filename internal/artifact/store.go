// Package artifact stores run evidence under fixed file names.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Fixed artifact names. Each run overwrites them.
const (
	LandingPage  = "landing_page.png"
	Initial      = "initial.png"
	Verification = "verification.png"
	Failure      = "failure.png"
	ReportYAML   = "report.yaml"
	ReportMD     = "report.md"
	ReportHTML   = "report.html"
)

// Known lists every name a run may write.
var Known = []string{LandingPage, Initial, Verification, Failure, ReportYAML, ReportMD, ReportHTML}

// Store writes artifacts into one directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore returns a store rooted at dir on fs.
func NewStore(fs afero.Fs, dir string) *Store {
	return &Store{fs: fs, dir: dir}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the full path of an artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Prepare creates the directory and removes artifacts left by an earlier
// run. Files the tool does not own are kept.
func (s *Store) Prepare() error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir %s: %w", s.dir, err)
	}
	for _, name := range Known {
		if err := s.fs.Remove(s.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale %s: %w", name, err)
		}
	}
	return nil
}

// Write stores data under name, replacing any previous content.
func (s *Store) Write(name string, data []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir %s: %w", s.dir, err)
	}
	tmp, err := afero.TempFile(s.fs, s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := s.fs.Rename(tmpName, s.Path(name)); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// Read returns the content of an artifact.
func (s *Store) Read(name string) ([]byte, error) {
	return afero.ReadFile(s.fs, s.Path(name))
}

// Exists reports whether an artifact is present.
func (s *Store) Exists(name string) bool {
	ok, err := afero.Exists(s.fs, s.Path(name))
	return err == nil && ok
}

// Present returns the known artifacts currently on disk, in Known order.
func (s *Store) Present() []string {
	var out []string
	for _, name := range Known {
		if s.Exists(name) {
			out = append(out, name)
		}
	}
	return out
}
