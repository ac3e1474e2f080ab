// Package statedir resolves the state directory perfscope shares with its
// host AI coding assistant. Claude Code keeps project state under .claude,
// OpenCode under .opencode, and Codex CLI under .codex; perfscope nests its
// own data under a perfscope/ subdirectory of whichever is in use.
package statedir

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// EnvOverride is the environment variable that overrides platform detection.
const EnvOverride = "PERFSCOPE_STATE_DIR"

// hostDirs are the known host-assistant state directories, in detection order.
var hostDirs = []string{".claude", ".opencode", ".codex"}

const perfscopeSubdir = "perfscope"

// Resolver locates the state directory for a working directory.
type Resolver struct {
	workDir string
	getenv  func(string) string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithWorkDir sets the working directory to detect host dirs in.
func WithWorkDir(dir string) Option {
	return func(r *Resolver) {
		r.workDir = dir
	}
}

// WithGetenv replaces the environment lookup (for testing).
func WithGetenv(getenv func(string) string) Option {
	return func(r *Resolver) {
		r.getenv = getenv
	}
}

// NewResolver creates a Resolver rooted at the current working directory.
func NewResolver(opts ...Option) (*Resolver, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get working directory")
	}

	r := &Resolver{
		workDir: wd,
		getenv:  os.Getenv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// HostDir returns the host assistant's state directory. The environment
// override wins; otherwise the first of .claude, .opencode, .codex that
// exists in the working directory; otherwise .claude, which callers create
// on demand.
func (r *Resolver) HostDir() string {
	if override := r.getenv(EnvOverride); override != "" {
		return override
	}

	for _, name := range hostDirs {
		candidate := filepath.Join(r.workDir, name)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}

	return filepath.Join(r.workDir, hostDirs[0])
}

// HostDirName returns the base name of the detected host directory, e.g.
// ".claude". Plugin discovery uses it to locate the matching global directory
// under the user's home.
func (r *Resolver) HostDirName() string {
	return filepath.Base(r.HostDir())
}

// DataDir returns the perfscope data directory nested under the host dir.
// The directory is created if missing.
func (r *Resolver) DataDir() (string, error) {
	dir := filepath.Join(r.HostDir(), perfscopeSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create perfscope data directory")
	}
	return dir, nil
}
