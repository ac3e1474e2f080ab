package baseline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/perfscope/perfscope/pkg/fsutil"
	"github.com/perfscope/perfscope/pkg/logger"
)

const baselinesSubdir = "baselines"

// Store persists baselines as JSON files keyed by sanitized version string.
// Writes overwrite; corrupted or schema-invalid files are logged and treated
// as absent so a damaged baseline never crashes an investigation.
type Store struct {
	dir string
}

// NewStore creates a baseline store under the given perfscope data directory.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, baselinesSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create baselines directory")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(version string) (string, error) {
	sanitized, err := SanitizeVersion(version)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, sanitized+".json"), nil
}

// Save writes the baseline, overwriting any existing record for the version.
func (s *Store) Save(ctx context.Context, b Baseline) error {
	if err := b.Validate(); err != nil {
		return errors.Wrap(err, "invalid baseline")
	}

	path, err := s.path(b.Version)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal baseline")
	}

	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write baseline file")
	}

	logger.G(ctx).WithField("version", b.Version).Debug("baseline saved")
	return nil
}

// Load reads the baseline for a version. A missing, corrupted, or
// schema-invalid file yields (nil, nil); corruption is logged at warn level.
func (s *Store) Load(ctx context.Context, version string) (*Baseline, error) {
	path, err := s.path(version)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read baseline file")
	}

	b, ok := decodeBaseline(ctx, path, data)
	if !ok {
		return nil, nil
	}
	return b, nil
}

// List returns all stored baselines sorted by version, skipping corrupt
// entries.
func (s *Store) List(ctx context.Context) ([]Baseline, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read baselines directory")
	}

	var baselines []Baseline
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("file", path).Warn("failed to read baseline file")
			continue
		}

		if b, ok := decodeBaseline(ctx, path, data); ok {
			baselines = append(baselines, *b)
		}
	}

	sort.Slice(baselines, func(i, j int) bool {
		return baselines[i].Version < baselines[j].Version
	})
	return baselines, nil
}

// Delete removes the baseline for a version.
func (s *Store) Delete(ctx context.Context, version string) error {
	path, err := s.path(version)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Errorf("baseline not found: %s", version)
		}
		return errors.Wrap(err, "failed to delete baseline file")
	}

	logger.G(ctx).WithField("version", version).Debug("baseline deleted")
	return nil
}

// decodeBaseline unmarshals and validates a baseline document. Corruption is
// logged and reported as absent.
func decodeBaseline(ctx context.Context, path string, data []byte) (*Baseline, bool) {
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		logger.G(ctx).WithError(err).WithField("file", path).Warn("corrupted baseline file, treating as absent")
		return nil, false
	}
	if err := b.Validate(); err != nil {
		logger.G(ctx).WithError(err).WithField("file", path).Warn("schema-invalid baseline file, treating as absent")
		return nil, false
	}
	return &b, true
}
