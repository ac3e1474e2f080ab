package investigation

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

const (
	investigationsSubdir = "investigations"
	currentFileName      = "current"
)

// Store persists investigation records as JSON files, one per ID, plus a
// "current" file holding the ID of the investigation being worked on.
type Store struct {
	dir string
}

// NewStore creates an investigation store under the given perfscope data
// directory.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, investigationsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create investigations directory")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) currentPath() string {
	return filepath.Join(s.dir, currentFileName)
}

// Start creates and persists a new active investigation and marks it current.
func (s *Store) Start(ctx context.Context, scenario Scenario) (*Investigation, error) {
	inv := New(scenario)
	if err := s.Save(ctx, inv); err != nil {
		return nil, err
	}

	if err := fsutil.WriteFileAtomic(s.currentPath(), []byte(inv.ID), 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to mark investigation current")
	}

	logger.G(ctx).WithField("id", inv.ID).Info("investigation started")
	return &inv, nil
}

// Save writes a record, overwriting any previous version.
func (s *Store) Save(ctx context.Context, inv Investigation) error {
	if err := inv.Validate(); err != nil {
		return errors.Wrap(err, "invalid investigation")
	}

	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal investigation")
	}

	if err := fsutil.WriteFileAtomic(s.path(inv.ID), data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write investigation file")
	}

	logger.G(ctx).WithField("id", inv.ID).Debug("investigation saved")
	return nil
}

// Load reads a record by ID. Missing, corrupted, or schema-invalid files
// yield (nil, nil); corruption is logged at warn level.
func (s *Store) Load(ctx context.Context, id string) (*Investigation, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read investigation file")
	}

	inv, ok := decodeInvestigation(ctx, s.path(id), data)
	if !ok {
		return nil, nil
	}
	return inv, nil
}

// List returns all stored investigations sorted by ID (which sorts by start
// time), skipping corrupt entries.
func (s *Store) List(ctx context.Context) ([]Investigation, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read investigations directory")
	}

	var investigations []Investigation
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("file", path).Warn("failed to read investigation file")
			continue
		}

		if inv, ok := decodeInvestigation(ctx, path, data); ok {
			investigations = append(investigations, *inv)
		}
	}

	sort.Slice(investigations, func(i, j int) bool {
		return investigations[i].ID < investigations[j].ID
	})
	return investigations, nil
}

// Current returns the investigation marked current, or nil when none is.
func (s *Store) Current(ctx context.Context) (*Investigation, error) {
	data, err := os.ReadFile(s.currentPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read current investigation marker")
	}

	id := strings.TrimSpace(string(data))
	if id == "" {
		return nil, nil
	}
	return s.Load(ctx, id)
}

// SetPhase updates the phase of an investigation and persists it.
func (s *Store) SetPhase(ctx context.Context, id string, phase Phase) (*Investigation, error) {
	inv, err := s.mustLoad(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := inv.SetPhase(phase); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, *inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// SetStatus updates the status of an investigation and persists it.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) (*Investigation, error) {
	inv, err := s.mustLoad(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := inv.SetStatus(status); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, *inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Resolve marks an investigation resolved and clears the current marker if it
// points at it.
func (s *Store) Resolve(ctx context.Context, id string) (*Investigation, error) {
	inv, err := s.SetStatus(ctx, id, StatusResolved)
	if err != nil {
		return nil, err
	}

	if data, err := os.ReadFile(s.currentPath()); err == nil {
		if strings.TrimSpace(string(data)) == id {
			if err := os.Remove(s.currentPath()); err != nil {
				logger.G(ctx).WithError(err).Warn("failed to clear current investigation marker")
			}
		}
	}

	logger.G(ctx).WithField("id", id).Info("investigation resolved")
	return inv, nil
}

func (s *Store) mustLoad(ctx context.Context, id string) (*Investigation, error) {
	inv, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errors.Errorf("investigation not found: %s", id)
	}
	return inv, nil
}

func decodeInvestigation(ctx context.Context, path string, data []byte) (*Investigation, bool) {
	var inv Investigation
	if err := json.Unmarshal(data, &inv); err != nil {
		logger.G(ctx).WithError(err).WithField("file", path).Warn("corrupted investigation file, treating as absent")
		return nil, false
	}
	if err := inv.Validate(); err != nil {
		logger.G(ctx).WithError(err).WithField("file", path).Warn("schema-invalid investigation file, treating as absent")
		return nil, false
	}
	return &inv, true
}
