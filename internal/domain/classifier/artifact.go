package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact file layout version. Bump on incompatible changes.
const artifactVersion = 1

const artifactFilePermission = 0o600

// artifact is the on-disk model layout: the forest plus the training-time
// category mappings, serialized together so inference always uses the same
// encoding the model was trained with.
type artifact struct {
	Version   int       `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
	Seed      int64     `json:"seed"`
	Features  []string  `json:"features"`
	Encoder   Encoder   `json:"encoder"`
	Trees     []tree    `json:"trees"`
}

// Save writes the model artifact. The write goes to a temp file in the same
// directory followed by a rename, so a concurrent Load never observes a
// half-written model.
func (m *Model) Save(path string) error {
	a := artifact{
		Version:   artifactVersion,
		TrainedAt: m.TrainedAt,
		Seed:      m.Seed,
		Features:  m.Features,
		Encoder:   m.Encoder,
		Trees:     m.Trees,
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode model artifact: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create model directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, artifactFilePermission); err != nil {
		return fmt.Errorf("write model artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("swap model artifact into place: %w", err)
	}
	return nil
}

// Load reads a model artifact from disk. Every failure mode, including a
// missing file, wraps ErrModelUnavailable so callers can degrade to
// rule-only evaluation with a single errors.Is check.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrModelUnavailable, path, err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrModelUnavailable, path, err)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported artifact version %d", ErrModelUnavailable, a.Version)
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("%w: artifact has no trees", ErrModelUnavailable)
	}
	return &Model{
		Trees:     a.Trees,
		Encoder:   a.Encoder,
		Features:  a.Features,
		TrainedAt: a.TrainedAt,
		Seed:      a.Seed,
	}, nil
}
