package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/astana-mobility/greenwave/internal/domain"
)

// artifactVersion guards against loading tables written by an incompatible
// discretization.
const artifactVersion = 1

type artifact struct {
	Version int                   `msgpack:"version"`
	Config  QConfig               `msgpack:"config"`
	Table   map[string][2]float64 `msgpack:"table"`
}

// SaveArtifact writes a trained policy to path, creating parent
// directories as needed.
func SaveArtifact(path string, p *QLearning) error {
	data, err := msgpack.Marshal(artifact{
		Version: artifactVersion,
		Config:  p.cfg,
		Table:   p.q,
	})
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// LoadArtifact restores a trained policy from path. A missing file is
// surfaced as ErrModelNotFound; callers decide what to do about it. There
// is no fallback to a different artifact.
func LoadArtifact(path string) (*QLearning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewEngineError(domain.ErrModelNotFound.Code, fmt.Sprintf("%s: %s", domain.ErrModelNotFound.Message, path))
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a artifact
	if err := msgpack.Unmarshal(data, &a); err != nil {
		return nil, domain.WrapEngineError(domain.ErrArtifactCorrupt.Code, path, err)
	}
	if a.Version != artifactVersion {
		return nil, domain.NewEngineError(domain.ErrArtifactCorrupt.Code,
			fmt.Sprintf("%s: version %d, want %d", path, a.Version, artifactVersion))
	}

	p := NewQLearning(a.Config)
	if a.Table != nil {
		p.q = a.Table
	}
	return p, nil
}
