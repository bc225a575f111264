package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	ChunkSize   int    `yaml:"chunk_size"`
	DefaultCell uint16 `yaml:"default_cell"`
	Seed        int64  `yaml:"seed"`

	SnapshotEveryOps int `yaml:"snapshot_every_ops"`
	MaxViewCells     int `yaml:"max_view_cells"`

	Limits Limits `yaml:"limits"`
}

type Limits struct {
	MaxQueue      int `yaml:"max_queue"`
	MaxCmdBytes   int `yaml:"max_cmd_bytes"`
	ReadTimeoutS  int `yaml:"read_timeout_s"`
	WriteTimeoutS int `yaml:"write_timeout_s"`
}

func Default() Tuning {
	return Tuning{
		ProtocolVersion:  "1.0",
		ChunkSize:        16,
		DefaultCell:      0,
		Seed:             1337,
		SnapshotEveryOps: 4096,
		MaxViewCells:     64 * 1024,
		Limits: Limits{
			MaxQueue:      64,
			MaxCmdBytes:   64 * 1024,
			ReadTimeoutS:  60,
			WriteTimeoutS: 5,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", t.ChunkSize)
	}
	if t.MaxViewCells <= 0 {
		return fmt.Errorf("max_view_cells must be positive, got %d", t.MaxViewCells)
	}
	if t.SnapshotEveryOps < 0 {
		return fmt.Errorf("snapshot_every_ops must be >= 0, got %d", t.SnapshotEveryOps)
	}
	return nil
}
