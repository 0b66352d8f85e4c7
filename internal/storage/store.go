package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/mdsim/internal/metrics"
	"gonum.org/v1/gonum/spatial/r3"
)

// RunMetadata describes a finished run.
type RunMetadata struct {
	ID          string             `json:"id"`
	Scenario    string             `json:"scenario"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        uint64             `json:"seed"`
	Particles   int                `json:"particles"`
	Temperature float64            `json:"temperature"`
	Friction    float64            `json:"friction"`
	StepSize    float64            `json:"step_size"`
	FrameSteps  int                `json:"frame_steps"`
	FrameCount  int                `json:"frame_count"`
	Integrator  string             `json:"integrator"`
	Platform    string             `json:"platform"`
	Forces      []string           `json:"forces"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Record is everything persisted for one run.
type Record struct {
	Meta      RunMetadata      `json:"meta"`
	Frames    []metrics.Sample `json:"frames"`
	Positions []r3.Vec         `json:"positions"`
}

// RunStore persists run records.
type RunStore interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, rec *Record) (string, error)
	List(ctx context.Context) ([]RunMetadata, error)
	Load(ctx context.Context, runID string) (*Record, error)
	Close() error
}

const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open returns an initialized store. For KindFile path is a directory,
// for KindSQLite a database file.
func Open(ctx context.Context, kind, path string) (RunStore, error) {
	var st RunStore
	switch kind {
	case KindFile, "":
		st = NewFileStore(path)
	case KindSQLite:
		st = NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store kind: %s", kind)
	}
	if err := st.Init(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func newRunID(scenario string, now time.Time) string {
	return fmt.Sprintf("%s_%d", scenario, now.UnixNano())
}
