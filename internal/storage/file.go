package storage

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/mdsim/internal/metrics"
	"gonum.org/v1/gonum/spatial/r3"
)

// FileStore keeps one directory per run holding metadata.json, frames.csv
// and positions.tsv.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Init(context.Context) error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Save(_ context.Context, rec *Record) (string, error) {
	now := time.Now()
	meta := rec.Meta
	meta.ID = newRunID(meta.Scenario, now)
	meta.Timestamp = now

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeFrames(filepath.Join(runDir, "frames.csv"), rec.Frames); err != nil {
		return "", err
	}

	if err := writeFile(filepath.Join(runDir, "positions.tsv"), func(w io.Writer) error {
		return writeExactPositions(w, rec.Positions)
	}); err != nil {
		return "", err
	}

	rec.Meta = meta
	return meta.ID, nil
}

func (s *FileStore) List(context.Context) ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := readMetadata(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *FileStore) Load(_ context.Context, runID string) (*Record, error) {
	runDir := filepath.Join(s.baseDir, runID)

	meta, err := readMetadata(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return nil, err
	}
	frames, err := readFrames(filepath.Join(runDir, "frames.csv"))
	if err != nil {
		return nil, err
	}
	positions, err := readPositions(filepath.Join(runDir, "positions.tsv"))
	if err != nil {
		return nil, err
	}

	return &Record{Meta: *meta, Frames: frames, Positions: positions}, nil
}

// writeFile creates path and hands fn a buffered writer. Flush and Close
// errors are returned, so a short write to disk is never reported as success.
func writeFile(path string, fn func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return err
	}
	return bw.Flush()
}

func writeJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func readMetadata(path string) (*RunMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func writeFrames(path string, frames []metrics.Sample) error {
	return writeFile(path, func(out io.Writer) error {
		return writeFrameRows(out, frames)
	})
}

func writeFrameRows(out io.Writer, frames []metrics.Sample) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"frame", "time", "kinetic", "potential"}); err != nil {
		return err
	}
	for _, s := range frames {
		row := []string{
			strconv.Itoa(s.Frame),
			formatExact(s.Time),
			formatExact(s.Kinetic),
			formatExact(s.Potential),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readFrames(path string) ([]metrics.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	frames := make([]metrics.Sample, 0, len(records))
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) != 4 {
			return nil, fmt.Errorf("%s line %d: expected 4 fields, got %d", path, i+1, len(record))
		}
		frame, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
		}
		vals := make([]float64, 3)
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(record[j+1], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
			}
		}
		frames = append(frames, metrics.Sample{Frame: frame, Time: vals[0], Kinetic: vals[1], Potential: vals[2]})
	}

	return frames, nil
}

// writeExactPositions is WritePositions at full precision, so a loaded
// record matches the saved one bit for bit.
func writeExactPositions(w io.Writer, positions []r3.Vec) error {
	for _, p := range positions {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", formatExact(p.X), formatExact(p.Y), formatExact(p.Z)); err != nil {
			return err
		}
	}
	return nil
}

func formatExact(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// readPositions parses the tab-separated positions.tsv.
func readPositions(path string) ([]r3.Vec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	positions := make([]r3.Vec, 0)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%s line %d: expected 3 fields, got %d", path, line, len(fields))
		}
		var xyz [3]float64
		for j := range xyz {
			if xyz[j], err = strconv.ParseFloat(fields[j], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, line, err)
			}
		}
		positions = append(positions, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}

	return positions, scanner.Err()
}
