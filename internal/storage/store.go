// Package storage keeps finished runs on disk, one directory per run holding
// metadata.json and trace.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/grapple/internal/config"
	"github.com/san-kum/grapple/internal/sim"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

var ErrNoRun = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scenario   string             `json:"scenario"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Steps      int                `json:"steps"`
	Channels   []string           `json:"channels"`
	Metrics    map[string]float64 `json:"metrics"`
	Digest     uint64             `json:"digest,string"`
}

// NewMetadata describes a run of cfg that produced result.
func NewMetadata(cfg *config.Config, preset string, result *sim.Result) RunMetadata {
	return RunMetadata{
		ID:         cfg.Scenario + "_" + uuid.NewString(),
		Scenario:   cfg.Scenario,
		Preset:     preset,
		Timestamp:  time.Now().UTC(),
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
		Steps:      result.StepsTaken,
		Channels:   result.Channels,
		Metrics:    result.Metrics,
		Digest:     result.Digest,
	}
}

// Save writes meta and the sampled trace of result under meta.ID.
func (s *Store) Save(meta RunMetadata, result *sim.Result) error {
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("storage: encode metadata: %w", err)
	}

	csvFile, err := os.Create(filepath.Join(runDir, traceFile))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(append([]string{"time"}, result.Channels...)); err != nil {
		return err
	}
	for i, t := range result.Times {
		row := make([]string, 0, len(result.Channels)+1)
		row = append(row, strconv.FormatFloat(t, 'f', 6, 64))
		for _, ch := range result.Channels {
			row = append(row, strconv.FormatFloat(result.Samples[ch][i], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every stored run, oldest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].Timestamp.Before(runs[j].Timestamp)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode metadata of %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTrace reads the sampled channels of a run back into a result. Only
// Times, Channels and Samples are filled.
func (s *Store) LoadTrace(runID string) (*sim.Result, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRun, runID)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: read trace of %s: %w", runID, err)
	}

	res := &sim.Result{Samples: make(map[string][]float64)}
	if len(records) == 0 {
		return res, nil
	}
	res.Channels = append(res.Channels, records[0][1:]...)

	for line, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: trace of %s line %d: %w", runID, line+2, err)
		}
		res.Times = append(res.Times, t)
		for j, ch := range res.Channels {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("storage: trace of %s line %d: %w", runID, line+2, err)
			}
			res.Samples[ch] = append(res.Samples[ch], v)
		}
	}
	return res, nil
}
