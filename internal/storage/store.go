// Package storage persists headless runs: one directory per run holding
// metadata.json plus a frames.csv of per-frame stepper output.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// TrackedBodies is how many bodies a recording samples per frame. Runs
// with fewer bodies pad the remaining columns with zeros.
const TrackedBodies = 4

// ErrRunNotFound is returned when a run ID has no directory under the
// store's base dir.
var ErrRunNotFound = errors.New("run not found")

// Frame is one render frame's worth of stepper output.
type Frame struct {
	Time      float64 // wall-clock seconds since run start
	SimTime   float64
	Alpha     float64
	Steps     uint64 // cumulative fixed steps
	BodyCount int
	// Blended positions of the first TrackedBodies bodies, x/y/z each.
	Tracked [TrackedBodies][3]float64
}

// RunMetadata describes a saved run.
type RunMetadata struct {
	ID         string    `json:"id"`
	Scene      string    `json:"scene"`
	Timestamp  time.Time `json:"timestamp"`
	Seed       int64     `json:"seed"`
	Dt         float64   `json:"dt"`
	TimeScale  float64   `json:"time_scale"`
	Duration   float64   `json:"duration"`
	FPS        float64   `json:"fps"`
	Pattern    string    `json:"pattern"`
	StepsTaken uint64    `json:"steps_taken"`
	Frames     int       `json:"frames"`
	FinalBody  int       `json:"final_bodies"`
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Save writes a run directory and returns its generated ID.
func (s *Store) Save(meta RunMetadata, frames []Frame) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Scene, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()
	meta.Frames = len(frames)

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "frames.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if err := w.Write(frameHeader()); err != nil {
		return "", err
	}
	for _, f := range frames {
		if err := w.Write(frameRow(f)); err != nil {
			return "", err
		}
	}

	return runID, w.Error()
}

func frameHeader() []string {
	header := []string{"time", "sim_time", "alpha", "steps", "bodies"}
	for i := 0; i < TrackedBodies; i++ {
		header = append(header,
			fmt.Sprintf("b%d_x", i), fmt.Sprintf("b%d_y", i), fmt.Sprintf("b%d_z", i))
	}
	return header
}

func frameRow(f Frame) []string {
	row := []string{
		strconv.FormatFloat(f.Time, 'f', 6, 64),
		strconv.FormatFloat(f.SimTime, 'f', 6, 64),
		strconv.FormatFloat(f.Alpha, 'f', 6, 64),
		strconv.FormatUint(f.Steps, 10),
		strconv.Itoa(f.BodyCount),
	}
	for _, p := range f.Tracked {
		for _, v := range p {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
	}
	return row
}

// List returns metadata for every saved run.
func (s *Store) List() ([]RunMetadata, error) {
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
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadFrames reads a run's per-frame samples back.
func (s *Store) LoadFrames(runID string) ([]Frame, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "frames.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Frame{}, nil
	}

	frames := make([]Frame, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 5+TrackedBodies*3 {
			continue
		}
		var f Frame
		f.Time, _ = strconv.ParseFloat(record[0], 64)
		f.SimTime, _ = strconv.ParseFloat(record[1], 64)
		f.Alpha, _ = strconv.ParseFloat(record[2], 64)
		f.Steps, _ = strconv.ParseUint(record[3], 10, 64)
		f.BodyCount, _ = strconv.Atoi(record[4])
		for i := 0; i < TrackedBodies; i++ {
			for j := 0; j < 3; j++ {
				f.Tracked[i][j], _ = strconv.ParseFloat(record[5+i*3+j], 64)
			}
		}
		frames = append(frames, f)
	}
	return frames, nil
}
