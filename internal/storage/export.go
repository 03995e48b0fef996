package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
)

// ExportData is the JSON export shape for one run.
type ExportData struct {
	Meta   RunMetadata `json:"meta"`
	Frames []Frame     `json:"frames"`
}

// ExportJSON writes a run as indented JSON.
func ExportJSON(w io.Writer, meta RunMetadata, frames []Frame) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Meta: meta, Frames: frames})
}

// ExportCSV writes a run's frames in the same format as frames.csv.
func ExportCSV(out io.Writer, frames []Frame) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write(frameHeader()); err != nil {
		return err
	}
	for _, f := range frames {
		if err := w.Write(frameRow(f)); err != nil {
			return err
		}
	}
	return w.Error()
}

// Column extracts one tracked coordinate across frames, for plotting.
// body selects the tracked slot, axis is 0..2 for x/y/z.
func Column(frames []Frame, bodyIdx, axis int) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f.Tracked[bodyIdx][axis]
	}
	return out
}

// FormatSteps renders cumulative step counts as a float series for
// plotting alongside coordinates.
func FormatSteps(frames []Frame) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = float64(f.Steps)
	}
	return out
}
