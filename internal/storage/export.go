package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/grapple/internal/sim"
)

type ExportData struct {
	RunMetadata
	Times   []float64            `json:"times"`
	Samples map[string][]float64 `json:"samples"`
}

// ExportJSON writes meta together with every sampled channel of result.
func ExportJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{
		RunMetadata: meta,
		Times:       result.Times,
		Samples:     result.Samples,
	})
}

func ExportJSONFile(path string, meta RunMetadata, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ExportJSON(file, meta, result); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
