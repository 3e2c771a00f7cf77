package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"econcal/internal/repair"
	"econcal/pkg/errors"
)

// ResultsFileName is the run output document picked up from an input directory
const ResultsFileName = "results.json"

// Input is everything one run consumes
type Input struct {
	// Batches are incremental calendar batches, oldest first. Batch i is ranked
	// above every stored row and every batch before it.
	Batches []repair.RawBatch

	// Results is the modelling output, nil when the run only ingests events
	Results *RunOutput
}

// LoadFiles reads calendar batches from CSV and XLSX files in the given order
func LoadFiles(paths []string) ([]repair.RawBatch, error) {
	batches := make([]repair.RawBatch, 0, len(paths))
	for _, path := range paths {
		b, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// LoadFile reads one calendar batch, picking the reader by file extension
func LoadFile(path string) (repair.RawBatch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSVFile(path)
	case ".xlsx":
		return repair.LoadXLSX(path)
	}
	return repair.RawBatch{}, errors.Wrapf(errors.ErrInvalidInput, "unsupported input file %s", path)
}

func loadCSVFile(path string) (repair.RawBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return repair.RawBatch{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return repair.LoadCSV(f, filepath.Base(path))
}

// ScanDir lists calendar files and the run output document of dir.
// Calendar files are ordered by name, so later names rank as newer batches.
func ScanDir(dir string) (calendars []string, results string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", errors.Wrapf(err, "scan %s", dir)
	}

	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch {
		case e.Name() == ResultsFileName:
			results = path
		case strings.EqualFold(filepath.Ext(e.Name()), ".csv"), strings.EqualFold(filepath.Ext(e.Name()), ".xlsx"):
			calendars = append(calendars, path)
		}
	}
	sort.Strings(calendars)
	return calendars, results, nil
}

// LoadDir builds the input of one run from dir
func LoadDir(dir string) (Input, error) {
	calendars, results, err := ScanDir(dir)
	if err != nil {
		return Input{}, err
	}

	batches, err := LoadFiles(calendars)
	if err != nil {
		return Input{}, err
	}

	in := Input{Batches: batches}
	if results != "" {
		if in.Results, err = ReadRunOutput(results); err != nil {
			return Input{}, err
		}
	}
	return in, nil
}
