package pipeline

import (
	"encoding/json"
	"io"
	"os"

	"econcal/internal/domain/forecast"
	"econcal/internal/domain/metrics"
	"econcal/pkg/errors"
)

// RunOutput is what the external modelling step hands back to a run:
//
//	{"stage_metrics": {"train": [...], "validate": [...], "test": [...]},
//	 "live_forecasts": [{"currency": "EUR", "event": "GDP", "forecast_value": 1.8}]}
//
// A missing live_forecasts key leaves the stored set alone; an empty list
// clears it.
type RunOutput struct {
	StageMetrics  map[metrics.Stage][]metrics.Record `json:"stage_metrics"`
	LiveForecasts []forecast.LiveForecast            `json:"live_forecasts"`
}

// DecodeRunOutput parses a run output document. Unknown stages are rejected
// as a whole rather than silently dropped.
func DecodeRunOutput(r io.Reader) (*RunOutput, error) {
	var out RunOutput
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "decode run output: %v", err)
	}

	for stage := range out.StageMetrics {
		if !stage.Valid() {
			return nil, errors.Wrapf(errors.ErrMalformedInput, "unknown stage %q in run output", stage)
		}
	}
	return &out, nil
}

// ReadRunOutput decodes the run output file at path
func ReadRunOutput(path string) (*RunOutput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open run output %s", path)
	}
	defer f.Close()

	out, err := DecodeRunOutput(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return out, nil
}

// Empty reports whether the document carries nothing to persist
func (o *RunOutput) Empty() bool {
	if o == nil {
		return true
	}
	for _, recs := range o.StageMetrics {
		if len(recs) > 0 {
			return false
		}
	}
	return o.LiveForecasts == nil
}
