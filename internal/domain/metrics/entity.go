package metrics

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"econcal/internal/domain/calendar"
	"econcal/pkg/errors"
)

// Stage is the model lifecycle stage a metrics record belongs to
type Stage string

const (
	StageTrain    Stage = "train"
	StageValidate Stage = "validate"
	StageTest     Stage = "test"
)

// Stages lists every stage in pipeline order
var Stages = []Stage{StageTrain, StageValidate, StageTest}

// Valid checks if stage is known
func (s Stage) Valid() bool {
	switch s {
	case StageTrain, StageValidate, StageTest:
		return true
	}
	return false
}

// String returns string representation
func (s Stage) String() string {
	return string(s)
}

// Table returns the append-only table that holds the stage's records
func (s Stage) Table() string {
	switch s {
	case StageTrain:
		return "train_metrics"
	case StageValidate:
		return "validate_metrics"
	case StageTest:
		return "test_forecasts"
	}
	return ""
}

// ParseStage accepts a stage name in any case
func ParseStage(s string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !stage.Valid() {
		return "", errors.Wrapf(errors.ErrInvalidInput, "unknown stage %q", s)
	}
	return stage, nil
}

// Record is one per-(currency, event) model evaluation result
type Record struct {
	ID        int64     `db:"id" json:"-"`
	Currency  string    `db:"currency" json:"currency"`
	Event     string    `db:"event" json:"event"`
	R2        float64   `db:"r2" json:"r2"`
	MSE       float64   `db:"mse" json:"mse"`
	Samples   int       `db:"samples" json:"samples"`
	Stage     Stage     `db:"-" json:"stage,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// Validate checks a record against the numeric constraints and the column limits
// of the metrics tables
func (r Record) Validate() error {
	switch {
	case strings.TrimSpace(r.Currency) == "":
		return errors.NewValidationError("currency", "must not be empty", r.Currency)
	case utf8.RuneCountInString(r.Currency) > calendar.MaxCurrencyLen:
		return errors.NewValidationError("currency", "too long", r.Currency)
	case strings.TrimSpace(r.Event) == "":
		return errors.NewValidationError("event", "must not be empty", r.Event)
	case utf8.RuneCountInString(r.Event) > calendar.MaxEventLen:
		return errors.NewValidationError("event", "too long", r.Event)
	case !r.Stage.Valid():
		return errors.NewValidationError("stage", "unknown stage", r.Stage)
	case math.IsNaN(r.R2) || math.IsInf(r.R2, 0):
		return errors.NewValidationError("r2", "must be finite", r.R2)
	case math.IsNaN(r.MSE) || math.IsInf(r.MSE, 0):
		return errors.NewValidationError("mse", "must be finite", r.MSE)
	case r.MSE < 0:
		return errors.NewValidationError("mse", "must be >= 0", r.MSE)
	case r.Samples < 0:
		return errors.NewValidationError("samples", "must be >= 0", r.Samples)
	case r.Samples > math.MaxInt32:
		return errors.NewValidationError("samples", "exceeds int32 range", r.Samples)
	}
	return nil
}

// Rejection describes a record that was not persisted
type Rejection struct {
	Index  int // position in the submitted slice
	Record Record
	Err    error
}

// AppendResult summarizes one append call
type AppendResult struct {
	Stage    Stage
	Inserted int
	Rejected []Rejection
}

// Degraded reports whether any record of the call was rejected
func (r AppendResult) Degraded() bool {
	return len(r.Rejected) > 0
}

// Split stamps every record with stage and separates valid records from rejected ones.
// Valid records keep their submission order.
func Split(stage Stage, records []Record) ([]Record, []Rejection) {
	valid := make([]Record, 0, len(records))
	var rejected []Rejection

	for i, rec := range records {
		rec.Stage = stage
		rec.Currency = strings.ToUpper(strings.TrimSpace(rec.Currency))
		rec.Event = strings.TrimSpace(rec.Event)

		if err := rec.Validate(); err != nil {
			rejected = append(rejected, Rejection{Index: i, Record: rec, Err: err})
			continue
		}
		valid = append(valid, rec)
	}

	return valid, rejected
}
