package repair

import (
	"econcal/internal/domain/calendar"
	"econcal/pkg/errors"
)

// RawBatch is one unit of raw calendar input.
//
// A batch is either tabular (Rows, with an optional Header) or keyed (Records).
// A tabular batch without a Header is read positionally in canonical column order.
type RawBatch struct {
	Source  string
	Ref     calendar.BatchRef
	Header  []string
	Rows    [][]string
	Records []map[string]string
}

// Keyed reports whether the batch carries keyed records
func (b RawBatch) Keyed() bool {
	return b.Records != nil
}

// Len returns the number of data rows in the batch
func (b RawBatch) Len() int {
	if b.Keyed() {
		return len(b.Records)
	}
	return len(b.Rows)
}

// Rejection is a raw row that could not be repaired
type Rejection struct {
	Row    int // zero-based position in the batch
	Reason string
}

// Err returns the rejection as an ErrMalformedInput error
func (r Rejection) Err() error {
	return errors.Wrapf(errors.ErrMalformedInput, "row %d: %s", r.Row, r.Reason)
}

// Result is the outcome of repairing one batch. Events keep input order.
type Result struct {
	Source     string
	Events     []calendar.EconomicEvent
	Rejections []Rejection
	Total      int
}

// Repaired returns the number of canonical rows produced
func (r *Result) Repaired() int {
	return len(r.Events)
}

// Rejected returns the number of rows dropped
func (r *Result) Rejected() int {
	return len(r.Rejections)
}
