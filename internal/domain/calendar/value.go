package calendar

import (
	"database/sql"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is the suffix a release value was published with
type Unit string

const (
	UnitNone     Unit = ""
	UnitPercent  Unit = "%"
	UnitThousand Unit = "K"
	UnitMillion  Unit = "M"
	UnitBillion  Unit = "B"
	UnitTrillion Unit = "T"
)

// Value is a loosely typed actual/forecast/previous figure.
//
// Numeric values keep the number exactly as published together with its unit:
// "2.1%" is Number 2.1 with Unit "%", "250K" is Number 250 with Unit "K".
// Nothing is rescaled, so two values are only comparable when their units match.
type Value struct {
	Raw     string
	Number  decimal.Decimal
	Unit    Unit
	Numeric bool
	Null    bool
}

var nullTokens = map[string]struct{}{
	"":     {},
	"n/a":  {},
	"na":   {},
	"nan":  {},
	"none": {},
	"null": {},
	"-":    {},
	"--":   {},
}

var numericPattern = regexp.MustCompile(`^([+-]?)((?:\d{1,3}(?:,\d{3})+|\d*)(?:\.\d+)?)\s*([%KMBT]?)$`)

// NullValue returns the empty value
func NullValue() Value {
	return Value{Null: true}
}

// ParseValue coerces raw text into a Value. Text that is not a number with an
// optional unit suffix is kept as opaque text rather than rejected.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if _, ok := nullTokens[strings.ToLower(s)]; ok {
		return NullValue()
	}

	m := numericPattern.FindStringSubmatch(strings.ToUpper(s))
	if m == nil || m[2] == "" || m[2] == "." {
		return Value{Raw: s}
	}

	digits := strings.ReplaceAll(m[2], ",", "")
	if strings.HasPrefix(digits, ".") {
		digits = "0" + digits
	}
	if m[1] == "-" {
		digits = "-" + digits
	}

	n, err := decimal.NewFromString(digits)
	if err != nil {
		return Value{Raw: s}
	}

	return Value{
		Raw:     s,
		Number:  n,
		Unit:    Unit(m[3]),
		Numeric: true,
	}
}

// String returns the canonical text form that is persisted
func (v Value) String() string {
	switch {
	case v.Null:
		return ""
	case v.Numeric:
		return v.Number.String() + string(v.Unit)
	default:
		return v.Raw
	}
}

// Equal compares canonical forms
func (v Value) Equal(o Value) bool {
	if v.Null || o.Null {
		return v.Null == o.Null
	}
	return v.String() == o.String()
}

// Comparable reports whether two numeric values share a unit
func (v Value) Comparable(o Value) bool {
	return v.Numeric && o.Numeric && v.Unit == o.Unit
}

// NullString converts the value for a nullable text column
func (v Value) NullString() sql.NullString {
	if v.Null {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

// ValueFromNullString is the inverse of NullString
func ValueFromNullString(s sql.NullString) Value {
	if !s.Valid {
		return NullValue()
	}
	return ParseValue(s.String)
}
