package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		canonical string
		numeric   bool
		null      bool
		unit      Unit
	}{
		{"percent", "2.1%", "2.1%", true, false, UnitPercent},
		{"padded percent", "  2.10 % ", "2.1%", true, false, UnitPercent},
		{"thousands suffix", "250K", "250K", true, false, UnitThousand},
		{"lower case suffix", "1.5m", "1.5M", true, false, UnitMillion},
		{"billions", "-3.2B", "-3.2B", true, false, UnitBillion},
		{"thousands separator", "1,234.5", "1234.5", true, false, UnitNone},
		{"leading dot", ".5%", "0.5%", true, false, UnitPercent},
		{"explicit plus", "+0.3%", "0.3%", true, false, UnitPercent},
		{"plain integer", "57", "57", true, false, UnitNone},
		{"empty", "", "", false, true, UnitNone},
		{"n/a", "N/A", "", false, true, UnitNone},
		{"nan", "nan", "", false, true, UnitNone},
		{"dash", "-", "", false, true, UnitNone},
		{"opaque text", "Hawkish", "Hawkish", false, false, UnitNone},
		{"european decimal stays opaque", "12,5", "12,5", false, false, UnitNone},
		{"range stays opaque", "1.2-1.4%", "1.2-1.4%", false, false, UnitNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ParseValue(tt.raw)
			assert.Equal(t, tt.canonical, v.String())
			assert.Equal(t, tt.numeric, v.Numeric)
			assert.Equal(t, tt.null, v.Null)
			assert.Equal(t, tt.unit, v.Unit)
		})
	}
}

func TestParseValue_Idempotent(t *testing.T) {
	for _, raw := range []string{"2.10%", " 250 K", "1,000,000", "Hawkish", "", "-0.0%"} {
		first := ParseValue(raw)
		second := ParseValue(first.String())
		assert.True(t, first.Equal(second), "raw %q", raw)
		assert.Equal(t, first.String(), second.String())
	}
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, NullValue().Equal(NullValue()))
	assert.False(t, NullValue().Equal(ParseValue("2.3%")))
	assert.True(t, ParseValue("2.30%").Equal(ParseValue("2.3 %")))
	assert.False(t, ParseValue("2.3%").Equal(ParseValue("2.3K")))
}

func TestValue_Comparable(t *testing.T) {
	assert.True(t, ParseValue("2.1%").Comparable(ParseValue("-0.4%")))
	assert.False(t, ParseValue("2.1%").Comparable(ParseValue("2.1K")))
	assert.False(t, ParseValue("Hawkish").Comparable(ParseValue("Hawkish")))
}

func TestValue_NullStringRoundTrip(t *testing.T) {
	for _, v := range []Value{NullValue(), ParseValue("2.1%"), ParseValue("Hawkish")} {
		back := ValueFromNullString(v.NullString())
		assert.True(t, v.Equal(back))
	}
}
