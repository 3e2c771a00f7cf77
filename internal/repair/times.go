package repair

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	clockPrefix = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})(?::\d{2})?\s*([ap])?\.?(m\.?)?`)
	dayN        = regexp.MustCompile(`(?i)^day\s+\d+$`)
)

// parseTime returns the time of day as HH:MM. All-day and tentative
// entries map to 00:00. Text after the clock reading is ignored.
func parseTime(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	switch strings.ToLower(s) {
	case "all day", "allday", "tentative":
		return "00:00", true
	}
	if dayN.MatchString(s) {
		return "00:00", true
	}

	m := clockPrefix.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if minute > 59 {
		return "", false
	}

	if m[3] != "" && m[4] != "" {
		if hour < 1 || hour > 12 {
			return "", false
		}
		pm := strings.EqualFold(m[3], "p")
		switch {
		case pm && hour != 12:
			hour += 12
		case !pm && hour == 12:
			hour = 0
		}
	}
	if hour > 23 {
		return "", false
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}
