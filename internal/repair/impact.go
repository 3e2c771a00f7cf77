package repair

import (
	"strings"

	"econcal/internal/domain/calendar"
)

var impactNoise = strings.NewReplacer("impact", "", "volatility", "", "expected", "", "-", " ", "_", " ")

// normalizeImpact maps free-form impact labels onto the closed set.
// Holiday, special and empty labels become unknown.
func normalizeImpact(raw string) calendar.Impact {
	s := strings.TrimSpace(impactNoise.Replace(strings.ToLower(raw)))

	switch s {
	case "high", "3":
		return calendar.ImpactHigh
	case "medium", "med", "moderate", "2":
		return calendar.ImpactMedium
	case "low", "1":
		return calendar.ImpactLow
	}
	return calendar.ImpactUnknown
}

// truthy reads holiday flags such as "True", "yes" or "1"
func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "1", "t":
		return true
	}
	return false
}
