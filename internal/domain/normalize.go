package domain

import "strings"

// workerAliases maps common planner spellings to canonical worker names.
var workerAliases = map[string]string{
	"geography":      "geo",
	"geo agent":      "geo",
	"geolocation":    "geo",
	"trails":         "trail",
	"trail finder":   "trail",
	"route planning": "route_planning",
	"route planner":  "route_planning",
	"routing":        "route_planning",
	"forecast":       "weather",
	"meteorology":    "weather",
	"equipment":      "gear",
	"gear list":      "gear",
	"lodging":        "accommodation",
	"accommodations": "accommodation",
	"camping":        "accommodation",
}

// NormalizeWorkerName maps a free-form worker reference to a canonical
// snake_case name. Planner output is model-generated and arrives with
// inconsistent casing, separators, and "agent"/"worker" suffixes; this
// keeps the scheduler's bookkeeping keyed on one spelling per worker.
// Returns ok=false for names that cannot be normalized.
func NormalizeWorkerName(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}

	n = strings.ReplaceAll(n, "-", " ")
	n = strings.ReplaceAll(n, "_", " ")
	n = strings.Join(strings.Fields(n), " ")

	n = strings.TrimSuffix(n, " agent")
	n = strings.TrimSuffix(n, " worker")
	n = strings.TrimSpace(n)
	if n == "" {
		return "", false
	}

	if alias, ok := workerAliases[n]; ok {
		return alias, true
	}

	n = strings.ReplaceAll(n, " ", "_")

	// Concatenated suffixes like "geoagent"; only strip when something
	// meaningful remains, so names like "agent" itself survive.
	for _, suffix := range []string{"agent", "worker"} {
		if trimmed := strings.TrimSuffix(n, suffix); trimmed != n && len(trimmed) >= 3 {
			n = trimmed
			break
		}
	}

	if alias, ok := workerAliases[strings.ReplaceAll(n, "_", " ")]; ok {
		return alias, true
	}

	for _, r := range n {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return "", false
		}
	}
	return n, true
}
