package engine

import (
	"log/slog"
	"strings"

	"github.com/upsift/upsift/internal/checks"
)

// ParseIDList splits a comma-separated id list, trimming blanks and dropping
// empty items.
func ParseIDList(s string) []string {
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}

// Select applies the inclusion and exclusion lists to discovered entries,
// keeping discovery order. A non-empty only list wins outright: skip is not
// consulted at all in that case.
func Select(entries []checks.Entry, only, skip []string) []checks.Entry {
	onlySet, skipSet := toSet(only), toSet(skip)
	out := make([]checks.Entry, 0, len(entries))
	for _, e := range entries {
		if len(onlySet) > 0 {
			if onlySet[e.ID] {
				out = append(out, e)
			}
			continue
		}
		if !skipSet[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func warnUnknown(logger *slog.Logger, entries []checks.Entry, only, skip []string) {
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.ID] = true
	}
	for flag, ids := range map[string][]string{"only": only, "skip": skip} {
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" && !known[id] {
				logger.Warn("unknown check id", "list", flag, "check", id)
			}
		}
	}
}
