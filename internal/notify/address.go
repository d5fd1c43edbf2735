package notify

import (
	"regexp"
	"sort"
	"strings"
)

// emailPattern accepts the usual local@domain shape and insists on a dot
// in the domain. Matching is case-sensitive; two spellings of the same
// mailbox are treated as distinct entries.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// splitPattern breaks a raw entry containing multiple addresses apart.
var splitPattern = regexp.MustCompile(`[;,]`)

// Normalize turns raw configured address entries into a validated,
// deduplicated recipient set. Entries containing `;` or `,` are split
// into candidates, whitespace is trimmed, empties and malformed shapes
// are dropped silently. The result is sorted so callers get a stable
// order, though no ordering is promised. Normalize never errors and is
// idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw []string) []string {
	seen := make(map[string]struct{})
	for _, entry := range raw {
		for _, candidate := range splitPattern.Split(entry, -1) {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" {
				continue
			}
			if !emailPattern.MatchString(candidate) {
				continue
			}
			seen[candidate] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// ValidAddress reports whether a single trimmed candidate looks like a
// deliverable address.
func ValidAddress(addr string) bool {
	return emailPattern.MatchString(addr)
}
