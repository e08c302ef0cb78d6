package reconcile

import "strings"

// SuffixSegments is how many trailing path segments identify a shot folder
// across mount points.
const SuffixSegments = 4

// Normalize returns the first canonical path containing the last
// SuffixSegments segments of rawPath. With no match, or nothing to match on,
// rawPath comes back unchanged so the record is kept rather than dropped.
// An empty rawPath is therefore returned as "" instead of being matched to
// canonical[0], even though "" is a substring of every canonical path.
//
// canonical is scanned in order; when two entries contain the suffix the
// earlier one wins.
func Normalize(rawPath string, canonical []string) string {
	suffix := pathSuffix(rawPath, SuffixSegments)
	if suffix == "" {
		return rawPath
	}
	for _, candidate := range canonical {
		if strings.Contains(candidate, suffix) {
			return candidate
		}
	}
	return rawPath
}

func pathSuffix(p string, n int) string {
	parts := strings.Split(p, "/")
	if len(parts) > n {
		parts = parts[len(parts)-n:]
	}
	return strings.Join(parts, "/")
}
