// Package version compares the loose dotted version strings reported by
// package managers.
//
// The comparison is coarse: a "-" suffix marks a pre-release, a "+" build
// suffix is ignored, and pre-release labels are not ordered against each
// other.
package version

import (
	"strconv"
	"strings"
)

// IsSufficient reports whether installed satisfies required.
//
// Core segments are compared numerically after padding the shorter list with
// zeros, so "1.2" equals "1.2.0" and four-segment versions compare like
// three-segment ones. Non-numeric segments count as 0. When the cores are
// equal, a release satisfies a pre-release requirement but a pre-release
// does not satisfy a release requirement.
func IsSufficient(installed, required string) bool {
	installedCore, installedPre := split(installed)
	requiredCore, requiredPre := split(required)

	a := segments(installedCore)
	b := segments(requiredCore)
	for len(a) < len(b) {
		a = append(a, 0)
	}
	for len(b) < len(a) {
		b = append(b, 0)
	}

	for i := range a {
		if a[i] > b[i] {
			return true
		}
		if a[i] < b[i] {
			return false
		}
	}

	if installedPre && !requiredPre {
		return false
	}
	return true
}

// split separates the core version from any pre-release or build suffix.
// Only a suffix that starts with "-" is a pre-release.
func split(v string) (core string, prerelease bool) {
	v = strings.TrimSpace(v)
	if idx := strings.IndexAny(v, "-+"); idx >= 0 {
		return v[:idx], v[idx] == '-'
	}
	return v, false
}

func segments(core string) []int {
	parts := strings.Split(core, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			n = 0
		}
		out[i] = n
	}
	return out
}
