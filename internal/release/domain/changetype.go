// Package domain holds the core types for coordinated monorepo releases:
// packages, change requests, resolved change decisions, and version math.
package domain

import "fmt"

// ChangeType is the magnitude of a change for one package. The numeric
// ordering is load-bearing: anything above ChangeNone participates in a
// release, and anything above ChangeDependency gets a real version bump
// (and is published and tagged). ChangeDependency only refreshes the
// dependency ranges recorded in the package manifest.
type ChangeType int

const (
	ChangeNone ChangeType = iota
	ChangeDependency
	ChangePatch
	ChangeMinor
	ChangeMajor
)

// String returns the string representation of the ChangeType.
// Implements the Stringer interface.
func (c ChangeType) String() string {
	if c < 0 || int(c) >= len(changeTypeNames) {
		return "unknown"
	}
	return changeTypeNames[c]
}

var changeTypeNames = [...]string{
	ChangeNone:       "none",
	ChangeDependency: "dependency",
	ChangePatch:      "patch",
	ChangeMinor:      "minor",
	ChangeMajor:      "major",
}

// ParseChangeType converts a change-file string into a ChangeType.
func ParseChangeType(s string) (ChangeType, error) {
	for i, name := range changeTypeNames {
		if s == name {
			return ChangeType(i), nil
		}
	}
	return ChangeNone, fmt.Errorf("unknown change type %q", s)
}

// MaxChangeType returns the larger of two change types. Merging duplicate
// change requests for one package always keeps the maximum magnitude.
func MaxChangeType(a, b ChangeType) ChangeType {
	if a > b {
		return a
	}
	return b
}

// RequiresBump reports whether the change type changes the package's own
// version (patch or above).
func (c ChangeType) RequiresBump() bool {
	return c > ChangeDependency
}

// RequiresRelease reports whether the change type puts the package into the
// release at all (dependency refresh or above).
func (c ChangeType) RequiresRelease() bool {
	return c > ChangeNone
}
