package domain

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// PrereleaseToken is an optional prerelease-name or version-suffix override,
// applied uniformly to every bumped version in a run. At most one of the two
// may be set; configuring both is a fatal configuration conflict.
type PrereleaseToken struct {
	Name   string
	Suffix string
}

// Validate rejects a token that sets both a prerelease name and a suffix.
// It runs before any change file is loaded so a conflict never mutates state.
func (t PrereleaseToken) Validate() error {
	if t.Name != "" && t.Suffix != "" {
		return &ConfigConflictError{OptionA: "prerelease-name", OptionB: "suffix"}
	}
	return nil
}

// IsZero reports whether no override is configured.
func (t PrereleaseToken) IsZero() bool {
	return t.Name == "" && t.Suffix == ""
}

// apply rewrites the prerelease identifier of a bumped version.
func (t PrereleaseToken) apply(v semver.Version) (semver.Version, error) {
	switch {
	case t.Name != "":
		return v.SetPrerelease(t.Name)
	case t.Suffix != "":
		return v.SetPrerelease(strings.TrimPrefix(t.Suffix, "-"))
	default:
		return v, nil
	}
}

// NextVersion computes the version a package gets for the given change type.
// Major, minor, and patch bump the matching segment of the current version
// (dropping any existing prerelease identifier); a dependency-only change
// keeps the version untouched, since only its recorded dependency ranges are
// refreshed. The prerelease token is applied to bumped versions only.
func NextVersion(current string, t ChangeType, tok PrereleaseToken) (string, error) {
	if !t.RequiresBump() {
		return current, nil
	}

	v, err := semver.NewVersion(current)
	if err != nil {
		return "", fmt.Errorf("parsing version %q: %w", current, err)
	}

	var next semver.Version
	switch t {
	case ChangeMajor:
		next = v.IncMajor()
	case ChangeMinor:
		next = v.IncMinor()
	case ChangePatch:
		next = v.IncPatch()
	default:
		return current, nil
	}

	next, err = tok.apply(next)
	if err != nil {
		return "", fmt.Errorf("applying prerelease token to %q: %w", next.String(), err)
	}
	return next.String(), nil
}

// BumpRange rewrites a dependency range so it points at a dependency's new
// version while preserving the range operator. Only the simple range shapes
// used by workspace manifests are rewritten ("^1.2.3", "~1.2.3", exact
// "1.2.3", ">=1.2.3"); anything else is returned unchanged.
func BumpRange(rng, newVersion string) string {
	for _, op := range []string{"^", "~", ">=", ""} {
		rest := strings.TrimPrefix(rng, op)
		if op == "" || rest != rng {
			if _, err := semver.NewVersion(rest); err == nil {
				return op + newVersion
			}
			if op != "" {
				return rng
			}
		}
	}
	return rng
}
