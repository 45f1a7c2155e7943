package domain

// Package is one workspace package as loaded from the monorepo inventory.
// The set of packages is loaded once per run and is immutable during
// orchestration except for Version, which Apply rewrites.
type Package struct {
	Name          string
	Version       string
	ShouldPublish bool
	VersionPolicy string // optional policy name; empty means unpolicied
	Dir           string // package directory relative to the repo root
	Dependencies  map[string]string // dependency name -> version range
}

// ChangeRequest is one author-submitted change declaration for a package.
// Many requests may exist for the same package; they are merged before use.
type ChangeRequest struct {
	PackageName string
	Type        ChangeType
	Comment     string
	Author      string // optional commit metadata
	CommitHash  string // optional commit metadata
}

// ChangeInfo is the computed release decision for one package: the resolved
// change magnitude, the new version after semantic bump rules and any
// prerelease token, and the merged request comments. Entries are consumed
// read-only by the orchestrator.
type ChangeInfo struct {
	PackageName string
	Type        ChangeType
	OldVersion  string
	NewVersion  string
	Order       int // position in the dependency-ordered cascade
	Requests    []ChangeRequest
}

// OrderedChangeList is the full cascade, sorted so that a package always
// appears after every package it depends on.
type OrderedChangeList []ChangeInfo

// Lookup returns the entry for the named package, if present.
func (l OrderedChangeList) Lookup(name string) (ChangeInfo, bool) {
	for _, ci := range l {
		if ci.PackageName == name {
			return ci, true
		}
	}
	return ChangeInfo{}, false
}

// Publishable returns the entries whose resolved type is a real bump
// (strictly greater than dependency), in cascade order. These are the
// packages that get published and tagged.
func (l OrderedChangeList) Publishable() []ChangeInfo {
	var out []ChangeInfo
	for _, ci := range l {
		if ci.Type.RequiresBump() {
			out = append(out, ci)
		}
	}
	return out
}

// ChangelogEntry is one appended record in a package's changelog file.
type ChangelogEntry struct {
	Version    string `json:"version"`
	ChangeType string `json:"changeType"`
	Comment    string `json:"comment"`
	Author     string `json:"author,omitempty"`
	CommitHash string `json:"commitHash,omitempty"`
}
