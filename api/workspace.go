package api

// Workspace is the top-level schema of the monopub.yaml file stored at the
// monorepo root.
type Workspace struct {
	// ChangesDir is where pending change-request files live,
	// relative to the repo root. Defaults to "common/changes".
	ChangesDir string `yaml:"changesDir"`

	// Packages lists the workspace package directories, relative to the
	// repo root. Each directory must contain a package.json.
	Packages []string `yaml:"packages"`
}
