// Package manifest owns reading and editing package.json manifests.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jgrierson/monopub/internal/release/domain"
	"github.com/jgrierson/monopub/internal/release/ports"
)

// ManifestName is the per-package manifest file name.
const ManifestName = "package.json"

// packageFile is the subset of package.json this tool consumes.
type packageFile struct {
	Name              string            `json:"name"`
	Version           string            `json:"version"`
	Dependencies      map[string]string `json:"dependencies,omitempty"`
	ShouldPublish     bool              `json:"shouldPublish,omitempty"`
	VersionPolicyName string            `json:"versionPolicyName,omitempty"`
}

// ReadPackage loads one package's manifest into the domain model.
func ReadPackage(repoDir, pkgDir string) (domain.Package, error) {
	path := filepath.Join(repoDir, pkgDir, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Package{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var pf packageFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return domain.Package{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if pf.Name == "" || pf.Version == "" {
		return domain.Package{}, fmt.Errorf("%s: name and version are required", path)
	}
	return domain.Package{
		Name:          pf.Name,
		Version:       pf.Version,
		ShouldPublish: pf.ShouldPublish,
		VersionPolicy: pf.VersionPolicyName,
		Dir:           pkgDir,
		Dependencies:  pf.Dependencies,
	}, nil
}

// Adapter implements ports.ManifestPort over the repository checkout.
type Adapter struct {
	repoDir string
	diff    ports.DiffPort
}

// New creates a manifest adapter. diff renders the dry-run edit preview.
func New(repoDir string, diff ports.DiffPort) *Adapter {
	return &Adapter{repoDir: repoDir, diff: diff}
}

// Apply rewrites the package's version and the ranges of its bumped in-repo
// dependencies. Fields this tool does not consume are carried through
// untouched, in their original order, so the resulting diff only shows the
// edited lines. When write is false the file is left alone and only a
// unified diff of the intended edit is returned.
func (a *Adapter) Apply(_ context.Context, pkg domain.Package, newVersion string, bumpedDeps map[string]string, write bool) (string, error) {
	path := filepath.Join(a.repoDir, pkg.Dir, ManifestName)
	original, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	fields, err := decodeObject(original)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}

	versionRaw, err := json.Marshal(newVersion)
	if err != nil {
		return "", fmt.Errorf("encoding version: %w", err)
	}

	for i := range fields {
		switch fields[i].key {
		case "version":
			fields[i].raw = versionRaw
		case "dependencies":
			if len(bumpedDeps) == 0 {
				continue
			}
			deps, err := decodeObject(fields[i].raw)
			if err != nil {
				return "", fmt.Errorf("parsing dependencies in %s: %w", path, err)
			}
			for j := range deps {
				depVersion, ok := bumpedDeps[deps[j].key]
				if !ok {
					continue
				}
				var rng string
				if err := json.Unmarshal(deps[j].raw, &rng); err != nil {
					return "", fmt.Errorf("dependency %s in %s: %w", deps[j].key, path, err)
				}
				bumpedRaw, err := json.Marshal(domain.BumpRange(rng, depVersion))
				if err != nil {
					return "", fmt.Errorf("encoding dependency range: %w", err)
				}
				deps[j].raw = bumpedRaw
			}
			fields[i].raw, err = encodeObject(deps)
			if err != nil {
				return "", fmt.Errorf("encoding dependencies: %w", err)
			}
		}
	}

	compact, err := encodeObject(fields)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", path, err)
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, compact, "", "  "); err != nil {
		return "", fmt.Errorf("encoding %s: %w", path, err)
	}
	updated := append(indented.Bytes(), '\n')

	preview := a.diff.ComputeDiff(path, path, original, updated)
	if !write {
		return preview, nil
	}
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return preview, nil
}

// objectField is one key of a JSON object with its raw value, in file order.
// The field order of package.json is author-controlled, so edits must not
// reorder it.
type objectField struct {
	key string
	raw json.RawMessage
}

func decodeObject(data []byte) ([]objectField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("not a JSON object")
	}
	var fields []objectField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields = append(fields, objectField{key: key, raw: raw})
	}
	return fields, nil
}

func encodeObject(fields []objectField) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, f.raw); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
