// Package changedir implements the change-request store over a directory of
// JSON files, one pending record per file.
package changedir

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jgrierson/monopub/internal/release/domain"
	"github.com/jgrierson/monopub/internal/release/ports"
)

// record is the on-disk shape of one change request.
type record struct {
	PackageName string `json:"packageName"`
	Type        string `json:"type"`
	Comment     string `json:"comment"`
	Author      string `json:"author,omitempty"`
	CommitHash  string `json:"commitHash,omitempty"`
}

// Adapter implements ports.ChangeStorePort for a single changes directory.
type Adapter struct {
	dir string
}

// New creates a change store over the given directory. The directory may not
// exist yet; List treats a missing directory as empty.
func New(dir string) *Adapter {
	return &Adapter{dir: dir}
}

// List enumerates and parses every pending change file, sorted by file name
// so duplicate-merge order is stable.
func (a *Adapter) List(_ context.Context) ([]ports.PendingChange, error) {
	entries, err := os.ReadDir(a.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading changes directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]ports.PendingChange, 0, len(names))
	for _, name := range names {
		path := filepath.Join(a.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading change file %s: %w", name, err)
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parsing change file %s: %w", name, err)
		}
		ct, err := domain.ParseChangeType(rec.Type)
		if err != nil {
			return nil, fmt.Errorf("change file %s: %w", name, err)
		}
		out = append(out, ports.PendingChange{
			File: path,
			Request: domain.ChangeRequest{
				PackageName: rec.PackageName,
				Type:        ct,
				Comment:     rec.Comment,
				Author:      rec.Author,
				CommitHash:  rec.CommitHash,
			},
		})
	}
	return out, nil
}

// Save writes a new change file with a unique name and returns its path.
func (a *Adapter) Save(_ context.Context, req domain.ChangeRequest) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating changes directory: %w", err)
	}

	rec := record{
		PackageName: req.PackageName,
		Type:        req.Type.String(),
		Comment:     req.Comment,
		Author:      req.Author,
		CommitHash:  req.CommitHash,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding change request: %w", err)
	}

	// Scoped package names contain a slash; flatten it for the file name.
	base := strings.ReplaceAll(req.PackageName, "/", "-")
	path := filepath.Join(a.dir, fmt.Sprintf("%s-%s.json", base, uuid.NewString()))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing change file: %w", err)
	}
	return path, nil
}

// Delete removes an applied change file.
func (a *Adapter) Delete(_ context.Context, file string) error {
	if err := os.Remove(file); err != nil {
		return fmt.Errorf("removing change file: %w", err)
	}
	return nil
}
