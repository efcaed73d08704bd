package workflows

import (
	"context"
	"fmt"

	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
	"github.com/arcanum-sh/arcanum/internal/secrets"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	// Path restricts the report to a single file; empty reports all.
	Path string
}

// FileStatus is the verification outcome for one managed file.
type FileStatus struct {
	// Name is the manifest entry name.
	Name string

	// Source is the project-relative ciphertext path.
	Source string

	// Status is the derived verification result.
	Status secrets.CacheStatus

	// Recipients is the size of the file's configured recipient set.
	Recipients int

	// Err is set when the entry could not be verified at all, for example
	// because its configured recipients fail to parse.
	Err error
}

// StatusResult contains the per-file verification outcomes.
type StatusResult struct {
	// Files holds one entry per managed file, in stable order.
	Files []FileStatus

	// ProjectPath is the root path of the project.
	ProjectPath string
}

// NeedsAttention returns the files that are not up to date or could not be
// verified.
func (r *StatusResult) NeedsAttention() []FileStatus {
	var out []FileStatus
	for _, f := range r.Files {
		if f.Status != secrets.StatusUpToDate || f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Status verifies every managed file against the derived cache, recomputing
// both content and recipient fingerprints from disk. It never decrypts
// anything and never mutates state.
//
// Returns ErrProjectNotInitialized if no manifest was found.
// Returns ErrFileNotManaged if Path names a file with no manifest entry.
// Returns ErrCacheStale, alongside the result, when Path names a file that is
// not up to date; single-file queries can drive scripts through the exit code.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	root, manifest, err := projectContext()
	if err != nil {
		return nil, err
	}

	cache, err := openCache(root)
	if err != nil {
		return nil, err
	}

	var only string
	if opts.Path != "" {
		only, err = relSource(root, opts.Path)
		if err != nil {
			return nil, err
		}
		if _, _, ok := manifest.SpecFor(only); !ok {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotManaged, only)
		}
	}

	result := &StatusResult{ProjectPath: root}
	seen := make(map[string]struct{})
	for _, name := range manifest.SortedNames() {
		spec := manifest.Files[name]
		if _, ok := seen[spec.Source]; ok {
			continue
		}
		seen[spec.Source] = struct{}{}
		if only != "" && spec.Source != only {
			continue
		}

		// A broken recipient config is reported for that entry; the rest of
		// the project is still verified.
		recipients, err := recipientsFor(manifest, spec.Source)
		if err != nil {
			result.Files = append(result.Files, FileStatus{
				Name:   name,
				Source: spec.Source,
				Status: secrets.StatusUnreadable,
				Err:    fmt.Errorf("%s: %w", name, err),
			})
			continue
		}
		result.Files = append(result.Files, FileStatus{
			Name:       name,
			Source:     spec.Source,
			Status:     cache.Verify(spec.Source, recipients),
			Recipients: recipients.Len(),
		})
	}

	if only != "" && len(result.Files) == 1 {
		if err := result.Files[0].Err; err != nil {
			return result, err
		}
		if result.Files[0].Status != secrets.StatusUpToDate {
			return result, fmt.Errorf("%w: %s", kerrors.ErrCacheStale, only)
		}
	}
	return result, nil
}
