package workflows

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/arcanum-sh/arcanum/internal/audit"
	"github.com/arcanum-sh/arcanum/internal/secrets"
)

// RekeyOptions configures the rekey workflow.
type RekeyOptions struct {
	// Path targets a single file. Ignored when All is set.
	Path string

	// All rekeys every file in the manifest.
	All bool

	// IdentityRefs are identity file paths from --identity flags.
	IdentityRefs []string

	// Workers bounds batch parallelism; zero uses the default.
	Workers int
}

// RekeyResult contains the per-file outcomes of a rekey operation.
type RekeyResult struct {
	// Results holds one entry per targeted file, in stable order.
	Results []secrets.FileResult

	// ProjectPath is the root path of the project.
	ProjectPath string
}

// Failed returns the results that carry an error.
func (r *RekeyResult) Failed() []secrets.FileResult {
	var failed []secrets.FileResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Rekey re-encrypts managed files to their current manifest recipient sets.
// With All, every manifest entry is rekeyed on a bounded worker pool and
// per-file failures never abort the rest of the batch.
//
// The result is returned even when err is non-nil so callers can report which
// files failed.
//
// Returns ErrFileNotManaged if a targeted file has no manifest entry.
// Returns ErrPartialBatchFailure if one or more files failed.
func Rekey(ctx context.Context, opts RekeyOptions) (*RekeyResult, error) {
	root, manifest, err := projectContext()
	if err != nil {
		return nil, err
	}

	identities, err := secrets.ResolveIdentityRefs(opts.IdentityRefs)
	if err != nil {
		return nil, err
	}

	var requests []secrets.RekeyRequest
	var configFailures []secrets.FileResult
	if opts.All {
		// A source may appear under several manifest names; rekey it once.
		// An entry whose recipients cannot even be parsed is recorded as that
		// file's failure and never blocks the rest of the batch.
		seen := make(map[string]struct{})
		for _, name := range manifest.SortedNames() {
			spec := manifest.Files[name]
			if _, ok := seen[spec.Source]; ok {
				continue
			}
			seen[spec.Source] = struct{}{}

			recipients, err := recipientsFor(manifest, spec.Source)
			if err != nil {
				configFailures = append(configFailures, secrets.FileResult{
					Name: name,
					Path: filepath.Join(root, filepath.FromSlash(spec.Source)),
					Err:  fmt.Errorf("%s: %w", name, err),
				})
				continue
			}
			requests = append(requests, secrets.RekeyRequest{
				Name:       name,
				Path:       filepath.Join(root, filepath.FromSlash(spec.Source)),
				CacheKey:   spec.Source,
				Recipients: recipients,
			})
		}
	} else {
		source, err := relSource(root, opts.Path)
		if err != nil {
			return nil, err
		}
		recipients, err := recipientsFor(manifest, source)
		if err != nil {
			return nil, err
		}
		name, _, _ := manifest.SpecFor(source)
		requests = append(requests, secrets.RekeyRequest{
			Name:       name,
			Path:       filepath.Join(root, filepath.FromSlash(source)),
			CacheKey:   source,
			Recipients: recipients,
		})
	}

	cache, err := openCache(root)
	if err != nil {
		return nil, err
	}

	results := secrets.RekeyFiles(ctx, requests, identities, cache, opts.Workers)
	results = append(results, configFailures...)
	result := &RekeyResult{Results: results, ProjectPath: root}

	if err := cache.Save(); err != nil {
		return result, fmt.Errorf("saving cache: %w", err)
	}

	entry := audit.LogWithUser("rekey")
	entry.FilesCount = len(results) - len(result.Failed())
	for _, res := range results {
		if res.Err == nil {
			entry.Files = append(entry.Files, res.Name)
		}
	}
	audit.Log(entry)

	return result, secrets.SummarizeBatch(results)
}
