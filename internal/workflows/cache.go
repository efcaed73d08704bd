package workflows

import (
	"context"
	"fmt"

	"github.com/arcanum-sh/arcanum/internal/audit"
	"github.com/arcanum-sh/arcanum/internal/configs"
	"github.com/arcanum-sh/arcanum/internal/secrets"
)

// CacheRebuildOptions configures the cache rebuild workflow.
type CacheRebuildOptions struct{}

// CacheRebuildResult contains the outcome of a cache rebuild.
type CacheRebuildResult struct {
	// Results holds one entry per manifest source, in stable order.
	Results []secrets.FileResult

	// CachePath is where the rebuilt index was written.
	CachePath string

	// Entries is the number of entries in the rebuilt cache.
	Entries int
}

// CacheRebuild regenerates the derived fingerprint index from the on-disk
// ciphertexts and the current manifest. Unreadable files are reported
// per-file and skipped.
//
// The result is returned even when err is non-nil so callers can report which
// files failed.
//
// Returns ErrPartialBatchFailure if one or more files could not be indexed.
func CacheRebuild(ctx context.Context, opts CacheRebuildOptions) (*CacheRebuildResult, error) {
	root, manifest, err := projectContext()
	if err != nil {
		return nil, err
	}

	// An entry whose recipients cannot be parsed is recorded as that file's
	// failure; the remaining entries are still indexed.
	var targets []secrets.CacheTarget
	var configFailures []secrets.FileResult
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
				Path: spec.Source,
				Err:  fmt.Errorf("%s: %w", name, err),
			})
			continue
		}
		targets = append(targets, secrets.CacheTarget{
			Name:       name,
			Path:       spec.Source,
			Recipients: recipients,
		})
	}

	cache, err := openCache(root)
	if err != nil {
		return nil, err
	}

	results := cache.Rebuild(targets)
	results = append(results, configFailures...)
	result := &CacheRebuildResult{
		Results:   results,
		CachePath: configs.CacheFilePath(root),
		Entries:   cache.Len(),
	}

	if err := cache.Save(); err != nil {
		return result, fmt.Errorf("saving cache: %w", err)
	}

	entry := audit.LogWithUser("cache-rebuild")
	entry.FilesCount = cache.Len()
	audit.Log(entry)

	return result, secrets.SummarizeBatch(results)
}
