package workflows

import (
	"context"
	"fmt"

	"github.com/arcanum-sh/arcanum/internal/audit"
	"github.com/arcanum-sh/arcanum/internal/editor"
	"github.com/arcanum-sh/arcanum/internal/secrets"
)

// MergeOptions configures the merge workflow.
type MergeOptions struct {
	// Base, Ours and Theirs are the three ciphertext versions. A git merge
	// driver passes temporary paths here (%O %A %B).
	Base   string
	Ours   string
	Theirs string

	// Output receives the merged ciphertext; empty writes back to Ours.
	Output string

	// ManifestSource names the managed file being merged, relative to the
	// project root. Required when the inputs are VCS temporaries whose paths
	// do not correspond to a manifest entry; empty derives it from Ours.
	ManifestSource string

	// IdentityRefs are identity file paths from --identity flags.
	IdentityRefs []string

	// Editor resolves conflicting merges; nil uses $VISUAL/$EDITOR/vi.
	Editor editor.Editor
}

// MergeResult contains the outcome of a merge operation.
type MergeResult struct {
	// Output is the ciphertext path that was written.
	Output string

	// Clean is true when the textual merge needed no manual resolution.
	Clean bool

	// BaseMissing is true when no common base existed and both sides were
	// presented for manual resolution.
	BaseMissing bool
}

// Merge three-way merges two divergent versions of an encrypted file against
// their common base, re-encrypting the result to the file's manifest
// recipient set. Overlapping changes open the user's editor on a conflict-
// marked working copy.
//
// Returns ErrFileNotManaged if the merged file has no manifest entry.
// Returns ErrMergeBaseUnavailable if the base is missing and no editor could
// resolve the two sides.
func Merge(ctx context.Context, opts MergeOptions) (*MergeResult, error) {
	root, manifest, err := projectContext()
	if err != nil {
		return nil, err
	}

	identities, err := secrets.ResolveIdentityRefs(opts.IdentityRefs)
	if err != nil {
		return nil, err
	}

	source := opts.ManifestSource
	if source == "" {
		source, err = relSource(root, opts.Ours)
		if err != nil {
			return nil, err
		}
	}
	recipients, err := recipientsFor(manifest, source)
	if err != nil {
		return nil, err
	}

	cache, err := openCache(root)
	if err != nil {
		return nil, err
	}

	ed := opts.Editor
	if ed == nil {
		ed = &editor.ExecEditor{}
	}

	output := opts.Output
	if output == "" {
		output = opts.Ours
	}

	session := &secrets.MergeSession{
		BasePath:   opts.Base,
		OursPath:   opts.Ours,
		TheirsPath: opts.Theirs,
		OutputPath: output,
		CacheKey:   source,
		Recipients: recipients,
		Identities: identities,
		Editor:     ed,
		Cache:      cache,
	}
	outcome, err := session.Run(ctx)
	if err != nil {
		return nil, err
	}

	if err := cache.Save(); err != nil {
		return nil, fmt.Errorf("saving cache: %w", err)
	}

	entry := audit.LogWithUser("merge")
	entry.Source = source
	entry.Dest = output
	entry.Clean = outcome.Clean
	audit.Log(entry)

	return &MergeResult{
		Output:      output,
		Clean:       outcome.Clean,
		BaseMissing: outcome.BaseMissing,
	}, nil
}
