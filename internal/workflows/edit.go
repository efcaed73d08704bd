package workflows

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/arcanum-sh/arcanum/internal/audit"
	"github.com/arcanum-sh/arcanum/internal/editor"
	"github.com/arcanum-sh/arcanum/internal/secrets"
)

// EditOptions configures the edit workflow.
type EditOptions struct {
	// Path is the ciphertext to edit.
	Path string

	// IdentityRefs are identity file paths from --identity flags.
	IdentityRefs []string

	// Editor overrides the editor; nil uses $VISUAL/$EDITOR/vi.
	Editor editor.Editor
}

// EditResult contains the outcome of an edit operation.
type EditResult struct {
	// Path is the ciphertext that was edited.
	Path string

	// Changed is false when the editor produced identical content and the
	// ciphertext was left untouched.
	Changed bool
}

// Edit opens a managed file's plaintext in the user's editor and re-encrypts
// it when the content changed. Unchanged content is a no-op.
//
// Returns ErrFileNotManaged if the file has no manifest entry.
// Returns ErrNoMatchingRecipient if the identity cannot decrypt the file.
// Returns ErrPlaintextEmpty if the editor left the file empty.
func Edit(ctx context.Context, opts EditOptions) (*EditResult, error) {
	root, manifest, err := projectContext()
	if err != nil {
		return nil, err
	}

	identities, err := secrets.ResolveIdentityRefs(opts.IdentityRefs)
	if err != nil {
		return nil, err
	}

	source, err := relSource(root, opts.Path)
	if err != nil {
		return nil, err
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

	session := &secrets.EditSession{
		Path:       filepath.Join(root, filepath.FromSlash(source)),
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

	if outcome.Changed {
		if err := cache.Save(); err != nil {
			return nil, fmt.Errorf("saving cache: %w", err)
		}
		entry := audit.LogWithUser("edit")
		entry.Source = source
		entry.Recipients = recipients.Len()
		audit.Log(entry)
	}

	return &EditResult{Path: opts.Path, Changed: outcome.Changed}, nil
}
