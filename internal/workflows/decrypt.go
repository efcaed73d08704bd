package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arcanum-sh/arcanum/internal/audit"
	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
	"github.com/arcanum-sh/arcanum/internal/secrets"
)

// DecryptOptions configures the decrypt workflow.
type DecryptOptions struct {
	// Input is the ciphertext path.
	Input string

	// Output is the plaintext destination, or "-" to return the plaintext
	// to the caller (for stdout).
	Output string

	// IdentityRefs are identity file paths from --identity flags. Empty
	// falls back to the default SSH key locations.
	IdentityRefs []string
}

// DecryptResult contains the outcome of a decrypt operation.
type DecryptResult struct {
	// Output is the plaintext path written, empty when streaming.
	Output string

	// Plaintext carries the decrypted bytes when Output was "-".
	Plaintext []byte

	// SpecApplied is true when the manifest had an entry for the input and
	// its permissions/ownership were applied to the output.
	SpecApplied bool
}

// Decrypt decrypts a managed file with the active identity.
//
// Returns ErrIdentityNotFound if no usable identity reference exists.
// Returns ErrNoMatchingRecipient if the identity cannot unwrap the file key.
// Returns ErrAuthenticationFailure if the ciphertext fails authentication.
func Decrypt(ctx context.Context, opts DecryptOptions) (*DecryptResult, error) {
	root, manifest, err := projectContext()
	if err != nil {
		return nil, err
	}

	identities, err := secrets.ResolveIdentityRefs(opts.IdentityRefs)
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, opts.Input)
	}

	plaintext, err := secrets.Decrypt(blob, identities...)
	if err != nil {
		return nil, err
	}

	if opts.Output == "-" {
		return &DecryptResult{Plaintext: plaintext}, nil
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("%w: not writing %s", kerrors.ErrPlaintextEmpty, opts.Output)
	}

	result := &DecryptResult{Output: opts.Output}

	source, err := relSource(root, opts.Input)
	if err != nil {
		return nil, err
	}

	// Apply the manifest's destination spec when the input is managed;
	// otherwise write a plain 0600 file.
	if _, spec, ok := manifest.SpecFor(source); ok {
		if err := secrets.EnsureDestDir(opts.Output, spec); err != nil {
			return nil, err
		}
		if err := secrets.WriteFileAtomic(opts.Output, plaintext, 0600); err != nil {
			return nil, err
		}
		if err := secrets.ApplyFileSpec(opts.Output, spec); err != nil {
			return nil, err
		}
		result.SpecApplied = true
	} else {
		if err := os.MkdirAll(filepath.Dir(opts.Output), 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
		if err := secrets.WriteFileAtomic(opts.Output, plaintext, 0600); err != nil {
			return nil, err
		}
	}

	entry := audit.LogWithUser("decrypt")
	entry.Source = source
	entry.Dest = opts.Output
	audit.Log(entry)

	return result, nil
}
