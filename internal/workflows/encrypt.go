package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arcanum-sh/arcanum/internal/audit"
	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
	"github.com/arcanum-sh/arcanum/internal/secrets"
	"github.com/arcanum-sh/arcanum/internal/utils"
)

// EncryptOptions configures the encrypt workflow.
type EncryptOptions struct {
	// Input is the plaintext path, or "-" to read from stdin.
	Input string

	// Output is the ciphertext path; it must be a source listed in the
	// manifest, which determines the recipient set.
	Output string
}

// EncryptResult contains the outcome of an encrypt operation.
type EncryptResult struct {
	// Output is the ciphertext path that was written.
	Output string

	// Recipients is the number of distinct recipients encrypted to.
	Recipients int

	// ProjectPath is the root path of the project.
	ProjectPath string
}

// Encrypt encrypts a plaintext file to the recipient set configured for the
// target in the manifest, replaces the target atomically, and updates the
// cache.
//
// Returns ErrProjectNotInitialized if no manifest was found.
// Returns ErrFileNotManaged if the output has no manifest entry.
// Returns ErrEmptyRecipients if the configured recipient set is empty.
// Returns ErrFileNotFound if the plaintext input does not exist.
func Encrypt(ctx context.Context, opts EncryptOptions) (*EncryptResult, error) {
	root, manifest, err := projectContext()
	if err != nil {
		return nil, err
	}

	var plaintext []byte
	if opts.Input == "-" {
		plaintext, err = utils.ReadStdin()
		if err != nil {
			return nil, err
		}
	} else {
		plaintext, err = os.ReadFile(opts.Input)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, opts.Input)
		}
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrPlaintextEmpty, opts.Input)
	}

	source, err := relSource(root, opts.Output)
	if err != nil {
		return nil, err
	}
	recipients, err := recipientsFor(manifest, source)
	if err != nil {
		return nil, err
	}

	blob, err := secrets.Encrypt(plaintext, recipients)
	if err != nil {
		return nil, err
	}

	outputPath := filepath.Join(root, filepath.FromSlash(source))
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("creating ciphertext directory: %w", err)
	}
	if err := secrets.WriteFileAtomic(outputPath, blob, 0644); err != nil {
		return nil, err
	}

	cache, err := openCache(root)
	if err != nil {
		return nil, err
	}
	cache.Update(source, blob, recipients)
	if err := cache.Save(); err != nil {
		return nil, err
	}

	entry := audit.LogWithUser("encrypt")
	entry.Source = source
	entry.Recipients = recipients.Len()
	audit.Log(entry)

	return &EncryptResult{
		Output:      outputPath,
		Recipients:  recipients.Len(),
		ProjectPath: root,
	}, nil
}
