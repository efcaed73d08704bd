package secrets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/arcanum-sh/arcanum/internal/editor"
	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
)

// ScopedFile is a temporary plaintext file with guaranteed removal. The file
// lives in its own 0700 directory and is created 0600, so no other user can
// read the decrypted material while it exists.
type ScopedFile struct {
	dir  string
	path string
}

// NewScopedPlaintext writes data to a scoped temporary file. nameHint is the
// ciphertext path; its inner extension is preserved ("app.env.age" edits as
// a ".env" file) so editors pick the right mode.
func NewScopedPlaintext(data []byte, nameHint string) (*ScopedFile, error) {
	dir, err := os.MkdirTemp("", "arcanum-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	path := filepath.Join(dir, "plaintext-"+uuid.NewString()+innerExtension(nameHint))
	if err := os.WriteFile(path, data, 0600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write scratch plaintext: %w", err)
	}
	return &ScopedFile{dir: dir, path: path}, nil
}

// Path returns the plaintext location handed to the editor.
func (f *ScopedFile) Path() string { return f.path }

// Read returns the current content of the scoped file.
func (f *ScopedFile) Read() ([]byte, error) {
	return os.ReadFile(f.path)
}

// Remove deletes the plaintext and its directory. Safe to call multiple
// times; callers defer it immediately after acquisition so every exit path
// releases the plaintext.
func (f *ScopedFile) Remove() {
	_ = os.RemoveAll(f.dir)
}

// innerExtension extracts the extension beneath the encryption suffix:
// "secrets/app.env.age" yields ".env".
func innerExtension(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Ext(stem)
}

// EditSession decrypts one file for editing and re-encrypts it if the
// content changed: Idle -> Decrypted -> Edited? -> {ReEncrypted | Unchanged}.
type EditSession struct {
	// Path is the ciphertext location on disk.
	Path string

	// CacheKey is the path used in the cache index (relative to the project
	// root). Empty disables cache updates.
	CacheKey string

	Recipients *RecipientSet
	Identities []*Identity
	Editor     editor.Editor
	Cache      *CacheStore
}

// EditOutcome reports what the session did.
type EditOutcome struct {
	// Changed is false when the editor returned identical content; in that
	// case neither ciphertext nor cache were touched.
	Changed bool
}

// Run executes the session. The decrypted working copy is removed on every
// exit path, including editor failure, cancellation, and encryption failure
// afterward. The original ciphertext is replaced atomically and only after
// the new blob verifies.
func (s *EditSession) Run(ctx context.Context) (*EditOutcome, error) {
	blob, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, s.Path)
	}

	plaintext, err := Decrypt(blob, s.Identities...)
	if err != nil {
		return nil, err
	}

	scoped, err := NewScopedPlaintext(plaintext, s.Path)
	if err != nil {
		return nil, err
	}
	defer scoped.Remove()

	before := sha256.Sum256(plaintext)

	if err := s.Editor.Edit(ctx, scoped.Path()); err != nil {
		return nil, fmt.Errorf("edit step failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	edited, err := scoped.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read edited plaintext: %w", err)
	}
	if len(edited) == 0 {
		return nil, fmt.Errorf("%w: refusing to overwrite %s", kerrors.ErrPlaintextEmpty, s.Path)
	}

	if sha256.Sum256(edited) == before {
		// Unchanged content is a no-op: no ciphertext churn, no cache write.
		return &EditOutcome{Changed: false}, nil
	}

	newBlob, err := Encrypt(edited, s.Recipients)
	if err != nil {
		return nil, err
	}
	if err := verifyBlob(newBlob, edited, s.Recipients, s.Identities); err != nil {
		return nil, err
	}

	if err := WriteFileAtomic(s.Path, newBlob, 0644); err != nil {
		return nil, err
	}
	if s.Cache != nil && s.CacheKey != "" {
		s.Cache.Update(s.CacheKey, newBlob, s.Recipients)
	}
	return &EditOutcome{Changed: true}, nil
}

// verifyBlob checks a freshly produced ciphertext before it is allowed to
// replace the original: the header must carry one wrapped-key entry per
// recipient, and a decryption round trip must reproduce the plaintext.
// When none of the supplied identities belong to the new recipient set (the
// operator removed themselves), the round trip is skipped and only the
// structural check applies.
func verifyBlob(blob, plaintext []byte, recipients *RecipientSet, identities []*Identity) error {
	info, err := Inspect(blob)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	if info.RecipientCount() != recipients.Len() {
		return fmt.Errorf("verification failed: %d wrapped keys for %d recipients",
			info.RecipientCount(), recipients.Len())
	}

	roundTrip, err := Decrypt(blob, identities...)
	if errors.Is(err, kerrors.ErrNoMatchingRecipient) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}
	if !bytes.Equal(roundTrip, plaintext) {
		return fmt.Errorf("verification failed: decrypted content does not match")
	}
	return nil
}
