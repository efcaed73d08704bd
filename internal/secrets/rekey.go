package secrets

import (
	"context"
	"fmt"
	"os"
	"sync"

	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
)

// defaultRekeyWorkers bounds the parallelism of batch rekeys. Per-file work
// is independent; only the cache index is shared, and it serializes its own
// writes.
const defaultRekeyWorkers = 4

// RekeyRequest names one file to re-encrypt and the recipient set it should
// end up encrypted to.
type RekeyRequest struct {
	Name string

	// Path is the ciphertext location on disk.
	Path string

	// CacheKey is the cache index path. Empty disables the cache update.
	CacheKey string

	Recipients *RecipientSet
}

// RekeyFiles re-encrypts each requested file independently on a bounded
// worker pool. One file's failure is recorded in its result and never
// aborts the rest; callers summarize with SummarizeBatch.
func RekeyFiles(ctx context.Context, requests []RekeyRequest, identities []*Identity, cache *CacheStore, workers int) []FileResult {
	if workers <= 0 {
		workers = defaultRekeyWorkers
	}

	results := make([]FileResult, len(requests))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, req := range requests {
		wg.Add(1)
		go func(i int, req RekeyRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := FileResult{Name: req.Name, Path: req.Path}
			if err := ctx.Err(); err != nil {
				result.Err = err
			} else {
				result.Err = rekeyOne(req, identities, cache)
			}
			results[i] = result
		}(i, req)
	}
	wg.Wait()
	return results
}

// rekeyOne performs the decrypt / re-encrypt / verify / atomic-replace cycle
// for a single file. The original ciphertext is only replaced after the new
// blob is fully written, flushed, and verified; losing a secret to a
// corrupted rekey is the failure this engine exists to prevent.
func rekeyOne(req RekeyRequest, identities []*Identity, cache *CacheStore) error {
	if req.Recipients == nil || req.Recipients.Len() == 0 {
		return kerrors.ErrEmptyRecipients
	}

	blob, err := os.ReadFile(req.Path)
	if err != nil {
		return fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, req.Path)
	}

	plaintext, err := Decrypt(blob, identities...)
	if err != nil {
		return err
	}

	newBlob, err := Encrypt(plaintext, req.Recipients)
	if err != nil {
		return err
	}
	if err := verifyBlob(newBlob, plaintext, req.Recipients, identities); err != nil {
		return err
	}

	if err := WriteFileAtomic(req.Path, newBlob, 0644); err != nil {
		return err
	}
	if cache != nil && req.CacheKey != "" {
		cache.Update(req.CacheKey, newBlob, req.Recipients)
	}
	return nil
}
