package secrets

import (
	"fmt"

	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
)

// FileResult records the outcome of one file within a batch operation.
type FileResult struct {
	// Name is the manifest entry name, when known.
	Name string

	// Path is the ciphertext path the operation targeted.
	Path string

	// Err is nil on success.
	Err error
}

// SummarizeBatch turns per-file results into a single error: nil when every
// file succeeded, ErrPartialBatchFailure otherwise. A single bad file never
// blocks the rest of a batch; the caller reports per-file errors from the
// results themselves.
func SummarizeBatch(results []FileResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d", kerrors.ErrPartialBatchFailure, failed, len(results))
}
