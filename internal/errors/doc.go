// Package errors defines sentinel errors for Arcanum operations.
//
// These errors enable programmatic error handling with errors.Is() while
// preserving human-readable messages. Callers wrap them with context:
//
//	return fmt.Errorf("%w: %v", kerrors.ErrNoMatchingRecipient, err)
//
// Single-file operations surface the first failure directly and perform no
// partial write. Batch operations isolate per-file failures, continue with
// the remainder, and report ErrPartialBatchFailure alongside per-file
// results.
package errors
