package errors

import "errors"

// Identity errors indicate problems producing private key material.
var (
	// ErrIdentityNotFound indicates no identity file exists at the given reference.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrIdentityUnreadable indicates an identity file exists but could not be parsed.
	ErrIdentityUnreadable = errors.New("identity could not be read")
)

// Recipient errors indicate problems with the configured recipient set.
var (
	// ErrRecipientParse indicates a recipient line is malformed.
	ErrRecipientParse = errors.New("malformed recipient")

	// ErrEmptyRecipients indicates an encryption was requested with no recipients.
	// Encrypting to nobody is a configuration error, never silently accepted.
	ErrEmptyRecipients = errors.New("recipient set is empty")
)

// Cryptographic errors indicate failures during encryption or decryption.
var (
	// ErrNoMatchingRecipient indicates none of the supplied identities can
	// unwrap the file key of a ciphertext.
	ErrNoMatchingRecipient = errors.New("no identity matches any recipient of this file")

	// ErrAuthenticationFailure indicates the ciphertext failed its
	// authentication check. This signals tampering or corruption and is
	// never downgraded to a missing-file condition.
	ErrAuthenticationFailure = errors.New("ciphertext failed authentication")

	// ErrMalformedBlob indicates the ciphertext is not a valid encrypted file.
	ErrMalformedBlob = errors.New("malformed encrypted file")
)

// Cache errors indicate problems with the derived encryption-currency index.
var (
	// ErrCacheStale indicates the cache disagrees with the on-disk state.
	ErrCacheStale = errors.New("cache entry is stale")
)

// Merge errors indicate problems resolving encrypted-file conflicts.
var (
	// ErrMergeBaseUnavailable indicates no common base version exists for a
	// three-way merge.
	ErrMergeBaseUnavailable = errors.New("merge base is unavailable")
)

// Batch errors indicate partial completion of a multi-file operation.
var (
	// ErrPartialBatchFailure indicates at least one file in a batch failed
	// while others were processed.
	ErrPartialBatchFailure = errors.New("some files failed")
)

// Project state errors indicate issues with project configuration.
var (
	// ErrProjectNotInitialized indicates no manifest was found for this project.
	ErrProjectNotInitialized = errors.New("project has not been initialized")

	// ErrProjectAlreadyInitialized indicates a manifest already exists.
	ErrProjectAlreadyInitialized = errors.New("project has already been initialized")

	// ErrFileNotFound indicates a managed file could not be located.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileNotManaged indicates a file has no entry in the manifest.
	ErrFileNotManaged = errors.New("file is not listed in the manifest")

	// ErrPlaintextEmpty indicates an operation produced empty plaintext,
	// which is refused rather than written over a secret.
	ErrPlaintextEmpty = errors.New("plaintext is empty")
)
