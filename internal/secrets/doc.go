// Package secrets is Arcanum's encryption orchestration and consistency
// engine.
//
// It encrypts each managed file to a configured set of recipients using the
// age v1 format, tracks whether a file's encryption is current through a
// derived cache that never needs to decrypt anything, and replaces
// ciphertext only through verified atomic writes.
//
// The main pieces:
//
//   - Identity / RecipientSet: key material in (identity files, SSH keys)
//     and public keys out (age X25519 or SSH authorized-key lines).
//   - Encrypt / Decrypt / Inspect: multi-recipient authenticated encryption
//     with errors mapped onto a small taxonomy (no matching recipient,
//     authentication failure, malformed blob).
//   - CacheStore: a regenerable index of {content, recipient-set}
//     fingerprints per file. Disposable by design; rebuilding it from
//     ciphertext headers and configuration is always equivalent.
//   - EditSession / MergeSession: decrypt into a scoped temporary file,
//     hand off to the external editor, re-encrypt on change. The temporary
//     plaintext is removed on every exit path.
//   - RekeyFiles: batch re-encryption to a new recipient set, per-file
//     isolation, bounded parallelism.
//
// Nothing here caches private key material, and no partial ciphertext is
// ever visible under a managed path.
package secrets
